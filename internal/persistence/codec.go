// Package persistence serialises the workout list to a flat key-value store
// and rebuilds typed workouts from it.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/barbizo19/mapty/internal/domain"
)

// DefaultKey is the store key holding the serialised workout list.
const DefaultKey = "workouts"

// CurrentVersion is the snapshot layout written by Save.
const CurrentVersion = 1

var (
	// ErrCorruptSnapshot is returned when stored data cannot be rebuilt into workouts.
	ErrCorruptSnapshot = errors.New("corrupt workout snapshot")
	// ErrUnsupportedVersion is returned for snapshots written by a newer layout.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Store is a flat key-value store.
type Store interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Codec reads and writes the workout list under a single key.
type Codec struct {
	store Store
	key   string
}

// NewCodec constructs a Codec. An empty key falls back to DefaultKey.
func NewCodec(store Store, key string) *Codec {
	if key == "" {
		key = DefaultKey
	}
	return &Codec{store: store, key: key}
}

// Key returns the store key used by the codec.
func (c *Codec) Key() string { return c.key }

// Save writes the full list, replacing whatever was stored before.
func (c *Codec) Save(ctx context.Context, workouts []domain.Workout) error {
	env := envelope{
		Version:  CurrentVersion,
		Workouts: make([]snapshot, 0, len(workouts)),
	}
	for _, w := range workouts {
		env.Workouts = append(env.Workouts, toSnapshot(w))
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode workouts: %w", err)
	}
	if err := c.store.Set(ctx, c.key, body); err != nil {
		return fmt.Errorf("store workouts: %w", err)
	}
	return nil
}

// Load rebuilds the stored list. Missing data yields an empty list.
func (c *Codec) Load(ctx context.Context) ([]domain.Workout, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("read workouts: %w", err)
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return []domain.Workout{}, nil
	}
	snaps, err := decode(raw)
	if err != nil {
		return nil, err
	}

	workouts := make([]domain.Workout, 0, len(snaps))
	seen := make(map[string]int, len(snaps))
	for i, s := range snaps {
		w, err := s.rebuild()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorruptSnapshot, i, err)
		}
		if first, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: entry %d: id %q already used by entry %d", ErrCorruptSnapshot, i, s.ID, first)
		}
		seen[s.ID] = i
		workouts = append(workouts, w)
	}
	return workouts, nil
}

// Clear removes the stored list.
func (c *Codec) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("clear workouts: %w", err)
	}
	return nil
}

type envelope struct {
	Version  int        `json:"version"`
	Workouts []snapshot `json:"workouts"`
}

// snapshot is the flat, type-erased form of a workout.
type snapshot struct {
	ID               string      `json:"id"`
	CreatedAt        time.Time   `json:"createdAt"`
	Coordinates      []float64   `json:"coordinates"`
	DistanceKm       float64     `json:"distanceKm"`
	DurationMin      float64     `json:"durationMin"`
	Kind             domain.Kind `json:"kind"`
	CadenceSpm       *float64    `json:"cadenceSpm,omitempty"`
	ElevationGainM   *float64    `json:"elevationGainM,omitempty"`
	InteractionCount int         `json:"interactionCount,omitempty"`
}

func toSnapshot(w domain.Workout) snapshot {
	base := w.Base()
	s := snapshot{
		ID:               base.ID,
		CreatedAt:        base.CreatedAt,
		Coordinates:      []float64{base.Coordinates.Lat, base.Coordinates.Lng},
		DistanceKm:       base.DistanceKm,
		DurationMin:      base.DurationMin,
		Kind:             w.Kind(),
		InteractionCount: base.InteractionCount,
	}
	detail := w.Detail()
	switch w.Kind() {
	case domain.KindRunning:
		s.CadenceSpm = &detail
	case domain.KindCycling:
		s.ElevationGainM = &detail
	}
	return s
}

// rebuild runs the variant's normal constructor and then reconciles the
// stored identity onto it, so the result carries full workout behaviour.
func (s snapshot) rebuild() (domain.Workout, error) {
	if s.ID == "" {
		return nil, errors.New("missing id")
	}
	if s.CreatedAt.IsZero() {
		return nil, errors.New("missing createdAt")
	}
	if len(s.Coordinates) != 2 {
		return nil, errors.New("coordinates must have two values")
	}
	lat, lng := s.Coordinates[0], s.Coordinates[1]
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("coordinates [%v, %v] out of range", lat, lng)
	}
	m := domain.Metrics{DistanceKm: s.DistanceKm, DurationMin: s.DurationMin}
	switch s.Kind {
	case domain.KindRunning:
		if s.CadenceSpm != nil {
			m.Extra = *s.CadenceSpm
		}
	case domain.KindCycling:
		if s.ElevationGainM != nil {
			m.Extra = *s.ElevationGainM
		}
	}
	if err := domain.Validate(s.Kind, m); err != nil {
		return nil, err
	}

	coords := domain.Coordinates{Lat: lat, Lng: lng}
	w, err := domain.New(s.Kind, coords, m)
	if err != nil {
		return nil, err
	}
	domain.Restore(w, s.ID, s.CreatedAt, s.InteractionCount)
	return w, nil
}
