package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/barbizo19/mapty/internal/domain"
)

// decode parses a stored value of any known layout into current snapshots.
//
// Layouts:
//
//	v0: a bare JSON array without a version tag. Entries use either the
//	    current field names or the browser tracker's names
//	    (coords, date, type, distance, duration, cadence, elevationGain, clicks).
//	v1: {"version":1,"workouts":[...]}
func decode(raw []byte) ([]snapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return migrateV0(trimmed)
	}

	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	switch {
	case probe.Version == CurrentVersion:
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		return env.Workouts, nil
	case probe.Version > CurrentVersion:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, probe.Version)
	default:
		return nil, fmt.Errorf("%w: missing version", ErrCorruptSnapshot)
	}
}

type legacyEntry struct {
	ID string `json:"id"`

	CreatedAt *time.Time `json:"createdAt"`
	Date      *time.Time `json:"date"`

	Coordinates []float64 `json:"coordinates"`
	Coords      []float64 `json:"coords"`

	DistanceKm  *float64 `json:"distanceKm"`
	Distance    *float64 `json:"distance"`
	DurationMin *float64 `json:"durationMin"`
	Duration    *float64 `json:"duration"`

	Kind string `json:"kind"`
	Type string `json:"type"`

	CadenceSpm     *float64 `json:"cadenceSpm"`
	Cadence        *float64 `json:"cadence"`
	ElevationGainM *float64 `json:"elevationGainM"`
	ElevationGain  *float64 `json:"elevationGain"`

	InteractionCount *int `json:"interactionCount"`
	Clicks           *int `json:"clicks"`
}

func migrateV0(raw []byte) ([]snapshot, error) {
	var entries []legacyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	out := make([]snapshot, 0, len(entries))
	for i, e := range entries {
		coords := firstSlice(e.Coordinates, e.Coords)
		if len(coords) != 2 {
			return nil, fmt.Errorf("%w: entry %d: coordinates must have two values", ErrCorruptSnapshot, i)
		}
		s := snapshot{
			ID:             e.ID,
			Coordinates:    []float64{coords[0], coords[1]},
			DistanceKm:     valueOr(firstFloat(e.DistanceKm, e.Distance), 0),
			DurationMin:    valueOr(firstFloat(e.DurationMin, e.Duration), 0),
			Kind:           domain.Kind(firstString(e.Kind, e.Type)),
			CadenceSpm:     firstFloat(e.CadenceSpm, e.Cadence),
			ElevationGainM: firstFloat(e.ElevationGainM, e.ElevationGain),
		}
		if ts := firstTime(e.CreatedAt, e.Date); ts != nil {
			s.CreatedAt = *ts
		}
		if e.InteractionCount != nil {
			s.InteractionCount = *e.InteractionCount
		} else if e.Clicks != nil {
			s.InteractionCount = *e.Clicks
		}
		out = append(out, s)
	}
	return out, nil
}

func firstSlice(a, b []float64) []float64 {
	if a != nil {
		return a
	}
	return b
}

func firstFloat(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func firstTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
