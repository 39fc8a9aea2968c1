// Package domain defines the workout records tracked by the engine.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the workout variants.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// ParseKind normalises user input into a Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindRunning:
		return KindRunning, nil
	case KindCycling:
		return KindCycling, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Metrics carries the user-entered values of a workout. Extra is the cadence
// (steps/min) for running and the elevation gain (m) for cycling.
type Metrics struct {
	DistanceKm  float64
	DurationMin float64
	Extra       float64
}

// Record holds the fields shared by every workout variant.
type Record struct {
	ID               string
	CreatedAt        time.Time
	Coordinates      Coordinates
	DistanceKm       float64
	DurationMin      float64
	Description      string
	InteractionCount int
}

// Base exposes the shared fields of a workout.
func (r *Record) Base() *Record { return r }

// RecordInteraction counts a visit (e.g. the marker was focused).
func (r *Record) RecordInteraction() { r.InteractionCount++ }

// Workout is implemented by exactly *Running and *Cycling.
type Workout interface {
	Base() *Record
	Kind() Kind
	// Detail returns the kind-specific field: cadence or elevation gain.
	Detail() float64
	// DerivedMetric returns pace (min/km) or speed (km/h).
	DerivedMetric() float64
	RecomputeDerived()
	RecordInteraction()
	Metrics() Metrics

	setDetail(float64)
}

// Running is a run with cadence and pace.
type Running struct {
	Record
	CadenceSpm   float64
	PaceMinPerKm float64
}

// NewRunning constructs a running workout placed at coords.
func NewRunning(coords Coordinates, m Metrics) *Running {
	w := &Running{
		Record:     newRecord(coords, m),
		CadenceSpm: m.Extra,
	}
	w.RecomputeDerived()
	w.Description = describe(KindRunning, w.CreatedAt)
	return w
}

func (w *Running) Kind() Kind             { return KindRunning }
func (w *Running) Detail() float64        { return w.CadenceSpm }
func (w *Running) DerivedMetric() float64 { return w.PaceMinPerKm }
func (w *Running) setDetail(v float64)    { w.CadenceSpm = v }

// RecomputeDerived refreshes the pace from distance and duration.
func (w *Running) RecomputeDerived() {
	w.PaceMinPerKm = w.DurationMin / w.DistanceKm
}

// Metrics returns the editable values of the run.
func (w *Running) Metrics() Metrics {
	return Metrics{DistanceKm: w.DistanceKm, DurationMin: w.DurationMin, Extra: w.CadenceSpm}
}

// Cycling is a ride with elevation gain and speed.
type Cycling struct {
	Record
	ElevationGainM float64
	SpeedKmPerH    float64
}

// NewCycling constructs a cycling workout placed at coords.
func NewCycling(coords Coordinates, m Metrics) *Cycling {
	w := &Cycling{
		Record:         newRecord(coords, m),
		ElevationGainM: m.Extra,
	}
	w.RecomputeDerived()
	w.Description = describe(KindCycling, w.CreatedAt)
	return w
}

func (w *Cycling) Kind() Kind             { return KindCycling }
func (w *Cycling) Detail() float64        { return w.ElevationGainM }
func (w *Cycling) DerivedMetric() float64 { return w.SpeedKmPerH }
func (w *Cycling) setDetail(v float64)    { w.ElevationGainM = v }

// RecomputeDerived refreshes the speed from distance and duration.
func (w *Cycling) RecomputeDerived() {
	w.SpeedKmPerH = w.DistanceKm / (w.DurationMin / 60)
}

// Metrics returns the editable values of the ride.
func (w *Cycling) Metrics() Metrics {
	return Metrics{DistanceKm: w.DistanceKm, DurationMin: w.DurationMin, Extra: w.ElevationGainM}
}

// New dispatches on kind to the variant constructor.
func New(kind Kind, coords Coordinates, m Metrics) (Workout, error) {
	switch kind {
	case KindRunning:
		return NewRunning(coords, m), nil
	case KindCycling:
		return NewCycling(coords, m), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Apply validates m against the workout's kind and, only if valid, replaces
// its editable values and recomputes the derived metric.
func Apply(w Workout, m Metrics) error {
	if err := Validate(w.Kind(), m); err != nil {
		return err
	}
	base := w.Base()
	base.DistanceKm = m.DistanceKm
	base.DurationMin = m.DurationMin
	w.setDetail(m.Extra)
	w.RecomputeDerived()
	return nil
}

// Restore overwrites the generated identity of a freshly constructed workout
// with stored values and recomputes the description from createdAt.
func Restore(w Workout, id string, createdAt time.Time, interactions int) {
	base := w.Base()
	base.ID = id
	base.CreatedAt = createdAt
	base.InteractionCount = interactions
	base.Description = describe(w.Kind(), createdAt)
}

func newRecord(coords Coordinates, m Metrics) Record {
	return Record{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Coordinates: coords,
		DistanceKm:  m.DistanceKm,
		DurationMin: m.DurationMin,
	}
}

// describe renders "<Kind> on <Month> <Day>".
func describe(kind Kind, at time.Time) string {
	name := string(kind)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s on %s %d", name, at.Month(), at.Day())
}

// Place is the result of a reverse-geocoding lookup.
type Place struct {
	City   string
	County string
}

// Label returns the city, falling back to the county.
func (p Place) Label() string {
	if p.City != "" {
		return p.City
	}
	return p.County
}

// Clone returns an independent copy of w.
func Clone(w Workout) Workout {
	switch v := w.(type) {
	case *Running:
		c := *v
		return &c
	case *Cycling:
		c := *v
		return &c
	default:
		return nil
	}
}
