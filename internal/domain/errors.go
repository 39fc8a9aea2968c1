package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput matches every *ValidationError.
	ErrInvalidInput = errors.New("invalid workout input")
	// ErrWorkoutNotFound is returned when an id is absent from the current list.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrNoPendingPlacement is returned when a workout is created before a map location was chosen.
	ErrNoPendingPlacement = errors.New("no pending placement")
	// ErrUnknownKind is returned for workout kinds other than running and cycling.
	ErrUnknownKind = errors.New("unknown workout kind")
	// ErrPositionUnavailable reports a geolocation failure.
	ErrPositionUnavailable = errors.New("current position unavailable")
	// ErrGeocodeFailed reports a reverse-geocoding failure.
	ErrGeocodeFailed = errors.New("reverse geocoding failed")
)

// ValidationError describes the first rejected input field.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s (got %v)", e.Field, e.Reason, e.Value)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validate checks form input for the given kind. Every value must be finite;
// distance, duration and running cadence must be strictly positive. Cycling
// elevation gain may be zero or negative for downhill rides.
func Validate(kind Kind, m Metrics) error {
	extraField := ""
	switch kind {
	case KindRunning:
		extraField = "cadence_spm"
	case KindCycling:
		extraField = "elevation_gain_m"
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	fields := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"distance_km", m.DistanceKm, true},
		{"duration_min", m.DurationMin, true},
		{extraField, m.Extra, kind == KindRunning},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ValidationError{Field: f.name, Value: f.value, Reason: "must be a finite number"}
		}
		if f.positive && f.value <= 0 {
			return &ValidationError{Field: f.name, Value: f.value, Reason: "must be greater than zero"}
		}
	}
	return nil
}
