package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/barbizo19/mapty/internal/domain"
	"github.com/barbizo19/mapty/internal/engine"
)

// PlacementRequest is the payload for POST /v1/placement.
type PlacementRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Validate ensures request correctness.
func (r PlacementRequest) Validate() error {
	if r.Lat == nil || r.Lng == nil {
		return errors.New("lat and lng are required")
	}
	if *r.Lat < -90 || *r.Lat > 90 {
		return fmt.Errorf("lat must be within [-90, 90], got %v", *r.Lat)
	}
	if *r.Lng < -180 || *r.Lng > 180 {
		return fmt.Errorf("lng must be within [-180, 180], got %v", *r.Lng)
	}
	return nil
}

// WorkoutRequest is the payload for creating and editing workouts. Kind is
// ignored on edit.
type WorkoutRequest struct {
	Kind           string   `json:"kind"`
	DistanceKm     *float64 `json:"distance_km"`
	DurationMin    *float64 `json:"duration_min"`
	CadenceSpm     *float64 `json:"cadence_spm"`
	ElevationGainM *float64 `json:"elevation_gain_m"`
}

// Metrics picks the fields relevant to kind. Value checks are left to the
// engine so both paths share one rule.
func (r WorkoutRequest) Metrics(kind domain.Kind) (domain.Metrics, error) {
	if r.DistanceKm == nil {
		return domain.Metrics{}, errors.New("distance_km is required")
	}
	if r.DurationMin == nil {
		return domain.Metrics{}, errors.New("duration_min is required")
	}
	m := domain.Metrics{DistanceKm: *r.DistanceKm, DurationMin: *r.DurationMin}
	switch kind {
	case domain.KindRunning:
		if r.CadenceSpm == nil {
			return domain.Metrics{}, errors.New("cadence_spm is required for running")
		}
		m.Extra = *r.CadenceSpm
	case domain.KindCycling:
		if r.ElevationGainM == nil {
			return domain.Metrics{}, errors.New("elevation_gain_m is required for cycling")
		}
		m.Extra = *r.ElevationGainM
	}
	return m, nil
}

// CoordinatesView is a lat/lng pair.
type CoordinatesView struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WorkoutView exposes a workout as rendered in the list.
type WorkoutView struct {
	ID               string      `json:"id"`
	Kind             domain.Kind `json:"kind"`
	Description      string      `json:"description"`
	Location         string      `json:"location,omitempty"`
	Lat              float64     `json:"lat"`
	Lng              float64     `json:"lng"`
	DistanceKm       float64     `json:"distance_km"`
	DurationMin      float64     `json:"duration_min"`
	CadenceSpm       *float64    `json:"cadence_spm,omitempty"`
	PaceMinPerKm     *float64    `json:"pace_min_per_km,omitempty"`
	ElevationGainM   *float64    `json:"elevation_gain_m,omitempty"`
	SpeedKmPerH      *float64    `json:"speed_km_per_h,omitempty"`
	InteractionCount int         `json:"interaction_count"`
	Editing          bool        `json:"editing"`
	CreatedAt        time.Time   `json:"created_at"`
}

// ListWorkoutsResponse packages the rendered list.
type ListWorkoutsResponse struct {
	Items            []WorkoutView    `json:"items"`
	PendingPlacement *CoordinatesView `json:"pending_placement,omitempty"`
}

// EditFormView carries the values that pre-fill an edit form.
type EditFormView struct {
	ID             string      `json:"id"`
	Kind           domain.Kind `json:"kind"`
	DistanceKm     float64     `json:"distance_km"`
	DurationMin    float64     `json:"duration_min"`
	CadenceSpm     *float64    `json:"cadence_spm,omitempty"`
	ElevationGainM *float64    `json:"elevation_gain_m,omitempty"`
}

func toCoordinatesView(c domain.Coordinates) CoordinatesView {
	return CoordinatesView{Lat: c.Lat, Lng: c.Lng}
}

func toWorkoutView(e engine.Entry) WorkoutView {
	w := e.Workout
	base := w.Base()
	view := WorkoutView{
		ID:               base.ID,
		Kind:             w.Kind(),
		Description:      base.Description,
		Location:         e.Location,
		Lat:              base.Coordinates.Lat,
		Lng:              base.Coordinates.Lng,
		DistanceKm:       base.DistanceKm,
		DurationMin:      base.DurationMin,
		InteractionCount: base.InteractionCount,
		Editing:          e.Editing,
		CreatedAt:        base.CreatedAt,
	}
	detail, derived := w.Detail(), w.DerivedMetric()
	switch w.Kind() {
	case domain.KindRunning:
		view.CadenceSpm = &detail
		view.PaceMinPerKm = &derived
	case domain.KindCycling:
		view.ElevationGainM = &detail
		view.SpeedKmPerH = &derived
	}
	return view
}

func toEditFormView(id string, kind domain.Kind, m domain.Metrics) EditFormView {
	view := EditFormView{ID: id, Kind: kind, DistanceKm: m.DistanceKm, DurationMin: m.DurationMin}
	extra := m.Extra
	switch kind {
	case domain.KindRunning:
		view.CadenceSpm = &extra
	case domain.KindCycling:
		view.ElevationGainM = &extra
	}
	return view
}
