// Package events publishes workout change notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barbizo19/mapty/internal/domain"
)

// Event types emitted by the workout manager.
const (
	TypeWorkoutCreated = "workout.created"
	TypeWorkoutUpdated = "workout.updated"
	TypeWorkoutDeleted = "workout.deleted"
	TypeWorkoutsReset  = "workouts.reset"
)

// Publisher delivers change events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Event is the JSON payload written to the change feed.
type Event struct {
	EventID    string        `json:"event_id"`
	EventType  string        `json:"event_type"`
	OccurredAt time.Time     `json:"occurred_at"`
	WorkoutID  string        `json:"workout_id,omitempty"`
	Workout    *WorkoutState `json:"workout,omitempty"`
}

// WorkoutState is the record as it looked when the event was raised.
type WorkoutState struct {
	Kind             domain.Kind `json:"kind"`
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	DistanceKm       float64     `json:"distance_km"`
	DurationMin      float64     `json:"duration_min"`
	CadenceSpm       *float64    `json:"cadence_spm,omitempty"`
	ElevationGainM   *float64    `json:"elevation_gain_m,omitempty"`
	PaceMinPerKm     *float64    `json:"pace_min_per_km,omitempty"`
	SpeedKmPerH      *float64    `json:"speed_km_per_h,omitempty"`
	Description      string      `json:"description"`
	CreatedAt        time.Time   `json:"created_at"`
	InteractionCount int         `json:"interaction_count"`
}

// NewWorkoutEvent captures w for the given event type.
func NewWorkoutEvent(eventType string, w domain.Workout) Event {
	base := w.Base()
	state := &WorkoutState{
		Kind:             w.Kind(),
		Latitude:         base.Coordinates.Lat,
		Longitude:        base.Coordinates.Lng,
		DistanceKm:       base.DistanceKm,
		DurationMin:      base.DurationMin,
		Description:      base.Description,
		CreatedAt:        base.CreatedAt.UTC(),
		InteractionCount: base.InteractionCount,
	}
	detail, derived := w.Detail(), w.DerivedMetric()
	switch w.Kind() {
	case domain.KindRunning:
		state.CadenceSpm = &detail
		state.PaceMinPerKm = &derived
	case domain.KindCycling:
		state.ElevationGainM = &detail
		state.SpeedKmPerH = &derived
	}
	return Event{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		WorkoutID:  base.ID,
		Workout:    state,
	}
}

// NewDeletedEvent reports that the workout with id was removed.
func NewDeletedEvent(id string) Event {
	return Event{
		EventID:    uuid.NewString(),
		EventType:  TypeWorkoutDeleted,
		OccurredAt: time.Now().UTC(),
		WorkoutID:  id,
	}
}

// NewResetEvent reports that the whole list was cleared.
func NewResetEvent() Event {
	return Event{
		EventID:    uuid.NewString(),
		EventType:  TypeWorkoutsReset,
		OccurredAt: time.Now().UTC(),
	}
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }
