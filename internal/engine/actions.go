package engine

import (
	"context"
	"fmt"

	"github.com/barbizo19/mapty/internal/domain"
)

// ActionType tags a user interaction.
type ActionType int

const (
	ActionPlace ActionType = iota + 1
	ActionCreate
	ActionEdit
	ActionBeginEdit
	ActionCancelEdit
	ActionSave
	ActionDelete
	ActionFocus
	ActionSort
	ActionShowAll
	ActionReset
)

var actionNames = map[ActionType]string{
	ActionPlace:      "place",
	ActionCreate:     "create",
	ActionEdit:       "edit",
	ActionBeginEdit:  "begin_edit",
	ActionCancelEdit: "cancel_edit",
	ActionSave:       "save",
	ActionDelete:     "delete",
	ActionFocus:      "focus",
	ActionSort:       "sort",
	ActionShowAll:    "show_all",
	ActionReset:      "reset",
}

func (t ActionType) String() string {
	if name, ok := actionNames[t]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(t))
}

// Action is emitted by the interaction layer. Only the fields relevant to
// Type are read.
type Action struct {
	Type    ActionType
	ID      string
	Coords  domain.Coordinates
	Kind    domain.Kind
	Metrics domain.Metrics
	SortBy  SortField
}

// Result carries whatever the dispatched operation produced.
type Result struct {
	Workout domain.Workout
	Metrics domain.Metrics
	Coords  domain.Coordinates
}

// Dispatch routes an action to the matching operation.
func (m *Manager) Dispatch(ctx context.Context, a Action) (Result, error) {
	switch a.Type {
	case ActionPlace:
		m.BeginPlacement(a.Coords)
		return Result{Coords: a.Coords}, nil
	case ActionCreate:
		w, err := m.CreateWorkout(ctx, a.Kind, a.Metrics)
		return Result{Workout: w}, err
	case ActionEdit:
		w, err := m.EditWorkout(ctx, a.ID, a.Metrics)
		return Result{Workout: w}, err
	case ActionBeginEdit:
		metrics, err := m.BeginEdit(a.ID)
		return Result{Metrics: metrics}, err
	case ActionCancelEdit:
		return Result{}, m.CancelEdit(a.ID)
	case ActionSave:
		w, err := m.SaveEdit(ctx, a.ID, a.Metrics)
		return Result{Workout: w}, err
	case ActionDelete:
		return Result{}, m.DeleteWorkout(ctx, a.ID)
	case ActionFocus:
		coords, err := m.FocusWorkout(ctx, a.ID)
		return Result{Coords: coords}, err
	case ActionSort:
		return Result{}, m.SortBy(a.SortBy)
	case ActionShowAll:
		m.ShowAll()
		return Result{}, nil
	case ActionReset:
		return Result{}, m.Reset(ctx)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
}
