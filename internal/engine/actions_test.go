package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barbizo19/mapty/internal/domain"
)

func TestDispatchRoutesActions(t *testing.T) {
	h := newHarness(t, WithLocator(fakeLocator{coords: faro}))
	ctx := context.Background()
	require.NoError(t, h.mgr.Start(ctx))

	res, err := h.mgr.Dispatch(ctx, Action{Type: ActionPlace, Coords: lisbon})
	require.NoError(t, err)
	require.Equal(t, lisbon, res.Coords)

	res, err = h.mgr.Dispatch(ctx, Action{Type: ActionCreate, Kind: domain.KindRunning, Metrics: runMetrics})
	require.NoError(t, err)
	id := res.Workout.Base().ID

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionPlace, Coords: porto})
	require.NoError(t, err)
	res, err = h.mgr.Dispatch(ctx, Action{Type: ActionCreate, Kind: domain.KindCycling, Metrics: domain.Metrics{DistanceKm: 2, DurationMin: 10}})
	require.NoError(t, err)
	rideID := res.Workout.Base().ID

	res, err = h.mgr.Dispatch(ctx, Action{Type: ActionBeginEdit, ID: id})
	require.NoError(t, err)
	require.Equal(t, runMetrics, res.Metrics)

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionCancelEdit, ID: id})
	require.NoError(t, err)
	require.False(t, h.mgr.Editing(id))

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionBeginEdit, ID: id})
	require.NoError(t, err)
	res, err = h.mgr.Dispatch(ctx, Action{Type: ActionSave, ID: id, Metrics: domain.Metrics{DistanceKm: 10, DurationMin: 50, Extra: 170}})
	require.NoError(t, err)
	require.Equal(t, 5.0, res.Workout.DerivedMetric())

	res, err = h.mgr.Dispatch(ctx, Action{Type: ActionEdit, ID: rideID, Metrics: domain.Metrics{DistanceKm: 3, DurationMin: 10}})
	require.NoError(t, err)
	require.InDelta(t, 18.0, res.Workout.DerivedMetric(), 1e-9)

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionSort, SortBy: SortByDistance})
	require.NoError(t, err)
	require.Equal(t, []string{rideID, id}, ids(h.mgr.Workouts()))

	res, err = h.mgr.Dispatch(ctx, Action{Type: ActionFocus, ID: id})
	require.NoError(t, err)
	require.Equal(t, lisbon, res.Coords)

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionShowAll})
	require.NoError(t, err)
	require.Len(t, h.mapw.fits, 1)

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionDelete, ID: rideID})
	require.NoError(t, err)
	require.Equal(t, []string{id}, ids(h.mgr.Workouts()))

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionReset})
	require.NoError(t, err)
	require.Empty(t, h.mgr.Workouts())
}

func TestDispatchErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.mgr.Dispatch(ctx, Action{Type: ActionCreate, Kind: domain.KindRunning, Metrics: runMetrics})
	require.ErrorIs(t, err, domain.ErrNoPendingPlacement)

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionDelete, ID: "missing"})
	require.ErrorIs(t, err, domain.ErrWorkoutNotFound)

	_, err = h.mgr.Dispatch(ctx, Action{Type: ActionSort, SortBy: "calories"})
	require.ErrorIs(t, err, ErrUnknownSortField)

	_, err = h.mgr.Dispatch(ctx, Action{})
	require.ErrorIs(t, err, ErrUnknownAction)
	require.ErrorContains(t, err, "action(0)")
}

func TestActionTypeString(t *testing.T) {
	require.Equal(t, "place", ActionPlace.String())
	require.Equal(t, "cancel_edit", ActionCancelEdit.String())
	require.Equal(t, "action(42)", ActionType(42).String())
}
