package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/barbizo19/mapty/internal/domain"
)

func TestLabelsResolveInBackground(t *testing.T) {
	geo := &fakeGeocoder{places: map[domain.Coordinates]domain.Place{
		lisbon: {City: "Lisbon", County: "Lisboa"},
		porto:  {County: "Porto District"},
	}}
	h := newHarness(t, WithGeocoder(geo))

	h.create(t, domain.KindRunning, lisbon, runMetrics)
	h.create(t, domain.KindCycling, porto, rideMetrics)

	require.Eventually(t, func() bool {
		entries := h.mgr.Entries()
		return entries[0].Location == "Lisbon" && entries[1].Location == "Porto District"
	}, time.Second, 5*time.Millisecond)
}

func TestLabelFailureLeavesLabelEmpty(t *testing.T) {
	geo := &fakeGeocoder{err: domain.ErrGeocodeFailed}
	h := newHarness(t, WithGeocoder(geo))

	w := h.create(t, domain.KindRunning, lisbon, runMetrics)
	h.mgr.Close()

	entries := h.mgr.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, w.Base().ID, entries[0].Workout.Base().ID)
	require.Empty(t, entries[0].Location)
}

func TestStaleLabelIsDiscardedAfterDelete(t *testing.T) {
	geo := &fakeGeocoder{
		places:  map[domain.Coordinates]domain.Place{lisbon: {City: "Lisbon"}},
		release: make(chan struct{}),
	}
	h := newHarness(t, WithGeocoder(geo))

	w := h.create(t, domain.KindRunning, lisbon, runMetrics)
	require.NoError(t, h.mgr.DeleteWorkout(context.Background(), w.Base().ID))

	require.Eventually(t, func() bool { return geo.canceledCount() == 1 }, time.Second, 5*time.Millisecond)
	close(geo.release)
	h.mgr.Close()

	h.mgr.mu.Lock()
	defer h.mgr.mu.Unlock()
	require.NotContains(t, h.mgr.labels, w.Base().ID)
	require.Empty(t, h.mgr.lookups)
}

func TestResetCancelsLookups(t *testing.T) {
	geo := &fakeGeocoder{release: make(chan struct{})}
	h := newHarness(t, WithGeocoder(geo))

	h.create(t, domain.KindRunning, lisbon, runMetrics)
	h.create(t, domain.KindRunning, porto, runMetrics)
	require.NoError(t, h.mgr.Reset(context.Background()))

	require.Eventually(t, func() bool { return geo.canceledCount() == 2 }, time.Second, 5*time.Millisecond)
	h.mgr.Close()
	require.Empty(t, h.mgr.Entries())
}

func TestLabelLookupTimesOut(t *testing.T) {
	geo := &fakeGeocoder{release: make(chan struct{})}
	h := newHarness(t, WithGeocoder(geo), WithGeocodeTimeout(10*time.Millisecond))

	h.create(t, domain.KindRunning, lisbon, runMetrics)

	require.Eventually(t, func() bool { return geo.canceledCount() == 1 }, time.Second, 5*time.Millisecond)
	h.mgr.Close()
	require.Empty(t, h.mgr.Entries()[0].Location)
}

func TestOpenSchedulesLabelsForLoadedWorkouts(t *testing.T) {
	geo := &fakeGeocoder{places: map[domain.Coordinates]domain.Place{faro: {City: "Faro"}}}
	h := newHarness(t, WithGeocoder(geo))

	ride := domain.NewCycling(faro, rideMetrics)
	require.NoError(t, h.codec.Save(context.Background(), []domain.Workout{ride}))
	require.NoError(t, h.mgr.Open(context.Background()))

	require.Eventually(t, func() bool {
		return h.mgr.Entries()[0].Location == "Faro"
	}, time.Second, 5*time.Millisecond)
}
