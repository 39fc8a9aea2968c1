package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRunningComputesPaceAndDescription(t *testing.T) {
	w := NewRunning(Coordinates{Lat: 39, Lng: -12}, Metrics{DistanceKm: 5.2, DurationMin: 24, Extra: 178})

	require.NotEmpty(t, w.ID)
	require.Equal(t, KindRunning, w.Kind())
	require.InDelta(t, 4.615, w.PaceMinPerKm, 0.001)
	require.Equal(t, 178.0, w.CadenceSpm)
	require.Regexp(t, `^Running on [A-Z][a-z]+ \d{1,2}$`, w.Description)
	require.Zero(t, w.InteractionCount)
}

func TestNewCyclingComputesSpeed(t *testing.T) {
	w := NewCycling(Coordinates{Lat: 39, Lng: -12}, Metrics{DistanceKm: 27, DurationMin: 95, Extra: 523})

	require.Equal(t, KindCycling, w.Kind())
	require.InDelta(t, 17.05, w.SpeedKmPerH, 0.01)
	require.Equal(t, 523.0, w.Detail())
	require.Contains(t, w.Description, "Cycling on")
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		w := NewRunning(Coordinates{}, Metrics{DistanceKm: 1, DurationMin: 1, Extra: 1})
		_, dup := seen[w.ID]
		require.False(t, dup)
		seen[w.ID] = struct{}{}
	}
}

func TestDerivedMetricsFollowEdits(t *testing.T) {
	cases := []Metrics{
		{DistanceKm: 1, DurationMin: 5, Extra: 160},
		{DistanceKm: 42.195, DurationMin: 180, Extra: 170},
		{DistanceKm: 0.4, DurationMin: 1.5, Extra: 200},
	}
	for _, m := range cases {
		run := NewRunning(Coordinates{}, Metrics{DistanceKm: 10, DurationMin: 50, Extra: 170})
		require.NoError(t, Apply(run, m))
		require.Equal(t, m.DurationMin/m.DistanceKm, run.PaceMinPerKm)

		ride := NewCycling(Coordinates{}, Metrics{DistanceKm: 10, DurationMin: 50, Extra: 0})
		require.NoError(t, Apply(ride, m))
		require.Equal(t, m.DistanceKm/(m.DurationMin/60), ride.SpeedKmPerH)
		require.Equal(t, m, ride.Metrics())
	}
}

func TestApplyRejectsInvalidWithoutMutation(t *testing.T) {
	run := NewRunning(Coordinates{Lat: 1, Lng: 2}, Metrics{DistanceKm: 5, DurationMin: 25, Extra: 170})
	before := *run

	err := Apply(run, Metrics{DistanceKm: -1, DurationMin: 30, Extra: 170})
	require.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "distance_km", verr.Field)
	require.Equal(t, before, *run)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		m     Metrics
		field string
	}{
		{"valid run", KindRunning, Metrics{DistanceKm: 5, DurationMin: 20, Extra: 170}, ""},
		{"valid ride", KindCycling, Metrics{DistanceKm: 20, DurationMin: 60, Extra: 300}, ""},
		{"downhill ride", KindCycling, Metrics{DistanceKm: 20, DurationMin: 60, Extra: -150}, ""},
		{"flat ride", KindCycling, Metrics{DistanceKm: 20, DurationMin: 60, Extra: 0}, ""},
		{"zero distance", KindRunning, Metrics{DistanceKm: 0, DurationMin: 20, Extra: 170}, "distance_km"},
		{"negative duration", KindCycling, Metrics{DistanceKm: 5, DurationMin: -2, Extra: 10}, "duration_min"},
		{"zero cadence", KindRunning, Metrics{DistanceKm: 5, DurationMin: 20, Extra: 0}, "cadence_spm"},
		{"nan distance", KindRunning, Metrics{DistanceKm: math.NaN(), DurationMin: 20, Extra: 170}, "distance_km"},
		{"infinite elevation", KindCycling, Metrics{DistanceKm: 5, DurationMin: 20, Extra: math.Inf(1)}, "elevation_gain_m"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.kind, tc.m)
			if tc.field == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}

	require.ErrorIs(t, Validate("swimming", Metrics{DistanceKm: 1, DurationMin: 1}), ErrUnknownKind)
}

func TestRestoreOverwritesIdentity(t *testing.T) {
	createdAt := time.Date(2024, time.March, 7, 8, 30, 0, 0, time.UTC)
	w, err := New(KindCycling, Coordinates{Lat: 39, Lng: -12}, Metrics{DistanceKm: 27, DurationMin: 95, Extra: 523})
	require.NoError(t, err)

	Restore(w, "stored-id", createdAt, 4)

	base := w.Base()
	require.Equal(t, "stored-id", base.ID)
	require.Equal(t, createdAt, base.CreatedAt)
	require.Equal(t, 4, base.InteractionCount)
	require.Equal(t, "Cycling on March 7", base.Description)

	w.RecordInteraction()
	require.Equal(t, 5, base.InteractionCount)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Running ")
	require.NoError(t, err)
	require.Equal(t, KindRunning, k)

	_, err = ParseKind("rowing")
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = New("rowing", Coordinates{}, Metrics{})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestCloneIsIndependent(t *testing.T) {
	run := NewRunning(Coordinates{Lat: 1, Lng: 2}, Metrics{DistanceKm: 5, DurationMin: 25, Extra: 170})
	c := Clone(run)

	require.Equal(t, run, c)
	c.RecordInteraction()
	require.NoError(t, Apply(c, Metrics{DistanceKm: 10, DurationMin: 40, Extra: 180}))

	require.Equal(t, 0, run.InteractionCount)
	require.Equal(t, 5.0, run.DistanceKm)
	require.Equal(t, 5.0, run.PaceMinPerKm)
	require.Nil(t, Clone(nil))
}

func TestPlaceLabel(t *testing.T) {
	require.Equal(t, "Lisbon", Place{City: "Lisbon", County: "Lisboa"}.Label())
	require.Equal(t, "Lisboa", Place{County: "Lisboa"}.Label())
	require.Empty(t, Place{}.Label())
}
