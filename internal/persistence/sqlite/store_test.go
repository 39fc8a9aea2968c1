package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreUpsertAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mapty.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "workouts")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "workouts", []byte(`{"version":1,"workouts":[]}`)))
	require.NoError(t, store.Set(ctx, "workouts", []byte(`{"version":1,"workouts":[{}]}`)))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, ok, err := reopened.Get(ctx, "workouts")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"version":1,"workouts":[{}]}`, string(got))
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Delete(ctx, "missing"))
	require.NoError(t, store.Set(ctx, "workouts", []byte("x")))
	require.NoError(t, store.Delete(ctx, "workouts"))

	_, ok, err := store.Get(ctx, "workouts")
	require.NoError(t, err)
	require.False(t, ok)
}
