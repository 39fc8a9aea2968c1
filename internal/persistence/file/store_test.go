package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "workouts", []byte(`[1]`)))
	require.NoError(t, first.Set(ctx, "workouts", []byte(`[1,2]`)))

	second, err := NewStore(dir)
	require.NoError(t, err)
	got, ok, err := second.Get(ctx, "workouts")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[1,2]`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	require.Equal(t, "workouts.json", entries[0].Name())
}

func TestStoreMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "workouts")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Delete(ctx, "workouts"))
	require.NoError(t, store.Set(ctx, "workouts", []byte("x")))
	require.NoError(t, store.Delete(ctx, "workouts"))

	_, ok, err = store.Get(ctx, "workouts")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreRejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", ".hidden", "a/b"} {
		require.ErrorIs(t, store.Set(ctx, key, []byte("x")), ErrInvalidKey, key)
		_, _, err := store.Get(ctx, key)
		require.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewStoreRequiresDirectory(t *testing.T) {
	_, err := NewStore("  ")
	require.Error(t, err)
}
