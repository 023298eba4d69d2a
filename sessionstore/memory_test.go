package sessionstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/ticketremaster/sessionstore"
	"github.com/stretchr/testify/require"
)

func TestMemory_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := sessionstore.NewMemory()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)

	want := testSession()
	require.NoError(t, store.Save(ctx, want))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, *loaded)

	// Loaded copies are detached from the stored record
	loaded.User.Roles[0] = "admin"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "buyer", again.User.Roles[0])

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory by default", func(t *testing.T) {
		store, closer, err := sessionstore.Open(ctx, "", "", "")
		require.NoError(t, err)
		require.IsType(t, &sessionstore.Memory{}, store)
		require.NoError(t, closer.Close())
	})

	t.Run("sqlite migrates", func(t *testing.T) {
		dsn := t.TempDir() + "/open.db"
		store, closer, err := sessionstore.Open(ctx, "sqlite", dsn, "")
		require.NoError(t, err)
		defer closer.Close()

		require.NoError(t, store.Save(ctx, testSession()))
		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "access-1", loaded.AccessToken)
	})

	t.Run("sqlite requires dsn", func(t *testing.T) {
		_, _, err := sessionstore.Open(ctx, "sqlite", "", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires a DSN")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, _, err := sessionstore.Open(ctx, "etcd", "", "")
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown store kind")
	})

	t.Run("bad redis url", func(t *testing.T) {
		_, _, err := sessionstore.Open(ctx, "redis", "http://nope", "")
		require.Error(t, err)
	})
}
