package sessionstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jrsteele09/ticketremaster/sessionstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Set TICKETREMASTER_TEST_REDIS_URL (e.g. redis://localhost:6379/15) to run.
func newRedisStore(t *testing.T) *sessionstore.RedisStore {
	t.Helper()

	url := os.Getenv("TICKETREMASTER_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TICKETREMASTER_TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	rdb := redis.NewClient(opt)
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	return sessionstore.NewRedisStore(rdb, "test-"+uuid.NewString())
}

func TestRedisStore_SaveLoadClear(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()
	t.Cleanup(func() { _ = store.Clear(ctx) })

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)

	want := testSession()
	require.NoError(t, store.Save(ctx, want))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, want.AccessToken, loaded.AccessToken)
	require.Equal(t, want.RefreshToken, loaded.RefreshToken)
	require.Equal(t, want.User.Email, loaded.User.Email)
	require.True(t, want.Expiry.Equal(loaded.Expiry))

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)
}
