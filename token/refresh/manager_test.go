package refresh_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/jrsteele09/ticketremaster/token/refresh"
	refreshrepofake "github.com/jrsteele09/ticketremaster/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

type tokenConfig struct{}

func (tokenConfig) GetAccessTokenExpiry() time.Duration  { return time.Minute }
func (tokenConfig) GetRefreshTokenExpiry() time.Duration { return time.Hour }
func (tokenConfig) GetRefreshTokenLength() int           { return 16 }

type testFixture struct {
	repo    *refreshrepofake.FakeRefreshTokenRepo
	manager *refresh.Manager
	now     time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: refreshrepofake.NewFakeRefreshTokenRepo(),
		now:  time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	}
	f.manager = refresh.NewManager(f.repo, tokenConfig{}, refresh.WithNowFunc(func() time.Time { return f.now }))
	return f
}

func TestCreate(t *testing.T) {
	f := setupTestFixture(t)

	token, err := f.manager.Create("web", "user-1", "openid")
	require.NoError(t, err)
	require.Len(t, token, 32, "16 random bytes hex encoded")

	stored, err := f.repo.Get(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.UserID)
	require.Equal(t, "web", stored.ClientID)
	require.Equal(t, f.now, stored.Iat)
}

func TestCreate_ReplacesPreviousTokenForUser(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.manager.Create("web", "user-1", "")
	require.NoError(t, err)
	second, err := f.manager.Create("web", "user-1", "")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, 1, f.repo.Len())
	_, err = f.repo.Get(first)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestConsume(t *testing.T) {
	t.Run("valid token is single use", func(t *testing.T) {
		f := setupTestFixture(t)
		token, err := f.manager.Create("web", "user-1", "openid")
		require.NoError(t, err)

		rt, err := f.manager.Consume(token, "web")
		require.NoError(t, err)
		require.Equal(t, "user-1", rt.UserID)
		require.Equal(t, "openid", rt.Scope)

		_, err = f.manager.Consume(token, "web")
		require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
	})

	t.Run("wrong client", func(t *testing.T) {
		f := setupTestFixture(t)
		token, err := f.manager.Create("web", "user-1", "")
		require.NoError(t, err)

		_, err = f.manager.Consume(token, "other")
		require.ErrorIs(t, err, errors.ErrInvalidClient)
	})

	t.Run("expired", func(t *testing.T) {
		f := setupTestFixture(t)
		token, err := f.manager.Create("web", "user-1", "")
		require.NoError(t, err)

		f.now = f.now.Add(2 * time.Hour)
		_, err = f.manager.Consume(token, "web")
		require.ErrorIs(t, err, errors.ErrRefreshTokenExpired)
		require.Zero(t, f.repo.Len())
	})

	t.Run("unknown", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.Consume("nope", "web")
		require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
	})
}
