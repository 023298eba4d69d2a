package sessionstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jrsteele09/ticketremaster/session"
	"github.com/jrsteele09/ticketremaster/sessionstore"
	"github.com/stretchr/testify/require"
)

func testSession() session.Session {
	return session.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User: &session.User{
			ID:    "user-1",
			Name:  "Jane Doe",
			Email: "jane@example.com",
			Roles: []string{"buyer", "seller"},
		},
		Expiry: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func newSQLiteStore(t *testing.T, profile string) *sessionstore.SQLStore {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := sessionstore.NewSQLStore(db, sessionstore.DialectSQLite, profile)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, "")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded, "empty table should load nothing")

	want := testSession()
	require.NoError(t, store.Save(ctx, want))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, want.AccessToken, loaded.AccessToken)
	require.Equal(t, want.RefreshToken, loaded.RefreshToken)
	require.Equal(t, want.User, loaded.User)
	require.True(t, want.Expiry.Equal(loaded.Expiry))
}

func TestSQLStore_SaveReplacesRow(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, "kiosk")

	require.NoError(t, store.Save(ctx, testSession()))

	next := testSession()
	next.AccessToken = "access-2"
	next.RefreshToken = "refresh-2"
	next.Expiry = time.Time{}
	require.NoError(t, store.Save(ctx, next))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "access-2", loaded.AccessToken)
	require.Equal(t, "refresh-2", loaded.RefreshToken)
	require.True(t, loaded.Expiry.IsZero())
}

func TestSQLStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t, "")

	require.NoError(t, store.Save(ctx, testSession()))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Clearing an empty store is not an error
	require.NoError(t, store.Clear(ctx))
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := sessionstore.NewSQLStore(db, sessionstore.DialectPostgres, "")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM auth_session WHERE id = $1")).
		WithArgs("default").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Clear(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := sessionstore.NewSQLStore(db, sessionstore.DialectSQLite, "")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_session")).
		WillReturnError(errors.New("disk full"))

	err = store.Save(context.Background(), testSession())
	require.Error(t, err)
	require.Contains(t, err.Error(), "upserting session")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LoadCorruptUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := sessionstore.NewSQLStore(db, sessionstore.DialectSQLite, "")

	rows := sqlmock.NewRows([]string{"access_token", "refresh_token", "user_json", "expiry"}).
		AddRow("access-1", "refresh-1", "{not json", int64(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT access_token, refresh_token, user_json, expiry FROM auth_session WHERE id = ?")).
		WithArgs("default").
		WillReturnRows(rows)

	_, err = store.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "decoding user")
}
