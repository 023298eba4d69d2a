package sessionstore

import (
	"testing"
	"time"

	"github.com/jrsteele09/ticketremaster/session"
	"github.com/stretchr/testify/require"
)

func TestRecordCodec(t *testing.T) {
	expiry := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	in := session.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		User:         &session.User{ID: "u", Roles: []string{"buyer"}},
		Expiry:       expiry,
	}

	data, err := encodeRecord(in)
	require.NoError(t, err)

	out, err := decodeRecord(data)
	require.NoError(t, err)
	require.Equal(t, in.AccessToken, out.AccessToken)
	require.Equal(t, in.RefreshToken, out.RefreshToken)
	require.Equal(t, in.User, out.User)
	require.True(t, expiry.Equal(out.Expiry))

	t.Run("zero expiry stays zero", func(t *testing.T) {
		data, err := encodeRecord(session.Session{AccessToken: "a", User: &session.User{ID: "u"}})
		require.NoError(t, err)
		out, err := decodeRecord(data)
		require.NoError(t, err)
		require.True(t, out.Expiry.IsZero())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		_, err := decodeRecord([]byte("{"))
		require.Error(t, err)
	})
}
