package clients_test

import (
	"testing"

	"github.com/jrsteele09/ticketremaster/clients"
	"github.com/stretchr/testify/require"
)

func TestNew_ClientType(t *testing.T) {
	require.True(t, clients.New("web", "").IsPublic())
	require.False(t, clients.New("web", "s3cret").IsPublic())
}

func TestAuthenticate(t *testing.T) {
	public := clients.New("web", "")
	require.True(t, public.Authenticate("web", ""))
	require.True(t, public.Authenticate("web", "anything"))
	require.False(t, public.Authenticate("other", ""))

	confidential := clients.New("web", "s3cret")
	require.True(t, confidential.Authenticate("web", "s3cret"))
	require.False(t, confidential.Authenticate("web", "wrong"))
	require.False(t, confidential.Authenticate("web", ""))
}

func TestValidateScopes(t *testing.T) {
	c := clients.New("web", "", "openid", "profile", "offline_access")

	require.NoError(t, c.ValidateScopes(""))
	require.NoError(t, c.ValidateScopes("openid  offline_access"))
	require.ErrorIs(t, c.ValidateScopes("openid admin"), clients.ErrInvalidScope)
}
