package config

import "time"

const (
	devAuthListenAddrVar    = "DEVAUTH_LISTEN_ADDR"
	devAuthIssuerVar        = "DEVAUTH_ISSUER"
	devAuthSigningSecretVar = "DEVAUTH_SIGNING_SECRET"
	devAuthClientIDVar      = "DEVAUTH_CLIENT_ID"
	devAuthClientSecretVar  = "DEVAUTH_CLIENT_SECRET"
	devAuthUsernameVar      = "DEVAUTH_USERNAME"
	devAuthPasswordVar      = "DEVAUTH_PASSWORD"
	devAuthEmailVar         = "DEVAUTH_EMAIL"
	devAuthRolesVar         = "DEVAUTH_ROLES"
	accessTokenExpiryVar    = "DEVAUTH_ACCESS_TOKEN_EXPIRY"
	refreshTokenExpiryVar   = "DEVAUTH_REFRESH_TOKEN_EXPIRY"
	refreshTokenLengthVar   = "DEVAUTH_REFRESH_TOKEN_LENGTH"
)

type DevAuth struct{ *source }

var _ DevAuthConfig = DevAuth{}

func (d DevAuth) GetDevAuthListenAddr() string {
	return d.get(devAuthListenAddrVar, "127.0.0.1:9096")
}

// GetDevAuthIssuer must match the URL clients use for discovery exactly.
func (d DevAuth) GetDevAuthIssuer() string {
	return d.get(devAuthIssuerVar, "http://127.0.0.1:9096")
}

func (d DevAuth) GetDevAuthSigningSecret() string {
	return d.get(devAuthSigningSecretVar, "dev-only-signing-secret")
}

func (d DevAuth) GetDevAuthClientID() string {
	return d.get(devAuthClientIDVar, "ticketremaster-web")
}

func (d DevAuth) GetDevAuthClientSecret() string {
	return d.get(devAuthClientSecretVar, "")
}

func (d DevAuth) GetDevAuthUsername() string {
	return d.get(devAuthUsernameVar, "demo")
}

func (d DevAuth) GetDevAuthPassword() string {
	return d.get(devAuthPasswordVar, "Tickets4All")
}

func (d DevAuth) GetDevAuthEmail() string {
	return d.get(devAuthEmailVar, "demo@ticketremaster.local")
}

func (d DevAuth) GetDevAuthRoles() []string {
	return d.getList(devAuthRolesVar, []string{"buyer", "seller"})
}

func (d DevAuth) GetAccessTokenExpiry() time.Duration {
	return d.getDuration(accessTokenExpiryVar, 15*time.Minute)
}

func (d DevAuth) GetRefreshTokenExpiry() time.Duration {
	return d.getDuration(refreshTokenExpiryVar, 7*24*time.Hour)
}

func (d DevAuth) GetRefreshTokenLength() int {
	return d.getInt(refreshTokenLengthVar, 32) // 32 bytes = 256 bits
}
