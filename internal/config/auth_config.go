package config

import "time"

const (
	authIssuerVar        = "AUTH_ISSUER"
	authClientIDVar      = "AUTH_CLIENT_ID"
	authClientSecretVar  = "AUTH_CLIENT_SECRET"
	authScopesVar        = "AUTH_SCOPES"
	authCallTimeoutVar   = "AUTH_CALL_TIMEOUT"
	authRevokeTimeoutVar = "AUTH_REVOKE_TIMEOUT"
)

type Auth struct{ *source }

var _ AuthConfig = Auth{}

func (a Auth) GetAuthIssuer() string {
	return a.get(authIssuerVar, "http://127.0.0.1:9096")
}

func (a Auth) GetAuthClientID() string {
	return a.get(authClientIDVar, "ticketremaster-web")
}

func (a Auth) GetAuthClientSecret() string {
	return a.get(authClientSecretVar, "")
}

func (a Auth) GetAuthScopes() []string {
	return a.getList(authScopesVar, []string{"openid", "profile", "email", "offline_access"})
}

// GetAuthCallTimeout bounds every exchange with the authentication service.
func (a Auth) GetAuthCallTimeout() time.Duration {
	return a.getDuration(authCallTimeoutVar, 10*time.Second)
}

func (a Auth) GetAuthRevokeTimeout() time.Duration {
	return a.getDuration(authRevokeTimeoutVar, 5*time.Second)
}
