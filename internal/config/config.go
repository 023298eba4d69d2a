package config

import "time"

type Config interface {
	EnvConfig
	AuthConfig
	SessionConfig
	SecurityConfig
	DevAuthConfig
}

type EnvConfig interface {
	GetListenAddr() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// AuthConfig describes how the front end reaches the authentication service.
type AuthConfig interface {
	GetAuthIssuer() string
	GetAuthClientID() string
	GetAuthClientSecret() string
	GetAuthScopes() []string
	GetAuthCallTimeout() time.Duration
	GetAuthRevokeTimeout() time.Duration
}

type SessionConfig interface {
	GetConcurrencyPolicy() string
	GetSessionStore() string
	GetSessionDSN() string
	GetSessionProfile() string
	GetSessionStoreTimeout() time.Duration
	GetRefreshSkew() time.Duration
}

type SecurityConfig interface {
	GetLoginRateLimit() float64
	GetLoginBurst() int
}

// DevAuthConfig configures the development authentication service.
type DevAuthConfig interface {
	GetDevAuthListenAddr() string
	GetDevAuthIssuer() string
	GetDevAuthSigningSecret() string
	GetDevAuthClientID() string
	GetDevAuthClientSecret() string
	GetDevAuthUsername() string
	GetDevAuthPassword() string
	GetDevAuthEmail() string
	GetDevAuthRoles() []string
	TokenConfig
}

// TokenConfig holds token lifetimes and sizes.
type TokenConfig interface {
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type mainConfig struct {
	EnvVars
	Auth
	Session
	Security
	DevAuth
}

// New returns a configuration backed by environment variables only.
func New() Config {
	return newMainConfig(&source{})
}

func newMainConfig(src *source) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{src},
		Auth:     Auth{src},
		Session:  Session{src},
		Security: Security{src},
		DevAuth:  DevAuth{src},
	}
}
