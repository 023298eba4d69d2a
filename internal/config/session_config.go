package config

import "time"

const (
	concurrencyPolicyVar = "SESSION_CONCURRENCY"
	sessionStoreVar      = "SESSION_STORE"
	sessionDSNVar        = "SESSION_DSN"
	sessionProfileVar    = "SESSION_PROFILE"
	refreshSkewVar       = "SESSION_REFRESH_SKEW"
	storeTimeoutVar      = "SESSION_STORE_TIMEOUT"
)

type Session struct{ *source }

var _ SessionConfig = Session{}

// GetConcurrencyPolicy is "wait" or "reject".
func (s Session) GetConcurrencyPolicy() string {
	return s.get(concurrencyPolicyVar, "wait")
}

// GetSessionStore is one of memory, sqlite, postgres or redis.
func (s Session) GetSessionStore() string {
	return s.get(sessionStoreVar, "memory")
}

func (s Session) GetSessionDSN() string {
	return s.get(sessionDSNVar, "")
}

func (s Session) GetSessionProfile() string {
	return s.get(sessionProfileVar, "default")
}

// GetSessionStoreTimeout bounds each read or write of the session store.
func (s Session) GetSessionStoreTimeout() time.Duration {
	return s.getDuration(storeTimeoutVar, 5*time.Second)
}

// GetRefreshSkew is how early before expiry a protected page triggers a refresh.
func (s Session) GetRefreshSkew() time.Duration {
	return s.getDuration(refreshSkewVar, 30*time.Second)
}
