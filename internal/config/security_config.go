package config

const (
	loginRateLimitVar = "LOGIN_RATE_LIMIT"
	loginBurstVar     = "LOGIN_BURST"
)

type Security struct{ *source }

var _ SecurityConfig = Security{}

// GetLoginRateLimit is the sustained number of login attempts allowed per second.
func (s Security) GetLoginRateLimit() float64 {
	return s.getFloat(loginRateLimitVar, 0.5)
}

func (s Security) GetLoginBurst() int {
	return s.getInt(loginBurstVar, 5)
}
