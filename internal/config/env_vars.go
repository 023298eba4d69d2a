package config

import "strings"

const (
	listenAddrVar = "LISTEN_ADDR"
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
)

type EnvVars struct{ *source }

var _ EnvConfig = EnvVars{}

// GetListenAddr returns LISTEN_ADDR, or localhost on PORT. The front end holds
// a single user's session so it binds to loopback unless told otherwise.
func (e EnvVars) GetListenAddr() string {
	if addr := e.get(listenAddrVar, ""); addr != "" {
		return addr
	}
	port := strings.TrimPrefix(e.get(portEnvVar, "8080"), ":")
	return "127.0.0.1:" + port
}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, "TicketRemaster")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.get(logLevelVar, "info"))
}
