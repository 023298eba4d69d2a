package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/ticketremaster/internal/config"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := config.New()

	require.Equal(t, "127.0.0.1:8080", cfg.GetListenAddr())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, 10*time.Second, cfg.GetAuthCallTimeout())
	require.Equal(t, 5*time.Second, cfg.GetAuthRevokeTimeout())
	require.Equal(t, []string{"openid", "profile", "email", "offline_access"}, cfg.GetAuthScopes())
	require.Equal(t, "wait", cfg.GetConcurrencyPolicy())
	require.Equal(t, "memory", cfg.GetSessionStore())
	require.Equal(t, 5*time.Second, cfg.GetSessionStoreTimeout())
	require.Equal(t, 32, cfg.GetRefreshTokenLength())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "web.toml", `
env = "prod"

[auth]
issuer = "https://auth.example.com"
scopes = ["openid", "offline_access"]
call-timeout = "3s"

[session]
store = "sqlite"
dsn = "/var/lib/ticketremaster/session.db"

[login]
rate-limit = 2.5
burst = 10
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "PROD", cfg.GetEnv())
	require.Equal(t, "https://auth.example.com", cfg.GetAuthIssuer())
	require.Equal(t, []string{"openid", "offline_access"}, cfg.GetAuthScopes())
	require.Equal(t, 3*time.Second, cfg.GetAuthCallTimeout())
	require.Equal(t, "sqlite", cfg.GetSessionStore())
	require.Equal(t, "/var/lib/ticketremaster/session.db", cfg.GetSessionDSN())
	require.Equal(t, 2.5, cfg.GetLoginRateLimit())
	require.Equal(t, 10, cfg.GetLoginBurst())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "web.yaml", `
auth:
  issuer: https://auth.example.com
  revoke_timeout: 2
session:
  concurrency: reject
devauth:
  roles: [admin]
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://auth.example.com", cfg.GetAuthIssuer())
	require.Equal(t, 2*time.Second, cfg.GetAuthRevokeTimeout())
	require.Equal(t, "reject", cfg.GetConcurrencyPolicy())
	require.Equal(t, []string{"admin"}, cfg.GetDevAuthRoles())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "web.toml", `
[auth]
issuer = "https://file.example.com"
`)
	t.Setenv("AUTH_ISSUER", "https://env.example.com")
	t.Setenv("PORT", "9000")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.GetAuthIssuer())
	require.Equal(t, "127.0.0.1:9000", cfg.GetListenAddr())
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	_, err = config.Load(writeFile(t, "web.ini", "a=b"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported config file type")

	_, err = config.Load(writeFile(t, "web.toml", "[auth"))
	require.Error(t, err)
}
