package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/jrsteele09/ticketremaster/token"
	"github.com/jrsteele09/ticketremaster/users"
	"github.com/stretchr/testify/require"
)

const testIssuer = "http://auth.test"

type testFixture struct {
	manager  *token.Manager
	idSigner *token.IDSigner
	user    *users.User
	now     time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	idSigner, err := token.NewIDSigner("test-key", 1024)
	require.NoError(t, err)
	accessSigner, err := token.NewAccessSigner("test-secret")
	require.NoError(t, err)

	f := &testFixture{
		idSigner: idSigner,
		user: &users.User{
			ID:       "user-1",
			Username: "alice",
			Email:    "alice@example.com",
			Name:     "Alice",
			Roles:    []users.RoleType{users.RoleBuyer},
			Verified: true,
		},
		now: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	}

	f.manager, err = token.New(
		accessSigner,
		token.WithIssuer(testIssuer),
		token.WithIDTokenSigner(idSigner),
		token.WithTokenExpiry(5*time.Minute, time.Hour),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	return f
}

func TestNew_RequiresSigner(t *testing.T) {
	_, err := token.New(nil)
	require.Error(t, err)

	_, err = token.NewAccessSigner("")
	require.Error(t, err)

	_, err = token.NewIDSigner("", 2048)
	require.Error(t, err)
}

func newManager(t *testing.T, secret string, options ...token.ManagerOption) *token.Manager {
	t.Helper()
	signer, err := token.NewAccessSigner(secret)
	require.NoError(t, err)
	m, err := token.New(signer, options...)
	require.NoError(t, err)
	return m
}

func TestAccessTokenLifecycle(t *testing.T) {
	f := setupTestFixture(t)

	raw, exp, err := f.manager.CreateAccessToken(f.user, "web", "openid profile")
	require.NoError(t, err)
	require.Equal(t, f.now.Add(5*time.Minute).Unix(), exp.Unix())

	info, err := f.manager.Introspection(raw)
	require.NoError(t, err)
	require.True(t, info.Active)
	require.Equal(t, "user-1", info.Sub)
	require.Equal(t, "web", info.ClientID)
	require.Equal(t, "openid profile", info.Scope)
	require.Equal(t, testIssuer, info.Iss)
	require.Equal(t, []string{"buyer"}, info.Roles)

	require.NoError(t, f.manager.RevokeAccessToken(raw))
	info, err = f.manager.Introspection(raw)
	require.NoError(t, err)
	require.False(t, info.Active)
}

func TestIntrospection_Expired(t *testing.T) {
	f := setupTestFixture(t)

	raw, _, err := f.manager.CreateAccessToken(f.user, "web", "")
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	info, err := f.manager.Introspection(raw)
	require.NoError(t, err)
	require.False(t, info.Active)

	// Revoking an expired token is a no-op
	require.NoError(t, f.manager.RevokeAccessToken(raw))
}

func TestIntrospection_Invalid(t *testing.T) {
	f := setupTestFixture(t)

	info, err := f.manager.Introspection("")
	require.NoError(t, err)
	require.False(t, info.Active)

	info, err = f.manager.Introspection("not.a.jwt")
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
	require.False(t, info.Active)

	other := newManager(t, "other-secret", token.WithIssuer(testIssuer))
	foreign, _, err := other.CreateAccessToken(f.user, "web", "")
	require.NoError(t, err)

	info, err = f.manager.Introspection(foreign)
	require.Error(t, err)
	require.False(t, info.Active)
}

func TestIDToken(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.CreateIDToken(f.user, "web")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return f.idSigner.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithTimeFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.Equal(t, "test-key", parsed.Header["kid"])
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "Alice", claims["name"])
	require.Equal(t, "alice", claims["preferred_username"])
	require.Equal(t, "web", claims["aud"])
}

func TestGetJWKS(t *testing.T) {
	f := setupTestFixture(t)

	jwks, err := f.manager.GetJWKS()
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.Equal(t, "test-key", jwks.Keys[0].Kid)
	require.Equal(t, "RS256", jwks.Keys[0].Alg)

	plain := newManager(t, "s")
	jwks, err = plain.GetJWKS()
	require.NoError(t, err)
	require.Empty(t, jwks.Keys)

	_, err = plain.CreateIDToken(f.user, "web")
	require.Error(t, err)
}

func TestRevocationList_Prune(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	list := token.NewRevocationList()

	list.Revoke("a", now.Add(time.Minute))
	list.Revoke("b", now.Add(time.Hour))

	require.Zero(t, list.Prune(now))
	require.Equal(t, 1, list.Prune(now.Add(2*time.Minute)))

	require.False(t, list.Revoked("a"))
	require.True(t, list.Revoked("b"))
	require.Equal(t, 1, list.Len())
}

func TestPruneRevocations(t *testing.T) {
	f := setupTestFixture(t)

	raw, _, err := f.manager.CreateAccessToken(f.user, "web", "")
	require.NoError(t, err)
	require.NoError(t, f.manager.RevokeAccessToken(raw))
	require.Zero(t, f.manager.PruneRevocations())

	f.now = f.now.Add(10 * time.Minute)
	require.Equal(t, 1, f.manager.PruneRevocations())
}

func TestAccessSigner_RejectsOtherAlgorithms(t *testing.T) {
	f := setupTestFixture(t)

	// An RS256 token must not pass as an access token
	raw, err := f.manager.CreateIDToken(f.user, "web")
	require.NoError(t, err)

	info, err := f.manager.Introspection(raw)
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
	require.False(t, info.Active)
}
