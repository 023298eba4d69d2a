package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/jrsteele09/ticketremaster/internal/utils"
	"github.com/jrsteele09/ticketremaster/users"
	"github.com/pkg/errors"
)

// TokenIntrospection represents the metadata information of an OAuth 2.0 access token.
// The 'active' field indicates the state of the token - if it's false, other fields may not be populated.
type TokenIntrospection struct {
	Active   bool     `json:"active"`              // True or false - Is the token valid
	ClientID string   `json:"client_id,omitempty"` // The client the token was issued to
	Scope    string   `json:"scope,omitempty"`     // Space separated scopes
	Exp      int64    `json:"exp,omitempty"`       // Expiration
	Iat      int64    `json:"iat,omitempty"`       // Issued at time
	Iss      string   `json:"iss,omitempty"`       // Issuer of the token
	Sub      string   `json:"sub,omitempty"`       // Users unique ID
	Roles    []string `json:"roles,omitempty"`     // Roles assigned to the User
	JTI      string   `json:"jti,omitempty"`       // Token ID, used for revocation
}

type Manager struct {
	accessSigner      *AccessSigner
	idSigner          *IDSigner // nil disables ID tokens
	issuer            string
	revocations       *RevocationList
	accessTokenExpiry time.Duration
	idTokenExpiry     time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration, idTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.idTokenExpiry = idTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// WithIDTokenSigner enables OpenID Connect ID tokens.
func WithIDTokenSigner(signer *IDSigner) ManagerOption {
	return func(m *Manager) {
		m.idSigner = signer
	}
}

func WithRevocationList(list *RevocationList) ManagerOption {
	return func(m *Manager) {
		m.revocations = list
	}
}

func New(accessSigner *AccessSigner, options ...ManagerOption) (*Manager, error) {
	if accessSigner == nil {
		return nil, errors.New("[token.New] access token signer is required")
	}

	m := &Manager{
		accessSigner: accessSigner,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.idTokenExpiry == 0 {
		m.idTokenExpiry = time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.revocations == nil {
		m.revocations = NewRevocationList()
	}
	return m, nil
}

// AccessTokenExpiry is the lifetime given to new access tokens.
func (c *Manager) AccessTokenExpiry() time.Duration {
	return c.accessTokenExpiry
}

// CreateAccessToken issues a signed access token for user and returns it with its expiry.
func (c *Manager) CreateAccessToken(user *users.User, clientID, scope string) (string, time.Time, error) {
	now := c.nowFunc()
	exp := now.Add(c.accessTokenExpiry)

	claims := jwt.MapClaims{
		"iss":       c.issuer,            // The issuer of the token
		"sub":       user.ID,             // The subject, the user's ID
		"aud":       clientID,            // The audience for which the token is intended
		"client_id": clientID,            // The client the token was issued to
		"scope":     scope,               // The granted scopes
		"roles":     user.RoleNames(),    // Roles used by resource servers
		"iat":       now.Unix(),          // Issued At: the time at which the token was issued
		"exp":       exp.Unix(),          // Expiry: when the token will expire
		"jti":       uuid.New().String(), // Unique token ID for revocation
	}

	signed, err := c.accessSigner.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "Manager.CreateAccessToken Sign")
	}
	return signed, time.Unix(exp.Unix(), 0), nil
}

// CreateIDToken issues an OpenID Connect ID token describing user.
func (c *Manager) CreateIDToken(user *users.User, clientID string) (string, error) {
	if c.idSigner == nil {
		return "", errors.New("ID tokens are not enabled")
	}
	now := c.nowFunc()

	claims := jwt.MapClaims{
		"iss":                c.issuer,
		"sub":                user.ID,
		"aud":                clientID,
		"email":              user.Email,
		"email_verified":     user.Verified,
		"name":               user.DisplayName(),
		"preferred_username": user.Username,
		"roles":              user.RoleNames(),
		"iat":                now.Unix(),
		"exp":                now.Add(c.idTokenExpiry).Unix(),
		"jti":                uuid.New().String(),
	}

	signed, err := c.idSigner.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Manager.CreateIDToken Sign")
	}
	return signed, nil
}

// Introspection reports whether rawToken is a live access token issued by this manager.
// A malformed or badly signed token is inactive and comes with the parse error.
func (c *Manager) Introspection(rawToken string) (*TokenIntrospection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &TokenIntrospection{Active: false}, nil
	}

	claims := jwt.MapClaims{}
	token, err := c.accessSigner.Parse(rawToken, claims, jwt.WithTimeFunc(c.nowFunc))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return &TokenIntrospection{Active: false}, nil
	}
	if err != nil || !token.Valid {
		return &TokenIntrospection{Active: false}, errors.Wrap(autherrors.ErrInvalidToken, errString(err))
	}

	introspection := &TokenIntrospection{Active: true}
	introspection.Iss, _ = claims["iss"].(string)
	introspection.Sub, _ = claims["sub"].(string)
	introspection.ClientID, _ = claims["client_id"].(string)
	introspection.Scope, _ = claims["scope"].(string)
	introspection.JTI, _ = claims["jti"].(string)
	if iat, ok := claims["iat"].(float64); ok {
		introspection.Iat = int64(iat)
	}
	if exp, ok := claims["exp"].(float64); ok {
		introspection.Exp = int64(exp)
	}
	if claimRoles, ok := claims["roles"].([]interface{}); ok {
		introspection.Roles = utils.ToStringSlice(claimRoles)
	}

	if c.issuer != "" && introspection.Iss != c.issuer {
		return &TokenIntrospection{Active: false}, nil
	}
	if introspection.JTI != "" && c.revocations.Revoked(introspection.JTI) {
		return &TokenIntrospection{Active: false}, nil
	}
	return introspection, nil
}

// RevokeAccessToken revokes an access token by its JTI. Tokens that are already
// expired need no revocation.
func (c *Manager) RevokeAccessToken(rawToken string) error {
	claims := jwt.MapClaims{}
	token, err := c.accessSigner.Parse(rawToken, claims, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return errors.Wrap(autherrors.ErrInvalidToken, errString(err))
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return errors.New("token missing jti claim")
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return errors.New("token missing exp claim")
	}

	expTime := time.Unix(int64(exp), 0)
	if c.nowFunc().After(expTime) {
		return nil
	}
	c.revocations.Revoke(jti, expTime)
	return nil
}

// GetJWKS returns the key set clients verify ID tokens with. It is empty when
// ID tokens are disabled.
func (c *Manager) GetJWKS() (*JWKS, error) {
	if c.idSigner == nil {
		return &JWKS{Keys: []JWK{}}, nil
	}
	return &JWKS{Keys: []JWK{c.idSigner.JWK()}}, nil
}

// PruneRevocations forgets revoked tokens that have expired and reports how many went.
func (c *Manager) PruneRevocations() int {
	return c.revocations.Prune(c.nowFunc())
}

func errString(err error) string {
	if err == nil {
		return "invalid token"
	}
	return err.Error()
}
