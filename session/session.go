package session

import (
	"context"
	"slices"
	"time"
)

// User is the identity record of the signed-in user.
type User struct {
	ID    string   `json:"id"`              // Subject identifier issued by the authentication service
	Name  string   `json:"name,omitempty"`  // Display name
	Email string   `json:"email,omitempty"` // Contact email
	Roles []string `json:"roles,omitempty"` // Roles granted to the user
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

// Session is a snapshot of the authentication state.
// Values handed out by the Manager are copies; mutating them has no effect on the Manager.
type Session struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *User     `json:"user,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"` // Access token expiry, zero when unknown
}

// IsLoggedIn reports whether the session holds both an access token and a user.
func (s Session) IsLoggedIn() bool {
	return s.AccessToken != "" && s.User != nil
}

// IsZero reports whether the session is completely empty.
func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.User == nil && s.Expiry.IsZero()
}

// Valid reports whether the session is either empty or a complete logged in record.
// Persisted records that fail this check are discarded on restore.
func (s Session) Valid() bool {
	if s.IsZero() {
		return true
	}
	return s.AccessToken != "" && s.User != nil && s.User.ID != ""
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	s.User = s.User.clone()
	return s
}

// Credentials is the payload exchanged for tokens at login.
type Credentials struct {
	Username string
	Password string
}

// Grant is the result of a successful exchange with the authentication service.
type Grant struct {
	AccessToken  string
	RefreshToken string    // Empty when the service did not issue or rotate a refresh token
	Expiry       time.Time // Access token expiry, zero when unknown
	User         *User     // Identity of the token owner; may be nil on refresh
}

// TokenTypeHint tells the revocation endpoint which kind of token is being revoked (RFC 7009).
type TokenTypeHint string

const (
	HintAccessToken  TokenTypeHint = "access_token"
	HintRefreshToken TokenTypeHint = "refresh_token"
)

// Authenticator is the external authentication service.
// Implementations signal the failure class by wrapping ErrInvalidCredentials,
// ErrNetworkFailure or ErrServerError.
type Authenticator interface {
	// ExchangeCredentials trades user credentials for tokens and the user identity.
	ExchangeCredentials(ctx context.Context, creds Credentials) (*Grant, error)

	// ExchangeRefreshToken trades a refresh token for a new access token.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Grant, error)

	// Revoke invalidates a token server-side.
	Revoke(ctx context.Context, token string, hint TokenTypeHint) error
}

// Store persists a session across process restarts.
// Save and Clear must be atomic: a Load never observes a partially written record.
type Store interface {
	// Load returns the stored session, or nil when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Reader is the read-only view of the session handed to pages and the router.
type Reader interface {
	IsAuthenticated() bool
	CurrentUser() *User
	Snapshot() Session
}
