package authfake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/ticketremaster/session"
)

var _ session.Authenticator = (*FakeAuthenticator)(nil)

type account struct {
	password string
	user     session.User
}

// Revocation records a call to Revoke.
type Revocation struct {
	Token string
	Hint  session.TokenTypeHint
}

// FakeAuthenticator is an in-memory authentication service for tests.
type FakeAuthenticator struct {
	lock     sync.Mutex
	accounts map[string]account
	refresh  map[string]string // refresh token to username
	issued   int
	hold     *hold

	loginErr   error
	refreshErr error
	revokeErr  error

	// RotateRefresh issues a new refresh token on every refresh.
	RotateRefresh bool
	// OmitUser returns grants without a user identity.
	OmitUser bool
	// OmitRefresh returns login grants without a refresh token.
	OmitRefresh bool
	// TTL is the access token lifetime reported in grants. Zero means unknown expiry.
	TTL time.Duration
	Now func() time.Time

	LoginCalls   int
	RefreshCalls int
	Revoked      []Revocation
}

type hold struct {
	entered chan struct{}
	release chan struct{}
}

func NewFakeAuthenticator() *FakeAuthenticator {
	return &FakeAuthenticator{
		accounts:      make(map[string]account),
		refresh:       make(map[string]string),
		RotateRefresh: true,
		Now:           time.Now,
	}
}

// AddAccount registers a username/password pair and the identity returned for it.
func (f *FakeAuthenticator) AddAccount(username, password string, user session.User) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.accounts[username] = account{password: password, user: user}
}

func (f *FakeAuthenticator) FailLogin(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.loginErr = err
}

func (f *FakeAuthenticator) FailRefresh(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshErr = err
}

func (f *FakeAuthenticator) FailRevoke(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.revokeErr = err
}

// Hold makes every exchange block until release is called or the caller's
// context ends. Each blocked exchange sends on entered.
func (f *FakeAuthenticator) Hold() (entered <-chan struct{}, release func()) {
	h := &hold{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	f.lock.Lock()
	f.hold = h
	f.lock.Unlock()

	var once sync.Once
	return h.entered, func() {
		once.Do(func() { close(h.release) })
	}
}

// RefreshTokenValid reports whether token is a live refresh token.
func (f *FakeAuthenticator) RefreshTokenValid(token string) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	_, ok := f.refresh[token]
	return ok
}

func (f *FakeAuthenticator) RevokedTokens() []Revocation {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Revocation(nil), f.Revoked...)
}

func (f *FakeAuthenticator) Calls() (login, refresh int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.LoginCalls, f.RefreshCalls
}

func (f *FakeAuthenticator) ExchangeCredentials(ctx context.Context, creds session.Credentials) (*session.Grant, error) {
	f.lock.Lock()
	f.LoginCalls++
	f.lock.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if f.loginErr != nil {
		return nil, f.loginErr
	}
	acc, ok := f.accounts[creds.Username]
	if !ok || acc.password != creds.Password {
		return nil, fmt.Errorf("fake login %q: %w", creds.Username, session.ErrInvalidCredentials)
	}

	if f.OmitRefresh {
		return f.grant(acc.user, ""), nil
	}
	refreshToken := f.nextToken("refresh")
	f.refresh[refreshToken] = creds.Username
	return f.grant(acc.user, refreshToken), nil
}

func (f *FakeAuthenticator) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*session.Grant, error) {
	f.lock.Lock()
	f.RefreshCalls++
	f.lock.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	username, ok := f.refresh[refreshToken]
	if !ok {
		return nil, fmt.Errorf("fake refresh: unknown token: %w", session.ErrInvalidCredentials)
	}

	rotated := ""
	if f.RotateRefresh {
		delete(f.refresh, refreshToken)
		rotated = f.nextToken("refresh")
		f.refresh[rotated] = username
	}
	return f.grant(f.accounts[username].user, rotated), nil
}

func (f *FakeAuthenticator) Revoke(ctx context.Context, token string, hint session.TokenTypeHint) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.Revoked = append(f.Revoked, Revocation{Token: token, Hint: hint})
	if f.revokeErr != nil {
		return f.revokeErr
	}
	delete(f.refresh, token)
	return nil
}

func (f *FakeAuthenticator) wait(ctx context.Context) error {
	f.lock.Lock()
	h := f.hold
	f.lock.Unlock()
	if h == nil {
		return nil
	}

	h.entered <- struct{}{}
	select {
	case <-h.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// grant builds a grant; callers hold the lock.
func (f *FakeAuthenticator) grant(user session.User, refreshToken string) *session.Grant {
	g := &session.Grant{
		AccessToken:  f.nextToken("access"),
		RefreshToken: refreshToken,
	}
	if f.TTL != 0 {
		g.Expiry = f.Now().Add(f.TTL)
	}
	if !f.OmitUser {
		u := user
		u.Roles = append([]string(nil), user.Roles...)
		g.User = &u
	}
	return g
}

func (f *FakeAuthenticator) nextToken(kind string) string {
	f.issued++
	return fmt.Sprintf("%s-%d", kind, f.issued)
}
