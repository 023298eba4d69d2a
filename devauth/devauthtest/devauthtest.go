// Package devauthtest starts an in-process devauth service for tests.
package devauthtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/ticketremaster/devauth"
	"github.com/jrsteele09/ticketremaster/token"
	"github.com/jrsteele09/ticketremaster/token/refresh"
	refreshrepofake "github.com/jrsteele09/ticketremaster/token/refresh/repofake"
	"github.com/jrsteele09/ticketremaster/users"
	fakeuserrepo "github.com/jrsteele09/ticketremaster/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	ClientID = "ticketremaster-web"
	Username = "alice"
	Password = "Tickets4All"
)

type tokenConfig struct {
	accessExpiry time.Duration
}

func (c tokenConfig) GetAccessTokenExpiry() time.Duration { return c.accessExpiry }
func (tokenConfig) GetRefreshTokenExpiry() time.Duration  { return time.Hour }
func (tokenConfig) GetRefreshTokenLength() int            { return 32 }

// Options tune the test service.
type Options struct {
	ClientSecret      string
	AccessTokenExpiry time.Duration
}

// Service is a running devauth instance.
type Service struct {
	*httptest.Server
	Users  *fakeuserrepo.FakeUserRepo
	Tokens *token.Manager
	User   *users.User

	mu       sync.Mutex
	requests map[string]int
}

// RequestCount reports how many requests path has received.
func (s *Service) RequestCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// New starts a devauth service seeded with one account (Username/Password).
// The service is closed when the test ends.
func New(t *testing.T, opts Options) *Service {
	t.Helper()

	if opts.AccessTokenExpiry == 0 {
		opts.AccessTokenExpiry = 5 * time.Minute
	}

	mux := http.NewServeMux()
	svc := &Service{
		Users:    fakeuserrepo.NewFakeUserRepo(),
		requests: map[string]int{},
	}
	svc.Server = httptest.NewServer(mux)
	t.Cleanup(svc.Server.Close)

	idSigner, err := token.NewIDSigner("devauthtest", 2048)
	require.NoError(t, err)
	accessSigner, err := token.NewAccessSigner("devauthtest-secret")
	require.NoError(t, err)

	svc.Tokens, err = token.New(
		accessSigner,
		token.WithIssuer(svc.URL),
		token.WithIDTokenSigner(idSigner),
		token.WithTokenExpiry(opts.AccessTokenExpiry, time.Hour),
	)
	require.NoError(t, err)

	refreshTokens := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), tokenConfig{accessExpiry: opts.AccessTokenExpiry})

	svc.User, err = devauth.Seed(svc.Users, devauth.SeedAccount{
		Username: Username,
		Password: Password,
		Email:    "alice@example.com",
		Name:     "Alice Example",
		Roles:    []string{"buyer", "seller"},
	})
	require.NoError(t, err)

	srv, err := devauth.New(devauth.Config{
		Issuer:       svc.URL,
		ClientID:     ClientID,
		ClientSecret: opts.ClientSecret,
	}, svc.Users, svc.Tokens, refreshTokens)
	require.NoError(t, err)

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc.mu.Lock()
		svc.requests[r.URL.Path]++
		svc.mu.Unlock()
		srv.ServeHTTP(w, r)
	}))
	return svc
}
