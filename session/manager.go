package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultCallTimeout   = 10 * time.Second
	defaultRevokeTimeout = 5 * time.Second
	defaultStoreTimeout  = 5 * time.Second
)

// ConcurrencyPolicy decides what happens to a mutating call that arrives while
// another one is in flight.
type ConcurrencyPolicy int

const (
	// PolicyWait queues the second call until the first completes or its context ends.
	PolicyWait ConcurrencyPolicy = iota
	// PolicyReject fails the second call immediately with ErrConcurrentOperation.
	PolicyReject
)

// ParsePolicy converts a configuration value ("wait" or "reject") to a ConcurrencyPolicy.
func ParsePolicy(s string) (ConcurrencyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wait":
		return PolicyWait, nil
	case "reject":
		return PolicyReject, nil
	}
	return PolicyWait, fmt.Errorf("unknown concurrency policy %q", s)
}

// Manager owns the single authentication session of the application.
//
// Reads (IsAuthenticated, CurrentUser, Snapshot) load an immutable snapshot and
// never block. Login and Refresh hold a one-slot semaphore for their whole
// duration, so their mutations never interleave.
type Manager struct {
	auth          Authenticator
	store         Store
	log           zerolog.Logger
	policy        ConcurrencyPolicy
	callTimeout   time.Duration
	revokeTimeout time.Duration
	storeTimeout  time.Duration
	nowTime       func() time.Time

	state atomic.Pointer[Session]
	slot  chan struct{}

	listenersMu  sync.Mutex
	listeners    map[int]func(Session)
	nextListener int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStore persists every committed session to store.
func WithStore(store Store) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = logger
	}
}

func WithConcurrencyPolicy(policy ConcurrencyPolicy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithCallTimeout bounds each exchange with the authentication service.
func WithCallTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.callTimeout = d
	}
}

// WithRevokeTimeout bounds the remote revocation performed by Logout.
func WithRevokeTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.revokeTimeout = d
	}
}

// WithStoreTimeout bounds each call to the session store.
func WithStoreTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.storeTimeout = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a Manager in the logged out state.
func NewManager(auth Authenticator, options ...ManagerOption) (*Manager, error) {
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}

	m := &Manager{
		auth:          auth,
		log:           zerolog.Nop(),
		policy:        PolicyWait,
		callTimeout:   defaultCallTimeout,
		revokeTimeout: defaultRevokeTimeout,
		storeTimeout:  defaultStoreTimeout,
		nowTime:       time.Now,
		slot:          make(chan struct{}, 1),
		listeners:     make(map[int]func(Session)),
	}
	m.state.Store(&Session{})

	for _, opt := range options {
		opt(m)
	}

	if m.callTimeout <= 0 {
		m.callTimeout = defaultCallTimeout
	}
	if m.revokeTimeout <= 0 {
		m.revokeTimeout = defaultRevokeTimeout
	}
	if m.storeTimeout <= 0 {
		m.storeTimeout = defaultStoreTimeout
	}
	return m, nil
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	return m.state.Load().IsLoggedIn()
}

// CurrentUser returns a copy of the logged in user, or nil.
func (m *Manager) CurrentUser() *User {
	return m.state.Load().User.clone()
}

// Snapshot returns a copy of the last committed session.
func (m *Manager) Snapshot() Session {
	return m.state.Load().Clone()
}

// NeedsRefresh reports whether the user is logged in with an access token that
// expires within skew. Sessions with an unknown expiry never need a refresh.
func (m *Manager) NeedsRefresh(skew time.Duration) bool {
	s := m.state.Load()
	if !s.IsLoggedIn() || s.Expiry.IsZero() {
		return false
	}
	return !m.nowTime().Add(skew).Before(s.Expiry)
}

// Login exchanges credentials for a session. On failure the session is left untouched.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return &AuthenticationError{Reason: ReasonInvalidCredentials, Err: ErrInvalidCredentials}
	}

	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	grant, err := m.auth.ExchangeCredentials(callCtx, creds)
	if err == nil && (grant == nil || grant.AccessToken == "" || grant.User == nil || grant.User.ID == "") {
		err = errIncompleteGrant
	}
	if err != nil {
		reason := classify(err)
		m.log.Warn().Err(err).Str("reason", string(reason)).Msg("Login failed")
		return &AuthenticationError{Reason: reason, Err: err}
	}

	m.commit(ctx, &Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		User:         grant.User.clone(),
		Expiry:       grant.Expiry,
	})
	m.log.Info().Str("user_id", grant.User.ID).Msg("Logged in")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token.
// Any failure of the exchange clears the session.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	current := m.state.Load()
	if current.RefreshToken == "" {
		return ErrNoSession
	}

	callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	grant, err := m.auth.ExchangeRefreshToken(callCtx, current.RefreshToken)
	if err == nil && (grant == nil || grant.AccessToken == "") {
		err = errIncompleteGrant
	}
	if err != nil {
		m.commit(ctx, &Session{})
		m.log.Warn().Err(err).Msg("Refresh failed, session cleared")
		return &AuthenticationError{Reason: ReasonRefreshFailed, Err: err}
	}

	next := current.Clone()
	next.AccessToken = grant.AccessToken
	next.Expiry = grant.Expiry
	if grant.RefreshToken != "" {
		next.RefreshToken = grant.RefreshToken
	}
	if next.User == nil && grant.User != nil {
		next.User = grant.User.clone()
	}
	m.commit(ctx, &next)
	m.log.Debug().Msg("Access token refreshed")
	return nil
}

// Logout clears the session and then asks the authentication service to revoke
// the tokens. Revocation failures are logged; the local session is always cleared.
func (m *Manager) Logout(ctx context.Context) {
	m.slot <- struct{}{}
	previous := m.state.Load()
	m.commit(ctx, &Session{})
	m.release()

	if previous.IsZero() {
		return
	}
	if previous.User != nil {
		m.log.Info().Str("user_id", previous.User.ID).Msg("Logged out")
	}

	revokeCtx, cancel := context.WithTimeout(ctx, m.revokeTimeout)
	defer cancel()
	if previous.RefreshToken != "" {
		if err := m.auth.Revoke(revokeCtx, previous.RefreshToken, HintRefreshToken); err != nil {
			m.log.Err(err).Str("token_type", string(HintRefreshToken)).Msg("Failed to revoke token")
		}
	}
	if previous.AccessToken != "" {
		if err := m.auth.Revoke(revokeCtx, previous.AccessToken, HintAccessToken); err != nil {
			m.log.Err(err).Str("token_type", string(HintAccessToken)).Msg("Failed to revoke token")
		}
	}
}

// Invalidate clears the session without contacting the authentication service,
// e.g. when a resource server reports the credential as revoked.
func (m *Manager) Invalidate(ctx context.Context, cause string) {
	m.slot <- struct{}{}
	defer m.release()

	if m.state.Load().IsZero() {
		return
	}
	m.commit(ctx, &Session{})
	m.log.Warn().Str("cause", cause).Msg("Session invalidated")
}

// Restore loads a persisted session. Records that break the session invariants are discarded.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	loadCtx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	stored, err := m.store.Load(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("[Manager.Restore] store.Load: %w", err)
	}
	if stored == nil {
		return nil
	}
	if !stored.Valid() {
		m.log.Warn().Msg("Discarding invalid persisted session")
		m.commit(ctx, &Session{})
		return nil
	}

	restored := stored.Clone()
	m.state.Store(&restored)
	m.notify(restored)
	if restored.User != nil {
		m.log.Info().Str("user_id", restored.User.ID).Msg("Session restored")
	}
	return nil
}

// Subscribe registers fn to be called with every committed session.
// Listeners run synchronously and must not call Login, Refresh, Logout or Invalidate.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

// acquire takes the slot. A context that has already ended fails as a network
// failure without touching the slot.
func (m *Manager) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &AuthenticationError{Reason: ReasonNetworkFailure, Err: err}
	}
	if m.policy == PolicyReject {
		select {
		case m.slot <- struct{}{}:
			return nil
		default:
			return ErrConcurrentOperation
		}
	}
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConcurrentOperation, ctx.Err())
	}
}

func (m *Manager) release() {
	<-m.slot
}

// commit publishes next as the current session. Callers hold the slot.
func (m *Manager) commit(ctx context.Context, next *Session) {
	m.state.Store(next)
	m.persist(ctx, *next)
	m.notify(next.Clone())
}

// persist writes to the store. Store failures are logged, not returned: the
// in-memory session stays authoritative.
func (m *Manager) persist(ctx context.Context, s Session) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.storeTimeout)
	defer cancel()
	var err error
	if s.IsZero() {
		err = m.store.Clear(ctx)
	} else {
		err = m.store.Save(ctx, s)
	}
	if err != nil {
		m.log.Err(err).Msg("Failed to persist session")
	}
}

func (m *Manager) notify(s Session) {
	m.listenersMu.Lock()
	fns := make([]func(Session), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenersMu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
}
