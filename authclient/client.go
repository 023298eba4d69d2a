// Package authclient talks to an OAuth2/OpenID Connect authentication service
// on behalf of the session manager.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/ticketremaster/session"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	defaultRetryDelay  = 200 * time.Millisecond
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 4 << 10
)

var _ session.Authenticator = (*Client)(nil)

type Config struct {
	Issuer       string // Discovery base URL, must match the issuer the service reports
	ClientID     string
	ClientSecret string   // Empty for a public client
	Scopes       []string // Defaults to openid, profile, email and offline_access
	HTTPClient   *http.Client
}

// Client implements session.Authenticator against a discovered OIDC provider.
type Client struct {
	oauth         *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	revocationURL string
	userInfoURL   string
	httpClient    *http.Client
	retryDelay    time.Duration
	log           zerolog.Logger
}

type Option func(*Client)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// WithRetryDelay sets the pause before the single userinfo retry.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// New discovers the provider at cfg.Issuer and returns a client for it.
func New(ctx context.Context, cfg Config, options ...Option) (*Client, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("[authclient.New] issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[authclient.New] client id is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, cfg.HTTPClient), strings.TrimRight(cfg.Issuer, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	var metadata struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&metadata); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		verifier: provider.Verifier(&oidc.Config{
			ClientID: cfg.ClientID,
		}),
		revocationURL: metadata.RevocationEndpoint,
		userInfoURL:   provider.UserInfoEndpoint(),
		httpClient:    cfg.HTTPClient,
		retryDelay:    defaultRetryDelay,
		log:           zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// ExchangeCredentials performs the resource owner password grant and resolves
// the user identity from the ID token, or from userinfo when there is none.
func (c *Client) ExchangeCredentials(ctx context.Context, creds session.Credentials) (*session.Grant, error) {
	ctx = c.clientContext(ctx)

	tok, err := c.oauth.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, classify("password grant", err)
	}

	user, err := c.identity(ctx, tok)
	if err != nil {
		// Don't leave a live refresh token behind for a login that failed
		if tok.RefreshToken != "" {
			if revokeErr := c.Revoke(context.WithoutCancel(ctx), tok.RefreshToken, session.HintRefreshToken); revokeErr != nil {
				c.log.Warn().Err(revokeErr).Msg("Failed to revoke refresh token of incomplete login")
			}
		}
		return nil, err
	}

	return &session.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		User:         user,
	}, nil
}

// ExchangeRefreshToken performs the refresh_token grant. The returned grant
// carries a user only when the service sent an ID token.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*session.Grant, error) {
	ctx = c.clientContext(ctx)

	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classify("refresh grant", err)
	}

	grant := &session.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if rawIDToken, ok := tok.Extra("id_token").(string); ok && rawIDToken != "" {
		if grant.User, err = c.verifyIDToken(ctx, rawIDToken); err != nil {
			return nil, err
		}
	}
	return grant, nil
}

// Revoke posts the token to the RFC 7009 revocation endpoint.
func (c *Client) Revoke(ctx context.Context, token string, hint session.TokenTypeHint) error {
	if c.revocationURL == "" {
		return fmt.Errorf("revoke: provider has no revocation endpoint: %w", session.ErrServerError)
	}

	form := url.Values{
		"token":           {token},
		"token_type_hint": {string(hint)},
		"client_id":       {c.oauth.ClientID},
	}
	if c.oauth.ClientSecret != "" {
		form.Set("client_secret", c.oauth.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify("revoke", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return statusError("revoke", resp.StatusCode)
	}
	return nil
}

func (c *Client) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) identity(ctx context.Context, tok *oauth2.Token) (*session.User, error) {
	if rawIDToken, ok := tok.Extra("id_token").(string); ok && rawIDToken != "" {
		return c.verifyIDToken(ctx, rawIDToken)
	}

	user, err := c.userInfo(ctx, tok)
	if err != nil && retryable(err) {
		c.log.Debug().Err(err).Msg("Userinfo failed, retrying once")
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, classify("userinfo", ctx.Err())
		}
		user, err = c.userInfo(ctx, tok)
	}
	return user, err
}

type identityClaims struct {
	Sub               string   `json:"sub"`
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
}

func (ic identityClaims) user() (*session.User, error) {
	if ic.Sub == "" {
		return nil, fmt.Errorf("identity has no subject: %w", session.ErrServerError)
	}
	name := ic.Name
	if name == "" {
		name = ic.PreferredUsername
	}
	return &session.User{
		ID:    ic.Sub,
		Name:  name,
		Email: ic.Email,
		Roles: ic.Roles,
	}, nil
}

func (c *Client) verifyIDToken(ctx context.Context, rawIDToken string) (*session.User, error) {
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w: %w", session.ErrServerError, err)
	}

	var claims identityClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w: %w", session.ErrServerError, err)
	}
	return claims.user()
}

func (c *Client) userInfo(ctx context.Context, tok *oauth2.Token) (*session.User, error) {
	if c.userInfoURL == "" {
		return nil, fmt.Errorf("no ID token and no userinfo endpoint: %w", session.ErrServerError)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify("userinfo", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError("userinfo", resp.StatusCode)
	}

	var claims identityClaims
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&claims); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w: %w", session.ErrServerError, err)
	}
	return claims.user()
}

// HTTPStatusError is a non-success response from the authentication service.
type HTTPStatusError struct {
	Op         string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

func statusError(op string, status int) error {
	return fmt.Errorf("%w: %w", &HTTPStatusError{Op: op, StatusCode: status}, session.ErrServerError)
}

// classify wraps err with the session failure class it belongs to.
func classify(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		// invalid_client and unauthorized_client mean this application is
		// misconfigured, not that the user typed the wrong password.
		if retrieveErr.ErrorCode == "invalid_grant" {
			return fmt.Errorf("%s: %w: %w", op, session.ErrInvalidCredentials, err)
		}
		return fmt.Errorf("%s: %w: %w", op, session.ErrServerError, err)
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, session.ErrNetworkFailure, err)
	}
	return fmt.Errorf("%s: %w: %w", op, session.ErrServerError, err)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return errors.Is(err, session.ErrNetworkFailure)
}
