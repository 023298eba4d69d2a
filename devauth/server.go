// Package devauth is a small OAuth2/OpenID Connect authentication service for
// local development and integration tests. It supports the password and
// refresh_token grants, RFC 7009 revocation, introspection and userinfo.
package devauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/ticketremaster/clients"
	"github.com/jrsteele09/ticketremaster/internal/middleware"
	"github.com/jrsteele09/ticketremaster/token"
	"github.com/jrsteele09/ticketremaster/token/refresh"
	"github.com/jrsteele09/ticketremaster/users"
	"github.com/rs/zerolog"
)

// Route path constants
const (
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteOAuth2Token           = "/oauth2/token"
	RouteOAuth2Introspect      = "/oauth2/introspect"
	RouteOAuth2Revoke          = "/oauth2/revoke"
	RouteUserInfo              = "/userinfo"
)

// Config describes the single client the service accepts.
type Config struct {
	Issuer       string // Must equal the URL clients use for discovery
	ClientID     string
	ClientSecret string // Empty for a public client
}

type Server struct {
	config  Config
	client  *clients.Client
	mux     *http.ServeMux
	routes  []string
	users   users.UserRepo
	tokens  *token.Manager
	refresh *refresh.Manager
	log     zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

func New(cfg Config, userRepo users.UserRepo, tokens *token.Manager, refreshTokens *refresh.Manager, options ...Option) (*Server, error) {
	switch {
	case cfg.Issuer == "":
		return nil, errors.New("[devauth.New] issuer is required")
	case cfg.ClientID == "":
		return nil, errors.New("[devauth.New] client id is required")
	case userRepo == nil:
		return nil, errors.New("[devauth.New] user repo is required")
	case tokens == nil:
		return nil, errors.New("[devauth.New] token manager is required")
	case refreshTokens == nil:
		return nil, errors.New("[devauth.New] refresh token manager is required")
	}

	cfg.Issuer = strings.TrimRight(cfg.Issuer, "/")
	s := &Server{
		config:  cfg,
		client:  clients.New(cfg.ClientID, cfg.ClientSecret, strings.Fields(defaultScope)...),
		mux:     http.NewServeMux(),
		users:   userRepo,
		tokens:  tokens,
		refresh: refreshTokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) initRoutes() {
	api := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logging(s.log),
		middleware.Recover(s.log),
	}
	noStore := append(append([]middleware.Middleware{}, api...), middleware.NoStore)

	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, middleware.ChainMiddleware(s.WellKnownOpenIDConfig(), api...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, middleware.ChainMiddleware(s.JWKS(), api...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, middleware.ChainMiddleware(s.Token(), noStore...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Introspect, middleware.ChainMiddleware(s.Introspect(), noStore...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Revoke, middleware.ChainMiddleware(s.Revoke(), noStore...))
	s.RegisterRouteHandler("GET "+RouteUserInfo, middleware.ChainMiddleware(s.UserInfo(), noStore...))
}

// authenticateClient checks client_id and, for confidential clients, the
// secret from the form or HTTP Basic auth.
func (s *Server) authenticateClient(r *http.Request) bool {
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID = r.FormValue("client_id")
		clientSecret = r.FormValue("client_secret")
	}
	return s.client.Authenticate(clientID, clientSecret)
}
