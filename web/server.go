// Package web serves the ticketremaster front end: server rendered pages, the
// sign in and sign out forms, and on-demand session refresh.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/ticketremaster/internal/middleware"
	"github.com/jrsteele09/ticketremaster/router"
	"github.com/jrsteele09/ticketremaster/session"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Route path constants
const (
	RouteHome        = "/"
	RouteProfile     = "/profile"
	RouteEvents      = "/events"
	RouteMarketplace = "/marketplace"
	RouteLogin       = "/login"
	RouteAuthLogout  = "/auth/logout"
	RouteAuthRefresh = "/auth/refresh"
	RouteHealth      = "/healthz"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"

	defaultRefreshSkew = 30 * time.Second
)

// SessionManager is the part of session.Manager the front end drives.
type SessionManager interface {
	session.Reader
	Login(ctx context.Context, creds session.Credentials) error
	Logout(ctx context.Context)
	Refresh(ctx context.Context) error
	Invalidate(ctx context.Context, cause string)
	NeedsRefresh(skew time.Duration) bool
}

type Config struct {
	AppName     string
	RefreshSkew time.Duration // Refresh protected page requests this long before expiry
	LoginRate   float64       // Sign in attempts per second, zero or less disables throttling
	LoginBurst  int
}

type Server struct {
	config   Config
	mux      *http.ServeMux
	routes   []string
	sessions SessionManager
	table    *router.Table
	router   *router.Router
	pages    map[string]*template.Template
	limiter  *rate.Limiter
	log      zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

func New(cfg Config, sessions SessionManager, options ...Option) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("[web.New] session manager is required")
	}
	if cfg.AppName == "" {
		cfg.AppName = "TicketRemaster"
	}
	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = defaultRefreshSkew
	}

	s := &Server{
		config:   cfg,
		mux:      http.NewServeMux(),
		sessions: sessions,
		pages:    make(map[string]*template.Template),
		limiter:  newLoginLimiter(cfg.LoginRate, cfg.LoginBurst),
		log:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	for _, name := range []string{"home.html", "profile.html", "events.html", "marketplace.html", "login.html", "notfound.html"} {
		tmpl, err := ParsePage(name)
		if err != nil {
			return nil, fmt.Errorf("[web.New] parsing %s: %w", name, err)
		}
		s.pages[name] = tmpl
	}

	var err error
	s.table, err = router.NewTable(
		router.Route{Name: "Home", Path: RouteHome, Page: s.pageHandler("Home", "home.html")},
		router.Route{Name: "Profile", Path: RouteProfile, Page: s.pageHandler("Profile", "profile.html"), Protected: true},
		router.Route{Name: "Events", Path: RouteEvents, Page: s.pageHandler("Events", "events.html")},
		router.Route{Name: "Marketplace", Path: RouteMarketplace, Page: s.pageHandler("Marketplace", "marketplace.html")},
		router.Route{Name: "Sign in", Path: RouteLogin, Page: s.LoginPageHandler()},
	)
	if err != nil {
		return nil, err
	}

	s.router, err = router.New(s.table, sessions,
		router.WithLoginPath(RouteLogin),
		router.WithNotFound(s.notFoundHandler()),
		router.WithLogger(s.log),
	)
	if err != nil {
		return nil, err
	}

	s.initRoutes()
	return s, nil
}

func newLoginLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// Table returns the page route table.
func (s *Server) Table() *router.Table {
	return s.table
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// HTMLMiddleware is the chain every browser facing route runs through.
func (s *Server) HTMLMiddleware(mw ...middleware.Middleware) []middleware.Middleware {
	chain := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logging(s.log),
		middleware.Recover(s.log),
		middleware.FrameSecurity,
		middleware.NoStore,
	}
	return append(chain, mw...)
}

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, middleware.ChainMiddleware(s.HealthHandler(), middleware.Recover(s.log)))

	s.RegisterRouteHandler("POST "+RouteLogin, middleware.ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleware(middleware.SameOrigin)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, middleware.ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleware(middleware.SameOrigin)...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, middleware.ChainMiddleware(s.RefreshHandler(), s.HTMLMiddleware(middleware.SameOrigin)...))

	// Everything else goes through the page router
	s.RegisterRouteHandler("/", middleware.ChainMiddleware(s.router.ServeHTTP, s.HTMLMiddleware(s.RefreshOnDemand)...))
}

// RefreshOnDemand refreshes the session before a protected page is served
// when the access token is about to expire. A failed refresh clears the
// session, so the router then sends the user to the sign in page.
func (s *Server) RefreshOnDemand(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		route, ok := s.table.Resolve(r.URL.Path)
		if !ok || !route.Protected || !s.sessions.NeedsRefresh(s.config.RefreshSkew) {
			next(w, r)
			return
		}

		err := s.sessions.Refresh(r.Context())
		switch {
		case err == nil:
			s.log.Debug().Str("route", route.Name).Msg("Session refreshed on demand")
		case errors.Is(err, session.ErrNoSession):
			// Nothing to renew the token with; keep it until it actually expires
			if s.sessions.NeedsRefresh(0) {
				s.sessions.Invalidate(r.Context(), "access token expired without refresh token")
			}
		case errors.Is(err, session.ErrConcurrentOperation):
			s.log.Debug().Msg("Refresh already in progress")
		default:
			s.log.Warn().Err(err).Msg("On-demand refresh failed")
		}
		next(w, r)
	}
}

type navItem struct {
	Name   string
	Path   string
	Active bool
}

type pageData struct {
	AppName       string
	Title         string
	Nav           []navItem
	Authenticated bool
	User          *session.User
	Expiry        time.Time

	// Sign in form
	Error    string
	Username string
	Next     string
}

func (s *Server) newPageData(r *http.Request, title string) pageData {
	snapshot := s.sessions.Snapshot()
	data := pageData{
		AppName:       s.config.AppName,
		Title:         title,
		Authenticated: snapshot.IsLoggedIn(),
		User:          snapshot.User,
		Expiry:        snapshot.Expiry,
	}

	current, _ := router.RouteFromContext(r.Context())
	for _, route := range s.table.Routes() {
		if route.Path == RouteLogin {
			continue
		}
		data.Nav = append(data.Nav, navItem{Name: route.Name, Path: route.Path, Active: route.Path == current.Path})
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.log.Error().Str("page", page).Msg("Unknown page template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		s.log.Err(err).Str("page", page).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
