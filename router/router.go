// Package router maps URL paths to pages with a static route table and keeps
// anonymous users out of protected pages.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/jrsteele09/ticketremaster/session"
	"github.com/rs/zerolog"
)

const DefaultLoginPath = "/login"

// Route binds a top level path to the page that renders it.
type Route struct {
	Name      string
	Path      string
	Page      http.Handler
	Protected bool // Requires an authenticated session
}

// Table is an ordered, immutable set of routes.
type Table struct {
	routes []Route
}

// NewTable validates routes and returns them as a table.
// Paths must be absolute, clean and unique.
func NewTable(routes ...Route) (*Table, error) {
	seen := make(map[string]string, len(routes))
	for _, r := range routes {
		switch {
		case r.Page == nil:
			return nil, fmt.Errorf("[router.NewTable] route %q has no page", r.Name)
		case !strings.HasPrefix(r.Path, "/"):
			return nil, fmt.Errorf("[router.NewTable] route %q path %q is not absolute", r.Name, r.Path)
		case path.Clean(r.Path) != r.Path:
			return nil, fmt.Errorf("[router.NewTable] route %q path %q is not clean", r.Name, r.Path)
		}
		if other, ok := seen[r.Path]; ok {
			return nil, fmt.Errorf("[router.NewTable] routes %q and %q share path %q", other, r.Name, r.Path)
		}
		seen[r.Path] = r.Name
	}
	return &Table{routes: append([]Route(nil), routes...)}, nil
}

// Routes returns the routes in declaration order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Resolve finds the route for p: an exact match wins, otherwise the route
// with the longest path that is a whole-segment prefix of p. The root route
// only matches "/" itself.
func (t *Table) Resolve(p string) (Route, bool) {
	var (
		best  Route
		found bool
	)
	for _, r := range t.routes {
		if r.Path == p {
			return r, true
		}
		if r.Path == "/" || !strings.HasPrefix(p, r.Path+"/") {
			continue
		}
		if !found || len(r.Path) > len(best.Path) {
			best, found = r, true
		}
	}
	return best, found
}

type contextKey struct{}

// RouteFromContext returns the route the router resolved for the request.
func RouteFromContext(ctx context.Context) (Route, bool) {
	r, ok := ctx.Value(contextKey{}).(Route)
	return r, ok
}

// Router dispatches requests to the pages of a Table.
type Router struct {
	table     *Table
	session   session.Reader
	loginPath string
	notFound  http.Handler
	log       zerolog.Logger
}

type Option func(*Router)

// WithLoginPath sets where anonymous users are sent for protected routes.
func WithLoginPath(p string) Option {
	return func(rt *Router) {
		rt.loginPath = p
	}
}

func WithNotFound(h http.Handler) Option {
	return func(rt *Router) {
		rt.notFound = h
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(rt *Router) {
		rt.log = logger
	}
}

func New(table *Table, sess session.Reader, options ...Option) (*Router, error) {
	if table == nil {
		return nil, errors.New("[router.New] route table is required")
	}
	if sess == nil {
		return nil, errors.New("[router.New] session reader is required")
	}

	rt := &Router{
		table:     table,
		session:   sess,
		loginPath: DefaultLoginPath,
		notFound:  http.NotFoundHandler(),
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := rt.table.Resolve(r.URL.Path)
	if !ok {
		rt.notFound.ServeHTTP(w, r)
		return
	}

	if route.Protected && !rt.session.IsAuthenticated() {
		rt.log.Debug().Str("route", route.Name).Msg("Anonymous request for protected route")
		http.Redirect(w, r, LoginURL(rt.loginPath, r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	route.Page.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, route)))
}

// LoginURL builds the login page URL that returns the user to next.
func LoginURL(loginPath, next string) string {
	if next == "" || next == "/" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local absolute path, otherwise "/".
// It keeps the login redirect from sending users to another site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}
