package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/ticketremaster/router"
	"github.com/jrsteele09/ticketremaster/session"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	authenticated bool
}

func (f *fakeReader) IsAuthenticated() bool { return f.authenticated }

func (f *fakeReader) CurrentUser() *session.User {
	if !f.authenticated {
		return nil
	}
	return &session.User{ID: "u1"}
}

func (f *fakeReader) Snapshot() session.Session { return session.Session{} }

func page(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := router.RouteFromContext(r.Context())
		if ok {
			w.Header().Set("X-Route", route.Name)
		}
		_, _ = io.WriteString(w, name)
	})
}

type testFixture struct {
	reader *fakeReader
	table  *router.Table
	router *router.Router
}

func setupTestFixture(t *testing.T, options ...router.Option) *testFixture {
	t.Helper()

	table, err := router.NewTable(
		router.Route{Name: "home", Path: "/", Page: page("home")},
		router.Route{Name: "profile", Path: "/profile", Page: page("profile"), Protected: true},
		router.Route{Name: "events", Path: "/events", Page: page("events")},
		router.Route{Name: "event-tickets", Path: "/events/tickets", Page: page("event-tickets")},
		router.Route{Name: "marketplace", Path: "/marketplace", Page: page("marketplace")},
	)
	require.NoError(t, err)

	reader := &fakeReader{}
	rt, err := router.New(table, reader, options...)
	require.NoError(t, err)
	return &testFixture{reader: reader, table: table, router: rt}
}

func (f *testFixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestResolve(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		path  string
		route string
		found bool
	}{
		{"/", "home", true},
		{"/profile", "profile", true},
		{"/profile/", "profile", true},
		{"/profile/settings", "profile", true},
		{"/events", "events", true},
		{"/events/42", "events", true},
		{"/events/tickets", "event-tickets", true},
		{"/events/tickets/7", "event-tickets", true},
		{"/eventsx", "", false},
		{"/unknown", "", false},
		{"/marketplace", "marketplace", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, ok := f.table.Resolve(tt.path)
			require.Equal(t, tt.found, ok)
			require.Equal(t, tt.route, route.Name)
		})
	}
}

func TestNewTable_Validation(t *testing.T) {
	_, err := router.NewTable(router.Route{Name: "a", Path: "relative", Page: page("a")})
	require.Error(t, err)

	_, err = router.NewTable(router.Route{Name: "a", Path: "/a/", Page: page("a")})
	require.Error(t, err)

	_, err = router.NewTable(router.Route{Name: "a", Path: "/a"})
	require.Error(t, err)

	_, err = router.NewTable(
		router.Route{Name: "a", Path: "/a", Page: page("a")},
		router.Route{Name: "b", Path: "/a", Page: page("b")},
	)
	require.Error(t, err)
}

func TestRoutes_KeepsOrder(t *testing.T) {
	f := setupTestFixture(t)

	routes := f.table.Routes()
	require.Len(t, routes, 5)
	require.Equal(t, "home", routes[0].Name)
	require.Equal(t, "marketplace", routes[4].Name)

	routes[0].Name = "changed"
	require.Equal(t, "home", f.table.Routes()[0].Name)
}

func TestNew_Validation(t *testing.T) {
	_, err := router.New(nil, &fakeReader{})
	require.Error(t, err)

	table, err := router.NewTable()
	require.NoError(t, err)
	_, err = router.New(table, nil)
	require.Error(t, err)
}

func TestServeHTTP_PublicPage(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get("/events/99")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "events", rec.Body.String())
	require.Equal(t, "events", rec.Header().Get("X-Route"))
}

func TestServeHTTP_ProtectedRedirectsToLogin(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get("/profile?tab=tickets")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?next=%2Fprofile%3Ftab%3Dtickets", rec.Header().Get("Location"))

	f.reader.authenticated = true
	rec = f.get("/profile?tab=tickets")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "profile", rec.Body.String())
}

func TestServeHTTP_CustomLoginAndNotFound(t *testing.T) {
	f := setupTestFixture(t,
		router.WithLoginPath("/signin"),
		router.WithNotFound(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "no such page")
		})),
	)

	rec := f.get("/profile")
	require.Equal(t, "/signin?next=%2Fprofile", rec.Header().Get("Location"))

	rec = f.get("/nowhere")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "no such page", rec.Body.String())
}

func TestLoginURL(t *testing.T) {
	require.Equal(t, "/login", router.LoginURL("/login", ""))
	require.Equal(t, "/login", router.LoginURL("/login", "/"))
	require.Equal(t, "/login?next=%2Fevents", router.LoginURL("/login", "/events"))
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/profile":               "/profile",
		"/events?id=3":           "/events?id=3",
		"https://evil.example":   "/",
		"//evil.example/profile": "/",
		"/\\evil.example":        "/",
		"profile":                "/",
	}
	for in, want := range tests {
		require.Equal(t, want, router.SafeNext(in), in)
	}
}
