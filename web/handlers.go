package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/ticketremaster/router"
	"github.com/jrsteele09/ticketremaster/session"
)

// pageHandler renders a static page for GET and HEAD requests.
func (s *Server) pageHandler(title, page string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		s.render(w, http.StatusOK, page, s.newPageData(r, title))
	})
}

func (s *Server) notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusNotFound, "notfound.html", s.newPageData(r, "Not found"))
	})
}

// LoginPageHandler displays the sign in form (GET /login)
func (s *Server) LoginPageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		next := router.SafeNext(r.URL.Query().Get("next"))
		if s.sessions.IsAuthenticated() {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}

		data := s.newPageData(r, "Sign in")
		data.Next = next
		s.render(w, http.StatusOK, "login.html", data)
	})
}

// LoginSubmissionHandler processes the sign in form (POST /login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		username := r.PostFormValue("username")
		next := router.SafeNext(r.PostFormValue("next"))

		if !s.limiter.Allow() {
			s.renderLoginError(w, r, http.StatusTooManyRequests, "Too many sign in attempts, please wait a moment", username, next)
			return
		}

		err := s.sessions.Login(r.Context(), session.Credentials{
			Username: username,
			Password: r.PostFormValue("password"),
		})
		if err != nil {
			status, msg := loginFailure(err)
			s.renderLoginError(w, r, status, msg, username, next)
			return
		}

		http.Redirect(w, r, next, http.StatusSeeOther)
	}
}

// loginFailure maps a Login error onto a response status and a message for the user.
func loginFailure(err error) (int, string) {
	if errors.Is(err, session.ErrConcurrentOperation) {
		return http.StatusConflict, "A sign in is already in progress"
	}
	reason, _ := session.ReasonOf(err)
	switch reason {
	case session.ReasonInvalidCredentials:
		return http.StatusUnauthorized, "Invalid username or password"
	case session.ReasonNetworkFailure:
		return http.StatusServiceUnavailable, "The sign in service is unreachable, please try again"
	default:
		return http.StatusBadGateway, "The sign in service failed, please try again later"
	}
}

func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, status int, msg, username, next string) {
	data := s.newPageData(r, "Sign in")
	data.Error = msg
	data.Username = username
	data.Next = next
	s.render(w, status, "login.html", data)
}

// LogoutHandler signs the user out (POST /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.Logout(r.Context())
		http.Redirect(w, r, RouteHome, http.StatusSeeOther)
	}
}

// RefreshHandler renews the access token on request (POST /auth/refresh)
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		next := router.SafeNext(r.PostFormValue("next"))

		err := s.sessions.Refresh(r.Context())
		switch {
		case err == nil:
			http.Redirect(w, r, next, http.StatusSeeOther)
		case errors.Is(err, session.ErrConcurrentOperation):
			http.Error(w, "A session update is already in progress", http.StatusConflict)
		default:
			// No session, or the refresh failed and the session is gone
			s.log.Info().Err(err).Msg("Refresh did not succeed")
			http.Redirect(w, r, router.LoginURL(RouteLogin, next), http.StatusSeeOther)
		}
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
}

// HealthHandler reports liveness (GET /healthz)
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:        "ok",
			Authenticated: s.sessions.IsAuthenticated(),
		})
	}
}
