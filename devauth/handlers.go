package devauth

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	autherrors "github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/jrsteele09/ticketremaster/oauthmodel"
	"github.com/jrsteele09/ticketremaster/users"
)

const contentTypeJSON = "application/json; charset=utf-8"

const defaultScope = "openid profile email offline_access"

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.config.Issuer
		authMethods := []string{"none", "client_secret_post", "client_secret_basic"}
		if !s.client.IsPublic() {
			authMethods = authMethods[1:]
		}

		resp := oauthmodel.ProviderMetadata{
			Issuer:                            baseURL,
			TokenEndpoint:                     baseURL + RouteOAuth2Token,
			UserinfoEndpoint:                  baseURL + RouteUserInfo,
			JWKSURI:                           baseURL + RouteWellKnownJWKS,
			RevocationEndpoint:                baseURL + RouteOAuth2Revoke,
			IntrospectionEndpoint:             baseURL + RouteOAuth2Introspect,
			ResponseTypesSupported:            []string{"token"},
			SubjectTypesSupported:             []string{"public"},
			IDTokenSigningAlgValuesSupported:  []string{"RS256"},
			ScopesSupported:                   strings.Fields(defaultScope),
			TokenEndpointAuthMethodsSupported: authMethods,
			GrantTypesSupported: []string{
				string(oauthmodel.PasswordGrant),
				string(oauthmodel.RefreshTokenGrant),
			},
			ClaimsSupported: []string{"sub", "email", "email_verified", "name", "preferred_username", "roles"},
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, resp)
	}
}

// JWKS returns the JSON Web Key Set used to validate ID tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.tokens.GetJWKS()
		if err != nil {
			s.log.Err(err).Msg("Failed to get JWKS")
			writeJSONError(w, oauthmodel.ErrorServerError, "failed to get JWKS", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, jwks)
	}
}

// Token exchanges credentials or a refresh token for tokens
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}
		if !s.authenticateClient(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="devauth"`)
			writeJSONError(w, oauthmodel.ErrorInvalidClient, "client authentication failed", http.StatusUnauthorized)
			return
		}

		req := oauthmodel.TokenRequest{
			GrantType:    oauthmodel.GrantType(r.FormValue("grant_type")),
			ClientID:     s.client.ID,
			Username:     r.FormValue("username"),
			Password:     r.FormValue("password"),
			RefreshToken: r.FormValue("refresh_token"),
			Scope:        r.FormValue("scope"),
		}

		var (
			user  *users.User
			scope string
			err   error
		)
		switch req.GrantType {
		case oauthmodel.PasswordGrant:
			if scopeErr := s.client.ValidateScopes(req.Scope); scopeErr != nil {
				writeJSONError(w, oauthmodel.ErrorInvalidScope, "requested scope is not allowed", http.StatusBadRequest)
				return
			}
			user, err = s.passwordGrant(req)
			scope = req.Scope
		case oauthmodel.RefreshTokenGrant:
			user, scope, err = s.refreshGrant(req)
		default:
			writeJSONError(w, oauthmodel.ErrorUnsupportedGrantType, "grant type not supported", http.StatusBadRequest)
			return
		}
		if err != nil {
			s.log.Info().Str("grant_type", string(req.GrantType)).Err(err).Msg("Token request rejected")
			writeJSONError(w, oauthmodel.ErrorInvalidGrant, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := s.issueTokens(user, req.ClientID, scope)
		if err != nil {
			s.log.Err(err).Msg("Failed to issue tokens")
			writeJSONError(w, oauthmodel.ErrorServerError, "failed to issue tokens", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) passwordGrant(req oauthmodel.TokenRequest) (*users.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, autherrors.ErrInvalidRequest
	}
	user, err := s.users.GetByLogin(req.Username)
	if err != nil || !user.Authenticate(req.Password) {
		return nil, autherrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, autherrors.ErrUserBlocked
	}
	return user, nil
}

func (s *Server) refreshGrant(req oauthmodel.TokenRequest) (*users.User, string, error) {
	if req.RefreshToken == "" {
		return nil, "", autherrors.ErrInvalidRequest
	}
	rt, err := s.refresh.Consume(req.RefreshToken, req.ClientID)
	if err != nil {
		return nil, "", err
	}
	user, err := s.users.GetByID(rt.UserID)
	if err != nil {
		return nil, "", autherrors.Wrapf(err, "user for refresh token")
	}
	if user.Blocked {
		return nil, "", autherrors.ErrUserBlocked
	}
	return user, rt.Scope, nil
}

func (s *Server) issueTokens(user *users.User, clientID, scope string) (*oauthmodel.TokenResponse, error) {
	if strings.TrimSpace(scope) == "" {
		scope = defaultScope
	}
	scopes := strings.Fields(scope)

	accessToken, _, err := s.tokens.CreateAccessToken(user, clientID, scope)
	if err != nil {
		return nil, err
	}

	resp := &oauthmodel.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTokenExpiry().Seconds()),
		Scope:       scope,
	}

	if slices.Contains(scopes, oauthmodel.ScopeOpenID) {
		if resp.IdToken, err = s.tokens.CreateIDToken(user, clientID); err != nil {
			return nil, err
		}
	}
	if slices.Contains(scopes, oauthmodel.ScopeOfflineAccess) {
		if resp.RefreshToken, err = s.refresh.Create(clientID, user.ID, scope); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Introspect reports the state of an access token (RFC 7662)
func (s *Server) Introspect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}
		if !s.authenticateClient(r) {
			writeJSONError(w, oauthmodel.ErrorInvalidClient, "client authentication failed", http.StatusUnauthorized)
			return
		}

		token := r.FormValue("token")
		if token == "" {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "token parameter is required", http.StatusBadRequest)
			return
		}

		// Invalid tokens are reported as inactive, not as errors
		introspection, _ := s.tokens.Introspection(token)
		writeJSON(w, http.StatusOK, introspection)
	}
}

// Revoke revokes tokens (RFC 7009). Unknown or invalid tokens are not an
// error, so the response is 200 for any authenticated request.
func (s *Server) Revoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}
		if !s.authenticateClient(r) {
			writeJSONError(w, oauthmodel.ErrorInvalidClient, "client authentication failed", http.StatusUnauthorized)
			return
		}

		token := r.FormValue("token")
		if token == "" {
			writeJSONError(w, oauthmodel.ErrorInvalidRequest, "token parameter is required", http.StatusBadRequest)
			return
		}

		switch r.FormValue("token_type_hint") {
		case oauthmodel.TokenTypeHintAccessToken:
			if err := s.tokens.RevokeAccessToken(token); err != nil {
				_ = s.refresh.Delete(token)
			}
		default:
			if err := s.refresh.Delete(token); err != nil {
				_ = s.tokens.RevokeAccessToken(token)
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

// UserInfo returns the claims of the user owning the bearer token
func (s *Server) UserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="devauth"`)
			writeJSONError(w, oauthmodel.ErrorInvalidToken, "Missing or malformed Authorization header", http.StatusUnauthorized)
			return
		}

		introspection, err := s.tokens.Introspection(parts[1])
		if err != nil || !introspection.Active {
			w.Header().Set("WWW-Authenticate", `Bearer realm="devauth", error="invalid_token"`)
			writeJSONError(w, oauthmodel.ErrorInvalidToken, "token is not active", http.StatusUnauthorized)
			return
		}

		user, err := s.users.GetByID(introspection.Sub)
		if err != nil {
			writeJSONError(w, oauthmodel.ErrorInvalidToken, "unknown subject", http.StatusUnauthorized)
			return
		}

		writeJSON(w, http.StatusOK, oauthmodel.UserInfo{
			Sub:               user.ID,
			Email:             user.Email,
			EmailVerified:     user.Verified,
			Name:              user.DisplayName(),
			PreferredUsername: user.Username,
			Roles:             user.RoleNames(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauthmodel.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
