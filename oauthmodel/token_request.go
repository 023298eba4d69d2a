package oauthmodel

// TokenRequest holds parameters for the OAuth2 token request.
// This represents the form body sent to the /oauth2/token endpoint.
// Supports the password and refresh_token grant types.
type TokenRequest struct {
	// GrantType selects the exchange.
	// Required: Yes
	// Example: "password" or "refresh_token"
	GrantType GrantType

	// ClientID identifies the OAuth2 client making the request.
	// Required: Yes (for all grant types)
	// Example: "ticketremaster-web"
	ClientID string

	// ClientSecret is the secret credential for confidential clients.
	// Required: Only when the client is registered with a secret
	// Security: Never log or expose this value
	ClientSecret string

	// Username and Password are the resource owner's credentials.
	// Required: Yes (only for password grant)
	Username string
	Password string

	// RefreshToken is used to obtain new access tokens without re-authentication.
	// Required: Yes (only for refresh_token grant)
	// Behavior: Rotated - the old refresh token is invalidated and a new one issued
	RefreshToken string

	// Scope is the space separated list of requested scopes.
	// Example: "openid profile email offline_access"
	Scope string
}
