// Package clients describes the OAuth2 client registered with the development
// authentication service.
package clients

import (
	"crypto/subtle"
	"errors"
	"slices"
	"strings"
)

var ErrInvalidScope = errors.New("invalid scope")

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets
)

type Client struct {
	ID     string     `json:"id"`
	Type   ClientType `json:"type"`
	Secret string     `json:"-"`
	Scopes []string   `json:"scopes"` // Allowed scopes for this client
}

// New registers a client. Clients without a secret are public.
func New(id, secret string, scopes ...string) *Client {
	c := &Client{
		ID:     id,
		Type:   ClientTypeConfidential,
		Secret: secret,
		Scopes: slices.Clone(scopes),
	}
	if secret == "" {
		c.Type = ClientTypePublic
	}
	return c
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// Authenticate checks the presented credentials. Public clients only need
// the right id.
func (c *Client) Authenticate(id, secret string) bool {
	if id != c.ID {
		return false
	}
	if c.IsPublic() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(c.Secret)) == 1
}

// HasScope checks if the client has permission for a specific scope
func (c *Client) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateScopes checks if all requested space separated scopes are allowed
func (c *Client) ValidateScopes(requestedScopes string) error {
	for _, scope := range strings.Fields(requestedScopes) {
		if !c.HasScope(scope) {
			return ErrInvalidScope
		}
	}
	return nil
}
