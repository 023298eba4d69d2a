package session

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies an AuthenticationError.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonNetworkFailure     Reason = "network_failure"
	ReasonServerError        Reason = "server_error"
	ReasonRefreshFailed      Reason = "refresh_failed"
)

var (
	// Failure classes reported by Authenticator implementations
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNetworkFailure     = errors.New("network failure")
	ErrServerError        = errors.New("authentication server error")

	// ErrNoSession is returned by Refresh when there is no refresh token.
	ErrNoSession = errors.New("no session")

	// ErrConcurrentOperation is returned when a mutating operation cannot start
	// because another one is still in flight.
	ErrConcurrentOperation = errors.New("session operation already in progress")

	errIncompleteGrant = errors.New("incomplete grant from authentication service")
)

// AuthenticationError is returned by Login and Refresh when the exchange with
// the authentication service fails.
type AuthenticationError struct {
	Reason Reason
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("authentication failed: %s", e.Reason)
	}
	return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the reason from an AuthenticationError anywhere in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Reason, true
	}
	return "", false
}

// classify maps a collaborator error onto a login failure reason.
// Anything not recognisably a credential or transport problem is a server error.
func classify(err error) Reason {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return ReasonInvalidCredentials
	case errors.Is(err, ErrNetworkFailure),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return ReasonNetworkFailure
	default:
		return ReasonServerError
	}
}
