package errors_test

import (
	"fmt"
	"testing"

	"github.com/jrsteele09/ticketremaster/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "ignored"))

	err := errors.Wrapf(errors.ErrTokenExpired, "token %s", "abc")
	require.EqualError(t, err, "token abc: token expired")
	require.True(t, errors.Is(err, errors.ErrTokenExpired))
}

type codeError struct{ code int }

func (e *codeError) Error() string { return fmt.Sprintf("code %d", e.code) }

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", &codeError{code: 7})

	var target *codeError
	require.True(t, errors.As(err, &target))
	require.Equal(t, 7, target.code)
}
