package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithInternalPreservesSentinel(t *testing.T) {
	wrapped := ErrCodeMismatch.WithInternal(errors.New("db timeout"))

	require.ErrorIs(t, wrapped, ErrCodeMismatch)
	require.Equal(t, ErrCodeMismatch.Code, wrapped.Code)
	require.NotSame(t, ErrCodeMismatch, wrapped)
	require.Contains(t, wrapped.Error(), "db timeout")
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrCodeMismatch.WithDetails(map[string]any{"attempts_left": 2})

	require.Equal(t, 2, detailed.Details["attempts_left"])
	require.Nil(t, ErrCodeMismatch.Details)
	require.ErrorIs(t, detailed, ErrCodeMismatch)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrDuplicateEmail)
	require.Equal(t, "DUPLICATE_EMAIL", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.EqualError(t, generic.Internal, "boom")
}

func TestFromErrorUnwrapsChain(t *testing.T) {
	chained := fmt.Errorf("submit code: %w", ErrAttemptsExceeded)

	appErr := FromError(chained)
	require.Equal(t, ErrAttemptsExceeded.Code, appErr.Code)
}

func TestWrapProducesInternalError(t *testing.T) {
	err := Wrap(errors.New("disk full"), "could not persist code")

	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.Equal(t, "could not persist code", err.Message)
	require.EqualError(t, err.Internal, "disk full")
}
