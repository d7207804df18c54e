package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(KindValidationError, "bad address")
	require.Equal(t, "ValidationError: bad address", plain.Error())

	wrapped := Wrap(KindHTTPError, "request failed", errors.New("connection reset"))
	require.Equal(t, "HTTPError: request failed: connection reset", wrapped.Error())
	require.Equal(t, "connection reset", wrapped.Unwrap().Error())
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := Wrap(KindTimeout, "deadline exceeded", errors.New("ctx"))
	require.True(t, errors.Is(err, New(KindTimeout, "")))
	require.False(t, errors.Is(err, New(KindConnectionFailed, "")))
}

func TestWithDetailsAndField(t *testing.T) {
	err := New(KindValidationError, "bad amount").WithDetails(Field("amount"))
	require.Equal(t, "amount", err.Details["field"])
}
