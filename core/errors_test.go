package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		sentinel       error
		authentication bool
	}{
		{
			name:           "expired token is an authentication error",
			err:            NewValidationError(ErrorCodeTokenExpired, "Expired JWT", nil),
			sentinel:       ErrExpiredToken,
			authentication: true,
		},
		{
			name:           "unknown key is an authentication error",
			err:            fmt.Errorf("resolving key: %w", NewValidationError(ErrorCodeJWKSKeyNotFound, "no match", nil)),
			sentinel:       ErrUnknownSigningKey,
			authentication: true,
		},
		{
			name:           "upstream fetch is not an authentication error",
			err:            NewValidationError(ErrorCodeUpstreamFetch, "fetch failed", errors.New("connection refused")),
			sentinel:       ErrUpstreamFetch,
			authentication: false,
		},
		{
			name:           "missing jwt sentinel matches itself",
			err:            ErrJWTMissing,
			sentinel:       ErrJWTMissing,
			authentication: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.ErrorIs(t, testCase.err, testCase.sentinel)
			assert.Equal(t, testCase.authentication, IsAuthenticationError(testCase.err))
		})
	}

	t.Run("it matches the inner code through a header qualified wrapper", func(t *testing.T) {
		inner := NewValidationError(ErrorCodeTokenMalformed, "bad segments", nil)
		outer := &ValidationError{Code: ErrorCodeTokenInvalid, Message: "Invalid Original JWT", Header: HeaderOriginal, Details: inner}

		assert.ErrorIs(t, outer, ErrTokenInvalid)
		assert.ErrorIs(t, outer, ErrMalformedToken)
		assert.NotErrorIs(t, outer, ErrExpiredToken)
		assert.Equal(t, "Invalid Original JWT: bad segments", outer.Error())
	})
}
