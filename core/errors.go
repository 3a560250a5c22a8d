package core

import "errors"

var (
	// ErrJWTInvalid matches every authentication-class failure. Check it with
	// errors.Is to decide between a 401 and a 5xx response.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// Error codes carried by ValidationError.
const (
	ErrorCodeTokenMissing      = "token_missing"
	ErrorCodeTokenMalformed    = "token_malformed"
	ErrorCodeTokenExpired      = "token_expired"
	ErrorCodeTokenNotYetValid  = "token_not_yet_valid"
	ErrorCodeTokenInvalid      = "token_invalid"
	ErrorCodeInvalidSignature  = "invalid_signature"
	ErrorCodeInvalidAlgorithm  = "invalid_algorithm"
	ErrorCodeInvalidAPIContext = "invalid_api_context"
	ErrorCodeInvalidAudience   = "invalid_audience"
	ErrorCodeInvalidClaims     = "invalid_claims"
	ErrorCodeJWKSKeyNotFound   = "jwks_key_not_found"
	ErrorCodeUpstreamFetch     = "upstream_fetch_failed"
	ErrorCodeConfigInvalid     = "config_invalid"
	ErrorCodeClaimsNotFound    = "claims_not_found"
)

// Sentinels for errors.Is checks. Matching is by Code, so any ValidationError
// with the same code satisfies errors.Is against these.
var (
	ErrJWTMissing        = &ValidationError{Code: ErrorCodeTokenMissing, Message: "Missing expected JWT"}
	ErrMalformedToken    = &ValidationError{Code: ErrorCodeTokenMalformed, Message: "malformed token"}
	ErrExpiredToken      = &ValidationError{Code: ErrorCodeTokenExpired, Message: "token expired"}
	ErrTokenNotYetValid  = &ValidationError{Code: ErrorCodeTokenNotYetValid, Message: "token not yet valid"}
	ErrTokenInvalid      = &ValidationError{Code: ErrorCodeTokenInvalid, Message: "Invalid JWT"}
	ErrInvalidSignature  = &ValidationError{Code: ErrorCodeInvalidSignature, Message: "invalid signature"}
	ErrInvalidAlgorithm  = &ValidationError{Code: ErrorCodeInvalidAlgorithm, Message: "signing algorithm not allowed"}
	ErrInvalidAPIContext = &ValidationError{Code: ErrorCodeInvalidAPIContext, Message: "Invalid API context in JWT"}
	ErrInvalidAudience   = &ValidationError{Code: ErrorCodeInvalidAudience, Message: "Invalid aud in JWT"}
	ErrInvalidClaims     = &ValidationError{Code: ErrorCodeInvalidClaims, Message: "invalid JWT claims"}
	ErrUnknownSigningKey = &ValidationError{Code: ErrorCodeJWKSKeyNotFound, Message: "no certificate matches the token thumbprint"}
	ErrUpstreamFetch     = &ValidationError{Code: ErrorCodeUpstreamFetch, Message: "upstream fetch failed"}
	ErrConfigInvalid     = &ValidationError{Code: ErrorCodeConfigInvalid, Message: "invalid configuration"}
)

// ValidationError wraps JWT validation errors with additional context.
// It provides structured error information that can be used for
// logging, metrics, and returning appropriate error responses.
type ValidationError struct {
	// Code is a machine-readable error code (e.g., "token_expired", "invalid_signature")
	Code string

	// Message is a human-readable error message
	Message string

	// Header names the assertion header the failure belongs to, "original"
	// or "current". Empty when the error is not tied to a header.
	Header string

	// Details contains the underlying error
	Details error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is matches ErrJWTInvalid for authentication-class codes and any other
// ValidationError carrying the same code.
func (e *ValidationError) Is(target error) bool {
	if target == ErrJWTInvalid {
		return e.Authentication()
	}
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// Authentication reports whether the error means the caller failed to
// authenticate, as opposed to the server failing to decide.
func (e *ValidationError) Authentication() bool {
	switch e.Code {
	case ErrorCodeUpstreamFetch, ErrorCodeConfigInvalid, ErrorCodeClaimsNotFound:
		return false
	}
	return true
}

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsAuthenticationError reports whether err is a 401-class failure.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrJWTInvalid)
}
