package jwtgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	byujwt "github.com/byu-oit/byu-jwt-go"
	"github.com/byu-oit/byu-jwt-go/core"
)

// ErrorHandler converts authentication errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler answers Unauthenticated with the failure message for
// authentication errors and Internal otherwise, mirroring the 401/500 split
// of byujwt.DefaultErrorHandler.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	if !core.IsAuthenticationError(err) {
		return status.Error(codes.Internal, byujwt.MessageServerError)
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) && validationErr.Message != "" {
		return status.Error(codes.Unauthenticated, validationErr.Message)
	}
	return status.Error(codes.Unauthenticated, byujwt.MessageAuthenticationFailed)
}
