package jwtgrpc

import (
	"errors"

	byujwt "github.com/byu-oit/byu-jwt-go"
	"github.com/byu-oit/byu-jwt-go/core"
)

// Option configures the JWT interceptor.
type Option func(*JWTInterceptor) error

// WithAuthenticator sets the Authenticator (REQUIRED).
//
// Example:
//
//	interceptor, _ := jwtgrpc.New(
//	    jwtgrpc.WithAuthenticator(auth),
//	    jwtgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
func WithAuthenticator(auth *byujwt.Authenticator) Option {
	return func(i *JWTInterceptor) error {
		if auth == nil {
			return errors.New("authenticator cannot be nil")
		}
		i.auth = auth
		return nil
	}
}

// WithHeaderExtractor replaces how metadata becomes assertion headers.
func WithHeaderExtractor(extractor HeaderExtractor) Option {
	return func(i *JWTInterceptor) error {
		if extractor == nil {
			return errors.New("header extractor cannot be nil")
		}
		i.headerExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets how authentication errors become status errors.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *JWTInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips authentication for the full method names.
func WithExcludedMethods(methods ...string) Option {
	return func(i *JWTInterceptor) error {
		for _, method := range methods {
			if method == "" {
				return errors.New("excluded method cannot be empty")
			}
			i.excludedMethods[method] = true
		}
		return nil
	}
}

// WithLogger logs failed calls.
func WithLogger(logger core.Logger) Option {
	return func(i *JWTInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}
