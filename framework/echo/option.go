package jwtecho

import (
	"github.com/labstack/echo/v4"
)

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig)

// WithErrorHandler sets a custom error handler. Its return value becomes the
// middleware's return value.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *echoMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store the Result
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithPrefix limits authentication to paths under the prefixes
func WithPrefix(prefixes ...string) Option {
	return func(config *echoMiddlewareConfig) {
		config.prefixes = append(config.prefixes, prefixes...)
	}
}
