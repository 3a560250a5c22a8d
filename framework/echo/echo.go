// Package jwtecho authenticates Echo requests with a byujwt.Authenticator.
package jwtecho

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	byujwt "github.com/byu-oit/byu-jwt-go"
)

var DefaultResultKey = "byujwt"

type echoContextKey struct{}

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler func(echo.Context, error) error
	contextKey   string
	prefixes     []string
}

// NewEchoMiddleware returns Echo middleware that authenticates the request and
// stores the Result in the echo.Context and the request context.
func NewEchoMiddleware(auth *byujwt.Authenticator, opts ...Option) (echo.MiddlewareFunc, error) {
	config := &echoMiddlewareConfig{
		errorHandler: defaultEchoErrorHandler,
		contextKey:   DefaultResultKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	middlewareOpts := []byujwt.MiddlewareOption{
		byujwt.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			holder, ok := r.Context().Value(echoContextKey{}).(*echoCall)
			if !ok {
				byujwt.DefaultErrorHandler(w, r, err)
				return
			}
			holder.err = config.errorHandler(holder.c, err)
		}),
	}
	if len(config.prefixes) > 0 {
		middlewareOpts = append(middlewareOpts, byujwt.WithPrefix(config.prefixes...))
	}

	middleware, err := byujwt.NewMiddleware(auth, middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			call := &echoCall{c: c}
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if result, err := byujwt.GetResult(r.Context()); err == nil {
					c.Set(config.contextKey, result)
				}

				call.err = next(c)
			}

			r := c.Request().WithContext(context.WithValue(c.Request().Context(), echoContextKey{}, call))
			middleware.CheckJWT(handler).ServeHTTP(c.Response(), r)

			return call.err
		}
	}, nil
}

// echoCall carries the echo.Context into the error handler and the
// handler's error back out of CheckJWT.
type echoCall struct {
	c   echo.Context
	err error
}

func defaultEchoErrorHandler(c echo.Context, err error) error {
	status, body := byujwt.NewValidationResponse(err)
	return c.JSON(status, body)
}

// GetResult extracts the Result from the Echo context
func GetResult(c echo.Context, contextKey string) (*byujwt.Result, bool) {
	if contextKey == "" {
		contextKey = DefaultResultKey
	}
	value := c.Get(contextKey)
	if value == nil {
		return nil, false
	}

	result, ok := value.(*byujwt.Result)
	return result, ok
}
