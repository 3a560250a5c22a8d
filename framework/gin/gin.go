// Package jwtgin authenticates Gin requests with a byujwt.Authenticator.
package jwtgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	byujwt "github.com/byu-oit/byu-jwt-go"
)

// DefaultResultKey is the gin.Context key the Result is stored under.
const DefaultResultKey = "byujwt"

var (
	ErrMissingResult = errors.New("no authentication result found in context")
	ErrInvalidResult = errors.New("invalid authentication result type")
)

type ginContextKey struct{}

type ginMiddlewareConfig struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
	prefixes     []string
}

// NewGinMiddleware returns a Gin handler that authenticates the request. The
// Result is stored in the gin.Context under the context key and in the
// request context, where byujwt.GetResult finds it.
func NewGinMiddleware(auth *byujwt.Authenticator, opts ...Option) (gin.HandlerFunc, error) {
	config := &ginMiddlewareConfig{
		errorHandler: defaultGinErrorHandler,
		contextKey:   DefaultResultKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	middlewareOpts := []byujwt.MiddlewareOption{
		byujwt.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(ginContextKey{}).(*gin.Context)
			if !ok || c == nil {
				byujwt.DefaultErrorHandler(w, r, err)
				return
			}
			config.errorHandler(c, err)
		}),
	}
	if len(config.prefixes) > 0 {
		middlewareOpts = append(middlewareOpts, byujwt.WithPrefix(config.prefixes...))
	}

	middleware, err := byujwt.NewMiddleware(auth, middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		encounteredError := true
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if result, err := byujwt.GetResult(r.Context()); err == nil {
				c.Set(config.contextKey, result)
			}

			c.Next()
		}

		r := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, r)

		if encounteredError {
			c.Abort()
		}
	}, nil
}

func defaultGinErrorHandler(c *gin.Context, err error) {
	status, body := byujwt.NewValidationResponse(err)
	c.AbortWithStatusJSON(status, body)
}

// GetResult returns the Result stored by the middleware. An empty key means
// DefaultResultKey.
func GetResult(c *gin.Context, contextKey string) (*byujwt.Result, error) {
	if contextKey == "" {
		contextKey = DefaultResultKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingResult
	}

	result, ok := value.(*byujwt.Result)
	if !ok {
		return nil, ErrInvalidResult
	}

	return result, nil
}
