package byujwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/byu-oit/byu-jwt-go/core"
)

// Middleware authenticates requests with an Authenticator before handing them
// to the next handler.
type Middleware struct {
	auth         *Authenticator
	errorHandler ErrorHandler
	prefixes     []string
	logger       core.Logger
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware) error

// ErrAuthenticatorNil is returned when NewMiddleware is given no Authenticator.
var ErrAuthenticatorNil = errors.New("authenticator cannot be nil")

// NewMiddleware wraps auth in net/http middleware.
//
// Example:
//
//	mw, err := byujwt.NewMiddleware(auth, byujwt.WithPrefix("/echo"))
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//	http.Handle("/", mw.CheckJWT(handler))
func NewMiddleware(auth *Authenticator, opts ...MiddlewareOption) (*Middleware, error) {
	if auth == nil {
		return nil, ErrAuthenticatorNil
	}
	m := &Middleware{auth: auth}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.logger == nil {
		m.logger = auth.logger
	}
	return m, nil
}

// WithErrorHandler sets the handler that writes failed authentications.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(m *Middleware) error {
		if h == nil {
			return errors.New("errorHandler cannot be nil")
		}
		m.errorHandler = h
		return nil
	}
}

// WithPrefix limits authentication to request paths under one of the
// prefixes. Other paths pass through untouched.
func WithPrefix(prefixes ...string) MiddlewareOption {
	return func(m *Middleware) error {
		for _, p := range prefixes {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("prefix %q must start with /", p)
			}
		}
		m.prefixes = append(m.prefixes, prefixes...)
		return nil
	}
}

// WithMiddlewareLogger overrides the authenticator's logger for request logs.
func WithMiddlewareLogger(logger core.Logger) MiddlewareOption {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

func (m *Middleware) covers(path string) bool {
	if len(m.prefixes) == 0 {
		return true
	}
	for _, p := range m.prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// CheckJWT authenticates the request and stores the Result in its context.
// Failures go to the error handler and next is not called.
func (m *Middleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.covers(r.URL.Path) {
			m.logger.Debug("skipping JWT validation outside configured prefixes",
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.auth.Authenticate(r.Context(), r.Header)
		if err != nil {
			m.logger.Warn("JWT validation failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, err)
			return
		}

		r = r.Clone(core.SetClaims(r.Context(), result))
		next.ServeHTTP(w, r)
	})
}

// GetResult retrieves the authentication Result stored by CheckJWT.
func GetResult(ctx context.Context) (*Result, error) {
	return core.GetClaims[*Result](ctx)
}

// MustGetResult retrieves the Result or panics.
// Use only behind CheckJWT.
func MustGetResult(ctx context.Context) *Result {
	result, err := GetResult(ctx)
	if err != nil {
		panic(err)
	}
	return result
}

// HasResult reports whether CheckJWT stored a Result in ctx.
func HasResult(ctx context.Context) bool {
	return core.HasClaims(ctx)
}
