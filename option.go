package byujwt

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/byu-oit/byu-jwt-go/core"
)

// Option configures the Authenticator.
// Returns error for validation failures.
type Option func(*Authenticator) error

var (
	// ErrHTTPClientNil is returned when WithHTTPClient is given nil.
	ErrHTTPClientNil = errors.New("http client cannot be nil")

	// ErrLoggerNil is returned when WithLogger is given nil.
	ErrLoggerNil = errors.New("logger cannot be nil")

	// ErrMetricsNil is returned when WithMetrics is given nil.
	ErrMetricsNil = errors.New("metrics cannot be nil")

	// ErrTracerProviderNil is returned when WithTracerProvider is given nil.
	ErrTracerProviderNil = errors.New("tracer provider cannot be nil")
)

// WithConfig replaces the whole configuration. Options applied after it
// override individual fields.
func WithConfig(c Config) Option {
	return func(a *Authenticator) error {
		a.config = c
		return nil
	}
}

// WithIssuer sets the issuer the discovery URL is derived from.
//
// Default: api.byu.edu
func WithIssuer(issuer string) Option {
	return func(a *Authenticator) error {
		a.config.Issuer = issuer
		return nil
	}
}

// WithOpenIDConfigURL sets the discovery URL directly.
func WithOpenIDConfigURL(url string) Option {
	return func(a *Authenticator) error {
		a.config.OpenIDConfigURL = url
		return nil
	}
}

// WithCacheDuration sets the fallback cache lifetime for issuer documents.
//
// Default: 60 minutes
func WithCacheDuration(d time.Duration) Option {
	return func(a *Authenticator) error {
		a.config.CacheDuration = d
		return nil
	}
}

// WithDevelopment skips signature verification and base path checks.
func WithDevelopment(development bool) Option {
	return func(a *Authenticator) error {
		a.config.Development = development
		return nil
	}
}

// WithBasePath requires the token API context and audience to start with path.
func WithBasePath(path string) Option {
	return func(a *Authenticator) error {
		a.config.BasePath = path
		return nil
	}
}

// WithClockSkew tolerates clock drift when checking time claims.
func WithClockSkew(d time.Duration) Option {
	return func(a *Authenticator) error {
		a.config.ClockSkew = d
		return nil
	}
}

// WithHTTPClient sets the client for discovery and certificate fetches. It
// takes precedence over Config.HTTPTimeout.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Authenticator) error {
		if client == nil {
			return ErrHTTPClientNil
		}
		a.httpClient = client
		return nil
	}
}

// WithLogger sets the logger. Any *slog.Logger satisfies core.Logger.
//
// Default: logrus standard logger
func WithLogger(logger core.Logger) Option {
	return func(a *Authenticator) error {
		if logger == nil {
			return ErrLoggerNil
		}
		a.logger = logger
		return nil
	}
}

// WithMetrics sets where authentication metrics are recorded.
//
// Default: NoopMetrics
func WithMetrics(m Metrics) Option {
	return func(a *Authenticator) error {
		if m == nil {
			return ErrMetricsNil
		}
		a.metrics = m
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry provider for spans.
//
// Default: the global provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(a *Authenticator) error {
		if provider == nil {
			return ErrTracerProviderNil
		}
		a.tracerProvider = provider
		return nil
	}
}

// WithEnvironment replaces os.Getenv for the development mode production check.
func WithEnvironment(getenv func(string) string) Option {
	return func(a *Authenticator) error {
		a.getenv = getenv
		return nil
	}
}
