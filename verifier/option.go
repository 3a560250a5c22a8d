package verifier

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/byu-oit/byu-jwt-go/core"
)

// Option is how options for the Verifier are set up.
// Options return errors to enable validation during construction.
type Option func(*Verifier) error

// WithKeyResolver sets where signing certificates come from.
func WithKeyResolver(keys KeyResolver) Option {
	return func(v *Verifier) error {
		if keys == nil {
			return errors.New("key resolver cannot be nil")
		}
		v.keys = keys
		return nil
	}
}

// WithConfigurationSource sets where the algorithm allow-list comes from.
func WithConfigurationSource(config ConfigurationSource) Option {
	return func(v *Verifier) error {
		if config == nil {
			return errors.New("configuration source cannot be nil")
		}
		v.config = config
		return nil
	}
}

// WithDevelopment skips signature verification. Tokens are still decoded and
// must be well formed. Refused when the process runs in production.
func WithDevelopment(development bool) Option {
	return func(v *Verifier) error {
		v.development = development
		return nil
	}
}

// WithAllowedClockSkew tolerates clock drift when checking exp, nbf and iat.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Verifier) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.clockSkew = skew
		return nil
	}
}

// WithClock sets the time source used for time claim checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(v *Verifier) error {
		v.logger = logger
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry provider for verification spans.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(v *Verifier) error {
		if provider == nil {
			return errors.New("tracer provider cannot be nil")
		}
		v.tracer = provider.Tracer(tracerName)
		return nil
	}
}

// WithEnvironment replaces os.Getenv for the production check.
func WithEnvironment(getenv func(string) string) Option {
	return func(v *Verifier) error {
		if getenv == nil {
			return errors.New("environment lookup cannot be nil")
		}
		v.getenv = getenv
		return nil
	}
}
