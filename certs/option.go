package certs

import (
	"errors"
	"net/http"
	"time"

	"github.com/byu-oit/byu-jwt-go/cache"
	"github.com/byu-oit/byu-jwt-go/core"
)

// Option configures a Resolver.
type Option func(*Resolver) error

// WithHTTPClient sets the client used for certificate fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) error {
		if client == nil {
			return errors.New("http client must not be nil")
		}
		r.client = client
		return nil
	}
}

// WithDefaultTTL sets the cache lifetime used when a response has no max-age.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(r *Resolver) error {
		if ttl <= 0 {
			return errors.New("default TTL must be positive")
		}
		r.defaultTTL = ttl
		return nil
	}
}

// WithMinRefreshInterval sets how long after a forced refetch another one is
// refused. Zero allows a refetch on every unknown thumbprint.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(r *Resolver) error {
		if d < 0 {
			return errors.New("minimum refresh interval must not be negative")
		}
		r.minRefreshInterval = d
		return nil
	}
}

// WithClock sets the time source for the refresh limit.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		r.now = now
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(r *Resolver) error {
		r.logger = logger
		return nil
	}
}

// WithCacheOptions passes options through to the underlying cache.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(r *Resolver) error {
		r.cacheOpts = append(r.cacheOpts, opts...)
		return nil
	}
}
