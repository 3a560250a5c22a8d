package discovery

import (
	"errors"
	"net/http"
	"time"

	"github.com/byu-oit/byu-jwt-go/cache"
	"github.com/byu-oit/byu-jwt-go/core"
	"github.com/byu-oit/byu-jwt-go/internal/oidc"
)

// Option configures a Provider.
type Option func(*Provider) error

// WithURL sets the discovery document URL directly.
func WithURL(url string) Option {
	return func(p *Provider) error {
		if url == "" {
			return errors.New("discovery URL must not be empty")
		}
		p.url = url
		return nil
	}
}

// WithIssuer derives the discovery URL from an issuer, adding https:// when the
// issuer has no scheme.
func WithIssuer(issuer string) Option {
	return func(p *Provider) error {
		url, err := oidc.WellKnownURL(issuer)
		if err != nil {
			return err
		}
		p.url = url
		return nil
	}
}

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) error {
		if client == nil {
			return errors.New("http client must not be nil")
		}
		p.client = client
		return nil
	}
}

// WithDefaultTTL sets the cache lifetime used when a response has no max-age.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(p *Provider) error {
		if ttl <= 0 {
			return errors.New("default TTL must be positive")
		}
		p.defaultTTL = ttl
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(p *Provider) error {
		p.logger = logger
		return nil
	}
}

// WithCacheOptions passes options through to the underlying cache.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(p *Provider) error {
		p.cacheOpts = append(p.cacheOpts, opts...)
		return nil
	}
}
