package certs

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/byu-oit/byu-jwt-go/cache"
	"github.com/byu-oit/byu-jwt-go/core"
	"github.com/byu-oit/byu-jwt-go/discovery"
	"github.com/byu-oit/byu-jwt-go/internal/oidc"
)

const (
	// DefaultTTL applies when the certificate response carries no usable max-age.
	DefaultTTL = 60 * time.Minute

	// DefaultMinRefreshInterval bounds how often an unknown thumbprint may
	// force a refetch.
	DefaultMinRefreshInterval = time.Minute

	fetchKey = "certs"
)

// ConfigurationSource supplies the discovery document holding jwks_uri.
type ConfigurationSource interface {
	Configuration(ctx context.Context) (*discovery.OpenIDConfiguration, error)
}

// Resolver serves the issuer's certificates from a cache, fetching them on a
// miss, and finds the certificate for a thumbprint.
type Resolver struct {
	config             ConfigurationSource
	client             *http.Client
	defaultTTL         time.Duration
	minRefreshInterval time.Duration
	cache              *cache.Cache[[]PemCertificate]
	group              singleflight.Group
	logger             core.Logger
	now                func() time.Time

	mu          sync.Mutex
	lastRefresh time.Time

	cacheOpts []cache.Option
}

// NewResolver builds a Resolver reading jwks_uri from config.
func NewResolver(config ConfigurationSource, opts ...Option) (*Resolver, error) {
	if config == nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid certificate resolver option", errors.New("configuration source is required"))
	}

	r := &Resolver{
		config:             config,
		client:             &http.Client{Timeout: 10 * time.Second},
		defaultTTL:         DefaultTTL,
		minRefreshInterval: DefaultMinRefreshInterval,
		now:                time.Now,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid certificate resolver option", err)
		}
	}

	r.cache = cache.New[[]PemCertificate](append([]cache.Option{cache.WithTTL(r.defaultTTL)}, r.cacheOpts...)...)
	return r, nil
}

// Certificates returns the cached certificate set, fetching it when the
// cache is empty or expired.
func (r *Resolver) Certificates(ctx context.Context) ([]PemCertificate, error) {
	if pems, ok := r.cache.Get(); ok {
		return pems, nil
	}
	return r.load(ctx, false)
}

// Refresh fetches the certificate set regardless of the cache.
func (r *Resolver) Refresh(ctx context.Context) ([]PemCertificate, error) {
	return r.load(ctx, true)
}

// Key returns the certificate whose x5t matches. When a previously cached set
// has no match, the set is refetched at most once, unless a forced refetch
// happened within the minimum refresh interval. A set fetched during this
// call is already current and is not fetched again.
func (r *Resolver) Key(ctx context.Context, x5t string) (PemCertificate, error) {
	pems, cached := r.cache.Get()
	if !cached {
		var err error
		if pems, err = r.load(ctx, false); err != nil {
			return PemCertificate{}, err
		}
	}

	c, err := FindByThumbprint(pems, x5t)
	if err == nil || x5t == "" || !cached || !r.allowRefresh() {
		return c, err
	}

	if r.logger != nil {
		r.logger.Info("unknown certificate thumbprint, refreshing certificates", "x5t", x5t)
	}
	pems, err = r.Refresh(ctx)
	if err != nil {
		return PemCertificate{}, err
	}
	return FindByThumbprint(pems, x5t)
}

// TTL returns the lifetime the cache currently applies to new sets.
func (r *Resolver) TTL() time.Duration {
	return r.cache.TTL()
}

// SetTTL overrides the cache lifetime until the next fetch sets it again.
func (r *Resolver) SetTTL(ttl time.Duration) {
	r.cache.SetTTL(ttl)
}

// Close releases the cache timer.
func (r *Resolver) Close() {
	r.cache.Close()
}

func (r *Resolver) allowRefresh() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.lastRefresh.IsZero() && now.Sub(r.lastRefresh) < r.minRefreshInterval {
		return false
	}
	r.lastRefresh = now
	return true
}

func (r *Resolver) load(ctx context.Context, force bool) ([]PemCertificate, error) {
	ch := r.group.DoChan(fetchKey, func() (any, error) {
		if !force {
			if pems, ok := r.cache.Get(); ok {
				return pems, nil
			}
		}
		return r.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, core.NewValidationError(core.ErrorCodeUpstreamFetch, "gave up waiting for certificates", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]PemCertificate), nil
	}
}

func (r *Resolver) fetch(ctx context.Context) ([]PemCertificate, error) {
	config, err := r.config.Configuration(ctx)
	if err != nil {
		r.cache.Clear()
		return nil, err
	}

	if r.logger != nil {
		r.logger.Debug("fetching certificates", "url", config.JWKSURI)
	}

	var set Set
	maxAge, err := oidc.FetchJSON(ctx, r.client, config.JWKSURI, &set)
	if err == nil {
		if verr := set.Validate(); verr != nil {
			err = core.NewValidationError(core.ErrorCodeUpstreamFetch, "invalid certificate set from "+config.JWKSURI, verr)
		}
	}
	if err != nil {
		r.cache.Clear()
		if r.logger != nil {
			r.logger.Error("certificate fetch failed", "url", config.JWKSURI, "error", err)
		}
		return nil, err
	}

	ttl := maxAge
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	pems := set.PemCertificates()
	r.cache.SetWithTTL(pems, ttl)

	return pems, nil
}
