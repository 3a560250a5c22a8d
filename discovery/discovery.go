// Package discovery fetches and caches an issuer's OpenID Connect discovery
// document.
package discovery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/byu-oit/byu-jwt-go/cache"
	"github.com/byu-oit/byu-jwt-go/core"
	"github.com/byu-oit/byu-jwt-go/internal/oidc"
)

// DefaultTTL applies when the discovery response carries no usable max-age.
const DefaultTTL = 60 * time.Minute

// OpenIDConfiguration is the subset of the discovery document this module uses.
type OpenIDConfiguration struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint"`
	RevocationEndpoint               string   `json:"revocation_endpoint"`
	JWKSURI                          string   `json:"jwks_uri"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
}

// Validate checks the fields the verifier depends on.
func (c *OpenIDConfiguration) Validate() error {
	if c.JWKSURI == "" {
		return errors.New("discovery document has no jwks_uri")
	}
	if len(c.IDTokenSigningAlgValuesSupported) == 0 {
		return errors.New("discovery document has no id_token_signing_alg_values_supported")
	}
	return nil
}

// AllowsAlgorithm reports whether alg is in the issuer's signing allow-list.
func (c *OpenIDConfiguration) AllowsAlgorithm(alg string) bool {
	for _, allowed := range c.IDTokenSigningAlgValuesSupported {
		if allowed == alg {
			return true
		}
	}
	return false
}

// Provider serves the discovery document from a cache, fetching it on a miss.
// Concurrent misses share one fetch.
type Provider struct {
	url        string
	client     *http.Client
	defaultTTL time.Duration
	cache      *cache.Cache[*OpenIDConfiguration]
	group      singleflight.Group
	logger     core.Logger

	cacheOpts []cache.Option
}

// New builds a Provider. Without WithURL or WithIssuer the BYU discovery URL
// is used.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		url:        oidc.DefaultDiscoveryURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		defaultTTL: DefaultTTL,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid discovery option", err)
		}
	}

	p.cache = cache.New[*OpenIDConfiguration](append([]cache.Option{cache.WithTTL(p.defaultTTL)}, p.cacheOpts...)...)
	return p, nil
}

// URL returns the discovery document URL.
func (p *Provider) URL() string {
	return p.url
}

// Configuration returns the cached discovery document, fetching it when the
// cache is empty or expired. A failed fetch clears the cache and is never
// cached itself.
//
// The shared fetch is not bound to any one caller's context; each caller
// stops waiting when its own ctx is done and the fetch is bounded by the
// HTTP client timeout.
func (p *Provider) Configuration(ctx context.Context) (*OpenIDConfiguration, error) {
	if config, ok := p.cache.Get(); ok {
		return config, nil
	}

	ch := p.group.DoChan(p.url, func() (any, error) {
		if config, ok := p.cache.Get(); ok {
			return config, nil
		}
		return p.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, core.NewValidationError(core.ErrorCodeUpstreamFetch, "gave up waiting for "+p.url, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*OpenIDConfiguration), nil
	}
}

func (p *Provider) fetch(ctx context.Context) (*OpenIDConfiguration, error) {
	if p.logger != nil {
		p.logger.Debug("fetching OpenID configuration", "url", p.url)
	}

	var config OpenIDConfiguration
	maxAge, err := oidc.FetchJSON(ctx, p.client, p.url, &config)
	if err == nil {
		if verr := config.Validate(); verr != nil {
			err = core.NewValidationError(core.ErrorCodeUpstreamFetch, "invalid OpenID configuration from "+p.url, verr)
		}
	}
	if err != nil {
		p.cache.Clear()
		if p.logger != nil {
			p.logger.Error("OpenID configuration fetch failed", "url", p.url, "error", err)
		}
		return nil, err
	}

	ttl := maxAge
	if ttl == 0 {
		ttl = p.defaultTTL
	}
	p.cache.SetWithTTL(&config, ttl)

	return &config, nil
}

// Invalidate drops the cached document so the next call refetches.
func (p *Provider) Invalidate() {
	p.cache.Clear()
}

// TTL returns the lifetime the cache currently applies to new documents.
func (p *Provider) TTL() time.Duration {
	return p.cache.TTL()
}

// SetTTL overrides the cache lifetime until the next fetch sets it again.
func (p *Provider) SetTTL(ttl time.Duration) {
	p.cache.SetTTL(ttl)
}

// Close releases the cache timer.
func (p *Provider) Close() {
	p.cache.Close()
}
