package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/byu-oit/byu-jwt-go/core"
)

const (
	// DefaultDiscoveryURL is used when neither an issuer nor a discovery URL is configured.
	DefaultDiscoveryURL = "https://api.byu.edu/.well-known/openid-configuration"

	wellKnownPath = "/.well-known/openid-configuration"

	// Discovery documents and certificate sets are a few KB.
	maxBodySize = 1 << 20
)

// WellKnownURL returns the discovery document URL for issuer. Issuers given
// without a scheme are assumed to be served over https.
func WellKnownURL(issuer string) (string, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return DefaultDiscoveryURL, nil
	}
	if !strings.Contains(issuer, "://") {
		issuer = "https://" + issuer
	}

	u, err := url.Parse(issuer)
	if err != nil {
		return "", fmt.Errorf("could not parse issuer %q: %w", issuer, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("issuer %q has no host", issuer)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + wellKnownPath

	return u.String(), nil
}

// FetchJSON GETs rawURL and decodes the JSON body into dst. It returns the
// lifetime advertised by the Cache-Control max-age directive, or zero when
// the response carries none. Every failure is reported as an upstream fetch
// error.
func FetchJSON(ctx context.Context, client *http.Client, rawURL string, dst any) (time.Duration, error) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("fetch", trace.WithAttributes(attribute.String("url", rawURL)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, upstreamError(rawURL, fmt.Errorf("could not build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, upstreamError(rawURL, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, upstreamError(rawURL, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(dst); err != nil {
		return 0, upstreamError(rawURL, fmt.Errorf("could not decode json body: %w", err))
	}

	return ParseCacheControl(resp.Header.Get("Cache-Control")), nil
}

// ParseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is not present, invalid, or outside 1 second to 7 days.
func ParseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = 1 * time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(strings.ToLower(directive))
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}

	return 0
}

func upstreamError(rawURL string, err error) error {
	return core.NewValidationError(
		core.ErrorCodeUpstreamFetch,
		"could not fetch "+rawURL,
		err,
	)
}
