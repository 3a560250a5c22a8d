package byujwt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/byu-oit/byu-jwt-go/certs"
	"github.com/byu-oit/byu-jwt-go/claims"
	"github.com/byu-oit/byu-jwt-go/core"
	"github.com/byu-oit/byu-jwt-go/discovery"
	"github.com/byu-oit/byu-jwt-go/verifier"
)

// Result is the outcome of a successful Authenticate call.
type Result struct {
	// Current is the identity in X-Jwt-Assertion. Always set.
	Current *claims.Identity `json:"current"`
	// Original is the identity in X-Jwt-Assertion-Original, when sent.
	Original *claims.Identity `json:"original,omitempty"`
	// OriginalJWT is the original header text, or the current one when the
	// original header was absent.
	OriginalJWT string `json:"originalJWT"`
	// Claims is the effective caller: the original resource owner, else the
	// current resource owner, else the original client, else the current client.
	Claims *claims.Person `json:"claims"`
}

// Authenticator verifies the BYU assertion headers of a request.
type Authenticator struct {
	config Config

	discovery *discovery.Provider
	certs     *certs.Resolver
	verifier  *verifier.Verifier

	httpClient     *http.Client
	logger         core.Logger
	metrics        Metrics
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	getenv         func(string) string
}

// New constructs an Authenticator with the supplied options.
//
// Example:
//
//	auth, err := byujwt.New(
//	    byujwt.WithBasePath("/echo"),
//	    byujwt.WithLogger(byujwt.NewLogrusLogger(logrus.StandardLogger())),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create authenticator: %v", err)
//	}
//	defer auth.Close()
func New(opts ...Option) (*Authenticator, error) {
	a := &Authenticator{}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid option", err)
		}
	}

	if err := a.config.Validate(); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid authenticator configuration", err)
	}

	a.applyDefaults()

	if err := a.build(); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "failed to build authenticator", err)
	}

	return a, nil
}

func (a *Authenticator) applyDefaults() {
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: a.config.httpTimeout()}
	}
	if a.logger == nil {
		a.logger = defaultLogger()
	}
	if a.metrics == nil {
		a.metrics = &NoopMetrics{}
	}
	a.tracer = newTracer(a.tracerProvider)
}

func (a *Authenticator) build() error {
	discoveryOpts := []discovery.Option{
		discovery.WithHTTPClient(a.httpClient),
		discovery.WithLogger(a.logger),
	}
	switch {
	case a.config.OpenIDConfigURL != "":
		discoveryOpts = append(discoveryOpts, discovery.WithURL(a.config.OpenIDConfigURL))
	case a.config.Issuer != "":
		discoveryOpts = append(discoveryOpts, discovery.WithIssuer(a.config.Issuer))
	}
	certOpts := []certs.Option{
		certs.WithHTTPClient(a.httpClient),
		certs.WithLogger(a.logger),
	}
	if a.config.CacheDuration > 0 {
		discoveryOpts = append(discoveryOpts, discovery.WithDefaultTTL(a.config.CacheDuration))
		certOpts = append(certOpts, certs.WithDefaultTTL(a.config.CacheDuration))
	}

	provider, err := discovery.New(discoveryOpts...)
	if err != nil {
		return err
	}
	resolver, err := certs.NewResolver(provider, certOpts...)
	if err != nil {
		provider.Close()
		return err
	}

	verifierOpts := []verifier.Option{
		verifier.WithConfigurationSource(provider),
		verifier.WithKeyResolver(resolver),
		verifier.WithDevelopment(a.config.Development),
		verifier.WithAllowedClockSkew(a.config.ClockSkew),
		verifier.WithLogger(a.logger),
	}
	if a.tracerProvider != nil {
		verifierOpts = append(verifierOpts, verifier.WithTracerProvider(a.tracerProvider))
	}
	if a.getenv != nil {
		verifierOpts = append(verifierOpts, verifier.WithEnvironment(a.getenv))
	}
	v, err := verifier.New(verifierOpts...)
	if err != nil {
		resolver.Close()
		provider.Close()
		return err
	}

	a.discovery, a.certs, a.verifier = provider, resolver, v
	return nil
}

// Config returns the effective configuration.
func (a *Authenticator) Config() Config {
	return a.config
}

// Authenticate verifies the assertion headers and returns the caller.
// Authentication failures match core.ErrJWTInvalid; failures to reach the
// issuer match core.ErrUpstreamFetch and are returned unchanged.
func (a *Authenticator) Authenticate(ctx context.Context, header http.Header) (*Result, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "byujwt.Authenticate")
	defer span.End()

	result, err := a.authenticate(ctx, header)

	outcome := outcomeOf(err)
	a.metrics.IncCounter(MetricAuthentications, map[string]string{"result": outcome})
	a.metrics.ObserveHistogram(MetricAuthenticationDuration, time.Since(start).Seconds(), map[string]string{"result": outcome})
	span.SetAttributes(attribute.String("byujwt.result", outcome))
	endSpan(span, err)

	if err != nil {
		if core.IsAuthenticationError(err) {
			a.logger.Debug("authentication rejected", "result", outcome, "error", err)
		} else {
			a.logger.Error("authentication could not be completed", "error", err)
		}
		return nil, err
	}

	a.logger.Debug("authentication succeeded", "byu_id", result.Claims.ByuID, "duration", time.Since(start))
	return result, nil
}

type headerOutcome struct {
	identity *claims.Identity
	err      error
}

func (a *Authenticator) authenticate(ctx context.Context, header http.Header) (*Result, error) {
	originalJWT, currentJWT := AssertionHeaders(header)

	var original, current headerOutcome
	var wg sync.WaitGroup
	if originalJWT != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			original.identity, original.err = a.verifyHeader(ctx, core.HeaderOriginal, originalJWT)
		}()
	}
	if currentJWT != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			current.identity, current.err = a.verifyHeader(ctx, core.HeaderCurrent, currentJWT)
		}()
	}
	wg.Wait()

	if original.err != nil {
		return nil, qualify(core.HeaderOriginal, original.err)
	}
	if current.err != nil {
		return nil, qualify(core.HeaderCurrent, current.err)
	}
	if current.identity == nil {
		return nil, core.ErrJWTMissing
	}

	if err := a.checkBasePath(current.identity); err != nil {
		return nil, err
	}

	result := &Result{
		Current:     current.identity,
		Original:    original.identity,
		OriginalJWT: currentJWT,
	}
	if originalJWT != "" {
		result.OriginalJWT = originalJWT
	}
	result.Claims = effectiveClaims(original.identity, current.identity)

	return result, nil
}

func (a *Authenticator) verifyHeader(ctx context.Context, slot, token string) (*claims.Identity, error) {
	ctx, span := a.tracer.Start(ctx, "byujwt.verifyHeader", trace.WithAttributes(attribute.String("byujwt.header", slot)))
	defer span.End()

	id, err := a.Verify(ctx, token)
	endSpan(span, err)
	return id, err
}

func (a *Authenticator) checkBasePath(current *claims.Identity) error {
	basePath := a.config.BasePath
	if a.config.Development || basePath == "" {
		return nil
	}

	if !strings.HasPrefix(current.Gateway.APIContext, basePath) {
		return core.NewValidationError(core.ErrorCodeInvalidAPIContext, core.ErrInvalidAPIContext.Message, nil)
	}

	audiences := current.Registered.Audience
	if len(audiences) == 0 {
		return nil
	}
	for _, aud := range audiences {
		if strings.HasPrefix(aud, basePath) {
			return nil
		}
	}
	return core.NewValidationError(core.ErrorCodeInvalidAudience, core.ErrInvalidAudience.Message, nil)
}

func effectiveClaims(original, current *claims.Identity) *claims.Person {
	switch {
	case original != nil && original.ResourceOwner != nil:
		return &original.ResourceOwner.Person
	case current.ResourceOwner != nil:
		return &current.ResourceOwner.Person
	case original != nil:
		return &original.Client.Person
	}
	return &current.Client.Person
}

// qualify names the header in authentication failures. Anything else, such
// as an upstream fetch failure, passes through untouched.
func qualify(slot string, err error) error {
	var verr *core.ValidationError
	if !errors.As(err, &verr) || !verr.Authentication() {
		return err
	}

	name := ""
	if slot == core.HeaderOriginal {
		name = "Original "
	}
	if errors.Is(err, core.ErrExpiredToken) {
		return &core.ValidationError{Code: core.ErrorCodeTokenExpired, Message: "Expired " + name + "JWT", Header: slot, Details: err}
	}
	return &core.ValidationError{Code: core.ErrorCodeTokenInvalid, Message: "Invalid " + name + "JWT", Header: slot, Details: err}
}

// Verify verifies a single JWT and normalizes its claims.
func (a *Authenticator) Verify(ctx context.Context, token string) (*claims.Identity, error) {
	tok, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return claims.Normalize(tok.Claims)
}

// Valid reports whether token verifies. Every failure, including an
// unreachable issuer, reads as false.
func (a *Authenticator) Valid(ctx context.Context, token string) bool {
	_, err := a.verifier.Verify(ctx, token)
	return err == nil
}

// OpenIDConfiguration returns the issuer's discovery document.
func (a *Authenticator) OpenIDConfiguration(ctx context.Context) (*discovery.OpenIDConfiguration, error) {
	return a.discovery.Configuration(ctx)
}

// Certificates returns the issuer's signing certificates.
func (a *Authenticator) Certificates(ctx context.Context) ([]certs.PemCertificate, error) {
	return a.certs.Certificates(ctx)
}

// CacheTTL returns the discovery cache lifetime.
func (a *Authenticator) CacheTTL() time.Duration {
	return a.discovery.TTL()
}

// SetCacheTTL changes the lifetime of both caches. Shortening it expires
// cached documents early; zero empties both caches.
func (a *Authenticator) SetCacheTTL(ttl time.Duration) {
	a.discovery.SetTTL(ttl)
	a.certs.SetTTL(ttl)
}

// Close releases cache timers.
func (a *Authenticator) Close() {
	a.certs.Close()
	a.discovery.Close()
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr.Code
	}
	return "error"
}
