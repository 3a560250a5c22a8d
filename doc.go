/*
Package byujwt authenticates requests forwarded by the BYU API gateway.

The gateway attaches the caller's identity as signed JWTs in two headers:
X-Jwt-Assertion always, and X-Jwt-Assertion-Original when the request was
forwarded on behalf of another caller. The Authenticator verifies both
concurrently against the issuer's published certificates, normalizes the BYU
claim URIs into typed identities, and picks the effective caller.

# Quick Start

	auth, err := byujwt.New(
	    byujwt.WithBasePath("/echo"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer auth.Close()

	mw, err := byujwt.NewMiddleware(auth)
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/echo/", mw.CheckJWT(echoHandler))
	http.ListenAndServe(":8080", nil)

# Accessing the Caller

	func echoHandler(w http.ResponseWriter, r *http.Request) {
	    result := byujwt.MustGetResult(r.Context())
	    fmt.Fprintf(w, "Hello, %s!", result.Claims.PreferredFirstName)
	}

Result.Claims is the original resource owner when present, then the current
resource owner, then the original client, then the current client.

# Issuer Documents

The discovery document and the certificate set are cached. Their lifetime
comes from the issuer's Cache-Control max-age, falling back to
Config.CacheDuration (60 minutes by default). A token signed by a certificate
the cache has not seen triggers one rate-limited refresh.

# Errors

Authentication failures are *core.ValidationError values matching
core.ErrJWTInvalid. Their Message names the failing header, for example
"Expired Original JWT". Failures to reach the issuer match
core.ErrUpstreamFetch and should be answered with a 5xx.

DefaultErrorHandler writes the UAPI envelope:

	{"metadata":{"validation_response":{"code":401,"message":"Invalid JWT"}}}

# Development Mode

WithDevelopment(true) skips signature checks and the base path checks while
still rejecting malformed tokens. New refuses it when GO_ENV or APP_ENV is
"production".

# Observability

Logs go through core.Logger; adapters exist for logrus (the default), zap and
zerolog, and *slog.Logger satisfies the interface directly. Spans are
recorded with OpenTelemetry and outcomes with Metrics, for which
PrometheusMetrics is provided.

# Framework Adapters

framework/gin, framework/echo and framework/grpc wrap the same Authenticator.
*/
package byujwt
