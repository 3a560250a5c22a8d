package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/byu-oit/byu-jwt-go/certs"
	"github.com/byu-oit/byu-jwt-go/claims"
	"github.com/byu-oit/byu-jwt-go/core"
	"github.com/byu-oit/byu-jwt-go/discovery"
)

const tracerName = "github.com/byu-oit/byu-jwt-go/verifier"

// ProductionEnvVars are checked, in order, to detect a production process.
// Development mode is refused when any of them equals "production".
var ProductionEnvVars = []string{"GO_ENV", "APP_ENV"}

// KeyResolver finds the certificate for a thumbprint.
type KeyResolver interface {
	Key(ctx context.Context, x5t string) (certs.PemCertificate, error)
}

// ConfigurationSource supplies the issuer's signing algorithm allow-list.
type ConfigurationSource interface {
	Configuration(ctx context.Context) (*discovery.OpenIDConfiguration, error)
}

// Header is the subset of the JOSE header the verifier reads.
type Header struct {
	Algorithm  string `json:"alg"`
	KeyID      string `json:"kid,omitempty"`
	Thumbprint string `json:"x5t,omitempty"`
	Type       string `json:"typ,omitempty"`
}

// Token is a decoded, and after Verify a verified, JWT.
type Token struct {
	Raw    string
	Header Header
	Claims claims.Raw
}

// Verifier checks BYU JWTs against the issuer's certificates.
type Verifier struct {
	development bool
	keys        KeyResolver
	config      ConfigurationSource
	clockSkew   time.Duration
	now         func() time.Time
	logger      core.Logger
	tracer      trace.Tracer
	getenv      func(string) string
}

// New builds a Verifier. Outside development mode a key resolver and a
// configuration source are required.
func New(opts ...Option) (*Verifier, error) {
	v := &Verifier{
		now:    time.Now,
		getenv: os.Getenv,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid verifier option", err)
		}
	}

	if err := v.validate(); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeConfigInvalid, "invalid verifier configuration", err)
	}

	if v.tracer == nil {
		v.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return v, nil
}

func (v *Verifier) validate() error {
	if v.development {
		for _, name := range ProductionEnvVars {
			if strings.EqualFold(v.getenv(name), "production") {
				return fmt.Errorf("development mode is not allowed when %s=production", name)
			}
		}
		return nil
	}
	if v.keys == nil {
		return errors.New("key resolver is required")
	}
	if v.config == nil {
		return errors.New("configuration source is required")
	}
	return nil
}

// Development reports whether signature verification is skipped.
func (v *Verifier) Development() bool {
	return v.development
}

// Decode splits a compact JWS into its header and JSON payload without
// checking the signature. JSON serialized JWS is rejected. It never touches
// the network.
func Decode(token string) (*Token, error) {
	if strings.Count(token, ".") != 2 {
		return nil, malformed(errors.New("token is not a compact JWS of three segments"))
	}

	msg, err := jws.ParseString(token)
	if err != nil {
		return nil, malformed(err)
	}

	signatures := msg.Signatures()
	if len(signatures) != 1 {
		return nil, malformed(fmt.Errorf("expected one signature, found %d", len(signatures)))
	}
	headers := signatures[0].ProtectedHeaders()

	var payload claims.Raw
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		return nil, malformed(fmt.Errorf("payload is not a JSON object: %w", err))
	}

	return &Token{
		Raw: token,
		Header: Header{
			Algorithm:  headers.Algorithm().String(),
			KeyID:      headers.KeyID(),
			Thumbprint: headers.X509CertThumbprint(),
			Type:       headers.Type(),
		},
		Claims: payload,
	}, nil
}

// Verify decodes the token and, outside development mode, checks its
// algorithm against the issuer allow-list, resolves the signing certificate
// by x5t and verifies the signature and time claims.
func (v *Verifier) Verify(ctx context.Context, token string) (*Token, error) {
	ctx, span := v.tracer.Start(ctx, "verifier.Verify")
	defer span.End()

	tok, err := v.verify(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("jwt.alg", tok.Header.Algorithm),
		attribute.String("jwt.x5t", tok.Header.Thumbprint),
		attribute.Bool("jwt.development", v.development),
	)
	return tok, nil
}

func (v *Verifier) verify(ctx context.Context, token string) (*Token, error) {
	tok, err := Decode(token)
	if err != nil {
		return nil, err
	}

	if v.development {
		if v.logger != nil {
			v.logger.Warn("JWT signature verification skipped in development mode", "kid", tok.Header.KeyID)
		}
		return tok, nil
	}

	alg := tok.Header.Algorithm
	if alg == "" || strings.EqualFold(alg, jwa.NoSignature.String()) {
		return nil, core.NewValidationError(core.ErrorCodeInvalidAlgorithm, "unsigned tokens are not accepted", nil)
	}

	config, err := v.config.Configuration(ctx)
	if err != nil {
		return nil, err
	}
	if !config.AllowsAlgorithm(alg) {
		return nil, core.NewValidationError(
			core.ErrorCodeInvalidAlgorithm,
			fmt.Sprintf("signing algorithm %q is not allowed by the issuer", alg),
			nil,
		)
	}

	cert, err := v.keys.Key(ctx, tok.Header.Thumbprint)
	if err != nil {
		return nil, err
	}
	publicKey, err := cert.PublicKey()
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidSignature, "could not load signing certificate", err)
	}

	_, err = jwt.ParseString(token,
		jwt.WithKey(jwa.SignatureAlgorithm(alg), publicKey),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
		jwt.WithAcceptableSkew(v.clockSkew),
	)
	if err != nil {
		return nil, classify(err)
	}

	return tok, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired()):
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token expired", err)
	case errors.Is(err, jwt.ErrTokenNotYetValid()), errors.Is(err, jwt.ErrInvalidIssuedAt()):
		return core.NewValidationError(core.ErrorCodeTokenNotYetValid, "token not yet valid", err)
	}
	return core.NewValidationError(core.ErrorCodeInvalidSignature, "signature verification failed", err)
}

func malformed(err error) error {
	return core.NewValidationError(core.ErrorCodeTokenMalformed, "malformed token", err)
}
