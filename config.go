package byujwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the declarative configuration of an Authenticator. The zero value
// verifies tokens against the BYU production issuer.
type Config struct {
	// Issuer derives the discovery URL as <issuer>/.well-known/openid-configuration.
	Issuer string `validate:"omitempty,hostname|hostname_port|url"`

	// OpenIDConfigURL overrides the discovery URL. It wins over Issuer.
	OpenIDConfigURL string `validate:"omitempty,url"`

	// CacheDuration is how long discovery and certificate documents are kept
	// when the issuer sends no Cache-Control max-age. Zero means 60 minutes.
	CacheDuration time.Duration `validate:"gte=0s"`

	// Development skips signature verification and the base path checks.
	// Refused when GO_ENV or APP_ENV is "production".
	Development bool

	// BasePath, when set, must prefix the token's API context and, if the
	// token has an audience, at least one audience value.
	BasePath string `validate:"omitempty,startswith=/"`

	// HTTPTimeout bounds each discovery or certificate fetch.
	HTTPTimeout time.Duration `validate:"gte=0s,lte=5m"`

	// ClockSkew tolerates drift when checking exp, nbf and iat.
	ClockSkew time.Duration `validate:"gte=0s,lte=5m"`
}

const (
	defaultHTTPTimeout = 10 * time.Second
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, ", "))
}

func (c Config) httpTimeout() time.Duration {
	if c.HTTPTimeout == 0 {
		return defaultHTTPTimeout
	}
	return c.HTTPTimeout
}
