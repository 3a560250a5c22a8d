// Package certs models the issuer's signing certificate set and resolves the
// certificate that signed a token by its x5t thumbprint.
package certs

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/byu-oit/byu-jwt-go/core"
)

const pemLineLength = 64

// Certificate is one entry of the issuer's certificate set.
type Certificate struct {
	Kty string   `json:"kty,omitempty"`
	Use string   `json:"use,omitempty"`
	Kid string   `json:"kid"`
	X5t string   `json:"x5t"`
	N   string   `json:"n,omitempty"`
	E   string   `json:"e,omitempty"`
	X5c []string `json:"x5c"`
}

// Set is the certificate document served at the issuer's jwks_uri.
type Set struct {
	Keys []Certificate `json:"keys"`
}

// Validate checks that every entry can be resolved and wrapped.
func (s *Set) Validate() error {
	if len(s.Keys) == 0 {
		return errors.New("certificate set has no keys")
	}
	for i, key := range s.Keys {
		switch {
		case key.Kid == "":
			return fmt.Errorf("key %d has no kid", i)
		case key.X5t == "":
			return fmt.Errorf("key %q has no x5t", key.Kid)
		case len(key.X5c) == 0:
			return fmt.Errorf("key %q has no x5c", key.Kid)
		}
		if _, err := base64.StdEncoding.DecodeString(key.X5c[0]); err != nil {
			return fmt.Errorf("key %q has an invalid x5c: %w", key.Kid, err)
		}
	}
	return nil
}

// PemCertificates wraps the first x5c entry of every key in PEM framing,
// preserving order.
func (s *Set) PemCertificates() []PemCertificate {
	pems := make([]PemCertificate, 0, len(s.Keys))
	for _, key := range s.Keys {
		pems = append(pems, PemCertificate{
			Kid: key.Kid,
			X5t: key.X5t,
			PEM: ToPEM(key.X5c[0]),
		})
	}
	return pems
}

// PemCertificate is a certificate ready for signature verification.
type PemCertificate struct {
	Kid string
	X5t string
	PEM string
}

// PublicKey parses the certificate and returns its public key.
func (c PemCertificate) PublicKey() (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(c.PEM))
	if block == nil {
		return nil, fmt.Errorf("certificate %q is not PEM encoded", c.Kid)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse certificate %q: %w", c.Kid, err)
	}
	return cert.PublicKey, nil
}

// ToPEM wraps a base64 certificate body at 64 characters per line between
// BEGIN and END CERTIFICATE markers.
func ToPEM(body string) string {
	var b strings.Builder
	b.WriteString("-----BEGIN CERTIFICATE-----\n")
	for len(body) > pemLineLength {
		b.WriteString(body[:pemLineLength])
		b.WriteByte('\n')
		body = body[pemLineLength:]
	}
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	b.WriteString("-----END CERTIFICATE-----")
	return b.String()
}

// FindByThumbprint returns the first certificate whose x5t equals x5t.
// A miss is reported as core.ErrUnknownSigningKey.
func FindByThumbprint(pems []PemCertificate, x5t string) (PemCertificate, error) {
	if x5t != "" {
		for _, c := range pems {
			if c.X5t == x5t {
				return c, nil
			}
		}
	}
	return PemCertificate{}, core.NewValidationError(
		core.ErrorCodeJWKSKeyNotFound,
		fmt.Sprintf("no certificate matches x5t %q", x5t),
		nil,
	)
}
