/*
Package verifier decodes and verifies BYU JWTs using lestrrat-go/jwx.

Verification follows a fixed path:

	Decode -> (development ? accept : resolve key by x5t -> verify signature)

Decode failures are reported before any network access. Outside development
mode the token's alg must appear in the issuer's
id_token_signing_alg_values_supported list and may never be "none".

	v, err := verifier.New(
	    verifier.WithConfigurationSource(provider),
	    verifier.WithKeyResolver(resolver),
	)
	if err != nil {
	    log.Fatal(err)
	}

	tok, err := v.Verify(ctx, jwt)
	switch {
	case errors.Is(err, core.ErrExpiredToken):
	case errors.Is(err, core.ErrUnknownSigningKey):
	case errors.Is(err, core.ErrUpstreamFetch):
	}

# Development mode

WithDevelopment(true) accepts any well-formed token without fetching
anything. It is refused at construction when GO_ENV or APP_ENV is
"production".
*/
package verifier
