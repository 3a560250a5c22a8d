/*
Package core holds the pieces shared by every layer of the module: the error
taxonomy, the logging interface and the typed context helpers.

# Errors

Every failure produced by the verification pipeline is a *ValidationError
with a machine-readable Code. Sentinels such as ErrExpiredToken match by code:

	if errors.Is(err, core.ErrExpiredToken) {
	    // token was well formed and signed, but has expired
	}

Authentication-class failures (anything the caller did wrong) also match
ErrJWTInvalid. Upstream fetch failures do not, so adapters can answer 401 or
500 with a single check:

	if core.IsAuthenticationError(err) {
	    w.WriteHeader(http.StatusUnauthorized)
	}

# Context

Adapters store the authentication result with SetClaims and handlers read it
back with the generic GetClaims:

	result, err := core.GetClaims[*byujwt.Result](r.Context())
*/
package core
