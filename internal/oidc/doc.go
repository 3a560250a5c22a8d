/*
Package oidc holds the HTTP plumbing shared by the discovery and certificate
packages.

OIDC providers expose a discovery document at a well-known URL:

	https://api.byu.edu/.well-known/openid-configuration

WellKnownURL builds that URL from an issuer, and FetchJSON retrieves any JSON
document the issuer serves, reporting the Cache-Control max-age so callers can
size their cache lifetime:

	var doc map[string]any
	maxAge, err := oidc.FetchJSON(ctx, client, url, &doc)
	if err != nil {
	    // err matches core.ErrUpstreamFetch
	}

Non-200 responses, transport failures and undecodable bodies are all upstream
fetch errors. Bodies are capped at 1MB.
*/
package oidc
