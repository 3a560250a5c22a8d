package byujwt

import (
	"net/http"
	"strings"
)

// Assertion headers set by the API gateway. Lookups are case-insensitive.
const (
	HeaderCurrent  = "X-Jwt-Assertion"
	HeaderOriginal = "X-Jwt-Assertion-Original"
)

// AssertionHeaders returns the original and current assertion header values.
// Missing headers yield empty strings.
func AssertionHeaders(header http.Header) (original, current string) {
	return strings.TrimSpace(header.Get(HeaderOriginal)), strings.TrimSpace(header.Get(HeaderCurrent))
}

// HeaderFromMap builds an http.Header from arbitrary-case keys, such as gRPC
// metadata or a decoded JSON object.
func HeaderFromMap(values map[string][]string) http.Header {
	header := make(http.Header, len(values))
	for key, vals := range values {
		for _, v := range vals {
			header.Add(key, v)
		}
	}
	return header
}
