package jwtgrpc

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"

	byujwt "github.com/byu-oit/byu-jwt-go"
)

// HeaderExtractor turns incoming gRPC metadata into the headers the
// Authenticator reads.
type HeaderExtractor func(ctx context.Context) http.Header

// MetadataHeaderExtractor copies the assertion entries of the incoming
// metadata. gRPC lowercases metadata keys, so the lowercase names are read.
func MetadataHeaderExtractor(ctx context.Context) http.Header {
	header := http.Header{}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return header // No metadata, no headers (not an error)
	}

	for _, name := range []string{byujwt.HeaderCurrent, byujwt.HeaderOriginal} {
		// Multiple entries are joined the same way net/http would see them;
		// the Authenticator then rejects the result as malformed.
		if values := md.Get(strings.ToLower(name)); len(values) > 0 {
			header.Set(name, strings.Join(values, ","))
		}
	}

	return header
}
