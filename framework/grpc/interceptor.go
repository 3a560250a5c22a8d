// Package jwtgrpc authenticates gRPC calls with a byujwt.Authenticator. The
// assertion JWTs travel as x-jwt-assertion and x-jwt-assertion-original
// metadata.
package jwtgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	byujwt "github.com/byu-oit/byu-jwt-go"
	"github.com/byu-oit/byu-jwt-go/core"
)

// JWTInterceptor authenticates gRPC servers' incoming calls.
type JWTInterceptor struct {
	auth            *byujwt.Authenticator
	headerExtractor HeaderExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          core.Logger
}

// New creates a gRPC interceptor. WithAuthenticator is required.
func New(opts ...Option) (*JWTInterceptor, error) {
	interceptor := &JWTInterceptor{
		headerExtractor: MetadataHeaderExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.auth == nil {
		return nil, errors.New("authenticator is required, use WithAuthenticator option")
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authenticates the call and stores the Result in the handler's context.
func (i *JWTInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping JWT validation for excluded method",
					"method", info.FullMethod)
			}
			return handler(ctx, req)
		}

		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authenticates the stream and stores the Result in its context.
func (i *JWTInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping JWT validation for excluded method",
					"method", info.FullMethod)
			}
			return handler(srv, ss)
		}

		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

func (i *JWTInterceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	result, err := i.auth.Authenticate(ctx, i.headerExtractor(ctx))
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("JWT validation failed",
				"error", err,
				"method", method)
		}
		return ctx, i.errorHandler(err)
	}

	return core.SetClaims(ctx, result), nil
}

// GetResult retrieves the Result stored by the interceptor.
func GetResult(ctx context.Context) (*byujwt.Result, error) {
	return byujwt.GetResult(ctx)
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the Result.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
