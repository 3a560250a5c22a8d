package discovery

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byu-oit/byu-jwt-go/core"
	"github.com/byu-oit/byu-jwt-go/internal/jwttest"
)

func TestProvider_Configuration(t *testing.T) {
	t.Run("it fetches and decodes the discovery document", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		config, err := provider.Configuration(context.Background())
		require.NoError(t, err)

		want := &OpenIDConfiguration{
			Issuer:                           issuer.URL(),
			AuthorizationEndpoint:            issuer.URL() + "/authorize",
			TokenEndpoint:                    issuer.URL() + "/token",
			UserinfoEndpoint:                 issuer.URL() + "/userinfo",
			RevocationEndpoint:               issuer.URL() + "/revoke",
			JWKSURI:                          issuer.URL() + jwttest.CertsPath,
			ResponseTypesSupported:           []string{"code", "token"},
			SubjectTypesSupported:            []string{"public"},
			IDTokenSigningAlgValuesSupported: []string{"RS256"},
			ScopesSupported:                  []string{"openid"},
		}
		if diff := cmp.Diff(want, config); diff != "" {
			t.Errorf("configuration mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("it serves repeated calls from the cache", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		for range 3 {
			_, err := provider.Configuration(context.Background())
			require.NoError(t, err)
		}

		assert.Equal(t, int32(1), issuer.DiscoveryHits.Load())
	})

	t.Run("it uses max-age for the cache lifetime", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		issuer.SetCacheControl("public, max-age=120")
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		_, err = provider.Configuration(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2*time.Minute, provider.TTL())
	})

	t.Run("it falls back to the default ttl without max-age", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		provider, err := New(WithURL(issuer.DiscoveryURL()), WithDefaultTTL(5*time.Minute))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		_, err = provider.Configuration(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 5*time.Minute, provider.TTL())
	})

	t.Run("it refetches once the cache has expired", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		issuer.SetCacheControl("max-age=1")
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		_, err = provider.Configuration(context.Background())
		require.NoError(t, err)
		provider.SetTTL(0)
		_, err = provider.Configuration(context.Background())
		require.NoError(t, err)

		assert.Equal(t, int32(2), issuer.DiscoveryHits.Load())
	})

	t.Run("a failed fetch is returned and not cached", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		_, err = provider.Configuration(context.Background())
		require.NoError(t, err)
		provider.Invalidate()

		issuer.SetDiscoveryStatus(http.StatusServiceUnavailable)
		_, err = provider.Configuration(context.Background())
		assert.ErrorIs(t, err, core.ErrUpstreamFetch)
		assert.False(t, core.IsAuthenticationError(err))

		issuer.SetDiscoveryStatus(http.StatusOK)
		_, err = provider.Configuration(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(3), issuer.DiscoveryHits.Load())
	})

	t.Run("a document without an algorithm list is rejected", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		issuer.SetAlgorithms()
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		_, err = provider.Configuration(context.Background())
		assert.ErrorIs(t, err, core.ErrUpstreamFetch)
		assert.ErrorContains(t, err, "id_token_signing_alg_values_supported")
	})

	t.Run("concurrent misses share a single fetch", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := provider.Configuration(context.Background())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, issuer.DiscoveryHits.Load(), int32(2))
	})

	t.Run("a canceled caller does not fail callers sharing its fetch", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		issuer.SetDelay(300 * time.Millisecond)
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		leaderCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		leaderErr := make(chan error, 1)
		go func() {
			_, err := provider.Configuration(leaderCtx)
			leaderErr <- err
		}()
		require.Eventually(t, func() bool { return issuer.DiscoveryHits.Load() == 1 }, time.Second, time.Millisecond)

		config, err := provider.Configuration(context.Background())

		require.NoError(t, err)
		assert.Equal(t, issuer.URL()+jwttest.CertsPath, config.JWKSURI)
		err = <-leaderErr
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, core.ErrUpstreamFetch)
		assert.Equal(t, int32(1), issuer.DiscoveryHits.Load())
	})

	t.Run("the shared fetch completes and is cached after its caller gives up", func(t *testing.T) {
		issuer := jwttest.NewIssuer(t)
		issuer.SetDelay(100 * time.Millisecond)
		provider, err := New(WithURL(issuer.DiscoveryURL()))
		require.NoError(t, err)
		t.Cleanup(provider.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = provider.Configuration(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		require.Eventually(t, func() bool {
			_, err := provider.Configuration(context.Background())
			return err == nil
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), issuer.DiscoveryHits.Load())
	})
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		opts    []Option
		wantURL string
		wantErr string
	}{
		{
			name:    "it defaults to the BYU discovery URL",
			wantURL: "https://api.byu.edu/.well-known/openid-configuration",
		},
		{
			name:    "it derives the URL from an issuer",
			opts:    []Option{WithIssuer("api-sandbox.byu.edu")},
			wantURL: "https://api-sandbox.byu.edu/.well-known/openid-configuration",
		},
		{
			name:    "an explicit URL wins when given last",
			opts:    []Option{WithIssuer("api.byu.edu"), WithURL("http://localhost/.well-known/openid-configuration")},
			wantURL: "http://localhost/.well-known/openid-configuration",
		},
		{
			name:    "it rejects an empty URL",
			opts:    []Option{WithURL("")},
			wantErr: "discovery URL must not be empty",
		},
		{
			name:    "it rejects a nil client",
			opts:    []Option{WithHTTPClient(nil)},
			wantErr: "http client must not be nil",
		},
		{
			name:    "it rejects a non-positive default ttl",
			opts:    []Option{WithDefaultTTL(0)},
			wantErr: "default TTL must be positive",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			provider, err := New(testCase.opts...)
			if testCase.wantErr != "" {
				assert.ErrorContains(t, err, testCase.wantErr)
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.wantURL, provider.URL())
			assert.Equal(t, DefaultTTL, provider.TTL())
		})
	}
}

func TestOpenIDConfiguration_AllowsAlgorithm(t *testing.T) {
	config := &OpenIDConfiguration{IDTokenSigningAlgValuesSupported: []string{"RS256", "RS512"}}

	assert.True(t, config.AllowsAlgorithm("RS256"))
	assert.True(t, config.AllowsAlgorithm("RS512"))
	assert.False(t, config.AllowsAlgorithm("HS256"))
	assert.False(t, config.AllowsAlgorithm("none"))
}
