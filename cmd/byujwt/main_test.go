package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	byujwt "github.com/byu-oit/byu-jwt-go"
	"github.com/byu-oit/byu-jwt-go/internal/jwttest"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))

	err := cmd.Execute()
	return out.String(), err
}

func TestDecodeCmd(t *testing.T) {
	key := jwttest.NewKey(t, "key-1")
	token := key.Sign(t, jwttest.Claims("/echo/v1", nil))

	t.Run("it prints the header, claims and identity", func(t *testing.T) {
		out, err := execute(t, "", "decode", token)
		require.NoError(t, err)

		var decoded struct {
			Header   map[string]string `json:"header"`
			Claims   map[string]any    `json:"claims"`
			Identity struct {
				Claims struct {
					ByuID string `json:"byuId"`
				} `json:"claims"`
			} `json:"identity"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &decoded))
		assert.Equal(t, "RS256", decoded.Header["alg"])
		assert.Equal(t, key.Thumbprint, decoded.Header["x5t"])
		assert.Equal(t, "/echo/v1", decoded.Claims["http://wso2.org/claims/apicontext"])
		assert.Equal(t, "222222222", decoded.Identity.Claims.ByuID)
	})

	t.Run("it reads the token from stdin", func(t *testing.T) {
		out, err := execute(t, token+"\n", "decode")
		require.NoError(t, err)
		assert.Contains(t, out, `"alg": "RS256"`)
	})

	t.Run("it fails on text that is not a JWT", func(t *testing.T) {
		_, err := execute(t, "", "decode", "not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("it fails without a token", func(t *testing.T) {
		_, err := execute(t, "", "decode")
		assert.EqualError(t, err, "no token given")
	})
}

func TestVerifyCmd(t *testing.T) {
	issuer := jwttest.NewIssuer(t)
	unknown := jwttest.NewKey(t, "unknown")

	t.Run("it prints the identity of a valid token", func(t *testing.T) {
		out, err := execute(t, "", "verify", issuer.Sign(t, jwttest.Claims("/echo/v1", nil)), "--openid-config-url", issuer.DiscoveryURL())
		require.NoError(t, err)
		assert.Contains(t, out, `"apiContext": "/echo/v1"`)
	})

	t.Run("it reads the discovery URL from the environment", func(t *testing.T) {
		t.Setenv(envOpenIDConfigURL, issuer.DiscoveryURL())

		_, err := execute(t, "", "verify", issuer.Sign(t, jwttest.Claims("/echo/v1", nil)))
		assert.NoError(t, err)
	})

	t.Run("it loads the environment from a dotenv file", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte(envOpenIDConfigURL+"="+issuer.DiscoveryURL()+"\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv(envOpenIDConfigURL) })

		cmd := newRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"verify", issuer.Sign(t, jwttest.Claims("/echo/v1", nil)), "--env-file", envFile})

		assert.NoError(t, cmd.Execute())
	})

	t.Run("it fails for a token signed by an unknown certificate", func(t *testing.T) {
		_, err := execute(t, "", "verify", unknown.Sign(t, jwttest.Claims("/echo/v1", nil)), "--openid-config-url", issuer.DiscoveryURL())
		assert.Error(t, err)
	})

	t.Run("it rejects an invalid configuration", func(t *testing.T) {
		_, err := execute(t, "", "verify", "token", "--base-path", "echo")
		assert.Error(t, err)
	})
}

func TestIssuerCmds(t *testing.T) {
	issuer := jwttest.NewIssuer(t)

	out, err := execute(t, "", "openid-config", "--openid-config-url", issuer.DiscoveryURL())
	require.NoError(t, err)
	assert.Contains(t, out, issuer.URL()+jwttest.CertsPath)

	out, err = execute(t, "", "certs", "--openid-config-url", issuer.DiscoveryURL())
	require.NoError(t, err)
	assert.Contains(t, out, "x5t="+issuer.Key().Thumbprint)
	assert.Contains(t, out, "-----BEGIN CERTIFICATE-----")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, BuildVersion+"\n", out)
}

func TestRootOptions_Complete(t *testing.T) {
	t.Setenv(envIssuer, "env.example.edu")
	t.Setenv(envCacheDuration, "5m")
	t.Setenv(envDevelopment, "true")
	t.Setenv(envClockSkew, "not-a-duration")
	t.Setenv(envLogLevel, "debug")

	opts := &rootOptions{}
	cmd := newRootCmdWithOptions(opts)
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"version", "--issuer", "flag.example.edu", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	require.NoError(t, cmd.Execute())

	assert.Equal(t, byujwt.Config{
		Issuer:        "flag.example.edu",
		CacheDuration: 5 * time.Minute,
		Development:   true,
	}, opts.config)
	assert.Equal(t, logrus.DebugLevel, opts.logger.GetLevel())
}

func TestNewRouter(t *testing.T) {
	issuer := jwttest.NewIssuer(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := prometheus.NewRegistry()
	auth, err := byujwt.New(
		byujwt.WithOpenIDConfigURL(issuer.DiscoveryURL()),
		byujwt.WithLogger(byujwt.NewLogrusLogger(logger)),
		byujwt.WithMetrics(byujwt.NewPrometheusMetrics(registry)),
		byujwt.WithEnvironment(func(string) string { return "" }),
	)
	require.NoError(t, err)
	defer auth.Close()

	router, err := newRouter(auth, registry)
	require.NoError(t, err)
	server := httptest.NewServer(router)
	defer server.Close()
	client := &http.Client{Timeout: 5 * time.Second}

	get := func(path, token string) *http.Response {
		request, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			request.Header.Set(byujwt.HeaderCurrent, token)
		}
		response, err := client.Do(request)
		require.NoError(t, err)
		t.Cleanup(func() { response.Body.Close() })
		return response
	}

	assert.Equal(t, http.StatusOK, get("/healthz", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get("/whoami", "").StatusCode)

	response := get("/whoami", issuer.Sign(t, jwttest.Claims("/echo/v1", nil)))
	require.Equal(t, http.StatusOK, response.StatusCode)
	var result byujwt.Result
	require.NoError(t, json.NewDecoder(response.Body).Decode(&result))
	assert.Equal(t, "222222222", result.Claims.ByuID)

	metrics, err := io.ReadAll(get("/metrics", "").Body)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `byujwt_authentications_total{result="success"} 1`)
	assert.Contains(t, string(metrics), `byujwt_authentications_total{result="token_missing"} 1`)
}
