package byujwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byu-oit/byu-jwt-go/internal/jwttest"
)

func TestMiddleware_CheckJWT(t *testing.T) {
	issuer := jwttest.NewIssuer(t)
	validToken := issuer.Sign(t, jwttest.Claims("/echo/v1", nil))

	testCases := []struct {
		name           string
		path           string
		token          string
		prefixes       []string
		discovery      int
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "it passes the caller to the next handler",
			path:           "/echo/v1",
			token:          validToken,
			wantStatusCode: http.StatusOK,
			wantBody:       `{"byuId":"222222222"}`,
		},
		{
			name:           "it answers 401 without assertion headers",
			path:           "/echo/v1",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"metadata":{"validation_response":{"code":401,"message":"Missing expected JWT"}}}`,
		},
		{
			name:           "it answers 401 for a malformed token",
			path:           "/echo/v1",
			token:          "not-a-jwt",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"metadata":{"validation_response":{"code":401,"message":"Invalid JWT"}}}`,
		},
		{
			name:           "it answers 500 when the issuer is unreachable",
			path:           "/echo/v1",
			token:          validToken,
			discovery:      http.StatusBadGateway,
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       `{"metadata":{"validation_response":{"code":500,"message":"Error determining authentication"}}}`,
		},
		{
			name:           "it skips paths outside the configured prefixes",
			path:           "/health",
			prefixes:       []string{"/echo"},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"anonymous":true}`,
		},
		{
			name:           "it guards paths under the configured prefixes",
			path:           "/echo/v1",
			prefixes:       []string{"/echo"},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"metadata":{"validation_response":{"code":401,"message":"Missing expected JWT"}}}`,
		},
		{
			name:           "it does not treat a shared name as a prefix",
			path:           "/echoes",
			prefixes:       []string{"/echo"},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"anonymous":true}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			issuer.SetDiscoveryStatus(http.StatusOK)
			if testCase.discovery != 0 {
				issuer.SetDiscoveryStatus(testCase.discovery)
			}
			auth := newTestAuthenticator(t, issuer)

			var opts []MiddlewareOption
			if len(testCase.prefixes) > 0 {
				opts = append(opts, WithPrefix(testCase.prefixes...))
			}
			mw, err := NewMiddleware(auth, opts...)
			require.NoError(t, err)

			handler := mw.CheckJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if !HasResult(r.Context()) {
					_, _ = w.Write([]byte(`{"anonymous":true}`))
					return
				}
				result := MustGetResult(r.Context())
				_ = json.NewEncoder(w).Encode(map[string]string{"byuId": result.Claims.ByuID})
			}))

			request := httptest.NewRequest(http.MethodGet, testCase.path, nil)
			if testCase.token != "" {
				request.Header.Set(HeaderCurrent, testCase.token)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.wantStatusCode, recorder.Code)
			assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
			assert.JSONEq(t, testCase.wantBody, recorder.Body.String())
		})
	}
}

func TestNewMiddleware(t *testing.T) {
	issuer := jwttest.NewIssuer(t)
	auth := newTestAuthenticator(t, issuer)

	t.Run("it requires an authenticator", func(t *testing.T) {
		_, err := NewMiddleware(nil)
		assert.ErrorIs(t, err, ErrAuthenticatorNil)
	})

	t.Run("it rejects a relative prefix", func(t *testing.T) {
		_, err := NewMiddleware(auth, WithPrefix("echo"))
		assert.Error(t, err)
	})

	t.Run("it rejects a nil error handler", func(t *testing.T) {
		_, err := NewMiddleware(auth, WithErrorHandler(nil))
		assert.Error(t, err)
	})

	t.Run("it rejects a nil logger", func(t *testing.T) {
		_, err := NewMiddleware(auth, WithMiddlewareLogger(nil))
		assert.ErrorIs(t, err, ErrLoggerNil)
	})

	t.Run("it uses a custom error handler", func(t *testing.T) {
		mw, err := NewMiddleware(auth, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, _ error) {
			w.WriteHeader(http.StatusTeapot)
		}))
		require.NoError(t, err)

		recorder := httptest.NewRecorder()
		mw.CheckJWT(http.NotFoundHandler()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusTeapot, recorder.Code)
	})
}

func TestGetResult(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := GetResult(request.Context())
	assert.Error(t, err)
	assert.False(t, HasResult(request.Context()))
	assert.Panics(t, func() { MustGetResult(request.Context()) })
}
