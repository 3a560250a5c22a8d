package byujwt

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byu-oit/byu-jwt-go/core"
)

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing JWT",
			err:         core.ErrJWTMissing,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Missing expected JWT",
		},
		{
			name:        "expired original JWT",
			err:         &core.ValidationError{Code: core.ErrorCodeTokenExpired, Message: "Expired Original JWT", Header: core.HeaderOriginal},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Expired Original JWT",
		},
		{
			name:        "wrapped API context failure",
			err:         fmt.Errorf("authenticating: %w", core.ErrInvalidAPIContext),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid API context in JWT",
		},
		{
			name:        "bare ErrJWTInvalid",
			err:         core.ErrJWTInvalid,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid JWT",
		},
		{
			name:        "upstream fetch failure",
			err:         core.NewValidationError(core.ErrorCodeUpstreamFetch, "fetching certificates", errors.New("connection refused")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Error determining authentication",
		},
		{
			name:        "unclassified error",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Error determining authentication",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			DefaultErrorHandler(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t,
				fmt.Sprintf(`{"metadata":{"validation_response":{"code":%d,"message":%q}}}`, tt.wantStatus, tt.wantMessage),
				w.Body.String(),
			)
		})
	}
}
