package byujwt

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/byu-oit/byu-jwt-go/core"
)

// ErrorHandler writes the response for a request that failed authentication.
// Authentication failures match core.ErrJWTInvalid; anything else means the
// server could not decide, for example because the issuer was unreachable.
// A custom ErrorHandler MUST distinguish the two: answering 401 for an
// upstream outage tells clients their credentials are bad.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Messages used when no ValidationError message applies.
const (
	MessageAuthenticationFailed = "Invalid JWT"
	MessageServerError          = "Error determining authentication"
)

// ValidationResponse is the body written by DefaultErrorHandler:
//
//	{"metadata":{"validation_response":{"code":401,"message":"Expired JWT"}}}
type ValidationResponse struct {
	Metadata struct {
		ValidationResponse struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"validation_response"`
	} `json:"metadata"`
}

// NewValidationResponse builds the response envelope for err along with its
// HTTP status.
func NewValidationResponse(err error) (int, ValidationResponse) {
	var body ValidationResponse
	status, message := http.StatusInternalServerError, MessageServerError

	if core.IsAuthenticationError(err) {
		status, message = http.StatusUnauthorized, MessageAuthenticationFailed
		var verr *core.ValidationError
		if errors.As(err, &verr) && verr.Message != "" {
			message = verr.Message
		}
	}

	body.Metadata.ValidationResponse.Code = status
	body.Metadata.ValidationResponse.Message = message
	return status, body
}

// DefaultErrorHandler answers 401 with the failure message for authentication
// errors and 500 otherwise. Upstream error details are never echoed.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, body := NewValidationResponse(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
