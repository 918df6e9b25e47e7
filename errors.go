package repute

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reputelabs/repute-go/x402"
)

// APIError is a non-2xx response that is neither an authentication nor a
// payment failure. Body is the decoded JSON error document when the server
// sent one, the raw text otherwise, and nil when the body was empty.
type APIError struct {
	StatusCode int
	Body       interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed with status %d", e.StatusCode)
}

// AuthenticationError is a 401 or 403 response.
type AuthenticationError struct {
	StatusCode int
	Body       interface{}
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed with status %d", e.StatusCode)
}

// PaymentRequiredError is a 402 surfaced to the caller: either no signer
// is configured, or the paid retry itself was rejected. Challenge holds
// the decoded payment challenge when the response carried a valid one.
type PaymentRequiredError struct {
	StatusCode int
	Body       interface{}
	Challenge  *x402.PaymentRequired
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required (status %d)", e.StatusCode)
}

// newStatusError classifies a terminal non-2xx response by status code.
func newStatusError(status int, header http.Header, body []byte) error {
	var decoded interface{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			decoded = string(body)
		}
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthenticationError{StatusCode: status, Body: decoded}
	case http.StatusPaymentRequired:
		// Best effort: attach the challenge if one decodes cleanly.
		challenge, _ := x402.DecodePaymentRequired(header)
		return &PaymentRequiredError{StatusCode: status, Body: decoded, Challenge: challenge}
	default:
		return &APIError{StatusCode: status, Body: decoded}
	}
}
