package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// HeaderPaymentRequired is the response header carrying the base64
	// JSON payment challenge on a 402 response.
	HeaderPaymentRequired = "payment-required"

	// HeaderPayment is the request header carrying the base64 JSON signed
	// payment envelope on the retried request.
	HeaderPayment = "X-PAYMENT"
)

// DecodePaymentRequired extracts and decodes the payment challenge from a
// 402 response's headers. It performs no semantic validation of the
// challenge contents; an empty Accepts list is the caller's check.
func DecodePaymentRequired(h http.Header) (*PaymentRequired, error) {
	raw := h.Get(HeaderPaymentRequired)
	if raw == "" {
		return nil, NewPaymentError(ErrCodeMissingChallenge,
			"response carries no payment-required header", nil)
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, NewPaymentError(ErrCodeMalformedChallenge,
			"invalid base64 encoding", map[string]interface{}{
				"header": raw,
			})
	}

	var required PaymentRequired
	if err := json.Unmarshal(data, &required); err != nil {
		return nil, NewPaymentError(ErrCodeMalformedChallenge,
			"invalid challenge JSON", map[string]interface{}{
				"header": raw,
			})
	}

	return &required, nil
}

// encodePaymentRequired is the inverse of DecodePaymentRequired.
func encodePaymentRequired(required PaymentRequired) (string, error) {
	data, err := json.Marshal(required)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment required: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodePaymentHeader serializes a signed payment envelope into the
// X-PAYMENT header value.
func EncodePaymentHeader(payload PaymentPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePaymentHeader decodes an X-PAYMENT header value back into the
// payment envelope. Used by tests and debugging tools; clients only encode.
func DecodePaymentHeader(header string) (*PaymentPayload, error) {
	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}

	var payload PaymentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid payment payload JSON: %w", err)
	}

	return &payload, nil
}
