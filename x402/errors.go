package x402

import (
	"errors"
	"fmt"
)

// PaymentError represents a payment-protocol error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeMissingChallenge        = "missing_challenge"
	ErrCodeMalformedChallenge      = "malformed_challenge"
	ErrCodeUnsupportedNetwork      = "unsupported_network"
	ErrCodeNoAcceptedPaymentMethod = "no_accepted_payment_method"
)

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// IsCode reports whether err is a PaymentError with the given code.
func IsCode(err error, code string) bool {
	var pe *PaymentError
	return errors.As(err, &pe) && pe.Code == code
}
