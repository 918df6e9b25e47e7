package x402

import (
	"context"
	"time"
)

// PaymentContext contains information passed to payment hooks
type PaymentContext struct {
	Ctx         context.Context
	Requirement PaymentRequirements
	Resource    *ResourceInfo
	Timestamp   time.Time
}

// PaymentResultContext contains payment creation result and context
type PaymentResultContext struct {
	PaymentContext
	Payload  PaymentPayload
	Duration time.Duration
}

// PaymentFailureContext contains payment creation failure and context
type PaymentFailureContext struct {
	PaymentContext
	Error    error
	Duration time.Duration
}

// BeforeHookResult represents the result of a "before" hook
// If Abort is true, payment creation is skipped with the given Reason
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// BeforePaymentHook is called before an authorization is built and signed.
type BeforePaymentHook func(PaymentContext) (*BeforeHookResult, error)

// AfterPaymentHook is called after a payment envelope is created.
type AfterPaymentHook func(PaymentResultContext) error

// PaymentFailureHook is called when payment creation fails. Notification
// only; it cannot recover the failure.
type PaymentFailureHook func(PaymentFailureContext)

// Hooks bundles the payment lifecycle callbacks. The library carries no
// logger; these are its observation points.
type Hooks struct {
	Before    []BeforePaymentHook
	After     []AfterPaymentHook
	OnFailure []PaymentFailureHook
}

// RunBefore invokes the before hooks in order. The first abort or error
// stops the chain.
func (h Hooks) RunBefore(pc PaymentContext) (*BeforeHookResult, error) {
	for _, hook := range h.Before {
		result, err := hook(pc)
		if err != nil {
			return nil, err
		}
		if result != nil && result.Abort {
			return result, nil
		}
	}
	return nil, nil
}

// RunAfter invokes the after hooks in order, stopping at the first error.
func (h Hooks) RunAfter(rc PaymentResultContext) error {
	for _, hook := range h.After {
		if err := hook(rc); err != nil {
			return err
		}
	}
	return nil
}

// RunFailure notifies all failure hooks.
func (h Hooks) RunFailure(fc PaymentFailureContext) {
	for _, hook := range h.OnFailure {
		hook(fc)
	}
}
