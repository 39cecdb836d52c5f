// internal/domain/checkout/errors.go
package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrValidation         = errors.New("contact details incomplete")
	ErrOrderCreation      = errors.New("order could not be created")
	ErrWidgetUnavailable  = errors.New("payment widget unavailable")
	ErrVerification       = errors.New("payment could not be confirmed")
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	ErrInvalidTransition  = errors.New("illegal transition of checkout state")
)

// Error is a failed checkout step. It matches both the step's sentinel
// and the underlying cause with errors.Is.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkout %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{sentinelFor(e.Reason), e.Err}
}

func sentinelFor(r Reason) error {
	switch r {
	case ReasonOrderCreationFailed:
		return ErrOrderCreation
	case ReasonWidgetUnavailable:
		return ErrWidgetUnavailable
	case ReasonVerificationFailed:
		return ErrVerification
	default:
		return ErrInvalidTransition
	}
}
