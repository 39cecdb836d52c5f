// internal/domain/checkout/entity.go
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/payment"
)

// State is the position of the checkout flow
type State string

const (
	StateIdle              State = "idle"
	StateCollectingContact State = "collecting_contact"
	StateCreatingOrder     State = "creating_order"
	StateAwaitingPayment   State = "awaiting_payment"
	StateVerifying         State = "verifying"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
)

// IsTerminal reports whether the state waits for an acknowledgement
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Busy reports whether the flow is talking to the gateway or widget.
// The cart must not change while busy.
func (s State) Busy() bool {
	return s == StateCreatingOrder || s == StateAwaitingPayment || s == StateVerifying
}

// String representation (for logging)
func (s State) String() string {
	return string(s)
}

// Reason explains a Failed state
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonOrderCreationFailed Reason = "order_creation_failed"
	ReasonWidgetUnavailable   Reason = "widget_unavailable"
	ReasonVerificationFailed  Reason = "verification_failed"
)

// Outcome of a settled attempt
const (
	OutcomePending   = "pending"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeDismissed = "dismissed"
)

// Contact is collected before an order is created
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Validate checks presence only; format checks belong to the form
func (c Contact) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// Trimmed returns c with surrounding whitespace removed
func (c Contact) Trimmed() Contact {
	return Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// AttemptView is the externally visible part of an attempt
type AttemptView struct {
	Receipt string                 `json:"receipt"`
	Amount  decimal.Decimal        `json:"amount"`
	OrderID string                 `json:"order_id,omitempty"`
	Outcome string                 `json:"outcome"`
	Widget  *payment.WidgetOptions `json:"widget,omitempty"`
}

// Status is a snapshot of the coordinator
type Status struct {
	State   State        `json:"state"`
	Reason  Reason       `json:"reason,omitempty"`
	Error   string       `json:"error,omitempty"`
	Attempt *AttemptView `json:"attempt,omitempty"`
}

// Attempt is one run from CreatingOrder to a settled outcome
type Attempt struct {
	Receipt   string
	Amount    decimal.Decimal
	Contact   Contact
	StartedAt time.Time

	// set by the coordinator under its lock
	order   payment.Order
	widget  payment.WidgetOptions
	opened  bool
	outcome string
	err     error

	final Status
	done  chan struct{}
}

func newAttempt(receipt string, amount decimal.Decimal, contact Contact) *Attempt {
	return &Attempt{
		Receipt:   receipt,
		Amount:    amount,
		Contact:   contact,
		StartedAt: time.Now().UTC(),
		outcome:   OutcomePending,
		done:      make(chan struct{}),
	}
}

// Order returns the gateway order the widget was opened with
func (a *Attempt) Order() payment.Order { return a.order }

// WidgetOptions returns the parameters the widget was opened with
func (a *Attempt) WidgetOptions() payment.WidgetOptions { return a.widget }

// Done is closed once the attempt has settled
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the attempt settles and returns the status at that moment
func (a *Attempt) Wait(ctx context.Context) (Status, error) {
	select {
	case <-a.done:
		return a.final, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (a *Attempt) view() *AttemptView {
	v := &AttemptView{
		Receipt: a.Receipt,
		Amount:  a.Amount,
		OrderID: a.order.OrderID,
		Outcome: a.outcome,
	}
	if a.opened && a.outcome == OutcomePending {
		opts := a.widget
		v.Widget = &opts
	}
	return v
}
