// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

// Cart is the part of the cart store the coordinator needs
type Cart interface {
	Materialize(products []catalog.Product) []cart.LineItem
	Clear(ctx context.Context)
}

// AttemptRecord is a settled attempt as written to the ledger
type AttemptRecord struct {
	SessionID string          `json:"session_id"`
	Receipt   string          `json:"receipt"`
	OrderID   string          `json:"order_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Outcome   string          `json:"outcome"`
	Reason    Reason          `json:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	SettledAt time.Time       `json:"settled_at"`
}

// Recorder persists settled attempts
type Recorder interface {
	Record(ctx context.Context, rec AttemptRecord) error
}

// Dependencies of a Coordinator. Recorder and Metrics may be nil.
type Dependencies struct {
	Cart     Cart
	Catalog  catalog.Provider
	Gateway  payment.Gateway
	Widget   payment.Widget
	Recorder Recorder
	Metrics  *metrics.Registry
	Log      *logrus.Entry
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithSessionID tags ledger records and logs
func WithSessionID(id string) Option {
	return func(c *Coordinator) { c.sessionID = id }
}

// WithBrand sets the name and description shown in the widget
func WithBrand(name, description string) Option {
	return func(c *Coordinator) {
		c.brand = name
		c.description = description
	}
}

// WithReceiptGenerator replaces the uuid based receipt generator
func WithReceiptGenerator(gen func() string) Option {
	return func(c *Coordinator) { c.newReceipt = gen }
}

// Coordinator runs the checkout state machine for one cart.
// At most one attempt is active at a time.
type Coordinator struct {
	mu      sync.Mutex
	state   State
	reason  Reason
	lastErr error
	attempt *Attempt

	deps        Dependencies
	lifetime    context.Context
	sessionID   string
	brand       string
	description string
	newReceipt  func() string
	log         *logrus.Entry
}

// NewCoordinator creates an idle coordinator. lifetime bounds the
// goroutines that wait on widget outcomes.
func NewCoordinator(lifetime context.Context, deps Dependencies, opts ...Option) *Coordinator {
	c := &Coordinator{
		state:      StateIdle,
		deps:       deps,
		lifetime:   lifetime,
		brand:      "YourBrand",
		newReceipt: NewReceipt,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = deps.Log
	if c.sessionID != "" {
		c.log = c.log.WithField("session_id", c.sessionID)
	}
	return c
}

// NewReceipt returns a fresh receipt identifier
func NewReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Start opens the contact form
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.expect(StateIdle); err != nil {
		return err
	}
	if len(c.lineItems()) == 0 {
		return ErrEmptyCart
	}
	c.transition(StateCollectingContact)
	return nil
}

// CancelContact closes the contact form
func (c *Coordinator) CancelContact() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.expect(StateCollectingContact); err != nil {
		return err
	}
	c.transition(StateIdle)
	return nil
}

// SubmitContact creates a gateway order for the current cart and opens
// the widget. The returned attempt settles once the widget reports back.
func (c *Coordinator) SubmitContact(ctx context.Context, contact Contact) (*Attempt, error) {
	c.mu.Lock()
	if err := c.expect(StateCollectingContact); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := contact.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	contact = contact.Trimmed()
	items := c.lineItems()
	if len(items) == 0 {
		c.transition(StateIdle)
		c.mu.Unlock()
		return nil, ErrEmptyCart
	}
	total := pricing.Price(items).Total
	attempt := newAttempt(c.newReceipt(), total, contact)
	c.attempt = attempt
	c.lastErr = nil
	c.transition(StateCreatingOrder)
	c.mu.Unlock()

	log := c.log.WithField("receipt", attempt.Receipt)
	log.WithField("amount", total.StringFixed(2)).Info("Creating payment order")

	order, err := c.deps.Gateway.CreateOrder(ctx, payment.CreateOrderRequest{
		Amount:        total,
		Receipt:       attempt.Receipt,
		CustomerName:  contact.Name,
		CustomerEmail: contact.Email,
		CustomerPhone: contact.Phone,
	})
	if err != nil {
		return nil, c.fail(attempt, ReasonOrderCreationFailed, err)
	}

	if err := c.deps.Widget.Load(ctx); err != nil {
		c.setOrder(attempt, *order)
		return nil, c.fail(attempt, ReasonWidgetUnavailable, err)
	}

	opts := payment.WidgetOptions{
		Key:         order.Key,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        c.brand,
		Description: c.description,
		OrderID:     order.OrderID,
		Prefill:     payment.Prefill{Name: contact.Name, Email: contact.Email},
	}
	outcomes, err := c.deps.Widget.Open(ctx, opts)
	if err != nil {
		c.setOrder(attempt, *order)
		return nil, c.fail(attempt, ReasonWidgetUnavailable, err)
	}

	c.mu.Lock()
	attempt.order = *order
	attempt.widget = opts
	attempt.opened = true
	c.transition(StateAwaitingPayment)
	c.mu.Unlock()

	log.WithField("order_id", order.OrderID).Info("Payment widget opened")
	go c.awaitOutcome(attempt, outcomes)

	return attempt, nil
}

// Acknowledge clears a settled result
func (c *Coordinator) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsTerminal() {
		if c.state.Busy() {
			return ErrCheckoutInProgress
		}
		return ErrInvalidTransition
	}
	c.reason = ReasonNone
	c.lastErr = nil
	c.transition(StateIdle)
	return nil
}

// Status returns a snapshot of the flow
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Current returns the latest attempt, settled or not
func (c *Coordinator) Current() *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Busy reports whether an attempt is in flight
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Busy()
}

// Guard runs fn unless an attempt is in flight. fn runs under the
// coordinator lock so no attempt can start while it executes.
func (c *Coordinator) Guard(fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Busy() {
		return ErrCheckoutInProgress
	}
	fn()
	return nil
}

func (c *Coordinator) awaitOutcome(attempt *Attempt, outcomes <-chan payment.Outcome) {
	select {
	case out, ok := <-outcomes:
		if !ok || out.Kind != payment.Completed {
			c.dismiss(attempt)
			return
		}
		c.verify(attempt, out.Payload)
	case <-c.lifetime.Done():
		c.deps.Widget.Release(attempt.order.OrderID)
		c.dismiss(attempt)
	}
}

func (c *Coordinator) verify(attempt *Attempt, payload []byte) {
	c.mu.Lock()
	if c.attempt != attempt || c.state != StateAwaitingPayment {
		c.mu.Unlock()
		return
	}
	c.transition(StateVerifying)
	c.mu.Unlock()

	// the customer has paid; finish even if the caller has gone away
	ctx := context.WithoutCancel(c.lifetime)

	ok, err := c.deps.Gateway.Verify(ctx, payload)
	if err == nil && !ok {
		err = errors.New("gateway reported payment as not verified")
	}
	if err != nil {
		c.fail(attempt, ReasonVerificationFailed, err)
		return
	}

	c.mu.Lock()
	c.deps.Cart.Clear(ctx)
	attempt.outcome = OutcomeSucceeded
	c.transition(StateSucceeded)
	c.settleLocked(attempt)
	c.mu.Unlock()

	c.log.WithField("receipt", attempt.Receipt).Info("Payment verified")
	c.finish(attempt)
}

func (c *Coordinator) dismiss(attempt *Attempt) {
	c.mu.Lock()
	if c.attempt != attempt || c.state != StateAwaitingPayment {
		c.mu.Unlock()
		return
	}
	attempt.outcome = OutcomeDismissed
	c.transition(StateIdle)
	c.settleLocked(attempt)
	c.mu.Unlock()

	c.log.WithField("receipt", attempt.Receipt).Info("Payment widget dismissed")
	c.finish(attempt)
}

// fail settles attempt as Failed(reason) and returns the wrapped error
func (c *Coordinator) fail(attempt *Attempt, reason Reason, cause error) error {
	err := &Error{Reason: reason, Err: cause}

	c.mu.Lock()
	attempt.outcome = OutcomeFailed
	attempt.err = err
	c.reason = reason
	c.lastErr = err
	c.transition(StateFailed)
	c.settleLocked(attempt)
	c.mu.Unlock()

	c.log.WithError(cause).WithFields(logrus.Fields{
		"receipt": attempt.Receipt,
		"reason":  reason,
	}).Warn("Checkout attempt failed")
	c.finish(attempt)
	return err
}

func (c *Coordinator) setOrder(attempt *Attempt, order payment.Order) {
	c.mu.Lock()
	attempt.order = order
	c.mu.Unlock()
}

// settleLocked captures the final status; must hold c.mu
func (c *Coordinator) settleLocked(attempt *Attempt) {
	attempt.final = c.statusLocked()
}

// finish records the settled attempt outside the lock, then releases waiters
func (c *Coordinator) finish(attempt *Attempt) {
	defer close(attempt.done)

	label := attempt.outcome
	var reason Reason
	var detail string
	var ce *Error
	if errors.As(attempt.err, &ce) {
		reason = ce.Reason
		label = string(ce.Reason)
		detail = ce.Err.Error()
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.CheckoutOutcomes.WithLabelValues(label).Inc()
	}
	if c.deps.Recorder == nil {
		return
	}

	rec := AttemptRecord{
		SessionID: c.sessionID,
		Receipt:   attempt.Receipt,
		OrderID:   attempt.order.OrderID,
		Amount:    attempt.Amount,
		Currency:  attempt.order.Currency,
		Outcome:   attempt.outcome,
		Reason:    reason,
		Detail:    detail,
		StartedAt: attempt.StartedAt,
		SettledAt: time.Now().UTC(),
	}
	if err := c.deps.Recorder.Record(context.WithoutCancel(c.lifetime), rec); err != nil {
		c.log.WithError(err).WithField("receipt", attempt.Receipt).Warn("Failed to record checkout attempt")
	}
}

// expect rejects calls outside want; must hold c.mu
func (c *Coordinator) expect(want State) error {
	if c.state == want {
		return nil
	}
	if c.state.Busy() || c.state == StateCollectingContact {
		return ErrCheckoutInProgress
	}
	return ErrInvalidTransition
}

func (c *Coordinator) transition(to State) {
	c.log.WithFields(logrus.Fields{"from": c.state, "to": to}).Debug("Checkout state changed")
	c.state = to
}

func (c *Coordinator) lineItems() []cart.LineItem {
	return c.deps.Cart.Materialize(c.deps.Catalog.List())
}

func (c *Coordinator) statusLocked() Status {
	s := Status{State: c.state, Reason: c.reason}
	if c.lastErr != nil && c.state == StateFailed {
		s.Error = c.lastErr.Error()
	}
	if c.attempt != nil {
		s.Attempt = c.attempt.view()
	}
	return s
}
