// internal/domain/payment/widget.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrWidgetNotLoaded is returned by Open before a successful Load
	ErrWidgetNotLoaded = errors.New("payment widget not loaded")
	// ErrNoPendingPayment is returned when no open widget matches an order
	ErrNoPendingPayment = errors.New("no pending payment for order")
)

// OutcomeKind tells how an opened widget finished
type OutcomeKind int

const (
	// Completed carries the gateway payment response
	Completed OutcomeKind = iota + 1
	// Dismissed means the visitor closed the widget without paying
	Dismissed
)

func (k OutcomeKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Dismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Outcome is the single result of an opened widget
type Outcome struct {
	Kind    OutcomeKind
	Payload json.RawMessage
}

// Prefill seeds the widget form
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WidgetOptions are the parameters the widget is opened with
type WidgetOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
}

// Widget is the hosted payment widget. Load is cheap once it has
// succeeded; Open returns a channel that yields exactly one Outcome.
// Release drops an opened widget whose outcome nobody waits for anymore.
type Widget interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, opts WidgetOptions) (<-chan Outcome, error)
	Release(orderID string)
}

// HostedWidget runs the widget in the visitor's browser. The script is
// fetched once and served from memory; the browser reports the outcome
// back through Complete or Dismiss.
type HostedWidget struct {
	scriptURL  string
	httpClient *http.Client
	log        *logrus.Entry

	loadMu sync.Mutex
	script []byte

	mu      sync.Mutex
	pending map[string]pendingPayment
}

type pendingPayment struct {
	opts WidgetOptions
	ch   chan Outcome
}

// NewHostedWidget creates a widget whose script lives at scriptURL
func NewHostedWidget(scriptURL string, httpClient *http.Client, log *logrus.Entry) *HostedWidget {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HostedWidget{
		scriptURL:  scriptURL,
		httpClient: httpClient,
		log:        log,
		pending:    make(map[string]pendingPayment),
	}
}

// Load fetches the widget script unless a previous fetch succeeded
func (w *HostedWidget) Load(ctx context.Context) error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()

	if w.script != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create widget request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch widget script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("widget script returned status %d", resp.StatusCode)
	}
	script, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read widget script: %w", err)
	}
	if len(script) == 0 {
		return fmt.Errorf("widget script is empty")
	}

	w.script = script
	w.log.WithField("bytes", len(script)).Info("payment widget script loaded")
	return nil
}

// Script returns the cached script, if loaded
func (w *HostedWidget) Script() ([]byte, bool) {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	return w.script, w.script != nil
}

// Open registers a pending payment for opts.OrderID
func (w *HostedWidget) Open(_ context.Context, opts WidgetOptions) (<-chan Outcome, error) {
	if _, ok := w.Script(); !ok {
		return nil, ErrWidgetNotLoaded
	}

	ch := make(chan Outcome, 1)

	w.mu.Lock()
	if prev, ok := w.pending[opts.OrderID]; ok {
		prev.ch <- Outcome{Kind: Dismissed}
	}
	w.pending[opts.OrderID] = pendingPayment{opts: opts, ch: ch}
	w.mu.Unlock()

	return ch, nil
}

// Pending returns the options of an open widget
func (w *HostedWidget) Pending(orderID string) (WidgetOptions, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[orderID]
	return p.opts, ok
}

// Complete resolves the order's widget with the gateway payment response
func (w *HostedWidget) Complete(orderID string, payload json.RawMessage) error {
	return w.resolve(orderID, Outcome{Kind: Completed, Payload: payload})
}

// Dismiss resolves the order's widget as closed without payment
func (w *HostedWidget) Dismiss(orderID string) error {
	return w.resolve(orderID, Outcome{Kind: Dismissed})
}

// Release forgets the order's open widget without resolving it. A later
// Complete or Dismiss for the order reports ErrNoPendingPayment.
func (w *HostedWidget) Release(orderID string) {
	w.mu.Lock()
	delete(w.pending, orderID)
	w.mu.Unlock()
}

func (w *HostedWidget) resolve(orderID string, outcome Outcome) error {
	w.mu.Lock()
	p, ok := w.pending[orderID]
	delete(w.pending, orderID)
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingPayment, orderID)
	}
	p.ch <- outcome
	return nil
}
