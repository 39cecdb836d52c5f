// internal/domain/storefront/service.go
package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/infrastructure/kv"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

// Session is one customer's cart together with its checkout flow
type Session struct {
	ID       string
	cart     *cart.Store
	checkout *checkout.Coordinator
	catalog  catalog.Provider

	mu       sync.Mutex
	lastSeen time.Time
}

// Checkout returns the session's coordinator
func (s *Session) Checkout() *checkout.Coordinator { return s.checkout }

// AddItem adds one unit of productID
func (s *Session) AddItem(ctx context.Context, productID string) error {
	if !s.known(productID) {
		return ErrUnknownProduct
	}
	return s.checkout.Guard(func() { s.cart.AddItem(ctx, productID) })
}

// SetQuantity sets the quantity of productID; qty <= 0 removes the line
func (s *Session) SetQuantity(ctx context.Context, productID string, qty int) error {
	if qty > 0 && !s.known(productID) {
		return ErrUnknownProduct
	}
	return s.checkout.Guard(func() { s.cart.SetQuantity(ctx, productID, qty) })
}

// Clear empties the cart
func (s *Session) Clear(ctx context.Context) error {
	return s.checkout.Guard(func() { s.cart.Clear(ctx) })
}

// View prices the cart and snapshots the checkout status
func (s *Session) View() View {
	items := s.cart.Materialize(s.catalog.List())
	v := View{
		SessionID: s.ID,
		Items:     make([]LineView, 0, len(items)),
		Breakdown: pricing.Price(items),
		Checkout:  s.checkout.Status(),
	}
	for _, it := range items {
		v.Items = append(v.Items, LineView{
			ProductID: it.Product.ID,
			Title:     it.Product.Title,
			ImageAlt:  it.Product.ImageAlt,
			UnitPrice: it.Product.Price,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal().Round(2),
		})
		v.ItemCount += it.Quantity
	}
	return v
}

func (s *Session) known(productID string) bool {
	for _, p := range s.catalog.List() {
		if p.ID == productID {
			return true
		}
	}
	return false
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// StorageFactory returns the cart storage for a session
type StorageFactory func(sessionID string) kv.Store

// PrefixedStorage namespaces a shared store per session
func PrefixedStorage(store kv.Store, prefix func(sessionID string) string) StorageFactory {
	return func(sessionID string) kv.Store {
		return kv.Prefixed{Store: store, Prefix: prefix(sessionID)}
	}
}

// Dependencies of a Manager. Recorder and Metrics may be nil.
type Dependencies struct {
	Storage  StorageFactory
	Catalog  catalog.Provider
	Gateway  payment.Gateway
	Widget   payment.Widget
	Recorder checkout.Recorder
	Metrics  *metrics.Registry
	Log      *logrus.Logger

	BrandName   string
	Description string
}

// Manager holds the live sessions of the process
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Dependencies
	lifetime context.Context
	log      *logrus.Entry
}

// NewManager creates an empty manager. lifetime bounds every session's
// background work.
func NewManager(lifetime context.Context, deps Dependencies) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		deps:     deps,
		lifetime: lifetime,
		log:      deps.Log.WithField("component", "storefront"),
	}
}

// Session returns the session for id, rehydrating its cart on first use
// and again on later calls while storage has been unreadable
func (m *Manager) Session(ctx context.Context, id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.touch()
		s.cart.Rehydrate(ctx)
		return s
	}

	cartLog := m.deps.Log.WithFields(logrus.Fields{"component": "cart", "session_id": id})
	store := cart.NewStore(ctx, m.deps.Storage(id), cartLog, cart.WithFailureHook(m.storageFailed))
	coord := checkout.NewCoordinator(m.lifetime, checkout.Dependencies{
		Cart:     store,
		Catalog:  m.deps.Catalog,
		Gateway:  m.deps.Gateway,
		Widget:   m.deps.Widget,
		Recorder: m.deps.Recorder,
		Metrics:  m.deps.Metrics,
		Log:      m.deps.Log.WithField("component", "checkout"),
	}, checkout.WithSessionID(id), checkout.WithBrand(m.deps.BrandName, m.deps.Description))

	s := &Session{ID: id, cart: store, checkout: coord, catalog: m.deps.Catalog}
	s.touch()
	m.sessions[id] = s
	m.gauge()

	m.log.WithField("session_id", id).Debug("Session created")
	return s
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than maxIdle. Sessions with an
// attempt in flight are kept. Their carts stay in storage.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) && !s.checkout.Busy() {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.gauge()
		m.log.WithField("removed", removed).Info("Swept idle sessions")
	}
	return removed
}

// must hold m.mu
func (m *Manager) gauge() {
	if m.deps.Metrics != nil {
		m.deps.Metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}

func (m *Manager) storageFailed(op string, _ error) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.StorageFailures.WithLabelValues(op).Inc()
	}
}
