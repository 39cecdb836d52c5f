// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/infrastructure/kv"
)

// FailureHook observes swallowed persistence errors; op is "read" or "write"
type FailureHook func(op string, err error)

// Option configures a Store
type Option func(*Store)

// WithKey overrides the storage key
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithFailureHook registers a side channel for storage failures
func WithFailureHook(hook FailureHook) Option {
	return func(s *Store) { s.onFailure = hook }
}

// Store owns the product id to quantity mapping of one cart
type Store struct {
	mu        sync.Mutex
	entries   Entries
	storage   kv.Store
	key       string
	log       *logrus.Entry
	onFailure FailureHook

	// unread is set while the stored record could not be read. Writes are
	// held back until a read succeeds so the durable cart is never replaced
	// by an empty one.
	unread bool
}

// NewStore rehydrates a cart from storage. A missing or malformed record
// yields an empty cart. A failed read leaves the cart empty and is retried
// before the next write and on Rehydrate.
func NewStore(ctx context.Context, storage kv.Store, log *logrus.Entry, opts ...Option) *Store {
	s := &Store{
		entries: Entries{},
		storage: storage,
		key:     StorageKey,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries, s.unread = s.load(context.WithoutCancel(ctx))
	return s
}

// Rehydrate retries a read that failed earlier and reports whether the
// cart now reflects storage
func (s *Store) Rehydrate(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded(ctx)
}

// AddItem increments the quantity of productID by one
func (s *Store) AddItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.ensureLoaded(ctx)
	s.entries[productID]++
	if loaded {
		s.persist(ctx)
	}
}

// SetQuantity sets the quantity of productID; qty <= 0 removes the entry
func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.ensureLoaded(ctx)
	if qty <= 0 {
		delete(s.entries, productID)
	} else {
		s.entries[productID] = qty
	}
	if loaded {
		s.persist(ctx)
	}
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// an explicit clear replaces whatever is stored
	s.entries = Entries{}
	s.unread = false
	s.persist(ctx)
}

// Snapshot returns a copy of the current mapping
func (s *Store) Snapshot() Entries {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Entries, len(s.entries))
	for id, qty := range s.entries {
		out[id] = qty
	}
	return out
}

// Materialize joins the cart against products, in catalog order.
// Entries whose product is not in the catalog are skipped.
func (s *Store) Materialize(products []catalog.Product) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]LineItem, 0, len(s.entries))
	for _, p := range products {
		if qty, ok := s.entries[p.ID]; ok {
			items = append(items, LineItem{Product: p, Quantity: qty})
		}
	}
	return items
}

// persist writes the mapping; must hold s.mu. The write outlives the
// caller's context so memory and storage agree once a mutation returns.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.entries)
	if err == nil {
		err = s.storage.Set(context.WithoutCancel(ctx), s.key, string(data))
	}
	if err != nil {
		s.fail("write", fmt.Errorf("%w: write %s: %v", ErrStorage, s.key, err))
	}
}

// ensureLoaded retries a failed read, replacing any in-memory changes
// made meanwhile; must hold s.mu
func (s *Store) ensureLoaded(ctx context.Context) bool {
	if !s.unread {
		return true
	}
	entries, unread := s.load(context.WithoutCancel(ctx))
	if unread {
		return false
	}
	s.entries, s.unread = entries, false
	s.log.WithField("entries", len(entries)).Info("cart rehydrated after earlier read failure")
	return true
}

// load reads the stored record. unread reports a storage error; missing
// and malformed records are final and yield an empty cart.
func (s *Store) load(ctx context.Context) (entries Entries, unread bool) {
	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return Entries{}, false
	}
	if err != nil {
		s.fail("read", fmt.Errorf("%w: read %s: %v", ErrStorage, s.key, err))
		return Entries{}, true
	}

	var stored map[string]int
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.fail("read", fmt.Errorf("%w: malformed %s: %v", ErrStorage, s.key, err))
		return Entries{}, false
	}

	entries = make(Entries, len(stored))
	for id, qty := range stored {
		if qty > 0 {
			entries[id] = qty
		}
	}
	return entries, false
}

func (s *Store) fail(op string, err error) {
	s.log.WithError(err).WithField("op", op).Warn("cart persistence failed, continuing in memory")
	if s.onFailure != nil {
		s.onFailure(op, err)
	}
}
