package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/payment/paymenttest"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/infrastructure/kv"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/metrics"
)

type brokenStorage struct{}

func (brokenStorage) Get(context.Context, string) (string, error) { return "", errors.New("disk full") }
func (brokenStorage) Set(context.Context, string, string) error   { return errors.New("disk full") }

// readOnlyStorage has no cart stored and refuses writes
type readOnlyStorage struct{}

func (readOnlyStorage) Get(context.Context, string) (string, error) { return "", kv.ErrNotFound }
func (readOnlyStorage) Set(context.Context, string, string) error   { return errors.New("read-only") }

func redisStorage(t *testing.T) (*miniredis.Miniredis, StorageFactory) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, func(id string) kv.Store { return redis.NewStore(client, kv.SessionPrefix(id)) }
}

type fixture struct {
	manager *Manager
	backend *paymenttest.Server
	widget  *payment.HostedWidget
	metrics *metrics.Registry
}

func newFixture(t *testing.T, storage StorageFactory) *fixture {
	t.Helper()
	backend := paymenttest.NewServer(t)
	reg := metrics.NewRegistry()
	widget := backend.Widget()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := NewManager(ctx, Dependencies{
		Storage:     storage,
		Catalog:     catalog.Sample(),
		Gateway:     backend.Client(reg),
		Widget:      widget,
		Metrics:     reg,
		Log:         logger.Discard(),
		BrandName:   "Acme",
		Description: "Test order",
	})
	return &fixture{manager: m, backend: backend, widget: widget, metrics: reg}
}

func memoryStorage() StorageFactory {
	return PrefixedStorage(kv.NewMemory(), func(id string) string { return id + ":" })
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	f := newFixture(t, memoryStorage())
	ctx := context.Background()

	a := f.manager.Session(ctx, "a")
	b := f.manager.Session(ctx, "b")
	require.NoError(t, a.AddItem(ctx, "p1"))
	require.NoError(t, b.AddItem(ctx, "p2"))
	require.NoError(t, b.AddItem(ctx, "p2"))

	assert.Same(t, a, f.manager.Session(ctx, "a"))
	assert.Equal(t, 1, a.View().ItemCount)
	assert.Equal(t, 2, b.View().ItemCount)
	assert.Equal(t, 2, f.manager.Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.ActiveSessions))
}

func TestManager_RehydratesFromSharedRedis(t *testing.T) {
	mr, storage := redisStorage(t)
	ctx := context.Background()

	first := newFixture(t, storage)
	require.NoError(t, first.manager.Session(ctx, "s1").SetQuantity(ctx, "p4", 2))

	raw, err := mr.Get("cart:session:s1:" + cart.StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p4":2}`, raw)

	second := newFixture(t, storage)
	view := second.manager.Session(ctx, "s1").View()
	require.Len(t, view.Items, 1)
	assert.Equal(t, "p4", view.Items[0].ProductID)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestManager_CancelledFirstRequestKeepsStoredCart(t *testing.T) {
	mr, storage := redisStorage(t)
	key := "cart:session:s1:" + cart.StorageKey
	require.NoError(t, mr.Set(key, `{"p1":3,"p4":2}`))
	f := newFixture(t, storage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := f.manager.Session(ctx, "s1")
	assert.Equal(t, 5, s.View().ItemCount)
	require.NoError(t, s.AddItem(ctx, "p2"))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p1":3,"p4":2,"p2":1}`, raw)
}

func TestManager_RedisOutageDuringRehydrate(t *testing.T) {
	mr, storage := redisStorage(t)
	key := "cart:session:s1:" + cart.StorageKey
	require.NoError(t, mr.Set(key, `{"p1":3,"p4":2}`))
	f := newFixture(t, storage)
	ctx := context.Background()

	mr.SetError("LOADING Redis is loading the dataset in memory")
	s := f.manager.Session(ctx, "s1")
	assert.Zero(t, s.View().ItemCount)
	require.NoError(t, s.AddItem(ctx, "p2"))

	mr.SetError("")
	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p1":3,"p4":2}`, raw, "the stored cart must not be replaced while unreadable")

	s = f.manager.Session(ctx, "s1")
	assert.Equal(t, 5, s.View().ItemCount)

	require.NoError(t, s.AddItem(ctx, "p2"))
	raw, err = mr.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"p1":3,"p4":2,"p2":1}`, raw)
}

func TestSession_UnknownProduct(t *testing.T) {
	f := newFixture(t, memoryStorage())
	ctx := context.Background()
	s := f.manager.Session(ctx, "a")

	assert.ErrorIs(t, s.AddItem(ctx, "nope"), ErrUnknownProduct)
	assert.ErrorIs(t, s.SetQuantity(ctx, "nope", 2), ErrUnknownProduct)
	assert.NoError(t, s.SetQuantity(ctx, "nope", 0))
	assert.Empty(t, s.View().Items)
}

func TestSession_View(t *testing.T) {
	f := newFixture(t, memoryStorage())
	ctx := context.Background()
	s := f.manager.Session(ctx, "a")
	require.NoError(t, s.AddItem(ctx, "p5"))
	require.NoError(t, s.SetQuantity(ctx, "p1", 2))

	v := s.View()

	require.Len(t, v.Items, 2)
	assert.Equal(t, "p1", v.Items[0].ProductID)
	assert.Equal(t, "258.00", v.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "p5", v.Items[1].ProductID)
	assert.Equal(t, 3, v.ItemCount)
	assert.Equal(t, "283.00", v.Breakdown.Subtotal.StringFixed(2))
	assert.True(t, v.Breakdown.Shipping.IsZero())
	assert.Equal(t, "33.96", v.Breakdown.Tax.StringFixed(2))
	assert.Equal(t, "316.96", v.Breakdown.Total.StringFixed(2))
	assert.Equal(t, checkout.StateIdle, v.Checkout.State)
}

func TestSession_CartLockedDuringCheckout(t *testing.T) {
	f := newFixture(t, memoryStorage())
	ctx := context.Background()
	s := f.manager.Session(ctx, "a")
	require.NoError(t, s.AddItem(ctx, "p1"))

	require.NoError(t, s.Checkout().Start())
	// the contact form is still editable territory
	require.NoError(t, s.AddItem(ctx, "p6"))

	attempt, err := s.Checkout().SubmitContact(ctx, checkout.Contact{Name: "Asha", Email: "a@example.com", Phone: "1"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.AddItem(ctx, "p2"), checkout.ErrCheckoutInProgress)
	assert.ErrorIs(t, s.SetQuantity(ctx, "p1", 0), checkout.ErrCheckoutInProgress)
	assert.ErrorIs(t, s.Clear(ctx), checkout.ErrCheckoutInProgress)

	orders := f.backend.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, json.Number("175.75"), orders[0]["amountINR"])

	payload := json.RawMessage(`{"razorpay_payment_id":"pay_1","razorpay_order_id":"order_1","razorpay_signature":"sig"}`)
	require.NoError(t, f.widget.Complete(attempt.Order().OrderID, payload))

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	st, err := attempt.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSucceeded, st.State)
	assert.Empty(t, s.View().Items)
	require.Len(t, f.backend.Verified(), 1)
	assert.JSONEq(t, string(payload), string(f.backend.Verified()[0]))

	require.NoError(t, s.Checkout().Acknowledge())
	assert.NoError(t, s.AddItem(ctx, "p2"))
}

func TestSession_StorageFailuresAreCounted(t *testing.T) {
	tests := []struct {
		name          string
		storage       kv.Store
		reads, writes float64
	}{
		// the failed read is retried before the write, which is held back
		{"unreadable", brokenStorage{}, 2, 0},
		{"unwritable", readOnlyStorage{}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(string) kv.Store { return tt.storage })
			ctx := context.Background()

			s := f.manager.Session(ctx, "a")
			require.NoError(t, s.AddItem(ctx, "p1"))

			assert.Equal(t, 1, s.View().ItemCount)
			assert.Equal(t, tt.reads, testutil.ToFloat64(f.metrics.StorageFailures.WithLabelValues("read")))
			assert.Equal(t, tt.writes, testutil.ToFloat64(f.metrics.StorageFailures.WithLabelValues("write")))
		})
	}
}

func TestManager_Sweep(t *testing.T) {
	f := newFixture(t, memoryStorage())
	ctx := context.Background()
	stale := f.manager.Session(ctx, "stale")
	busy := f.manager.Session(ctx, "busy")
	f.manager.Session(ctx, "fresh")

	require.NoError(t, busy.AddItem(ctx, "p1"))
	require.NoError(t, busy.Checkout().Start())
	_, err := busy.Checkout().SubmitContact(ctx, checkout.Contact{Name: "A", Email: "a@b.c", Phone: "1"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	for _, s := range []*Session{stale, busy} {
		s.mu.Lock()
		s.lastSeen = past
		s.mu.Unlock()
	}

	removed := f.manager.Sweep(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, f.manager.Len())
	assert.Same(t, busy, f.manager.Session(ctx, "busy"))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.ActiveSessions))
}
