package iap_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/hook"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/journal/memory"
	"github.com/xraph/iap/purchase"
	"github.com/xraph/iap/storefront/fake"
	"github.com/xraph/iap/storefront/noop"
	"github.com/xraph/iap/types"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		catalog.Entry{ID: "gold_100", Kind: catalog.KindConsumable},
		catalog.Entry{ID: "remove_ads", Kind: catalog.KindNonConsumable},
		catalog.Entry{ID: "season_pass", Kind: catalog.KindSubscription,
			StoreSkus: map[string]string{"fake": "pass.season.1"}},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

// collector subscribes to both channels and records deliveries.
type collector struct {
	mu        sync.Mutex
	inits     []*purchase.InitResult
	purchases []*purchase.Result
	ch        chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 64)}
}

func (c *collector) Name() string { return "collector" }

func (c *collector) OnInitResult(_ context.Context, result interface{}) error {
	c.mu.Lock()
	c.inits = append(c.inits, result.(*purchase.InitResult))
	c.mu.Unlock()
	c.ch <- struct{}{}
	return nil
}

func (c *collector) OnPurchaseResult(_ context.Context, result interface{}) error {
	c.mu.Lock()
	c.purchases = append(c.purchases, result.(*purchase.Result))
	c.mu.Unlock()
	c.ch <- struct{}{}
	return nil
}

// wait blocks until n more events have been delivered.
func (c *collector) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
}

func (c *collector) lastInit(t *testing.T) *purchase.InitResult {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inits) == 0 {
		t.Fatal("no init results delivered")
	}
	return c.inits[len(c.inits)-1]
}

func (c *collector) lastPurchase(t *testing.T) *purchase.Result {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.purchases) == 0 {
		t.Fatal("no purchase results delivered")
	}
	return c.purchases[len(c.purchases)-1]
}

func (c *collector) purchaseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.purchases)
}

func startAdapter(t *testing.T, client *fake.Client, opts ...iap.Option) (*iap.Adapter, *collector) {
	t.Helper()
	col := newCollector()
	opts = append(opts, iap.WithHook(col))
	a := iap.New(client, opts...)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop() })
	return a, col
}

func TestInitializeSuccess(t *testing.T) {
	a, col := startAdapter(t, fake.New())

	if err := a.Initialize(context.Background(), testCatalog(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	col.wait(t, 1)

	res := col.lastInit(t)
	if !res.Success {
		t.Error("expected successful init")
	}
	if res.Store != "fake" {
		t.Errorf("expected store fake, got %q", res.Store)
	}
	if res.Products != 3 {
		t.Errorf("expected 3 products, got %d", res.Products)
	}
	if !a.Initialized() {
		t.Error("adapter should report initialized")
	}
}

func TestInitializeFailureAndRetry(t *testing.T) {
	initErr := errors.New("store unreachable")
	client := fake.New(fake.WithInitError(initErr))
	a, col := startAdapter(t, client)

	ctx := context.Background()
	if err := a.Initialize(ctx, testCatalog(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	col.wait(t, 1)

	if res := col.lastInit(t); res.Success {
		t.Error("expected failed init")
	}
	if a.State() != iap.StateInitFailed {
		t.Errorf("expected StateInitFailed, got %v", a.State())
	}

	// A failed attempt can be retried.
	client.SetInitError(nil)
	if err := a.Initialize(ctx, testCatalog(t)); err != nil {
		t.Fatalf("Initialize retry: %v", err)
	}
	col.wait(t, 1)

	if res := col.lastInit(t); !res.Success {
		t.Error("expected retry to succeed")
	}
	if !a.Initialized() {
		t.Error("adapter should report initialized after retry")
	}
}

func TestDoubleInitializeIgnoredWhileInProgress(t *testing.T) {
	client := fake.New(fake.WithHeldInit())
	a, col := startAdapter(t, client)

	ctx := context.Background()
	_ = a.Initialize(ctx, testCatalog(t))
	_ = a.Initialize(ctx, testCatalog(t)) // in progress, ignored

	client.FinishInit()
	col.wait(t, 1)

	col.mu.Lock()
	got := len(col.inits)
	col.mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly 1 init result, got %d", got)
	}
}

func TestInitializeRejectsEmptyCatalog(t *testing.T) {
	a, _ := startAdapter(t, fake.New())

	empty := catalog.MustNew()
	if err := a.Initialize(context.Background(), empty); !errors.Is(err, iap.ErrEmptyCatalog) {
		t.Errorf("expected ErrEmptyCatalog, got %v", err)
	}
	if err := a.Initialize(context.Background(), nil); !errors.Is(err, iap.ErrEmptyCatalog) {
		t.Errorf("expected ErrEmptyCatalog for nil catalog, got %v", err)
	}
	if a.State() != iap.StateUninitialized {
		t.Errorf("rejected initialize must not change state, got %v", a.State())
	}
}

func TestBuyAfterFailedInit(t *testing.T) {
	client := fake.New(fake.WithInitError(errors.New("store unreachable")))
	a, col := startAdapter(t, client)
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "gold_100")
	col.wait(t, 1)

	res := col.lastPurchase(t)
	if res.Success {
		t.Error("expected failure after failed initialization")
	}
	if res.Reason != iap.ErrStoreInitFailed.Error() {
		t.Errorf("expected reason %q, got %q", iap.ErrStoreInitFailed.Error(), res.Reason)
	}
}

func TestInitializeAfterSuccessIsNoop(t *testing.T) {
	a, col := startAdapter(t, fake.New())
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	// A second initialize on an initialized adapter has no observable
	// effect. The buy afterwards acts as an ordering barrier: once its
	// result arrives, any duplicate init event would already have landed.
	_ = a.Initialize(ctx, testCatalog(t))
	_ = a.Buy(ctx, "gold_100")
	col.wait(t, 1)

	col.mu.Lock()
	got := len(col.inits)
	col.mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly 1 init result, got %d", got)
	}
	if a.State() != iap.StateInitialized {
		t.Errorf("expected StateInitialized, got %v", a.State())
	}
}

func TestBuyBeforeInitializeFails(t *testing.T) {
	a, col := startAdapter(t, fake.New())

	if err := a.Buy(context.Background(), "gold_100"); err != nil {
		t.Fatalf("Buy: %v", err)
	}
	col.wait(t, 1)

	res := col.lastPurchase(t)
	if res.Success {
		t.Error("expected failure before initialization")
	}
	if res.ProductID != "" {
		t.Errorf("pre-init failure should not resolve a product, got %q", res.ProductID)
	}
}

func TestBuyUnknownProduct(t *testing.T) {
	a, col := startAdapter(t, fake.New())
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "diamond_999")
	col.wait(t, 1)

	res := col.lastPurchase(t)
	if res.Success {
		t.Error("expected failure for unknown product")
	}
	if res.ProductID != "diamond_999" {
		t.Errorf("expected requested id in result, got %q", res.ProductID)
	}
}

func TestBuyUnavailableProduct(t *testing.T) {
	client := fake.New(fake.WithUnavailable("remove_ads"))
	a, col := startAdapter(t, client)
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "remove_ads")
	col.wait(t, 1)

	res := col.lastPurchase(t)
	if res.Success {
		t.Error("expected failure for unavailable product")
	}
	if res.ProductID != "remove_ads" {
		t.Errorf("expected product id, got %q", res.ProductID)
	}
}

func TestBuySuccess(t *testing.T) {
	price := types.USD(499)
	client := fake.New(fake.WithPrice("gold_100", price))
	store := memory.New()
	a, col := startAdapter(t, client, iap.WithJournal(store))
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "gold_100")
	col.wait(t, 1)

	res := col.lastPurchase(t)
	if !res.Success {
		t.Fatalf("expected success, got reason %q", res.Reason)
	}
	if res.ProductID != "gold_100" {
		t.Errorf("expected gold_100, got %q", res.ProductID)
	}
	if res.Kind != catalog.KindConsumable {
		t.Errorf("expected consumable, got %q", res.Kind)
	}
	if !res.Price.Equal(price) {
		t.Errorf("expected price %v, got %v", price, res.Price)
	}
	if res.Restored {
		t.Error("fresh purchase must not be marked restored")
	}

	entries, err := a.Transactions(ctx, journal.ListOpts{SuccessOnly: true})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	if entries[0].ProductID != "gold_100" || !entries[0].Success {
		t.Errorf("unexpected journal entry: %+v", entries[0])
	}
}

func TestBuyStoreSkuMapping(t *testing.T) {
	client := fake.New()
	a, col := startAdapter(t, client)
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "season_pass")
	col.wait(t, 1)

	if res := col.lastPurchase(t); !res.Success {
		t.Fatalf("expected success, got reason %q", res.Reason)
	}
	hist := client.History()
	if len(hist) != 1 || hist[0].Product.SKU != "pass.season.1" {
		t.Fatalf("expected purchase under mapped SKU, got %+v", hist)
	}
}

func TestDuplicatePendingPurchaseRejected(t *testing.T) {
	client := fake.New(fake.WithHeldPurchases())
	a, col := startAdapter(t, client)
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "gold_100")
	_ = a.Buy(ctx, "gold_100") // still in flight
	col.wait(t, 1)             // duplicate rejection arrives first

	res := col.lastPurchase(t)
	if res.Success {
		t.Error("expected duplicate purchase to fail")
	}

	client.FinishPurchases()
	col.wait(t, 1)
	if res := col.lastPurchase(t); !res.Success {
		t.Errorf("held purchase should complete, got reason %q", res.Reason)
	}
}

func TestRestoreRedeliversHistory(t *testing.T) {
	client := fake.New()
	a, col := startAdapter(t, client)
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	_ = a.Buy(ctx, "remove_ads")
	col.wait(t, 1)

	if err := a.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	col.wait(t, 1)

	res := col.lastPurchase(t)
	if !res.Success {
		t.Fatalf("expected restored success, got reason %q", res.Reason)
	}
	if !res.Restored {
		t.Error("restored transaction must carry the Restored flag")
	}
	if res.ProductID != "remove_ads" {
		t.Errorf("expected remove_ads, got %q", res.ProductID)
	}
}

func TestRestoreUnsupported(t *testing.T) {
	a := iap.New(noop.New())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop() })

	if err := a.Restore(context.Background()); !errors.Is(err, iap.ErrRestoreUnsupported) {
		t.Errorf("expected ErrRestoreUnsupported, got %v", err)
	}
}

func TestNoopPurchasesAlwaysFail(t *testing.T) {
	col := newCollector()
	a := iap.New(noop.New(), iap.WithHook(col))
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop() })

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)
	if !col.lastInit(t).Success {
		t.Fatal("noop initialization should succeed")
	}

	_ = a.Buy(ctx, "gold_100")
	col.wait(t, 1)
	res := col.lastPurchase(t)
	if res.Success {
		t.Error("noop purchases must fail")
	}
	// The failure must come from the client itself, not from an
	// availability screen in front of it.
	if res.Reason != noop.ErrNoStore.Error() {
		t.Errorf("expected reason %q, got %q", noop.ErrNoStore.Error(), res.Reason)
	}
}

func TestListenerOrderAndIsolation(t *testing.T) {
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 8)

	failing := hook.PurchaseListener("failing", func(ctx context.Context, result interface{}) error {
		mu.Lock()
		order = append(order, "failing")
		mu.Unlock()
		done <- struct{}{}
		return errors.New("listener exploded")
	})
	second := hook.PurchaseListener("second", func(ctx context.Context, result interface{}) error {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	a := iap.New(fake.New(),
		iap.WithHook(failing), iap.WithHook(second))
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop() })

	_ = a.Initialize(ctx, testCatalog(t))
	_ = a.Buy(ctx, "gold_100")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for listeners")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "failing" || order[1] != "second" {
		t.Fatalf("expected registration-order delivery past the failing listener, got %v", order)
	}
}

func TestPurchaseCounts(t *testing.T) {
	a, col := startAdapter(t, fake.New(), iap.WithJournal(memory.New()))
	ctx := context.Background()

	_ = a.Initialize(ctx, testCatalog(t))
	col.wait(t, 1)

	for i := 0; i < 3; i++ {
		_ = a.Buy(ctx, "gold_100")
		col.wait(t, 1)
	}
	_ = a.Buy(ctx, "diamond_999") // unknown, journaled as failure
	col.wait(t, 1)

	counts, err := a.PurchaseCounts(ctx)
	if err != nil {
		t.Fatalf("PurchaseCounts: %v", err)
	}
	if counts["gold_100"] != 3 {
		t.Errorf("expected 3 successful gold_100, got %d", counts["gold_100"])
	}
	if counts["diamond_999"] != 0 {
		t.Errorf("failed purchases must not count, got %d", counts["diamond_999"])
	}
}
