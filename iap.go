package iap

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/hook"
	"github.com/xraph/iap/id"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/purchase"
	"github.com/xraph/iap/storefront"
	"github.com/xraph/iap/types"
)

// State is the adapter's initialization state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateInitialized   State = "initialized"
	StateInitFailed    State = "init_failed"
)

// Adapter is the in-app purchase engine. It registers a catalog with the
// active storefront client, delegates purchases to it, and broadcasts
// every terminal outcome through the hook registry.
//
// All state transitions happen on a single dispatch goroutine. Public
// methods and storefront callbacks post work onto it, so hooks observe a
// strictly serialized event stream and never run concurrently with each
// other.
type Adapter struct {
	client  storefront.Client
	hooks   *hook.Registry
	journal journal.Store
	logger  *slog.Logger

	// Dispatch goroutine
	tasks    chan func()
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owned by the dispatch goroutine.
	state    State
	products map[string]storefront.Product
	pending  map[string]id.PurchaseID

	// Guarded by mu for readers outside the dispatch goroutine.
	mu        sync.RWMutex
	stateSnap State
	catalog   *catalog.Catalog
}

// New creates a new Adapter for the given storefront client.
func New(client storefront.Client, opts ...Option) *Adapter {
	a := &Adapter{
		client:    client,
		hooks:     hook.NewRegistry(),
		logger:    slog.Default(),
		tasks:     make(chan func(), 256),
		stopChan:  make(chan struct{}),
		state:     StateUninitialized,
		stateSnap: StateUninitialized,
		products:  make(map[string]storefront.Product),
		pending:   make(map[string]id.PurchaseID),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Option configures an Adapter instance.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
		a.hooks.WithLogger(logger)
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(a *Adapter) {
		_ = a.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// WithJournal sets the transaction journal store.
func WithJournal(store journal.Store) Option {
	return func(a *Adapter) {
		a.journal = store
	}
}

// WithQueueSize sets the dispatch queue capacity.
func WithQueueSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.tasks = make(chan func(), n)
		}
	}
}

// Start begins the dispatch goroutine. It migrates the journal store when
// one is configured and fires lifecycle hooks.
func (a *Adapter) Start(ctx context.Context) error {
	if a.journal != nil {
		if err := a.journal.Migrate(ctx); err != nil {
			return err
		}
	}

	a.hooks.EmitInit(ctx, a)

	a.wg.Add(1)
	go a.dispatch()

	a.logger.Info("iap adapter started",
		"store", a.client.Name(),
		"queue", cap(a.tasks),
	)

	return nil
}

// Stop shuts down the Adapter. Pending tasks are dropped; the storefront
// client is expected to stop delivering completions once its context is
// canceled.
func (a *Adapter) Stop() error {
	a.stopOnce.Do(func() { close(a.stopChan) })
	a.wg.Wait()

	ctx := context.Background()
	a.hooks.EmitShutdown(ctx)

	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}

// Hooks returns the hook registry for late registration.
func (a *Adapter) Hooks() *hook.Registry { return a.hooks }

// Catalog returns the catalog handed to the last Initialize call, or nil
// before the first.
func (a *Adapter) Catalog() *catalog.Catalog {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.catalog
}

// Store returns the name of the active storefront.
func (a *Adapter) Store() storefront.Name { return a.client.Name() }

// State returns the adapter's current initialization state.
func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stateSnap
}

// Initialized reports whether the storefront finished initializing.
func (a *Adapter) Initialized() bool { return a.State() == StateInitialized }

func (a *Adapter) dispatch() {
	defer a.wg.Done()
	for {
		select {
		case task := <-a.tasks:
			task()
		case <-a.stopChan:
			return
		}
	}
}

// post schedules work onto the dispatch goroutine.
func (a *Adapter) post(task func()) error {
	select {
	case a.tasks <- task:
		return nil
	case <-a.stopChan:
		return ErrAdapterStopped
	}
}

func (a *Adapter) setState(s State) {
	a.state = s
	a.mu.Lock()
	a.stateSnap = s
	a.mu.Unlock()
}

// ──────────────────────────────────────────────────
// Initialization
// ──────────────────────────────────────────────────

// Initialize registers the catalog with the storefront and starts
// asynchronous store initialization. The terminal outcome arrives on the
// initialization-result channel; a failed attempt may be retried by
// calling Initialize again. Once initialized, further calls have no
// effect.
func (a *Adapter) Initialize(ctx context.Context, cat *catalog.Catalog) error {
	if cat.Len() == 0 {
		return ErrEmptyCatalog
	}
	return a.post(func() { a.doInitialize(ctx, cat) })
}

func (a *Adapter) doInitialize(ctx context.Context, cat *catalog.Catalog) {
	switch a.state {
	case StateInitializing:
		a.logger.Warn("initialize ignored, already in progress", "store", a.client.Name())
		return
	case StateInitialized:
		a.logger.Debug("initialize ignored, already initialized", "store", a.client.Name())
		return
	}

	a.mu.Lock()
	a.catalog = cat
	a.mu.Unlock()

	store := a.client.Name()
	entries := cat.Entries()
	products := make([]storefront.Product, 0, len(entries))
	a.products = make(map[string]storefront.Product, len(entries))
	for i := range entries {
		p := storefront.Product{
			Entry: &entries[i],
			SKU:   entries[i].SKUFor(string(store)),
		}
		products = append(products, p)
		a.products[entries[i].ID] = p
	}

	a.setState(StateInitializing)
	a.logger.Info("initializing storefront", "store", store, "products", len(products))

	a.client.Initialize(ctx, products, a)
}

// StoreInitialized implements storefront.Sink. Safe to call from any
// goroutine.
func (a *Adapter) StoreInitialized(err error) {
	_ = a.post(func() { //nolint:errcheck // completions after Stop are dropped
		ctx := context.Background()

		result := &purchase.InitResult{
			Store:    string(a.client.Name()),
			Products: len(a.products),
		}

		if err != nil {
			a.setState(StateInitFailed)
			a.logger.Error("storefront initialization failed",
				"store", a.client.Name(), "error", err)
		} else {
			a.setState(StateInitialized)
			result.Success = true
			a.logger.Info("storefront initialized",
				"store", a.client.Name(), "products", result.Products)
		}

		a.hooks.EmitInitResult(ctx, result)
	})
}

// ──────────────────────────────────────────────────
// Purchasing
// ──────────────────────────────────────────────────

// BuyOption configures a single Buy call.
type BuyOption func(*buyRequest)

type buyRequest struct {
	payload map[string]string
}

// WithPayload attaches opaque platform data to the purchase request. The
// adapter passes it to the storefront client unexamined.
func WithPayload(payload map[string]string) BuyOption {
	return func(r *buyRequest) {
		r.payload = payload
	}
}

// WithPayloadValue attaches a single platform key/value pair.
func WithPayloadValue(key, value string) BuyOption {
	return func(r *buyRequest) {
		if r.payload == nil {
			r.payload = make(map[string]string)
		}
		r.payload[key] = value
	}
}

// Buy starts a purchase for the logical product id. Every call eventually
// produces exactly one result on the purchase-result channel; failures
// before the storefront is reached (not initialized, unknown product,
// unavailable product, duplicate in-flight purchase) are delivered there
// with Success=false rather than returned.
func (a *Adapter) Buy(ctx context.Context, productID string, opts ...BuyOption) error {
	var req buyRequest
	for _, opt := range opts {
		opt(&req)
	}
	return a.post(func() { a.doBuy(ctx, productID, req) })
}

func (a *Adapter) doBuy(ctx context.Context, productID string, req buyRequest) {
	store := string(a.client.Name())

	if a.state != StateInitialized {
		reason := ErrNotInitialized
		if a.state == StateInitFailed {
			reason = ErrStoreInitFailed
		}
		a.logger.Warn("buy rejected, storefront not initialized",
			"product", productID, "state", a.state)
		a.deliverResult(ctx, &purchase.Result{
			Store:  store,
			Reason: reason.Error(),
		})
		return
	}

	p, ok := a.products[productID]
	if !ok {
		a.logger.Warn("buy rejected, unknown product", "product", productID)
		a.deliverResult(ctx, &purchase.Result{
			ProductID: productID,
			Store:     store,
			Reason:    ErrProductNotFound.Error(),
		})
		return
	}

	if reporter, ok := a.client.(storefront.AvailabilityReporter); ok && !reporter.Purchasable(p.SKU) {
		a.logger.Warn("buy rejected, product unavailable",
			"product", productID, "sku", p.SKU)
		a.deliverResult(ctx, &purchase.Result{
			ProductID: productID,
			Store:     store,
			Kind:      p.Entry.Kind,
			Reason:    ErrProductUnavailable.Error(),
		})
		return
	}

	if _, inflight := a.pending[productID]; inflight {
		a.logger.Warn("buy rejected, purchase already pending", "product", productID)
		a.deliverResult(ctx, &purchase.Result{
			ProductID: productID,
			Store:     store,
			Kind:      p.Entry.Kind,
			Reason:    ErrPurchasePending.Error(),
		})
		return
	}

	purchaseID := id.NewPurchaseID()
	a.pending[productID] = purchaseID
	a.logger.Info("purchase delegated to storefront",
		"purchase_id", purchaseID, "product", productID, "sku", p.SKU)

	a.client.Purchase(ctx, storefront.Request{
		Product: p,
		Payload: req.payload,
	})
}

// PurchaseCompleted implements storefront.Sink. Safe to call from any
// goroutine.
func (a *Adapter) PurchaseCompleted(c storefront.Completion) {
	_ = a.post(func() { //nolint:errcheck // completions after Stop are dropped
		ctx := context.Background()

		entry := c.Request.Product.Entry
		result := &purchase.Result{
			Store:    string(a.client.Name()),
			Restored: c.Restored,
			Price:    c.Price,
		}
		if entry != nil {
			result.ProductID = entry.ID
			result.Kind = entry.Kind
			if !c.Restored {
				delete(a.pending, entry.ID)
			}
		}

		if c.Err != nil {
			result.Reason = c.Err.Error()
			a.logger.Warn("purchase failed",
				"product", result.ProductID, "restored", c.Restored, "error", c.Err)
		} else {
			result.Success = true
			a.logger.Info("purchase completed",
				"product", result.ProductID, "restored", c.Restored)
		}

		a.deliverResult(ctx, result)
	})
}

// deliverResult journals a terminal outcome and broadcasts it on the
// purchase-result channel. Runs on the dispatch goroutine.
func (a *Adapter) deliverResult(ctx context.Context, result *purchase.Result) {
	a.record(ctx, result)
	a.hooks.EmitPurchaseResult(ctx, result)
}

func (a *Adapter) record(ctx context.Context, result *purchase.Result) {
	if a.journal == nil {
		return
	}

	e := &journal.Entry{
		Entity:     types.NewEntity(),
		ID:         id.NewTransactionID(),
		ProductID:  result.ProductID,
		Store:      result.Store,
		Kind:       result.Kind,
		Success:    result.Success,
		Restored:   result.Restored,
		Price:      result.Price,
		Reason:     result.Reason,
		OccurredAt: time.Now().UTC(),
	}

	if err := a.journal.Record(ctx, e); err != nil {
		a.logger.Warn("journal record failed",
			"transaction_id", e.ID, "product", e.ProductID, "error", err)
		return
	}

	a.hooks.EmitTransactionRecorded(ctx, e)
}

// ──────────────────────────────────────────────────
// Restoration
// ──────────────────────────────────────────────────

// Restore asks the storefront to redeliver previously completed
// purchases. It returns ErrRestoreUnsupported for storefronts that
// redeliver on their own and have no explicit restoration call.
//
// Redelivered transactions arrive on the purchase-result channel with
// Restored=true, otherwise indistinguishable from fresh purchases.
func (a *Adapter) Restore(ctx context.Context) error {
	restorer, ok := a.client.(storefront.Restorer)
	if !ok {
		a.logger.Info("restoration not supported", "store", a.client.Name())
		return ErrRestoreUnsupported
	}

	return a.post(func() {
		if a.state != StateInitialized {
			a.logger.Warn("restore ignored, storefront not initialized", "state", a.state)
			return
		}

		sweepID := id.NewRestoreID()
		a.logger.Info("restoring transactions",
			"restore_id", sweepID, "store", a.client.Name())
		a.hooks.EmitRestoreRequested(ctx, string(a.client.Name()))
		restorer.RestoreTransactions(ctx)
	})
}

// ──────────────────────────────────────────────────
// Journal queries
// ──────────────────────────────────────────────────

// Transactions returns journaled purchase outcomes, newest first.
func (a *Adapter) Transactions(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	if a.journal == nil {
		return nil, nil
	}
	return a.journal.List(ctx, opts)
}

// PurchaseCounts returns successful purchase counts keyed by logical
// product id.
func (a *Adapter) PurchaseCounts(ctx context.Context) (map[string]int64, error) {
	if a.journal == nil {
		return map[string]int64{}, nil
	}
	return a.journal.CountByProduct(ctx)
}

// compile-time interface check
var _ storefront.Sink = (*Adapter)(nil)
