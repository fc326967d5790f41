// Package fake provides a scriptable in-memory storefront client for
// tests and local development.
//
// By default the client auto-completes: initialization and purchases
// succeed synchronously inside the call. Scripted failures, held
// completions, per-SKU prices, and a restorable purchase history let
// tests drive every adapter code path without a platform backend.
package fake

import (
	"context"
	"sync"

	"github.com/xraph/iap/storefront"
	"github.com/xraph/iap/types"
)

// compile-time interface checks
var (
	_ storefront.Client               = (*Client)(nil)
	_ storefront.Restorer             = (*Client)(nil)
	_ storefront.AvailabilityReporter = (*Client)(nil)
)

type Client struct {
	mu sync.Mutex

	sink     storefront.Sink
	products map[string]storefront.Product

	initErr     error
	holdInit    bool
	initPending bool

	purchaseErr  error
	holdPurchase bool
	held         []storefront.Request

	prices      map[string]types.Money
	unavailable map[string]bool

	history []storefront.Request
}

// Option configures a fake Client.
type Option func(*Client)

// WithInitError scripts initialization to fail with err.
func WithInitError(err error) Option {
	return func(c *Client) { c.initErr = err }
}

// WithPurchaseError scripts every purchase to fail with err.
func WithPurchaseError(err error) Option {
	return func(c *Client) { c.purchaseErr = err }
}

// WithHeldInit suspends initialization until FinishInit is called.
func WithHeldInit() Option {
	return func(c *Client) { c.holdInit = true }
}

// WithHeldPurchases suspends purchases until FinishPurchases is called.
func WithHeldPurchases() Option {
	return func(c *Client) { c.holdPurchase = true }
}

// WithPrice sets the storefront price reported for a SKU.
func WithPrice(sku string, price types.Money) Option {
	return func(c *Client) { c.prices[sku] = price }
}

// WithUnavailable marks a SKU as not purchasable.
func WithUnavailable(sku string) Option {
	return func(c *Client) { c.unavailable[sku] = true }
}

func New(opts ...Option) *Client {
	c := &Client{
		products:    make(map[string]storefront.Product),
		prices:      make(map[string]types.Money),
		unavailable: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() storefront.Name { return storefront.NameFake }

func (c *Client) Initialize(_ context.Context, products []storefront.Product, sink storefront.Sink) {
	c.mu.Lock()
	c.sink = sink
	for _, p := range products {
		c.products[p.SKU] = p
	}
	hold := c.holdInit
	if hold {
		c.initPending = true
	}
	err := c.initErr
	c.mu.Unlock()

	if !hold {
		sink.StoreInitialized(err)
	}
}

// SetInitError re-scripts the initialization outcome for subsequent
// attempts.
func (c *Client) SetInitError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErr = err
}

// FinishInit delivers a held initialization result.
func (c *Client) FinishInit() {
	c.mu.Lock()
	if !c.initPending {
		c.mu.Unlock()
		return
	}
	c.initPending = false
	sink := c.sink
	err := c.initErr
	c.mu.Unlock()

	sink.StoreInitialized(err)
}

func (c *Client) Purchase(_ context.Context, req storefront.Request) {
	c.mu.Lock()
	if c.holdPurchase {
		c.held = append(c.held, req)
		c.mu.Unlock()
		return
	}
	sink := c.sink
	c.mu.Unlock()

	sink.PurchaseCompleted(c.complete(req, false))
}

// FinishPurchases delivers all held purchase completions in order.
func (c *Client) FinishPurchases() {
	c.mu.Lock()
	held := c.held
	c.held = nil
	sink := c.sink
	c.mu.Unlock()

	for _, req := range held {
		sink.PurchaseCompleted(c.complete(req, false))
	}
}

func (c *Client) complete(req storefront.Request, restored bool) storefront.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()

	comp := storefront.Completion{
		Request:  req,
		Restored: restored,
		Err:      c.purchaseErr,
	}
	if comp.Err == nil {
		comp.Price = c.prices[req.Product.SKU]
		if !restored {
			c.history = append(c.history, req)
		}
	}
	return comp
}

// RestoreTransactions redelivers every successful purchase with the
// Restored flag set.
func (c *Client) RestoreTransactions(_ context.Context) {
	c.mu.Lock()
	history := make([]storefront.Request, len(c.history))
	copy(history, c.history)
	sink := c.sink
	c.mu.Unlock()

	for _, req := range history {
		sink.PurchaseCompleted(c.complete(req, true))
	}
}

func (c *Client) Purchasable(sku string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.unavailable[sku]
}

// History returns the successful purchase requests seen so far.
func (c *Client) History() []storefront.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]storefront.Request, len(c.history))
	copy(out, c.history)
	return out
}
