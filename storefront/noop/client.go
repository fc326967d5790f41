// Package noop provides the storefront client used on platforms without a
// purchasing backend. Initialization succeeds immediately with an empty
// store; every purchase fails.
package noop

import (
	"context"
	"errors"

	"github.com/xraph/iap/storefront"
)

// compile-time interface check
var _ storefront.Client = (*Client)(nil)

// ErrNoStore is the failure reason for every purchase attempt.
var ErrNoStore = errors.New("noop: no storefront on this platform")

type Client struct {
	sink storefront.Sink
}

func New() *Client {
	return &Client{}
}

func (c *Client) Name() storefront.Name { return storefront.NameNoop }

func (c *Client) Initialize(_ context.Context, _ []storefront.Product, sink storefront.Sink) {
	c.sink = sink
	sink.StoreInitialized(nil)
}

func (c *Client) Purchase(_ context.Context, req storefront.Request) {
	c.sink.PurchaseCompleted(storefront.Completion{
		Request: req,
		Err:     ErrNoStore,
	})
}
