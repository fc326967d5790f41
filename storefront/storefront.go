// Package storefront defines the abstraction over platform purchasing
// backends (Apple App Store, Google Play, test doubles).
//
// The adapter is a pure consumer of the Client interface: all storefront
// protocol work (receipt verification, transaction queuing, network
// retries) lives behind it. Client calls are non-blocking; results are
// posted to the Sink, which the adapter implements by marshaling
// completions onto its single dispatch goroutine.
package storefront

import (
	"context"

	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/types"
)

// Name identifies a storefront backend.
type Name string

// Known storefront names.
const (
	NameAppleAppStore Name = "apple_appstore"
	NameGooglePlay    Name = "google_play"
	NameNoop          Name = "noop"
	NameFake          Name = "fake"
)

// Product pairs a catalog entry with the SKU registered for the active
// storefront.
type Product struct {
	Entry *catalog.Entry
	SKU   string
}

// Request describes one purchase delegated to the client.
type Request struct {
	Product Product

	// Payload carries opaque platform data some backends require to
	// complete a purchase, e.g. a device purchase token on Google Play or
	// a transaction id on the App Store. The adapter passes it through
	// unexamined.
	Payload map[string]string
}

// Completion is the terminal outcome of one purchase request.
type Completion struct {
	Request Request

	// Price is the storefront-reported price, when the store reports one.
	Price types.Money

	// Restored marks completions re-delivered by a restoration sweep.
	Restored bool

	// Err is non-nil when the storefront reported failure.
	Err error
}

// Sink receives asynchronous completions from a Client. Implementations
// must be safe to call from any goroutine; the adapter's Sink marshals
// every call onto its dispatch goroutine.
type Sink interface {
	// StoreInitialized delivers the terminal result of Initialize.
	StoreInitialized(err error)

	// PurchaseCompleted delivers exactly one terminal outcome per purchase
	// request, and one per transaction re-delivered by restoration.
	PurchaseCompleted(c Completion)
}

// Client is the underlying storefront backend. All methods are
// non-blocking: they start the platform interaction and return; results
// arrive only through the Sink, at an unspecified later point.
type Client interface {
	// Name identifies the storefront this client talks to.
	Name() Name

	// Initialize registers the catalog's products with the storefront and
	// starts asynchronous initialization. The sink is retained for the
	// lifetime of the client.
	Initialize(ctx context.Context, products []Product, sink Sink)

	// Purchase starts a purchase for a previously registered product.
	Purchase(ctx context.Context, req Request)
}

// Restorer is the optional capability for storefronts that require
// explicit restoration of prior purchases (the Apple family). Stores
// without it redeliver completed transactions on their own.
//
// Restoration is fire-and-forget: it may produce zero or more
// PurchaseCompleted calls on the sink, each indistinguishable from a
// fresh purchase apart from the Restored flag.
type Restorer interface {
	RestoreTransactions(ctx context.Context)
}

// AvailabilityReporter is the optional capability for clients that learn
// per-product purchasability during initialization. The adapter consults
// it before delegating a purchase; products reported unavailable fail
// immediately without a storefront round trip.
type AvailabilityReporter interface {
	Purchasable(sku string) bool
}
