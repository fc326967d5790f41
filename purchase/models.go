// Package purchase defines the notification payloads delivered on the
// adapter's event channels.
package purchase

import (
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/types"
)

// InitResult is delivered on the initialization-result channel after an
// Initialize attempt reaches a terminal state.
type InitResult struct {
	// Success reports whether the storefront client finished initializing.
	Success bool `json:"success"`

	// Store is the storefront the adapter initialized against.
	Store string `json:"store"`

	// Products is the number of catalog entries registered with the store.
	Products int `json:"products"`
}

// Result is delivered on the purchase-result channel for every terminal
// purchase outcome, including restored transactions.
//
// Every failure path (not initialized, unknown product, unavailable
// product, storefront-reported failure) uses this same shape with
// Success=false. Callers must not assume specificity beyond the flag;
// Reason is diagnostic text, not a contract.
type Result struct {
	Success bool `json:"success"`

	// ProductID is the logical product identifier, empty when the failure
	// occurred before a product could be resolved.
	ProductID string `json:"product_id,omitempty"`

	// Store is the storefront that produced the outcome.
	Store string `json:"store,omitempty"`

	// Kind is the catalog classification of the product, when known.
	Kind catalog.Kind `json:"kind,omitempty"`

	// Price is the storefront-reported price. Zero when the store did not
	// report one.
	Price types.Money `json:"price,omitzero"`

	// Restored marks outcomes re-delivered by a restoration sweep. From
	// the caller's point of view they are ordinary successes.
	Restored bool `json:"restored,omitempty"`

	// Reason carries a diagnostic description on failure.
	Reason string `json:"reason,omitempty"`
}
