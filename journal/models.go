// Package journal defines the append-only transaction journal.
//
// Every terminal purchase outcome (success, failure, restored) is
// recorded for support and reconciliation. The journal is not an
// entitlement store: what a player owns is the storefront's business.
package journal

import (
	"time"

	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/id"
	"github.com/xraph/iap/types"
)

// Entry is one journaled purchase outcome.
type Entry struct {
	types.Entity
	ID         id.TransactionID `json:"id"`
	ProductID  string           `json:"product_id"`
	Store      string           `json:"store"`
	Kind       catalog.Kind     `json:"kind,omitempty"`
	Success    bool             `json:"success"`
	Restored   bool             `json:"restored,omitempty"`
	Price      types.Money      `json:"price,omitzero"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// ListOpts filters and paginates List queries.
type ListOpts struct {
	// ProductID limits results to one logical product.
	ProductID string

	// SuccessOnly limits results to successful outcomes.
	SuccessOnly bool

	// Since limits results to entries at or after this time.
	Since time.Time

	Limit  int
	Offset int
}
