// Package catalog defines the purchasable product catalog.
//
// A catalog is authored offline (see LoadFile for the JSON format), loaded
// at startup, and handed to the adapter on initialization. Entries are
// immutable after load.
package catalog

import "fmt"

// Kind classifies how a product behaves after purchase.
type Kind string

const (
	// KindConsumable products can be purchased repeatedly (currency, boosts).
	KindConsumable Kind = "consumable"
	// KindNonConsumable products are purchased once and owned forever.
	KindNonConsumable Kind = "non_consumable"
	// KindSubscription products grant time-limited access that renews.
	KindSubscription Kind = "subscription"
)

// Valid reports whether k is a known product kind.
func (k Kind) Valid() bool {
	switch k {
	case KindConsumable, KindNonConsumable, KindSubscription:
		return true
	}
	return false
}

// Entry describes one purchasable product: a logical identifier, its kind,
// and the storefront-specific SKU it maps to on each store. Entries carry
// no behavior.
type Entry struct {
	// ID is the logical product identifier used by application code.
	ID string `json:"id"`

	// Kind classifies the product.
	Kind Kind `json:"kind"`

	// StoreSkus maps a storefront name (e.g. "google_play") to the SKU
	// string registered with that store. A missing entry means the product
	// is not sold on that storefront.
	StoreSkus map[string]string `json:"store_skus,omitempty"`
}

// SKUFor returns the SKU registered for the named storefront. When no
// explicit mapping exists, the logical ID doubles as the SKU, the common
// case for catalogs authored with store-matching identifiers.
func (e *Entry) SKUFor(store string) string {
	if sku, ok := e.StoreSkus[store]; ok {
		return sku
	}
	return e.ID
}

// Catalog is an ordered, immutable sequence of entries with unique IDs.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New builds a Catalog from the given entries. Returns an error if any
// entry fails validation or duplicates an ID.
func New(entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for i := range entries {
		e := entries[i]
		if err := validateEntry(&e); err != nil {
			return nil, err
		}
		if _, exists := c.index[e.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate product id %q", e.ID)
		}
		c.index[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// MustNew is like New but panics on error. Use for hardcoded catalogs in
// tests and examples.
func MustNew(entries ...Entry) *Catalog {
	c, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

// Find returns the entry with the given logical ID, or nil.
func (c *Catalog) Find(productID string) *Entry {
	if c == nil {
		return nil
	}
	if i, ok := c.index[productID]; ok {
		return &c.entries[i]
	}
	return nil
}

// Entries returns the catalog entries in authored order. The returned
// slice is a copy; the catalog itself stays immutable.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// ValidationError reports an entry that failed catalog validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: validation failed for %s: %s", e.Field, e.Message)
}

func validateEntry(e *Entry) error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Message: "entry with empty product id"}
	}
	if !e.Kind.Valid() {
		return &ValidationError{Field: "kind",
			Message: fmt.Sprintf("product %q: unknown kind %q", e.ID, e.Kind)}
	}
	for store, sku := range e.StoreSkus {
		if sku == "" {
			return &ValidationError{Field: "store_skus",
				Message: fmt.Sprintf("product %q: empty sku for store %q", e.ID, store)}
		}
	}
	return nil
}
