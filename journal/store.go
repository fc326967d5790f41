package journal

import "context"

// Store is the storage interface for the transaction journal.
type Store interface {
	// Record appends one terminal purchase outcome.
	Record(ctx context.Context, e *Entry) error

	// List returns journaled entries, newest first.
	List(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// CountByProduct returns successful purchase counts keyed by logical
	// product id.
	CountByProduct(ctx context.Context) (map[string]int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
