// Package sqlite provides a SQLite-backed journal store via the Grove ORM.
package sqlite

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/journal"
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite journal store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the journal table and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("%w: create sqlite executor: %w", iap.ErrMigrationFailed, err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", iap.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, e *journal.Entry) error {
	m := toEntryModel(e)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", iap.ErrJournalRecord, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models)

	if opts.ProductID != "" {
		q = q.Where("product_id = ?", opts.ProductID)
	}
	if opts.SuccessOnly {
		q = q.Where("success = ?", true)
	}
	if !opts.Since.IsZero() {
		q = q.Where("occurred_at >= ?", opts.Since)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("iap/sqlite: list transactions: %w", err)
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountByProduct(ctx context.Context) (map[string]int64, error) {
	var models []entryModel
	if err := s.sdb.NewSelect(&models).Where("success = ?", true).Scan(ctx); err != nil {
		return nil, fmt.Errorf("iap/sqlite: count transactions: %w", err)
	}

	counts := make(map[string]int64, len(models))
	for i := range models {
		counts[models[i].ProductID]++
	}
	return counts, nil
}
