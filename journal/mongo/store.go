// Package mongo provides a MongoDB-backed journal store via the Grove ORM.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/journal"
)

// Collection name constants.
const (
	colTransactions = "iap_transactions"
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB journal store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the journal collection.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: mongo %s indexes: %w", iap.ErrMigrationFailed, col, err)
		}
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("%w: mongo: %w", iap.ErrJournalRecord, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel

	filter := bson.M{}
	if opts.ProductID != "" {
		filter["product_id"] = opts.ProductID
	}
	if opts.SuccessOnly {
		filter["success"] = true
	}
	if !opts.Since.IsZero() {
		filter["occurred_at"] = bson.M{"$gte": opts.Since}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("iap/mongo: list transactions: %w", err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"success": true}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("iap/mongo: count transactions: %w", err)
	}

	counts := make(map[string]int64, len(models))
	for i := range models {
		counts[models[i].ProductID]++
	}
	return counts, nil
}

// migrationIndexes returns the index definitions for the journal collection.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTransactions: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "success", Value: 1}, {Key: "product_id", Value: 1}}},
		},
	}
}
