// Package memory provides an in-memory journal store, the default when no
// database is configured. Suitable for tests and single-process use.
package memory

import (
	"context"
	"sync"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/journal"
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	entries []journal.Entry
	closed  bool
}

func New() *Store {
	return &Store{}
}

func (s *Store) Record(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return iap.ErrJournalClosed
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *Store) List(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*journal.Entry
	// Newest first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if opts.ProductID != "" && e.ProductID != opts.ProductID {
			continue
		}
		if opts.SuccessOnly && !e.Success {
			continue
		}
		if !opts.Since.IsZero() && e.OccurredAt.Before(opts.Since) {
			continue
		}
		matched = append(matched, &e)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (s *Store) CountByProduct(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for i := range s.entries {
		if s.entries[i].Success {
			counts[s.entries[i].ProductID]++
		}
	}
	return counts, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return iap.ErrJournalClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
