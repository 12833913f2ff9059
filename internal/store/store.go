package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by QueryOne when no row matches the predicate.
// Callers treat it as "proceed to the creation path", never as fatal.
var ErrNotFound = errors.New("store: row not found")

// Row is a single record keyed by column name. Values are the plain Go
// equivalents of the column types (string, int, time.Time).
type Row map[string]any

// Predicate selects rows whose columns equal every listed value.
type Predicate map[string]any

// QueryOpts controls ordering and result size for Query.
type QueryOpts struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// Subscription is a live insert feed. Unsubscribe stops delivery; it is safe
// to call more than once.
type Subscription interface {
	Unsubscribe()
}

// Store is the narrow contract consumed from the storage/realtime backend.
// Both the Postgres implementation and the in-memory fake satisfy it, so any
// component taking a Store can be exercised without a running database.
type Store interface {
	// Insert writes row to table and returns it with id and timestamps set.
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update applies patch to every row matching where.
	Update(ctx context.Context, table string, where Predicate, patch Row) error
	// Query returns the rows matching where, honoring opts when non-nil.
	Query(ctx context.Context, table string, where Predicate, opts *QueryOpts) ([]Row, error)
	// Subscribe delivers each future insert on table matching where to
	// onInsert. Delivery is asynchronous and unordered across tables.
	Subscribe(table string, where Predicate, onInsert func(Row)) (Subscription, error)
	Close() error
}

// QueryOne returns the single newest row matching where, or ErrNotFound.
func QueryOne(ctx context.Context, s Store, table string, where Predicate) (Row, error) {
	rows, err := s.Query(ctx, table, where, &QueryOpts{OrderBy: "created_at", Desc: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Matches reports whether row satisfies every equality in p.
func (p Predicate) Matches(row Row) bool {
	for col, want := range p {
		if row[col] != want {
			return false
		}
	}
	return true
}
