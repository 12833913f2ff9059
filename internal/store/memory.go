package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

const subscriptionBuffer = 64

// MemoryStore is an in-process Store used by tests and offline development.
// It mimics the backend's delivery model: inserts are fanned out to
// subscribers asynchronously, with no ordering guarantee across tables.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]Row
	subs   map[string][]*memorySubscription
	closed bool
}

type memorySubscription struct {
	store    *MemoryStore
	table    string
	where    Predicate
	onInsert func(Row)
	events   chan Row
	stop     chan struct{}
	once     sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]Row),
		subs:   make(map[string][]*memorySubscription),
	}
}

func (m *MemoryStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if _, ok := tableColumns[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	id, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	saved := cloneRow(row)
	saved["id"] = id
	now := time.Now().UTC()
	saved["created_at"] = now
	saved["updated_at"] = now

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("store is closed")
	}
	m.tables[table] = append(m.tables[table], saved)
	subs := make([]*memorySubscription, len(m.subs[table]))
	copy(subs, m.subs[table])
	m.mu.Unlock()

	for _, sub := range subs {
		if sub.where.Matches(saved) {
			select {
			case sub.events <- cloneRow(saved):
			case <-sub.stop:
			}
		}
	}

	return cloneRow(saved), nil
}

func (m *MemoryStore) Update(ctx context.Context, table string, where Predicate, patch Row) error {
	if _, ok := tableColumns[table]; !ok {
		return fmt.Errorf("unknown table %q", table)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.tables[table] {
		if where.Matches(row) {
			for col, val := range patch {
				row[col] = val
			}
			row["updated_at"] = time.Now().UTC()
		}
	}

	return nil
}

func (m *MemoryStore) Query(ctx context.Context, table string, where Predicate, opts *QueryOpts) ([]Row, error) {
	if _, ok := tableColumns[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Row
	for _, row := range m.tables[table] {
		if where.Matches(row) {
			matched = append(matched, cloneRow(row))
		}
	}

	if opts != nil {
		if opts.OrderBy != "" {
			sortRows(matched, opts.OrderBy, opts.Desc)
		}
		if opts.Limit > 0 && len(matched) > opts.Limit {
			matched = matched[:opts.Limit]
		}
	}

	return matched, nil
}

func (m *MemoryStore) Subscribe(table string, where Predicate, onInsert func(Row)) (Subscription, error) {
	if _, ok := tableColumns[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	sub := &memorySubscription{
		store:    m,
		table:    table,
		where:    where,
		onInsert: onInsert,
		events:   make(chan Row, subscriptionBuffer),
		stop:     make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("store is closed")
	}
	m.subs[table] = append(m.subs[table], sub)
	m.mu.Unlock()

	go sub.deliver()

	return sub, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	var all []*memorySubscription
	for _, subs := range m.subs {
		all = append(all, subs...)
	}
	m.subs = make(map[string][]*memorySubscription)
	m.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}

	return nil
}

func (s *memorySubscription) deliver() {
	for {
		select {
		case row := <-s.events:
			s.onInsert(row)
		case <-s.stop:
			return
		}
	}
}

func (s *memorySubscription) Unsubscribe() {
	s.store.mu.Lock()
	subs := s.store.subs[s.table]
	for i, sub := range subs {
		if sub == s {
			s.store.subs[s.table] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.store.mu.Unlock()

	s.close()
}

func (s *memorySubscription) close() {
	s.once.Do(func() { close(s.stop) })
}

func cloneRow(row Row) Row {
	c := make(Row, len(row))
	for col, val := range row {
		c[col] = val
	}
	return c
}

func sortRows(rows []Row, col string, desc bool) {
	less := func(a, b Row) bool {
		switch av := a[col].(type) {
		case time.Time:
			bv, _ := b[col].(time.Time)
			return av.Before(bv)
		case int:
			bv, _ := b[col].(int)
			return av < bv
		case string:
			bv, _ := b[col].(string)
			return av < bv
		}
		return false
	}

	// insertion sort, row counts here are tiny
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			a, b := rows[j-1], rows[j]
			swap := less(a, b) == desc && !(a[col] == b[col])
			if !swap {
				break
			}
			rows[j-1], rows[j] = b, a
		}
	}
}
