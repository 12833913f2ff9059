package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	args := m.Called(ctx, table, row)
	if saved, ok := args.Get(0).(Row); ok {
		return saved, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, table string, where Predicate, patch Row) error {
	args := m.Called(ctx, table, where, patch)
	return args.Error(0)
}

func (m *MockStore) Query(ctx context.Context, table string, where Predicate, opts *QueryOpts) ([]Row, error) {
	args := m.Called(ctx, table, where, opts)
	if rows, ok := args.Get(0).([]Row); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Subscribe(table string, where Predicate, onInsert func(Row)) (Subscription, error) {
	args := m.Called(table, where, onInsert)
	if sub, ok := args.Get(0).(Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockSubscription struct {
	mock.Mock
}

func (m *MockSubscription) Unsubscribe() {
	m.Called()
}
