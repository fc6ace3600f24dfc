package review_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/store"
)

// MockRecordStore is a mock implementation of store.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Get(ctx context.Context, itemID string) (*domain.ReviewRecord, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewRecord), args.Error(1)
}

func (m *MockRecordStore) GetAll(ctx context.Context) (map[string]domain.ReviewRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.ReviewRecord), args.Error(1)
}

func (m *MockRecordStore) Put(ctx context.Context, rec *domain.ReviewRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordStore) Delete(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *MockRecordStore) Update(
	ctx context.Context,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewRecord, error) {
	args := m.Called(ctx, itemID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewRecord), args.Error(1)
}

func (m *MockRecordStore) WithNamespace(ns string) store.RecordStore {
	m.Called(ns)
	return m
}
