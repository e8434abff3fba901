// Package mocks provides testify mocks for the persistence and event bus interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Save(ctx context.Context, record *models.Record) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockWorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) ([]*models.Record, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Record), args.Error(1)
}

func (m *MockWorkflowRepository) Update(
	ctx context.Context,
	id string,
	patch models.Patch,
	updatedAt time.Time,
) (*models.Record, error) {
	args := m.Called(ctx, id, patch, updatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockWorkflowRepository) UpdateStatus(ctx context.Context, id string, running bool, updatedAt time.Time) error {
	args := m.Called(ctx, id, running, updatedAt)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	workflowRepo *MockWorkflowRepository
}

// NewMockPersistence creates a new MockPersistence with a mock workflow repository.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		workflowRepo: &MockWorkflowRepository{},
	}
}

// GetMockWorkflowRepository returns the underlying mock workflow repository for setting up expectations.
func (m *MockPersistence) GetMockWorkflowRepository() *MockWorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.workflowRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
