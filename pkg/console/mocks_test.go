package console_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/playbook/pkg/client"
	"github.com/dukex/playbook/pkg/models"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListWorkflows(ctx context.Context) ([]*models.Record, error) {
	args := m.Called(ctx)

	records, _ := args.Get(0).([]*models.Record)

	return records, args.Error(1)
}

func (m *MockAPI) ListPlaybooks(ctx context.Context) ([]*models.Record, error) {
	args := m.Called(ctx)

	records, _ := args.Get(0).([]*models.Record)

	return records, args.Error(1)
}

func (m *MockAPI) UpdateStatus(ctx context.Context, id string, running bool) error {
	return m.Called(ctx, id, running).Error(0)
}

func (m *MockAPI) DeleteWorkflow(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAPI) GetWorkflow(ctx context.Context, id string) (*models.Record, error) {
	args := m.Called(ctx, id)

	record, _ := args.Get(0).(*models.Record)

	return record, args.Error(1)
}

func (m *MockAPI) CreateWorkflow(ctx context.Context, draft client.Draft) (string, error) {
	args := m.Called(ctx, draft)

	return args.String(0), args.Error(1)
}

func (m *MockAPI) UpdateWorkflow(ctx context.Context, id string, draft client.Draft) error {
	return m.Called(ctx, id, draft).Error(0)
}

func (m *MockAPI) CreatePlaybook(ctx context.Context, draft client.Draft) (string, error) {
	args := m.Called(ctx, draft)

	return args.String(0), args.Error(1)
}

func (m *MockAPI) UpdatePlaybook(ctx context.Context, id string, draft client.Draft) error {
	return m.Called(ctx, id, draft).Error(0)
}
