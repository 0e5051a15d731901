// Package mocks provides testify mocks for the orchestration interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/persistence"
)

// Persistence is a mock implementation of persistence.Persistence.
type Persistence struct {
	mock.Mock
}

func (m *Persistence) Create(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *Persistence) SavePublishResult(ctx context.Context, workflowID string, result *models.PublishResult) error {
	args := m.Called(ctx, workflowID, result)

	return args.Error(0)
}

func (m *Persistence) Workflows(ctx context.Context, filter persistence.ListFilter) ([]*models.Workflow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *Persistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *Persistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
