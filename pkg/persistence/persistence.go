// Package persistence provides the data storage abstraction for workflow state.
package persistence

import (
	"context"

	"github.com/pressline/pressline/pkg/models"
)

// Persistence is the workflow state store. Implementations must be safe for
// concurrent use by the dispatcher and by sub-task completion callbacks: writes
// to a single workflow record are serialized internally, and SavePublishResult
// is scoped to one target slot so concurrent completions never lose updates.
type Persistence interface {
	// Create stores a new workflow. Fails with ErrWorkflowAlreadyExists when the
	// identifier is taken.
	Create(ctx context.Context, workflow *models.Workflow) error

	// WorkflowByID returns a snapshot of the workflow, or ErrWorkflowNotFound.
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)

	// SaveWorkflow replaces the stored record of an existing workflow.
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error

	// SavePublishResult writes one target's result slot without touching the
	// rest of the record.
	SavePublishResult(ctx context.Context, workflowID string, result *models.PublishResult) error

	// Workflows lists stored workflows, optionally filtered by status.
	Workflows(ctx context.Context, filter ListFilter) ([]*models.Workflow, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListFilter narrows Workflows listings.
type ListFilter struct {
	Status *models.WorkflowStatus
	Limit  int
}
