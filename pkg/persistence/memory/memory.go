// Package memory provides the in-memory reference implementation of the
// workflow state store. It is used by tests and by single-process deployments
// that do not need state to survive a restart.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/persistence"
)

// Persistence keeps workflow records in a map guarded by a single mutex.
// Records are deep-copied on the way in and out so callers never share memory
// with the store.
type Persistence struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows: make(map[string]*models.Workflow),
	}
}

func (p *Persistence) Create(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workflows[workflow.ID]; exists {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	p.workflows[workflow.ID] = clone(workflow)

	return nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow, exists := p.workflows[id]
	if !exists {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return clone(workflow), nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workflows[workflow.ID]; !exists {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	stored := clone(workflow)
	stored.UpdatedAt = time.Now().UTC()
	p.workflows[workflow.ID] = stored

	return nil
}

func (p *Persistence) SavePublishResult(_ context.Context, workflowID string, result *models.PublishResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, exists := p.workflows[workflowID]
	if !exists {
		return persistence.NewWorkflowError("SavePublishResult", workflowID, persistence.ErrWorkflowNotFound)
	}

	for i, r := range workflow.Results {
		if r.Platform == result.Platform {
			saved := *result
			saved.UpdatedAt = time.Now().UTC()
			workflow.Results[i] = &saved
			workflow.UpdatedAt = saved.UpdatedAt

			return nil
		}
	}

	return persistence.NewWorkflowError("SavePublishResult", workflowID, persistence.ErrResultSlotNotFound)
}

func (p *Persistence) Workflows(_ context.Context, filter persistence.ListFilter) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(p.workflows))

	for _, workflow := range p.workflows {
		if filter.Status != nil && workflow.Status != *filter.Status {
			continue
		}

		workflows = append(workflows, clone(workflow))

		if filter.Limit > 0 && len(workflows) >= filter.Limit {
			break
		}
	}

	return workflows, nil
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// clone deep-copies a workflow record via JSON round-trip. Records are small,
// so the simplicity wins over a hand-written copy.
func clone(workflow *models.Workflow) *models.Workflow {
	data, err := json.Marshal(workflow)
	if err != nil {
		// Workflow records only hold JSON-serializable fields.
		panic(err)
	}

	var copied models.Workflow
	if err := json.Unmarshal(data, &copied); err != nil {
		panic(err)
	}

	return &copied
}
