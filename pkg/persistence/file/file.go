// Package file provides file-based persistence for workflow state. Each
// workflow is stored as one JSON document, which is enough for state to
// survive a restart of the owning service.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/persistence"
)

const workflowsDir = "workflows"

// Persistence implements the persistence.Persistence interface on the file system.
type Persistence struct {
	root string

	// Serializes all record writes. Coarse, but workflow volume per process is
	// low and it keeps the read-modify-write of result slots safe.
	mu sync.Mutex
}

// NewPersistence creates a file store rooted at the given directory. Accepts a
// plain path or a file:// URL.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(filepath.Join(cleanRoot, workflowsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workflows directory: %w", err)
	}

	return &Persistence{root: cleanRoot}, nil
}

func (p *Persistence) Create(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := p.workflowPath(workflow.ID)
	if _, err := os.Stat(path); err == nil {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	return p.write(workflow)
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.read(id, "WorkflowByID")
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.read(workflow.ID, "SaveWorkflow"); err != nil {
		return err
	}

	workflow.UpdatedAt = time.Now().UTC()

	return p.write(workflow)
}

func (p *Persistence) SavePublishResult(_ context.Context, workflowID string, result *models.PublishResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.read(workflowID, "SavePublishResult")
	if err != nil {
		return err
	}

	for i, r := range workflow.Results {
		if r.Platform == result.Platform {
			saved := *result
			saved.UpdatedAt = time.Now().UTC()
			workflow.Results[i] = &saved
			workflow.UpdatedAt = saved.UpdatedAt

			return p.write(workflow)
		}
	}

	return persistence.NewWorkflowError("SavePublishResult", workflowID, persistence.ErrResultSlotNotFound)
}

func (p *Persistence) Workflows(_ context.Context, filter persistence.ListFilter) ([]*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(p.root, workflowsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")

		workflow, err := p.read(id, "Workflows")
		if err != nil {
			return nil, err
		}

		if filter.Status != nil && workflow.Status != *filter.Status {
			continue
		}

		workflows = append(workflows, workflow)

		if filter.Limit > 0 && len(workflows) >= filter.Limit {
			break
		}
	}

	return workflows, nil
}

// HealthCheck verifies the root directory is still reachable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file persistence there is nothing
// to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) workflowPath(id string) string {
	return filepath.Join(p.root, workflowsDir, id+".json")
}

func (p *Persistence) read(id, op string) (*models.Workflow, error) {
	data, err := os.ReadFile(p.workflowPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewWorkflowError(op, id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError(op, id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError(op, id, err)
	}

	return &workflow, nil
}

func (p *Persistence) write(workflow *models.Workflow) error {
	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("write", workflow.ID, err)
	}

	tmp := p.workflowPath(workflow.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return persistence.NewWorkflowError("write", workflow.ID, err)
	}

	if err := os.Rename(tmp, p.workflowPath(workflow.ID)); err != nil {
		return persistence.NewWorkflowError("write", workflow.ID, err)
	}

	return nil
}
