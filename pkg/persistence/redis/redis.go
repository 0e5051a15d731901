// Package redis provides a Redis-backed workflow state store. One JSON
// document per workflow, keyed by id, with an index set for listings.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/persistence"
)

const (
	keyPrefix = "pressline:workflow:"
	indexKey  = "pressline:workflows"
)

// Persistence implements the persistence.Persistence interface on Redis.
// Per-record write serialization is provided by the dispatcher's single-writer
// discipline; result slot updates use a WATCH transaction so two sub-task
// completions never clobber each other.
type Persistence struct {
	client goredis.UniversalClient
}

// NewPersistence connects to Redis using a redis:// URL.
func NewPersistence(url string) (*Persistence, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Persistence{client: goredis.NewClient(opts)}, nil
}

// NewPersistenceWithClient wraps an existing client, used by tests.
func NewPersistenceWithClient(client goredis.UniversalClient) *Persistence {
	return &Persistence{client: client}
}

func (p *Persistence) Create(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	created, err := p.client.SetNX(ctx, keyPrefix+workflow.ID, data, 0).Result()
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	if !created {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	if err := p.client.SAdd(ctx, indexKey, workflow.ID).Err(); err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := p.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	exists, err := p.client.Exists(ctx, keyPrefix+workflow.ID).Result()
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	if exists == 0 {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	workflow.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	if err := p.client.Set(ctx, keyPrefix+workflow.ID, data, 0).Err(); err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) SavePublishResult(ctx context.Context, workflowID string, result *models.PublishResult) error {
	key := keyPrefix + workflowID

	update := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return persistence.ErrWorkflowNotFound
			}

			return err
		}

		var workflow models.Workflow
		if err := json.Unmarshal(data, &workflow); err != nil {
			return err
		}

		slot := -1

		for i, r := range workflow.Results {
			if r.Platform == result.Platform {
				slot = i

				break
			}
		}

		if slot < 0 {
			return persistence.ErrResultSlotNotFound
		}

		saved := *result
		saved.UpdatedAt = time.Now().UTC()
		workflow.Results[slot] = &saved
		workflow.UpdatedAt = saved.UpdatedAt

		updated, err := json.Marshal(&workflow)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)

			return nil
		})

		return err
	}

	// Retry on WATCH conflicts; concurrent completions for distinct targets
	// touch the same document.
	for range 5 {
		err := p.client.Watch(ctx, update, key)
		if err == nil {
			return nil
		}

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		return persistence.NewWorkflowError("SavePublishResult", workflowID, err)
	}

	return persistence.NewWorkflowError("SavePublishResult", workflowID, goredis.TxFailedErr)
}

func (p *Persistence) Workflows(ctx context.Context, filter persistence.ListFilter) ([]*models.Workflow, error) {
	ids, err := p.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := p.WorkflowByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				// Record purged from under the index; skip it.
				continue
			}

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

func (p *Persistence) HealthCheck(ctx context.Context) error {
	status := p.client.Ping(ctx)
	if status.Err() != nil {
		return fmt.Errorf("redis ping failed: %w", status.Err())
	}

	if !strings.EqualFold(status.Val(), "PONG") {
		return fmt.Errorf("unexpected redis ping response: %s", status.Val())
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}
