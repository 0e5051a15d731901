// Package dispatcher orchestrates publishing workflows: generate an article
// once, then fan the publish out to every target with independent retries.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pressline/pressline/pkg/eventbus"
	"github.com/pressline/pressline/pkg/events"
	"github.com/pressline/pressline/pkg/generator"
	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/otelhelper"
	"github.com/pressline/pressline/pkg/persistence"
	"github.com/pressline/pressline/pkg/publisher"
	"github.com/pressline/pressline/pkg/registry"
	"github.com/pressline/pressline/pkg/retry"
)

const (
	DefaultWorkerLimit       = 4
	DefaultGenerationTimeout = 5 * time.Minute
	DefaultPublishTimeout    = 30 * time.Second
)

// Config tunes a dispatcher instance. Zero values fall back to defaults.
type Config struct {
	// WorkerLimit bounds how many publish sub-tasks run concurrently per
	// workflow.
	WorkerLimit int

	// GenerationTimeout bounds the single content generation call.
	GenerationTimeout time.Duration

	// PublishTimeout bounds each individual publish attempt.
	PublishTimeout time.Duration

	// RetryPolicy governs backoff between failed publish attempts.
	RetryPolicy retry.Policy
}

// Dispatcher is the orchestration core. Each submitted workflow runs on its
// own goroutine with a workflow-scoped context; Cancel severs that context
// and the run stops at its next checkpoint. The dispatcher is the only writer
// of workflow state, so status transitions stay monotonic.
type Dispatcher struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	generator   generator.Client
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	validate    *validator.Validate

	workerLimit       int
	generationTimeout time.Duration
	publishTimeout    time.Duration
	policy            retry.Policy

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewDispatcher(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	gen generator.Client,
	bus eventbus.EventPublisher,
	tracer trace.Tracer,
	cfg Config,
) *Dispatcher {
	if cfg.WorkerLimit <= 0 {
		cfg.WorkerLimit = DefaultWorkerLimit
	}

	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}

	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}

	if cfg.RetryPolicy.MaxAttempts <= 0 {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dispatcher")
	}

	return &Dispatcher{
		logger:            logger.With("module", "dispatcher"),
		persistence:       store,
		registry:          reg,
		generator:         gen,
		eventBus:          bus,
		tracer:            tracer,
		validate:          validator.New(),
		workerLimit:       cfg.WorkerLimit,
		generationTimeout: cfg.GenerationTimeout,
		publishTimeout:    cfg.PublishTimeout,
		policy:            cfg.RetryPolicy,
		running:           make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, persists a new pending workflow and starts its
// run asynchronously. The returned identifier is immediately queryable.
func (d *Dispatcher) Submit(ctx context.Context, params models.ContentParams, targets []*models.PublishTarget) (string, error) {
	if err := d.validateRequest(ctx, params, targets); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:            uuid.New().String(),
		Status:        models.WorkflowStatusPending,
		ContentParams: params,
		Targets:       targets,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := d.persistence.Create(ctx, workflow); err != nil {
		return "", fmt.Errorf("failed to create workflow: %w", err)
	}

	platforms := make([]string, 0, len(targets))
	for _, target := range targets {
		platforms = append(platforms, target.Platform)
	}

	d.emit(ctx, workflow.ID, events.WorkflowSubmitted{
		BaseEvent: d.newBaseEvent(events.WorkflowSubmittedEvent, workflow.ID),
		Topic:     params.Topic,
		Platforms: platforms,
	})

	// The run outlives the submission request, so it gets its own context
	// rooted at Background. Cancel severs it.
	runCtx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	d.running[workflow.ID] = cancel
	d.mu.Unlock()

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		defer d.forget(workflow.ID)
		d.run(runCtx, workflow)
	}()

	d.logger.Info("Workflow submitted", "workflow_id", workflow.ID, "platforms", platforms)

	return workflow.ID, nil
}

// GetWorkflow returns a snapshot of a workflow's current state.
func (d *Dispatcher) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return d.persistence.WorkflowByID(ctx, id)
}

// ListWorkflows lists stored workflows, optionally filtered by status.
func (d *Dispatcher) ListWorkflows(ctx context.Context, filter persistence.ListFilter) ([]*models.Workflow, error) {
	return d.persistence.Workflows(ctx, filter)
}

// Cancel requests cooperative cancellation. Cancelling a workflow that already
// reached a terminal status is acknowledged without effect; cancellation never
// rolls back publishes that already succeeded.
func (d *Dispatcher) Cancel(ctx context.Context, id string) error {
	workflow, err := d.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return err
	}

	if workflow.Status.IsTerminal() {
		d.logger.Debug("Cancel on finished workflow ignored", "workflow_id", id, "status", workflow.Status)

		return nil
	}

	d.mu.Lock()
	cancel, active := d.running[id]
	d.mu.Unlock()

	if active {
		cancel()
		d.logger.Info("Workflow cancellation requested", "workflow_id", id)

		return nil
	}

	// No live run owns this workflow (e.g. a record recovered from storage
	// after a restart), so mark it cancelled directly.
	return d.finalize(ctx, workflow, models.WorkflowStatusCancelled, "cancelled before execution")
}

// Shutdown cancels every running workflow and waits for their runs to wind
// down, or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	for _, cancel := range d.running {
		cancel()
	}
	d.mu.Unlock()

	done := make(chan struct{})

	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown aborted with workflows still running: %w", ctx.Err())
	}
}

func (d *Dispatcher) validateRequest(ctx context.Context, params models.ContentParams, targets []*models.PublishTarget) error {
	if err := d.validate.Struct(params); err != nil {
		return fmt.Errorf("%w: content params: %w", ErrInvalidRequest, err)
	}

	if len(targets) == 0 {
		return fmt.Errorf("%w: at least one publish target is required", ErrInvalidRequest)
	}

	seen := make(map[string]bool, len(targets))

	for _, target := range targets {
		if err := d.validate.Struct(target); err != nil {
			return fmt.Errorf("%w: target: %w", ErrInvalidRequest, err)
		}

		if seen[target.Platform] {
			return fmt.Errorf("%w: duplicate target platform '%s'", ErrInvalidRequest, target.Platform)
		}

		seen[target.Platform] = true

		adapter, err := d.registry.Resolve(target.Platform)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}

		if err := adapter.Validate(ctx, target.Config); err != nil {
			return fmt.Errorf("%w: target '%s': %w", ErrInvalidRequest, target.Platform, err)
		}
	}

	return nil
}

// run drives one workflow from pending to a terminal status.
func (d *Dispatcher) run(ctx context.Context, workflow *models.Workflow) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowTopicKey, workflow.ContentParams.Topic),
	)
	defer span.End()

	logger := d.logger.With("workflow_id", workflow.ID)

	article, err := d.generateContent(ctx, workflow)
	if err != nil {
		if ctx.Err() != nil {
			d.finishCancelled(workflow, logger)

			return
		}

		otelhelper.SetError(span, err)
		logger.Error("Content generation failed", "error", err)
		d.emit(context.Background(), workflow.ID, events.GenerationFailed{
			BaseEvent: d.newBaseEvent(events.GenerationFailedEvent, workflow.ID),
			Cause:     err.Error(),
		})

		if ferr := d.finalize(context.Background(), workflow, models.WorkflowStatusFailed, err.Error()); ferr != nil {
			logger.Error("Failed to persist workflow failure", "error", ferr)
		}

		return
	}

	workflow.Article = article
	workflow.Status = models.WorkflowStatusContentGenerated
	workflow.UpdatedAt = time.Now().UTC()

	if err := d.persistence.SaveWorkflow(ctx, workflow); err != nil {
		logger.Error("Failed to save generated article", "error", err)
	}

	if ctx.Err() != nil {
		d.finishCancelled(workflow, logger)

		return
	}

	d.fanOut(ctx, workflow, logger)

	if ctx.Err() != nil {
		d.finishCancelled(workflow, logger)

		return
	}

	// Reload to pick up every sub-task's result slot before aggregating.
	snapshot, err := d.persistence.WorkflowByID(context.Background(), workflow.ID)
	if err != nil {
		logger.Error("Failed to reload workflow for aggregation", "error", err)

		return
	}

	status := models.AggregateStatus(snapshot.Results)
	span.SetAttributes(attribute.String(otelhelper.WorkflowStatusKey, string(status)))

	if err := d.finalize(context.Background(), snapshot, status, ""); err != nil {
		logger.Error("Failed to persist terminal status", "error", err)

		return
	}

	logger.Info("Workflow completed", "status", status)
}

func (d *Dispatcher) generateContent(ctx context.Context, workflow *models.Workflow) (*models.Article, error) {
	workflow.Status = models.WorkflowStatusGeneratingContent
	workflow.UpdatedAt = time.Now().UTC()

	if err := d.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	d.emit(ctx, workflow.ID, events.GenerationStarted{
		BaseEvent: d.newBaseEvent(events.GenerationStartedEvent, workflow.ID),
	})

	genCtx, cancel := context.WithTimeout(ctx, d.generationTimeout)
	defer cancel()

	return d.generator.Generate(genCtx, workflow.ContentParams)
}

// fanOut runs one publish sub-task per target, bounded by the worker limit,
// and returns once every sub-task reached a terminal sub-status or gave up on
// cancellation.
func (d *Dispatcher) fanOut(ctx context.Context, workflow *models.Workflow, logger *slog.Logger) {
	now := time.Now().UTC()
	workflow.Status = models.WorkflowStatusPublishing
	workflow.UpdatedAt = now
	workflow.Results = make([]*models.PublishResult, 0, len(workflow.Targets))

	platforms := make([]string, 0, len(workflow.Targets))
	for _, target := range workflow.Targets {
		platforms = append(platforms, target.Platform)
		workflow.Results = append(workflow.Results, &models.PublishResult{
			Platform:  target.Platform,
			SubStatus: models.SubStatusPending,
			UpdatedAt: now,
		})
	}

	if err := d.persistence.SaveWorkflow(ctx, workflow); err != nil {
		logger.Error("Failed to save publishing state", "error", err)
	}

	d.emit(ctx, workflow.ID, events.PublishingStarted{
		BaseEvent: d.newBaseEvent(events.PublishingStartedEvent, workflow.ID),
		Platforms: platforms,
	})

	sem := make(chan struct{}, d.workerLimit)

	var wg sync.WaitGroup

	for _, target := range workflow.Targets {
		wg.Add(1)

		go func(target *models.PublishTarget) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				d.writeResult(workflow.ID, &models.PublishResult{
					Platform:  target.Platform,
					SubStatus: models.SubStatusFailed,
					LastError: "workflow cancelled",
					UpdatedAt: time.Now().UTC(),
				})

				return
			}

			d.publishTarget(ctx, workflow, target)
		}(target)
	}

	wg.Wait()
}

// publishTarget runs the attempt loop for one target. The idempotency token
// stays constant across attempts so platform adapters can suppress duplicates
// when a retry follows an ambiguous failure.
func (d *Dispatcher) publishTarget(ctx context.Context, workflow *models.Workflow, target *models.PublishTarget) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "workflow.publish",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.PlatformKey, target.Platform),
	)
	defer span.End()

	logger := d.logger.With("workflow_id", workflow.ID, "platform", target.Platform)
	token := workflow.ID + ":" + target.Platform

	adapter, err := d.registry.Resolve(target.Platform)
	if err != nil {
		d.failTarget(workflow.ID, target.Platform, 0, err, logger)

		return
	}

	attempt := 0

	for {
		if ctx.Err() != nil {
			d.failTarget(workflow.ID, target.Platform, attempt, fmt.Errorf("workflow cancelled: %w", ctx.Err()), logger)

			return
		}

		attempt++
		span.SetAttributes(attribute.Int(otelhelper.AttemptKey, attempt))

		d.writeResult(workflow.ID, &models.PublishResult{
			Platform:  target.Platform,
			SubStatus: models.SubStatusInProgress,
			Attempts:  attempt,
			UpdatedAt: time.Now().UTC(),
		})

		outcome, err := d.attemptPublish(ctx, adapter, workflow.Article, target.Config, token)
		if err == nil {
			d.writeResult(workflow.ID, &models.PublishResult{
				Platform:    target.Platform,
				SubStatus:   models.SubStatusSucceeded,
				Attempts:    attempt,
				ExternalRef: outcome.ExternalRef,
				UpdatedAt:   time.Now().UTC(),
			})
			d.emit(context.Background(), workflow.ID, events.TargetPublished{
				BaseEvent:   d.newBaseEvent(events.TargetPublishedEvent, workflow.ID),
				Platform:    target.Platform,
				Attempts:    attempt,
				ExternalRef: outcome.ExternalRef,
			})
			logger.Info("Target published", "attempts", attempt, "external_ref", outcome.ExternalRef)

			return
		}

		logger.Warn("Publish attempt failed", "attempt", attempt, "error", err)

		decision := d.policy.Next(attempt, err)
		if !decision.Retry {
			otelhelper.SetError(span, err)
			d.failTarget(workflow.ID, target.Platform, attempt, err, logger)

			return
		}

		timer := time.NewTimer(decision.After)

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			d.failTarget(workflow.ID, target.Platform, attempt, fmt.Errorf("workflow cancelled: %w", err), logger)

			return
		}
	}
}

func (d *Dispatcher) attemptPublish(
	ctx context.Context,
	adapter publisher.Adapter,
	article *models.Article,
	config map[string]any,
	token string,
) (*publisher.Outcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	return adapter.Publish(attemptCtx, article, config, token)
}

func (d *Dispatcher) failTarget(workflowID, platform string, attempts int, err error, logger *slog.Logger) {
	d.writeResult(workflowID, &models.PublishResult{
		Platform:  platform,
		SubStatus: models.SubStatusFailed,
		Attempts:  attempts,
		LastError: err.Error(),
		UpdatedAt: time.Now().UTC(),
	})
	d.emit(context.Background(), workflowID, events.TargetFailed{
		BaseEvent: d.newBaseEvent(events.TargetFailedEvent, workflowID),
		Platform:  platform,
		Attempts:  attempts,
		Error:     err.Error(),
	})
	logger.Error("Target publish gave up", "attempts", attempts, "error", err)
}

// writeResult persists one target's result slot. Writes happen on the
// sub-task's goroutine after the run context may already be cancelled, so
// they use a background context.
func (d *Dispatcher) writeResult(workflowID string, result *models.PublishResult) {
	if err := d.persistence.SavePublishResult(context.Background(), workflowID, result); err != nil {
		d.logger.Error("Failed to save publish result",
			"workflow_id", workflowID, "platform", result.Platform, "error", err)
	}
}

func (d *Dispatcher) finishCancelled(workflow *models.Workflow, logger *slog.Logger) {
	// Sub-task outcomes are written straight to the store, not to the local
	// object; reload before the terminal save so targets that already
	// succeeded keep their results.
	snapshot, err := d.persistence.WorkflowByID(context.Background(), workflow.ID)
	if err != nil {
		logger.Error("Failed to reload workflow for cancellation", "error", err)

		snapshot = workflow
	}

	if err := d.finalize(context.Background(), snapshot, models.WorkflowStatusCancelled, ""); err != nil {
		logger.Error("Failed to persist cancellation", "error", err)

		return
	}

	logger.Info("Workflow cancelled")
}

// finalize moves a workflow into a terminal status and announces it.
func (d *Dispatcher) finalize(ctx context.Context, workflow *models.Workflow, status models.WorkflowStatus, errorMessage string) error {
	if !workflow.Status.CanTransitionTo(status) {
		return fmt.Errorf("illegal transition from '%s' to '%s'", workflow.Status, status)
	}

	now := time.Now().UTC()
	workflow.Status = status
	workflow.ErrorMessage = errorMessage
	workflow.UpdatedAt = now
	workflow.CompletedAt = &now

	if err := d.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	if status == models.WorkflowStatusCancelled {
		d.emit(ctx, workflow.ID, events.WorkflowCancelled{
			BaseEvent: d.newBaseEvent(events.WorkflowCancelledEvent, workflow.ID),
		})
	} else {
		d.emit(ctx, workflow.ID, events.WorkflowCompleted{
			BaseEvent: d.newBaseEvent(events.WorkflowCompletedEvent, workflow.ID),
			Status:    status,
			Duration:  now.Sub(workflow.CreatedAt),
		})
	}

	return nil
}

func (d *Dispatcher) forget(workflowID string) {
	d.mu.Lock()
	delete(d.running, workflowID)
	d.mu.Unlock()
}

func (d *Dispatcher) emit(ctx context.Context, workflowID string, event eventbus.Event) {
	if d.eventBus == nil {
		return
	}

	if err := d.eventBus.Publish(ctx, workflowID, event); err != nil {
		d.logger.Warn("Failed to publish event",
			"workflow_id", workflowID, "event_type", event.GetType(), "error", err)
	}
}

func (d *Dispatcher) newBaseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}
