package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/pressline/pressline/pkg/dispatcher"
	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/persistence"
	"github.com/pressline/pressline/pkg/registry"
)

type APIHandlers struct {
	dispatcher  *dispatcher.Dispatcher
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *validator.Validate
}

func NewAPIHandlers(
	d *dispatcher.Dispatcher,
	store persistence.Persistence,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		dispatcher:  d,
		persistence: store,
		registry:    reg,
		validator:   validate,
	}
}

// SubmitWorkflow accepts a new publishing workflow and returns 202 with its
// identifier. The run proceeds asynchronously.
func (h *APIHandlers) SubmitWorkflow(c fiber.Ctx) error {
	var req SubmitWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	id, err := h.dispatcher.Submit(c.Context(), req.Params, req.Targets)
	if err != nil {
		return handleDispatcherError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(SubmitWorkflowResponse{
		ID:     id,
		Status: models.WorkflowStatusPending,
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.dispatcher.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleDispatcherError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	filter, err := h.parseListFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	workflows, err := h.dispatcher.ListWorkflows(c.Context(), *filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(ListWorkflowsResponse{
		Workflows: workflows,
		Count:     len(workflows),
	})
}

func (h *APIHandlers) parseListFilter(c fiber.Ctx) (*persistence.ListFilter, error) {
	filter := &persistence.ListFilter{}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		filter.Status = &status
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		filter.Limit = limit
	}

	return filter, nil
}

// CancelWorkflow requests cooperative cancellation. Cancelling a finished
// workflow is acknowledged without effect.
func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.dispatcher.Cancel(c.Context(), id); err != nil {
		return handleDispatcherError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"acknowledged": true})
}

func (h *APIHandlers) GetPlatforms(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"platforms": h.registry.Platforms(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck := "ok"
	repOk := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
		repOk = false
	}

	status := "unhealthy"
	message := "Pressline API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Pressline API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
