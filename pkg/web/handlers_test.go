package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pressline/pressline/pkg/dispatcher"
	"github.com/pressline/pressline/pkg/mocks"
	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/persistence/memory"
	"github.com/pressline/pressline/pkg/publisher"
	"github.com/pressline/pressline/pkg/registry"
	"github.com/pressline/pressline/pkg/retry"
	"github.com/pressline/pressline/pkg/web"
)

type stubAdapter struct {
	platform string
}

func (a *stubAdapter) ID() string {
	return a.platform
}

func (a *stubAdapter) Validate(_ context.Context, _ map[string]any) error {
	return nil
}

func (a *stubAdapter) Publish(_ context.Context, _ *models.Article, _ map[string]any, _ string) (*publisher.Outcome, error) {
	return &publisher.Outcome{ExternalRef: "https://" + a.platform + ".example.com/post/1"}, nil
}

type stubGenerator struct{}

func (g *stubGenerator) Generate(_ context.Context, params models.ContentParams) (*models.Article, error) {
	return &models.Article{
		Title: params.Topic,
		Body:  "Generated body.",
	}, nil
}

func setupTestApp(t *testing.T) (*fiber.App, *memory.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewPersistence()
	validate := validator.New(validator.WithRequiredStructEnabled())

	registryInstance := registry.NewRegistry(logger)
	registryInstance.Register(&stubAdapter{platform: "wordpress"})
	registryInstance.Register(&stubAdapter{platform: "instagram"})

	d := dispatcher.NewDispatcher(logger, store, registryInstance, &stubGenerator{}, nil, nil, dispatcher.Config{
		RetryPolicy: retry.Policy{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			Multiplier:  1,
			MaxDelay:    time.Millisecond,
		},
	})

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = d.Shutdown(shutdownCtx)
	})

	handlers := web.NewAPIHandlers(d, store, registryInstance, validate)

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)
	app.Get("/platforms", handlers.GetPlatforms)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.SubmitWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/cancel", handlers.CancelWorkflow)

	return app, store
}

func submitRequest(body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/workflows/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func validSubmission() web.SubmitWorkflowRequest {
	return web.SubmitWorkflowRequest{
		Params: models.ContentParams{Topic: "Observability on a budget"},
		Targets: []*models.PublishTarget{
			{Platform: "wordpress"},
		},
	}
}

func TestAPIHandlers_SubmitWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(submitRequest(validSubmission()))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result web.SubmitWorkflowResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, models.WorkflowStatusPending, result.Status)
}

func TestAPIHandlers_SubmitWorkflowValidation(t *testing.T) {
	app, _ := setupTestApp(t)

	tests := []struct {
		name string
		body web.SubmitWorkflowRequest
	}{
		{
			name: "missing topic",
			body: web.SubmitWorkflowRequest{
				Targets: []*models.PublishTarget{{Platform: "wordpress"}},
			},
		},
		{
			name: "no targets",
			body: web.SubmitWorkflowRequest{
				Params: models.ContentParams{Topic: "Observability on a budget"},
			},
		},
		{
			name: "unknown platform",
			body: web.SubmitWorkflowRequest{
				Params:  models.ContentParams{Topic: "Observability on a budget"},
				Targets: []*models.PublishTarget{{Platform: "geocities"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(submitRequest(tt.body))
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPIHandlers_SubmitWorkflowMalformedJSON(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/workflows/", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(submitRequest(validSubmission()))
	require.NoError(t, err)

	var submitted web.SubmitWorkflowResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	resp.Body.Close()

	getResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/"+submitted.ID, nil))
	require.NoError(t, err)

	defer getResp.Body.Close()

	assert.Equal(t, http.StatusOK, getResp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&workflow))
	assert.Equal(t, submitted.ID, workflow.ID)
}

func TestAPIHandlers_GetWorkflowNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/no-such-id", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetWorkflows(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(submitRequest(validSubmission()))
	require.NoError(t, err)
	resp.Body.Close()

	listResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/", nil))
	require.NoError(t, err)

	defer listResp.Body.Close()

	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	var result web.ListWorkflowsResponse
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&result))
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Workflows, 1)
}

func TestAPIHandlers_GetWorkflowsRejectsBadLimit(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/?limit=lots", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_CancelWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(submitRequest(validSubmission()))
	require.NoError(t, err)

	var submitted web.SubmitWorkflowResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	resp.Body.Close()

	cancelResp, err := app.Test(httptest.NewRequest(http.MethodPost, "/workflows/"+submitted.ID+"/cancel", nil))
	require.NoError(t, err)

	defer cancelResp.Body.Close()

	assert.Equal(t, http.StatusAccepted, cancelResp.StatusCode)
}

func TestAPIHandlers_CancelUnknownWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/workflows/no-such-id/cancel", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetPlatforms(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/platforms", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Platforms []string `json:"platforms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, []string{"instagram", "wordpress"}, result.Platforms)
}

func TestAPIHandlers_HealthCheckUnhealthyStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := &mocks.Persistence{}
	store.On("HealthCheck", mock.Anything).Return(errors.New("connection refused"))

	registryInstance := registry.NewRegistry(logger)
	registryInstance.Register(&stubAdapter{platform: "wordpress"})

	d := dispatcher.NewDispatcher(logger, store, registryInstance, &stubGenerator{}, nil, nil, dispatcher.Config{})
	handlers := web.NewAPIHandlers(d, store, registryInstance, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Get("/health", handlers.HealthCheck)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "unhealthy", result["status"])
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "healthy", result["status"])
}
