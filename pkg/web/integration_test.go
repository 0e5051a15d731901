package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressline/pressline/pkg/models"
	"github.com/pressline/pressline/pkg/web"
)

// TestWorkflowLifecycleOverHTTP drives a workflow end to end through the REST
// surface: submit, poll until terminal, then verify the final record.
func TestWorkflowLifecycleOverHTTP(t *testing.T) {
	app, store := setupTestApp(t)

	submission := web.SubmitWorkflowRequest{
		Params: models.ContentParams{Topic: "Shipping a side project"},
		Targets: []*models.PublishTarget{
			{Platform: "wordpress"},
			{Platform: "instagram"},
		},
	}

	resp, err := app.Test(submitRequest(submission))
	require.NoError(t, err)

	var submitted web.SubmitWorkflowResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	resp.Body.Close()

	require.Eventually(t, func() bool {
		workflow, err := store.WorkflowByID(context.Background(), submitted.ID)

		return err == nil && workflow.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)

	getResp, err := app.Test(httptest.NewRequest(http.MethodGet, "/workflows/"+submitted.ID, nil))
	require.NoError(t, err)

	defer getResp.Body.Close()

	var workflow models.Workflow
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&workflow))

	assert.Equal(t, models.WorkflowStatusPublished, workflow.Status)
	require.NotNil(t, workflow.Article)
	assert.Equal(t, "Shipping a side project", workflow.Article.Title)
	require.Len(t, workflow.Results, 2)

	for _, result := range workflow.Results {
		assert.Equal(t, models.SubStatusSucceeded, result.SubStatus)
		assert.NotEmpty(t, result.ExternalRef)
	}

	require.NotNil(t, workflow.CompletedAt)
}
