// Package web provides the REST API for submitting and tracking publishing
// workflows.
package web

import "github.com/pressline/pressline/pkg/models"

// SubmitWorkflowRequest is the request body for submitting a workflow.
type SubmitWorkflowRequest struct {
	Params  models.ContentParams    `json:"params"  validate:"required"`
	Targets []*models.PublishTarget `json:"targets" validate:"required,min=1,dive,required"`
}

// SubmitWorkflowResponse acknowledges an accepted submission. The workflow
// runs asynchronously; callers poll the status endpoint with the returned ID.
type SubmitWorkflowResponse struct {
	ID     string                `json:"id"`
	Status models.WorkflowStatus `json:"status"`
}

// ListWorkflowsResponse wraps a workflow listing.
type ListWorkflowsResponse struct {
	Workflows []*models.Workflow `json:"workflows"`
	Count     int                `json:"count"`
}
