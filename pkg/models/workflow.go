// Package models defines the core domain models for content publishing workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a publishing workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending            WorkflowStatus = "pending"
	WorkflowStatusGeneratingContent  WorkflowStatus = "generating_content"
	WorkflowStatusContentGenerated   WorkflowStatus = "content_generated"
	WorkflowStatusPublishing         WorkflowStatus = "publishing"
	WorkflowStatusPublished          WorkflowStatus = "published"
	WorkflowStatusPartiallyPublished WorkflowStatus = "partially_published"
	WorkflowStatusFailed             WorkflowStatus = "failed"
	WorkflowStatusCancelled          WorkflowStatus = "cancelled"
)

// IsTerminal reports whether the status is final. Terminal workflows are immutable.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowStatusPublished,
		WorkflowStatusPartiallyPublished,
		WorkflowStatusFailed,
		WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// statusRank orders statuses along the state machine so transitions stay monotonic.
// Terminal statuses share the highest rank; they are reachable from any non-terminal
// state but never from each other.
var statusRank = map[WorkflowStatus]int{
	WorkflowStatusPending:            0,
	WorkflowStatusGeneratingContent:  1,
	WorkflowStatusContentGenerated:   2,
	WorkflowStatusPublishing:         3,
	WorkflowStatusPublished:          4,
	WorkflowStatusPartiallyPublished: 4,
	WorkflowStatusFailed:             4,
	WorkflowStatusCancelled:          4,
}

// CanTransitionTo reports whether moving from s to next is a legal forward move.
func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	if s.IsTerminal() {
		return false
	}

	return statusRank[next] > statusRank[s]
}

// Workflow is one end-to-end request to generate an article and publish it to one
// or more targets. It is the only shared mutable state per workflow; the dispatcher
// owns every transition.
type Workflow struct {
	ID            string           `json:"id"`
	Status        WorkflowStatus   `json:"status"`
	ContentParams ContentParams    `json:"content_params"`
	Targets       []*PublishTarget `json:"targets"`
	Article       *Article         `json:"article,omitempty"`
	Results       []*PublishResult `json:"results,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	Metadata      map[string]any   `json:"metadata,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// ResultFor returns the publish result slot for the given platform, or nil if
// fan-out has not started.
func (w *Workflow) ResultFor(platform string) *PublishResult {
	for _, r := range w.Results {
		if r.Platform == platform {
			return r
		}
	}

	return nil
}

// AggregateStatus computes the terminal workflow status from per-target results.
// The overall status is a pure function of its sub-results: all succeeded means
// published, all failed means failed, anything mixed is partially published so
// callers can tell partial failures apart from full success.
func AggregateStatus(results []*PublishResult) WorkflowStatus {
	succeeded := 0
	failed := 0

	for _, r := range results {
		switch r.SubStatus {
		case SubStatusSucceeded:
			succeeded++
		case SubStatusFailed:
			failed++
		}
	}

	switch {
	case succeeded == len(results):
		return WorkflowStatusPublished
	case failed == len(results):
		return WorkflowStatusFailed
	default:
		return WorkflowStatusPartiallyPublished
	}
}
