package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowStatus_IsTerminal(t *testing.T) {
	terminal := []WorkflowStatus{
		WorkflowStatusPublished,
		WorkflowStatusPartiallyPublished,
		WorkflowStatusFailed,
		WorkflowStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "expected %s to be terminal", s)
	}

	running := []WorkflowStatus{
		WorkflowStatusPending,
		WorkflowStatusGeneratingContent,
		WorkflowStatusContentGenerated,
		WorkflowStatusPublishing,
	}
	for _, s := range running {
		assert.False(t, s.IsTerminal(), "expected %s to be non-terminal", s)
	}
}

func TestWorkflowStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, WorkflowStatusPending.CanTransitionTo(WorkflowStatusGeneratingContent))
	assert.True(t, WorkflowStatusGeneratingContent.CanTransitionTo(WorkflowStatusContentGenerated))
	assert.True(t, WorkflowStatusContentGenerated.CanTransitionTo(WorkflowStatusPublishing))
	assert.True(t, WorkflowStatusPublishing.CanTransitionTo(WorkflowStatusPublished))

	// Cancellation is reachable from every non-terminal state.
	assert.True(t, WorkflowStatusPending.CanTransitionTo(WorkflowStatusCancelled))
	assert.True(t, WorkflowStatusGeneratingContent.CanTransitionTo(WorkflowStatusCancelled))
	assert.True(t, WorkflowStatusPublishing.CanTransitionTo(WorkflowStatusCancelled))

	// No backward moves.
	assert.False(t, WorkflowStatusPublishing.CanTransitionTo(WorkflowStatusPending))
	assert.False(t, WorkflowStatusContentGenerated.CanTransitionTo(WorkflowStatusGeneratingContent))

	// Terminal states are frozen.
	assert.False(t, WorkflowStatusPublished.CanTransitionTo(WorkflowStatusFailed))
	assert.False(t, WorkflowStatusCancelled.CanTransitionTo(WorkflowStatusPublished))
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []PublishSubStatus
		expected WorkflowStatus
	}{
		{
			name:     "all succeeded",
			statuses: []PublishSubStatus{SubStatusSucceeded, SubStatusSucceeded},
			expected: WorkflowStatusPublished,
		},
		{
			name:     "all failed",
			statuses: []PublishSubStatus{SubStatusFailed, SubStatusFailed},
			expected: WorkflowStatusFailed,
		},
		{
			name:     "mixed outcome",
			statuses: []PublishSubStatus{SubStatusSucceeded, SubStatusFailed},
			expected: WorkflowStatusPartiallyPublished,
		},
		{
			name:     "single success",
			statuses: []PublishSubStatus{SubStatusSucceeded},
			expected: WorkflowStatusPublished,
		},
		{
			name:     "single failure",
			statuses: []PublishSubStatus{SubStatusFailed},
			expected: WorkflowStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]*PublishResult, 0, len(tt.statuses))
			for i, s := range tt.statuses {
				results = append(results, &PublishResult{
					Platform:  string(rune('a' + i)),
					SubStatus: s,
				})
			}

			assert.Equal(t, tt.expected, AggregateStatus(results))
		})
	}
}

func TestWorkflow_ResultFor(t *testing.T) {
	w := &Workflow{
		Results: []*PublishResult{
			{Platform: "wordpress", SubStatus: SubStatusSucceeded},
			{Platform: "instagram", SubStatus: SubStatusPending},
		},
	}

	r := w.ResultFor("instagram")
	assert.NotNil(t, r)
	assert.Equal(t, SubStatusPending, r.SubStatus)

	assert.Nil(t, w.ResultFor("medium"))
}

func TestArticle_FeaturedImage(t *testing.T) {
	a := &Article{}
	assert.Empty(t, a.FeaturedImage())

	a.MediaRefs = []string{"https://cdn.example.com/img.png", "https://cdn.example.com/other.png"}
	assert.Equal(t, "https://cdn.example.com/img.png", a.FeaturedImage())
}
