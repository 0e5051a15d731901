package models

import "time"

// PublishTarget identifies where to publish: a platform key resolved through the
// adapter registry plus an opaque per-target configuration payload.
type PublishTarget struct {
	Platform string         `json:"platform"         validate:"required"`
	Config   map[string]any `json:"config,omitempty"`
}

// PublishSubStatus is the state of a single publish sub-task.
type PublishSubStatus string

const (
	SubStatusPending    PublishSubStatus = "pending"
	SubStatusInProgress PublishSubStatus = "in_progress"
	SubStatusSucceeded  PublishSubStatus = "succeeded"
	SubStatusFailed     PublishSubStatus = "failed"
)

// IsTerminal reports whether the sub-task finished, one way or the other.
func (s PublishSubStatus) IsTerminal() bool {
	return s == SubStatusSucceeded || s == SubStatusFailed
}

// PublishResult tracks the outcome of publishing to one target. Results are
// created 1:1 with targets once content generation succeeds and each slot is
// written only by its own sub-task.
type PublishResult struct {
	Platform    string           `json:"platform"`
	SubStatus   PublishSubStatus `json:"sub_status"`
	Attempts    int              `json:"attempts"`
	LastError   string           `json:"last_error,omitempty"`
	ExternalRef string           `json:"external_ref,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
