// Package events defines the workflow lifecycle notifications published on the
// event bus so the dashboard and sibling services can follow progress.
package events

import (
	"time"

	"github.com/pressline/pressline/pkg/models"
)

type EventType string

// Topic carries every workflow lifecycle event.
const Topic = "pressline.workflow.events"

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowSubmittedEvent EventType = "workflow.submitted"
	GenerationStartedEvent EventType = "workflow.generation.started"
	GenerationFailedEvent  EventType = "workflow.generation.failed"
	PublishingStartedEvent EventType = "workflow.publishing.started"
	TargetPublishedEvent   EventType = "workflow.target.published"
	TargetFailedEvent      EventType = "workflow.target.failed"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

type WorkflowSubmitted struct {
	BaseEvent

	Topic     string   `json:"topic"`
	Platforms []string `json:"platforms"`
}

func (e WorkflowSubmitted) GetType() EventType {
	return WorkflowSubmittedEvent
}

type GenerationStarted struct {
	BaseEvent
}

func (e GenerationStarted) GetType() EventType {
	return GenerationStartedEvent
}

type GenerationFailed struct {
	BaseEvent

	Cause string `json:"cause"`
}

func (e GenerationFailed) GetType() EventType {
	return GenerationFailedEvent
}

type PublishingStarted struct {
	BaseEvent

	Platforms []string `json:"platforms"`
}

func (e PublishingStarted) GetType() EventType {
	return PublishingStartedEvent
}

type TargetPublished struct {
	BaseEvent

	Platform    string `json:"platform"`
	Attempts    int    `json:"attempts"`
	ExternalRef string `json:"external_ref,omitempty"`
}

func (e TargetPublished) GetType() EventType {
	return TargetPublishedEvent
}

type TargetFailed struct {
	BaseEvent

	Platform string `json:"platform"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

func (e TargetFailed) GetType() EventType {
	return TargetFailedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Status   models.WorkflowStatus `json:"status"`
	Duration time.Duration         `json:"duration"`
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowCancelled struct {
	BaseEvent
}

func (e WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}
