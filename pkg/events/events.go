// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"errors"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic every lifecycle event is published to.
const Topic = "playbook.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent       EventType = "workflow.created"
	WorkflowUpdatedEvent       EventType = "workflow.updated"
	WorkflowStatusChangedEvent EventType = "workflow.status_changed"
	WorkflowDeletedEvent       EventType = "workflow.deleted"
)

var errMissingWorkflowID = errors.New("workflow_id is required")

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

func (b BaseEvent) Validate() error {
	if b.WorkflowID == "" {
		return errMissingWorkflowID
	}

	return nil
}

// WorkflowCreated is published after a workflow or playbook is stored for the first time.
type WorkflowCreated struct {
	BaseEvent

	Kind      models.Kind `json:"kind"`
	Title     string      `json:"title"`
	StepCount int         `json:"step_count"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

func NewWorkflowCreated(record *models.Record) *WorkflowCreated {
	return &WorkflowCreated{
		BaseEvent: NewBaseEvent(WorkflowCreatedEvent, record.ID),
		Kind:      record.Kind(),
		Title:     record.Title,
		StepCount: len(record.Steps),
	}
}

// WorkflowUpdated is published after a partial update, listing the fields it carried.
type WorkflowUpdated struct {
	BaseEvent

	Kind   models.Kind `json:"kind"`
	Fields []string    `json:"fields"`
}

func (w WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

func NewWorkflowUpdated(record *models.Record, fields []string) *WorkflowUpdated {
	return &WorkflowUpdated{
		BaseEvent: NewBaseEvent(WorkflowUpdatedEvent, record.ID),
		Kind:      record.Kind(),
		Fields:    fields,
	}
}

// WorkflowStatusChanged is published when a workflow is started or stopped.
type WorkflowStatusChanged struct {
	BaseEvent

	IsRunning bool `json:"is_running"`
}

func (w WorkflowStatusChanged) GetType() EventType {
	return WorkflowStatusChangedEvent
}

func NewWorkflowStatusChanged(workflowID string, running bool) *WorkflowStatusChanged {
	return &WorkflowStatusChanged{
		BaseEvent: NewBaseEvent(WorkflowStatusChangedEvent, workflowID),
		IsRunning: running,
	}
}

type WorkflowDeleted struct {
	BaseEvent

	Kind models.Kind `json:"kind"`
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

func NewWorkflowDeleted(record *models.Record) *WorkflowDeleted {
	return &WorkflowDeleted{
		BaseEvent: NewBaseEvent(WorkflowDeletedEvent, record.ID),
		Kind:      record.Kind(),
	}
}

// New returns an empty event of the given type, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case WorkflowCreatedEvent:
		return &WorkflowCreated{}, true
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}, true
	case WorkflowStatusChangedEvent:
		return &WorkflowStatusChanged{}, true
	case WorkflowDeletedEvent:
		return &WorkflowDeleted{}, true
	default:
		return nil, false
	}
}
