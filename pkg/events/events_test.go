package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/playbook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowCreated_JSONSerialization(t *testing.T) {
	record := &models.Record{
		ID:       "wf-1",
		Title:    "Recover stalled deals",
		Steps:    []models.Step{{ID: models.NumericStepID(1), Instruction: "a", Executor: models.ExecutorAI}},
		Playbook: &models.Playbook{Section: models.SectionDealsDropOff},
	}

	original := NewWorkflowCreated(record)

	jsonData, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"workflow_id":"wf-1"`)
	assert.Contains(t, string(jsonData), `"kind":"playbook"`)
	assert.Contains(t, string(jsonData), `"type":"workflow.created"`)

	var deserialized WorkflowCreated

	require.NoError(t, json.Unmarshal(jsonData, &deserialized))

	assert.Equal(t, original.ID, deserialized.ID)
	assert.Equal(t, original.Title, deserialized.Title)
	assert.Equal(t, 1, deserialized.StepCount)
	assert.Equal(t, WorkflowCreatedEvent, deserialized.GetType())
}

func TestEvents_GetType(t *testing.T) {
	record := &models.Record{ID: "wf-2"}

	tests := []struct {
		name  string
		event interface{ GetType() EventType }
		want  EventType
	}{
		{name: "created", event: NewWorkflowCreated(record), want: WorkflowCreatedEvent},
		{name: "updated", event: NewWorkflowUpdated(record, []string{"title"}), want: WorkflowUpdatedEvent},
		{name: "status changed", event: NewWorkflowStatusChanged("wf-2", true), want: WorkflowStatusChangedEvent},
		{name: "deleted", event: NewWorkflowDeleted(record), want: WorkflowDeletedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.GetType())

			empty, ok := New(tt.want)
			require.True(t, ok)
			assert.IsType(t, tt.event, empty)
		})
	}

	_, ok := New("workflow.unknown")
	assert.False(t, ok)
}

func TestBaseEvent_Validate(t *testing.T) {
	assert.NoError(t, NewBaseEvent(WorkflowDeletedEvent, "wf-3").Validate())
	assert.Error(t, NewBaseEvent(WorkflowDeletedEvent, "").Validate())
}
