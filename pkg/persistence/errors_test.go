package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsPersistenceError(workflowErr))
		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
	})

	t.Run("wrapped errors are still classified", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := fmt.Errorf("failed to list workflows: %w", persistence.NewWorkflowError("List", "", cause))

		assert.True(t, persistence.IsPersistenceError(err))
		assert.False(t, persistence.IsWorkflowNotFound(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("plain errors are not persistence errors", func(t *testing.T) {
		assert.False(t, persistence.IsPersistenceError(errors.New("boom")))
		assert.False(t, persistence.IsWorkflowNotFound(nil))
	})

	t.Run("workflow error contains context", func(t *testing.T) {
		err := persistence.NewWorkflowError("UpdateStatus", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "UpdateStatus")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")
	})

	t.Run("error without id omits it", func(t *testing.T) {
		err := persistence.NewWorkflowError("List", "", errors.New("timeout"))

		assert.Equal(t, "List operation failed: timeout", err.Error())
	})
}

func TestListOptions_Matches(t *testing.T) {
	t.Parallel()

	workflow := &models.Record{Title: "w"}
	playbook := &models.Record{Title: "p", Playbook: &models.Playbook{}}

	assert.True(t, persistence.ListOptions{}.Matches(workflow))
	assert.True(t, persistence.ListOptions{}.Matches(playbook))
	assert.True(t, persistence.ListOptions{Kind: models.KindWorkflow}.Matches(workflow))
	assert.False(t, persistence.ListOptions{Kind: models.KindWorkflow}.Matches(playbook))
	assert.True(t, persistence.ListOptions{Kind: models.KindPlaybook}.Matches(playbook))
	assert.False(t, persistence.ListOptions{Kind: models.KindPlaybook}.Matches(workflow))
}
