// Package persistencetest holds the behaviour every persistence backend must share.
package persistencetest

import (
	"testing"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backend for one subtest.
type Factory func(t *testing.T) persistence.Persistence

// RunWorkflowRepositoryTests runs the repository contract against a backend.
func RunWorkflowRepositoryTests(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("save and get round trip", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now(), func(r *models.Record) {
			r.Playbook = &models.Playbook{Section: models.SectionDealsDropOff, Description: "keep deals alive"}
		})

		require.NoError(t, repo.Save(ctx, record))

		got, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		AssertSameRecord(t, record, got)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()

		got, err := repo.GetByID(t.Context(), uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list empty", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()

		records, err := repo.List(t.Context(), persistence.ListOptions{Kind: models.KindWorkflow})
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("list partitions by kind newest first", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()
		base := time.Now().Add(-time.Hour)

		oldWorkflow := NewRecord(base, WithTitle("old workflow"))
		newWorkflow := NewRecord(base.Add(2*time.Minute), WithTitle("new workflow"))
		playbook := NewRecord(base.Add(time.Minute), WithTitle("playbook"), func(r *models.Record) {
			r.Playbook = &models.Playbook{Section: models.SectionFailingToClose}
		})

		for _, r := range []*models.Record{oldWorkflow, playbook, newWorkflow} {
			require.NoError(t, repo.Save(ctx, r))
		}

		workflows, err := repo.List(ctx, persistence.ListOptions{Kind: models.KindWorkflow})
		require.NoError(t, err)
		require.Len(t, workflows, 2)
		assert.Equal(t, newWorkflow.ID, workflows[0].ID)
		assert.Equal(t, oldWorkflow.ID, workflows[1].ID)

		for _, w := range workflows {
			assert.False(t, w.IsPlaybook())
		}

		playbooks, err := repo.List(ctx, persistence.ListOptions{Kind: models.KindPlaybook})
		require.NoError(t, err)
		require.Len(t, playbooks, 1)
		assert.Equal(t, playbook.ID, playbooks[0].ID)
		assert.True(t, playbooks[0].IsPlaybook())

		all, err := repo.List(ctx, persistence.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("save overwrites and moves between kinds", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now())
		require.NoError(t, repo.Save(ctx, record))

		record.Title = "now a playbook"
		record.Steps = append(record.Steps, models.Step{
			ID:            models.StringStepID("second"),
			Instruction:   "call the champion",
			Executor:      models.ExecutorHuman,
			AssignedHuman: models.HumanJasonMao,
		})
		record.Playbook = &models.Playbook{Section: models.SectionACVOffWhack}
		record.UpdatedAt = record.UpdatedAt.Add(time.Second)
		require.NoError(t, repo.Save(ctx, record))

		got, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		AssertSameRecord(t, record, got)

		workflows, err := repo.List(ctx, persistence.ListOptions{Kind: models.KindWorkflow})
		require.NoError(t, err)
		assert.Empty(t, workflows)

		playbooks, err := repo.List(ctx, persistence.ListOptions{Kind: models.KindPlaybook})
		require.NoError(t, err)
		require.Len(t, playbooks, 1)
		assert.Equal(t, record.ID, playbooks[0].ID)
	})

	t.Run("update touches only patched fields", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now().Add(-time.Minute))
		require.NoError(t, repo.Save(ctx, record))
		require.NoError(t, repo.UpdateStatus(ctx, record.ID, true, record.UpdatedAt.Add(time.Second)))

		title := "renamed"
		updatedAt := record.UpdatedAt.Add(time.Minute)

		updated, err := repo.Update(ctx, record.ID, models.Patch{Title: &title}, updatedAt)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "renamed", updated.Title)

		got, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "renamed", got.Title)
		assert.True(t, got.IsRunning)
		assert.Equal(t, record.Steps, got.Steps)
		assert.Nil(t, got.Playbook)
		assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, updatedAt.Equal(got.UpdatedAt), "updatedAt %s != %s", updatedAt, got.UpdatedAt)
	})

	t.Run("update promotes and demotes between kinds", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now())
		require.NoError(t, repo.Save(ctx, record))

		promote := true
		section := models.SectionDealsDropOff
		description := "keep deals alive"

		updated, err := repo.Update(ctx, record.ID, models.Patch{
			IsPlaybook:          &promote,
			PlaybookSection:     &section,
			PlaybookDescription: &description,
		}, record.UpdatedAt.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, &models.Playbook{Section: section, Description: description}, updated.Playbook)

		playbooks, err := repo.List(ctx, persistence.ListOptions{Kind: models.KindPlaybook})
		require.NoError(t, err)
		require.Len(t, playbooks, 1)

		demote := false

		updated, err = repo.Update(ctx, record.ID, models.Patch{
			IsPlaybook:      &demote,
			PlaybookSection: &section,
		}, record.UpdatedAt.Add(2*time.Second))
		require.NoError(t, err)
		assert.Nil(t, updated.Playbook)

		playbooks, err = repo.List(ctx, persistence.ListOptions{Kind: models.KindPlaybook})
		require.NoError(t, err)
		assert.Empty(t, playbooks)

		workflows, err := repo.List(ctx, persistence.ListOptions{Kind: models.KindWorkflow})
		require.NoError(t, err)
		require.Len(t, workflows, 1)
		assert.Equal(t, record.ID, workflows[0].ID)
	})

	t.Run("update ignores playbook fields on a workflow", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now())
		require.NoError(t, repo.Save(ctx, record))

		section := models.SectionACVOffWhack

		updated, err := repo.Update(ctx, record.ID, models.Patch{PlaybookSection: &section}, record.UpdatedAt)
		require.NoError(t, err)
		assert.Nil(t, updated.Playbook)
		assert.False(t, updated.IsPlaybook())
	})

	t.Run("update of missing record", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()
		id := uuid.NewString()
		title := "ghost"

		updated, err := repo.Update(ctx, id, models.Patch{Title: &title}, time.Now())
		require.Error(t, err)
		assert.True(t, persistence.IsWorkflowNotFound(err))
		assert.Nil(t, updated)

		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update status touches only status and timestamp", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now().Add(-time.Minute))
		require.NoError(t, repo.Save(ctx, record))

		updatedAt := record.UpdatedAt.Add(time.Minute)
		require.NoError(t, repo.UpdateStatus(ctx, record.ID, true, updatedAt))

		got, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.True(t, got.IsRunning)
		assert.True(t, updatedAt.Equal(got.UpdatedAt), "updatedAt %s != %s", updatedAt, got.UpdatedAt)
		assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, record.Title, got.Title)
		assert.Equal(t, record.Steps, got.Steps)
	})

	t.Run("update status of missing record", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()

		err := repo.UpdateStatus(t.Context(), uuid.NewString(), true, time.Now())
		require.Error(t, err)
		assert.True(t, persistence.IsWorkflowNotFound(err))
	})

	t.Run("delete removes the record", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()
		ctx := t.Context()

		record := NewRecord(time.Now())
		require.NoError(t, repo.Save(ctx, record))
		require.NoError(t, repo.Delete(ctx, record.ID))

		got, err := repo.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		all, err := repo.List(ctx, persistence.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("delete missing record", func(t *testing.T) {
		repo := factory(t).WorkflowRepository()

		err := repo.Delete(t.Context(), uuid.NewString())
		require.Error(t, err)
		assert.True(t, persistence.IsWorkflowNotFound(err))
	})

	t.Run("health check", func(t *testing.T) {
		p := factory(t)

		assert.NoError(t, p.HealthCheck(t.Context()))
	})
}

// NewRecord builds a workflow record created at the given instant.
func NewRecord(createdAt time.Time, overrides ...func(*models.Record)) *models.Record {
	createdAt = createdAt.UTC().Truncate(time.Microsecond)

	record := &models.Record{
		ID:    uuid.Must(uuid.NewV7()).String(),
		Title: "After discovery calls",
		Steps: []models.Step{
			{
				ID:          models.NumericStepID(1712000000000),
				Instruction: "Pull all the call recordings from today's discovery calls",
				Executor:    models.ExecutorAI,
			},
			{
				ID:            models.NumericStepID(1712000000001),
				Instruction:   "Review the summary",
				Executor:      models.ExecutorHuman,
				AssignedHuman: models.HumanFemiIbrahim,
			},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// WithTitle sets the record title.
func WithTitle(title string) func(*models.Record) {
	return func(r *models.Record) {
		r.Title = title
	}
}

// AssertSameRecord compares two records field by field, timestamps by instant.
func AssertSameRecord(t *testing.T, want, got *models.Record) {
	t.Helper()

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Steps, got.Steps)
	assert.Equal(t, want.IsRunning, got.IsRunning)
	assert.Equal(t, want.Playbook, got.Playbook)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %s != %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %s != %s", want.UpdatedAt, got.UpdatedAt)
}
