// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/google/uuid"
)

// CreateTestRecord creates a workflow record with default values that can be overridden.
func CreateTestRecord(overrides ...func(*models.Record)) *models.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)

	record := &models.Record{
		ID:    uuid.Must(uuid.NewV7()).String(),
		Title: "Test Workflow",
		Steps: []models.Step{
			CreateTestStep(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(record)
	}

	return record
}

// CreateTestStep creates an AI step with default values that can be overridden.
func CreateTestStep(overrides ...func(*models.Step)) models.Step {
	step := models.Step{
		ID:          models.NumericStepID(time.Now().UnixMilli()),
		Instruction: "Summarise today's discovery calls",
		Executor:    models.ExecutorAI,
	}

	for _, override := range overrides {
		override(&step)
	}

	return step
}

// WithPlaybook turns the record into a playbook of the given section.
func WithPlaybook(section models.PlaybookSection, description string) func(*models.Record) {
	return func(r *models.Record) {
		r.Playbook = &models.Playbook{Section: section, Description: description}
	}
}

// WithRunning sets the running flag.
func WithRunning(running bool) func(*models.Record) {
	return func(r *models.Record) {
		r.IsRunning = running
	}
}

// WithTitle sets the record title.
func WithTitle(title string) func(*models.Record) {
	return func(r *models.Record) {
		r.Title = title
	}
}

// WithSteps replaces the record steps.
func WithSteps(steps ...models.Step) func(*models.Record) {
	return func(r *models.Record) {
		r.Steps = steps
	}
}

// WithCreatedAt sets both timestamps.
func WithCreatedAt(t time.Time) func(*models.Record) {
	return func(r *models.Record) {
		r.CreatedAt = t.UTC().Truncate(time.Microsecond)
		r.UpdatedAt = r.CreatedAt
	}
}

// WithHumanExecutor assigns the step to a person.
func WithHumanExecutor(name string) func(*models.Step) {
	return func(s *models.Step) {
		s.Executor = models.ExecutorHuman
		s.AssignedHuman = name
	}
}
