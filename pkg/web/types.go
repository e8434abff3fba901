// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/services"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Problem any    `json:"problem,omitempty"`
}

// StepRequest is one step as sent by clients. Instructions may be blank:
// non-empty instructions are enforced by the editor, not the server.
type StepRequest struct {
	ID            models.StepID   `json:"id"`
	Instruction   string          `json:"instruction"`
	Executor      models.Executor `json:"executor"                validate:"required,oneof=ai human"`
	AssignedHuman string          `json:"assignedHuman,omitempty"`
}

// CreateWorkflowRequest represents the request body for creating a workflow or a playbook.
// A missing playbookSection is tolerated.
type CreateWorkflowRequest struct {
	Title               string                  `json:"title"                validate:"required"`
	Steps               []StepRequest           `json:"steps"                validate:"required,dive"`
	IsPlaybook          bool                    `json:"isPlaybook"`
	PlaybookDescription string                  `json:"playbook_description"`
	PlaybookSection     *models.PlaybookSection `json:"playbookSection"      validate:"omitempty,oneof=failing-to-close deals-drop-off not-moving-forward acv-off-whack"`
}

// UpdateWorkflowRequest represents the request body for updating an existing record.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Title               *string                 `json:"title,omitempty"                validate:"omitempty,min=1"`
	Steps               []StepRequest           `json:"steps,omitempty"                validate:"omitempty,dive"`
	IsPlaybook          *bool                   `json:"isPlaybook,omitempty"`
	PlaybookDescription *string                 `json:"playbook_description,omitempty"`
	PlaybookSection     *models.PlaybookSection `json:"playbookSection,omitempty"      validate:"omitempty,oneof=failing-to-close deals-drop-off not-moving-forward acv-off-whack"`
}

type UpdateStatusRequest struct {
	IsRunning *bool `json:"isRunning" validate:"required"`
}

func toSteps(requests []StepRequest) []models.Step {
	if requests == nil {
		return nil
	}

	steps := make([]models.Step, len(requests))

	for i, req := range requests {
		steps[i] = models.Step{
			ID:            req.ID,
			Instruction:   req.Instruction,
			Executor:      req.Executor,
			AssignedHuman: req.AssignedHuman,
		}
	}

	return steps
}

// CreateInput converts the request into the service input.
func (r CreateWorkflowRequest) CreateInput() services.CreateInput {
	input := services.CreateInput{
		Title:               r.Title,
		Steps:               toSteps(r.Steps),
		IsPlaybook:          r.IsPlaybook,
		PlaybookDescription: r.PlaybookDescription,
	}

	if r.PlaybookSection != nil {
		input.PlaybookSection = *r.PlaybookSection
	}

	return input
}

// Patch converts the request into a record patch.
func (r UpdateWorkflowRequest) Patch() models.Patch {
	return models.Patch{
		Title:               r.Title,
		Steps:               toSteps(r.Steps),
		IsPlaybook:          r.IsPlaybook,
		PlaybookDescription: r.PlaybookDescription,
		PlaybookSection:     r.PlaybookSection,
	}
}
