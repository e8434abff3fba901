// Package web provides HTTP handlers and REST API endpoints for workflow and playbook management.
package web

import (
	"net/http"
	"time"

	"github.com/dukex/playbook/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const (
	invalidBodyMessage      = "Invalid request body"
	workflowNotFoundMessage = "Workflow not found"
	playbookNotFoundMessage = "Playbook not found"
)

type APIHandlers struct {
	workflowService *services.Workflow
	validator       *validator.Validate
}

func NewAPIHandlers(workflowService *services.Workflow, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		validator:       validator,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.ListWorkflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetPlaybooks(c fiber.Ctx) error {
	playbooks, err := h.workflowService.ListPlaybooks(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"playbooks": playbooks})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	return h.create(c, false)
}

// CreatePlaybook stores the body as a playbook whatever its isPlaybook says.
func (h *APIHandlers) CreatePlaybook(c fiber.Ctx) error {
	return h.create(c, true)
}

func (h *APIHandlers) create(c fiber.Ctx, forcePlaybook bool) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, invalidBodyMessage)
	}

	if forcePlaybook {
		req.IsPlaybook = true
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), req.CreateInput())
	if err != nil {
		return handleServiceError(c, err, workflowNotFoundMessage)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"id":      created.ID,
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	return h.get(c, "workflow", workflowNotFoundMessage)
}

// GetPlaybook looks the id up in the shared collection, like GetWorkflow.
func (h *APIHandlers) GetPlaybook(c fiber.Ctx) error {
	return h.get(c, "playbook", playbookNotFoundMessage)
}

func (h *APIHandlers) get(c fiber.Ctx, key, notFoundMessage string) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "ID is required")
	}

	record, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err, notFoundMessage)
	}

	return c.JSON(fiber.Map{key: record})
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	return h.update(c, workflowNotFoundMessage)
}

func (h *APIHandlers) UpdatePlaybook(c fiber.Ctx) error {
	return h.update(c, playbookNotFoundMessage)
}

func (h *APIHandlers) update(c fiber.Ctx, notFoundMessage string) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, invalidBodyMessage)
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	_, err := h.workflowService.Update(c.Context(), id, req.Patch())
	if err != nil {
		return handleServiceError(c, err, notFoundMessage)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *APIHandlers) UpdateWorkflowStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, invalidBodyMessage)
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "isRunning is required")
	}

	err := h.workflowService.UpdateStatus(c.Context(), id, *req.IsRunning)
	if err != nil {
		return handleServiceError(c, err, workflowNotFoundMessage)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err, workflowNotFoundMessage)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Playbook API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Playbook API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
