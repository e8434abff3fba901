package web

import (
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/dukex/playbook/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func failure(c fiber.Ctx, status int, message string, problem any) error {
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   message,
		Problem: problem,
	})
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return failure(c, fiber.StatusBadRequest, detail, problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return failure(c, fiber.StatusNotFound, detail, problem)
}

func internalError(c fiber.Ctx, err error) error {
	problemType := "internal_error"
	if persistence.IsPersistenceError(err) {
		problemType = "persistence_error"
	}

	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType(problemType).
		WithError(err)

	return failure(c, fiber.StatusInternalServerError, err.Error(), problem)
}

// handleServiceError maps service errors to status codes. notFoundMessage
// names the resource the route serves.
func handleServiceError(c fiber.Ctx, err error, notFoundMessage string) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case services.IsNotFoundError(err):
		return notFound(c, notFoundMessage)
	default:
		return internalError(c, err)
	}
}
