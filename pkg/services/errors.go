// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/playbook/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// ErrWorkflowNotFound is returned when no record has the requested id (404).
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// Validation Errors (400 Bad Request).
	ErrInvalidSection  = errors.New("invalid playbook section")
	ErrInvalidExecutor = errors.New("invalid step executor")
	ErrInvalidHuman    = errors.New("invalid assigned human")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSection) ||
		errors.Is(err, ErrInvalidExecutor) ||
		errors.Is(err, ErrInvalidHuman)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
