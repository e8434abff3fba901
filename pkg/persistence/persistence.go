// Package persistence provides the storage abstraction for workflow and playbook records.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/playbook/pkg/models"
)

// Persistence is implemented by every storage backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ListOptions filters a listing. An empty Kind lists every record.
type ListOptions struct {
	Kind models.Kind
}

// Matches reports whether the record passes the filter.
func (o ListOptions) Matches(record *models.Record) bool {
	return o.Kind == "" || record.Kind() == o.Kind
}

// WorkflowRepository stores workflows and playbooks in a single collection.
//
// GetByID returns (nil, nil) when the record does not exist. List returns
// records ordered by creation time, newest first. Update, UpdateStatus and
// Delete fail with ErrWorkflowNotFound instead of recreating a missing record.
type WorkflowRepository interface {
	Save(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context, opts ListOptions) ([]*models.Record, error)
	// Update writes only the fields present in the patch plus the update
	// timestamp, and returns the stored record.
	Update(ctx context.Context, id string, patch models.Patch, updatedAt time.Time) (*models.Record, error)
	// UpdateStatus writes only the running flag and the update timestamp.
	UpdateStatus(ctx context.Context, id string, running bool, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
