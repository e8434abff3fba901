// Package file provides file-based persistence for workflows and playbooks.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/playbook/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
}

// NewPersistence creates the root directory when missing and returns a
// Persistence storing one JSON document per record under it.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	err := os.MkdirAll(cleanRoot, 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence root %s: %w", cleanRoot, err)
	}

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
	}, nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("persistence root unavailable: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("persistence root %s is not a directory", fp.root)
	}

	return nil
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}
