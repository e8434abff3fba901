package file

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	root string // File system root for storing workflows
	mu   sync.RWMutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

// validID rejects identifiers that would escape the workflows directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`+"\x00")
}

func (wr *WorkflowRepository) pathFor(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

// List returns the records matching opts, newest first.
func (wr *WorkflowRepository) List(_ context.Context, opts persistence.ListOptions) ([]*models.Record, error) {
	wr.mu.RLock()
	defer wr.mu.RUnlock()

	jsonFiles, err := fs.Glob(os.DirFS(wr.root), "workflows/*.json")
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", fmt.Errorf("failed to list workflow files: %w", err))
	}

	records := make([]*models.Record, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(filepath.Base(file), ".json")

		record, err := wr.read(id)
		if err != nil {
			return nil, persistence.NewWorkflowError("List", id, err)
		}

		if record != nil && opts.Matches(record) {
			records = append(records, record)
		}
	}

	slices.SortFunc(records, func(a, b *models.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	return records, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Record, error) {
	if !validID(id) {
		return nil, nil
	}

	wr.mu.RLock()
	defer wr.mu.RUnlock()

	record, err := wr.read(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return record, nil
}

// Save writes the record to the file system, replacing any previous version.
func (wr *WorkflowRepository) Save(_ context.Context, record *models.Record) error {
	if !validID(record.ID) {
		return persistence.NewWorkflowError("Save", record.ID, persistence.ErrInvalidWorkflowID)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := wr.write(record)
	if err != nil {
		return persistence.NewWorkflowError("Save", record.ID, err)
	}

	return nil
}

// Update applies the patch to the stored document under the write lock.
func (wr *WorkflowRepository) Update(
	_ context.Context,
	id string,
	patch models.Patch,
	updatedAt time.Time,
) (*models.Record, error) {
	if !validID(id) {
		return nil, persistence.NewWorkflowError("Update", id, persistence.ErrWorkflowNotFound)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	record, err := wr.read(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("Update", id, err)
	}

	if record == nil {
		return nil, persistence.NewWorkflowError("Update", id, persistence.ErrWorkflowNotFound)
	}

	record.Apply(patch)
	record.UpdatedAt = updatedAt.UTC()

	err = wr.write(record)
	if err != nil {
		return nil, persistence.NewWorkflowError("Update", id, err)
	}

	return record, nil
}

// UpdateStatus rewrites the document with only the running flag and timestamp changed.
func (wr *WorkflowRepository) UpdateStatus(_ context.Context, id string, running bool, updatedAt time.Time) error {
	if !validID(id) {
		return persistence.NewWorkflowError("UpdateStatus", id, persistence.ErrWorkflowNotFound)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	record, err := wr.read(id)
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	if record == nil {
		return persistence.NewWorkflowError("UpdateStatus", id, persistence.ErrWorkflowNotFound)
	}

	record.IsRunning = running
	record.UpdatedAt = updatedAt.UTC()

	err = wr.write(record)
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, err)
	}

	return nil
}

// Delete removes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	err := os.Remove(wr.pathFor(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to delete workflow: %w", err))
	}

	return nil
}

func (wr *WorkflowRepository) read(id string) (*models.Record, error) {
	body, err := os.ReadFile(wr.pathFor(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch workflow: %w", err)
	}

	var record models.Record

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	if record.Steps == nil {
		record.Steps = make([]models.Step, 0)
	}

	return &record, nil
}

// write replaces the document atomically: readers see either version, never a partial file.
func (wr *WorkflowRepository) write(record *models.Record) error {
	err := os.MkdirAll(wr.dir(), 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	tmp, err := os.CreateTemp(wr.dir(), "."+record.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write workflow: %w", err)
	}

	err = os.Rename(tmp.Name(), wr.pathFor(record.ID))
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace workflow: %w", err)
	}

	return nil
}
