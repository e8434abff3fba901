package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
)

const selectWorkflowColumns = `
		SELECT
			id
		  , title
		  , steps
		  , is_running
		  , is_playbook
		  , playbook_section
		  , playbook_description
		  , created_at
		  , updated_at
		FROM workflows
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db      *sql.DB
	logger  *slog.Logger
	dialect Dialect
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger, dialect Dialect) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger, dialect: dialect}
}

// Save inserts the record or replaces every column of an existing one.
func (r *WorkflowRepository) Save(ctx context.Context, record *models.Record) error {
	stepsJSON, err := json.Marshal(stepsOrEmpty(record.Steps))
	if err != nil {
		return persistence.NewWorkflowError("Save", record.ID, fmt.Errorf("failed to marshal steps: %w", err))
	}

	section := nullSection(record.Section())

	query := r.dialect.Rebind(`
		INSERT INTO workflows (id, title, steps, is_running, is_playbook,
playbook_section, playbook_description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			steps = EXCLUDED.steps,
			is_running = EXCLUDED.is_running,
			is_playbook = EXCLUDED.is_playbook,
			playbook_section = EXCLUDED.playbook_section,
			playbook_description = EXCLUDED.playbook_description,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`)

	// steps goes in as text: a []byte parameter would be sent as bytea by lib/pq.
	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.Title,
		string(stepsJSON),
		record.IsRunning,
		record.IsPlaybook(),
		section,
		record.Description(),
		r.dialect.bindTime(record.CreatedAt),
		r.dialect.bindTime(record.UpdatedAt),
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", record.ID, fmt.Errorf("failed to save workflow: %w", err))
	}

	return nil
}

// GetByID returns the record with the given id, or nil when there is none.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectWorkflowColumns+" WHERE id = ?"), id)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to scan workflow: %w", err))
	}

	return record, nil
}

// List returns the records matching opts, newest first.
func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListOptions) ([]*models.Record, error) {
	query := selectWorkflowColumns

	var args []any

	if opts.Kind != "" {
		query += " WHERE is_playbook = ?"

		args = append(args, opts.Kind == models.KindPlaybook)
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", fmt.Errorf("failed to query workflows: %w", err))
	}

	defer func(ctx context.Context, r *WorkflowRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	records := make([]*models.Record, 0)

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, persistence.NewWorkflowError("List", "", fmt.Errorf("failed to scan workflow: %w", err))
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewWorkflowError("List", "", fmt.Errorf("error iterating workflows: %w", err))
	}

	return records, nil
}

// Update writes only the columns named by the patch, then reads the row back.
// A missing row is reported as not found rather than inserted.
func (r *WorkflowRepository) Update(
	ctx context.Context,
	id string,
	patch models.Patch,
	updatedAt time.Time,
) (*models.Record, error) {
	var (
		sets []string
		args []any
	)

	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}

	if patch.Steps != nil {
		stepsJSON, err := json.Marshal(models.NormalizeSteps(patch.Steps))
		if err != nil {
			return nil, persistence.NewWorkflowError("Update", id, fmt.Errorf("failed to marshal steps: %w", err))
		}

		set("steps", string(stepsJSON))
	}

	switch {
	case patch.IsPlaybook != nil && !*patch.IsPlaybook:
		set("is_playbook", false)
		sets = append(sets, "playbook_section = NULL", "playbook_description = ''")
	case patch.IsPlaybook != nil:
		set("is_playbook", true)

		if patch.PlaybookSection != nil {
			set("playbook_section", nullSection(*patch.PlaybookSection))
		}

		if patch.PlaybookDescription != nil {
			set("playbook_description", *patch.PlaybookDescription)
		}
	default:
		// SET expressions see the row as it was, so a workflow keeps its empty columns.
		if patch.PlaybookSection != nil {
			sets = append(sets, "playbook_section = CASE WHEN is_playbook THEN ? ELSE playbook_section END")
			args = append(args, nullSection(*patch.PlaybookSection))
		}

		if patch.PlaybookDescription != nil {
			sets = append(sets, "playbook_description = CASE WHEN is_playbook THEN ? ELSE playbook_description END")
			args = append(args, *patch.PlaybookDescription)
		}
	}

	set("updated_at", r.dialect.bindTime(updatedAt))

	query := r.dialect.Rebind("UPDATE workflows SET " + strings.Join(sets, ", ") + " WHERE id = ?")

	result, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return nil, persistence.NewWorkflowError("Update", id, fmt.Errorf("failed to update workflow: %w", err))
	}

	err = r.requireAffected("Update", id, result)
	if err != nil {
		return nil, err
	}

	record, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, persistence.NewWorkflowError("Update", id, persistence.ErrWorkflowNotFound)
	}

	return record, nil
}

// UpdateStatus writes only is_running and updated_at.
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, running bool, updatedAt time.Time) error {
	query := r.dialect.Rebind(`UPDATE workflows SET is_running = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, running, r.dialect.bindTime(updatedAt), id)
	if err != nil {
		return persistence.NewWorkflowError("UpdateStatus", id, fmt.Errorf("failed to update status: %w", err))
	}

	return r.requireAffected("UpdateStatus", id, result)
}

// Delete removes the record permanently.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM workflows WHERE id = ?`), id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to delete workflow: %w", err))
	}

	return r.requireAffected("Delete", id, result)
}

func (r *WorkflowRepository) requireAffected(op, id string, result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError(op, id, fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError(op, id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		record      models.Record
		stepsJSON   []byte
		isPlaybook  bool
		section     sql.NullString
		description string
		createdAt   Timestamp
		updatedAt   Timestamp
	)

	err := row.Scan(
		&record.ID,
		&record.Title,
		&stepsJSON,
		&record.IsRunning,
		&isPlaybook,
		&section,
		&description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Steps = make([]models.Step, 0)

	if len(stepsJSON) > 0 {
		err = json.Unmarshal(stepsJSON, &record.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	if isPlaybook {
		record.Playbook = &models.Playbook{
			Section:     models.PlaybookSection(section.String),
			Description: description,
		}
	}

	record.CreatedAt = createdAt.Time
	record.UpdatedAt = updatedAt.Time

	return &record, nil
}

func nullSection(section models.PlaybookSection) sql.NullString {
	return sql.NullString{String: string(section), Valid: section != ""}
}

func stepsOrEmpty(steps []models.Step) []models.Step {
	if steps == nil {
		return []models.Step{}
	}

	return steps
}

// Timestamp scans a column that a driver may return as time.Time or as text.
type Timestamp struct {
	Time time.Time
}

func (ts *Timestamp) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		ts.Time = time.Time{}
	case time.Time:
		ts.Time = value.UTC()
	case string:
		return ts.parse(value)
	case []byte:
		return ts.parse(string(value))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}

	return nil
}

func (ts *Timestamp) parse(value string) error {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}

	ts.Time = parsed.UTC()

	return nil
}
