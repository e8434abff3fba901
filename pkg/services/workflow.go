package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/playbook/pkg/eventbus"
	"github.com/dukex/playbook/pkg/events"
	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/otelhelper"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	clock       func() time.Time
}

// Option configures a Workflow service.
type Option func(*Workflow)

// WithEventPublisher publishes lifecycle events after every successful write.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(w *Workflow) {
		w.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = tracer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(w *Workflow) {
		w.clock = clock
	}
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, opts ...Option) *Workflow {
	w := &Workflow{
		persistence: persistence,
		tracer:      otelhelper.NoopTracer(),
		logger:      slog.Default(),
		clock:       time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateInput holds what a client supplies when creating a record.
type CreateInput struct {
	Title               string
	Steps               []models.Step
	IsPlaybook          bool
	PlaybookDescription string
	PlaybookSection     models.PlaybookSection
}

// Create stores a new record. The id and both timestamps are assigned here,
// isRunning always starts false.
func (w *Workflow) Create(ctx context.Context, input CreateInput) (*models.Record, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.create",
		attribute.String(otelhelper.WorkflowTitleKey, input.Title),
		attribute.Bool("playbook.is_playbook", input.IsPlaybook),
		attribute.Int(otelhelper.StepCountKey, len(input.Steps)),
	)
	defer span.End()

	err := validateSteps("Create", input.Steps)
	if err == nil && input.IsPlaybook {
		err = validateSection("Create", input.PlaybookSection)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	now := w.now()

	record := &models.Record{
		ID:        id.String(),
		Title:     input.Title,
		Steps:     models.NormalizeSteps(input.Steps),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.IsPlaybook {
		record.Playbook = &models.Playbook{
			Section:     input.PlaybookSection,
			Description: input.PlaybookDescription,
		}
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowIDKey, record.ID),
		attribute.String(otelhelper.WorkflowKindKey, string(record.Kind())),
	)

	err = w.persistence.WorkflowRepository().Save(ctx, record)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.publish(ctx, record.ID, events.NewWorkflowCreated(record))

	return record, nil
}

// ListWorkflows returns every non-playbook record, newest first.
func (w *Workflow) ListWorkflows(ctx context.Context) ([]*models.Record, error) {
	return w.list(ctx, models.KindWorkflow)
}

// ListPlaybooks returns every playbook, newest first.
func (w *Workflow) ListPlaybooks(ctx context.Context) ([]*models.Record, error) {
	return w.list(ctx, models.KindPlaybook)
}

func (w *Workflow) list(ctx context.Context, kind models.Kind) ([]*models.Record, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.list",
		attribute.String(otelhelper.WorkflowKindKey, string(kind)),
	)
	defer span.End()

	records, err := w.persistence.WorkflowRepository().List(ctx, persistence.ListOptions{Kind: kind})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}

	return records, nil
}

// FetchByID returns the record or ErrWorkflowNotFound.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Record, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.fetch",
		attribute.String(otelhelper.WorkflowIDKey, id),
	)
	defer span.End()

	record, err := w.fetch(ctx, "FetchByID", id)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return record, nil
}

// Update overwrites the fields present in the patch and refreshes updatedAt.
// Columns outside the patch, isRunning included, are left as stored.
func (w *Workflow) Update(ctx context.Context, id string, patch models.Patch) (*models.Record, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.update",
		attribute.String(otelhelper.WorkflowIDKey, id),
	)
	defer span.End()

	err := validatePatch(patch)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	record, err := w.fetch(ctx, "Update", id)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	updated, err := w.persistence.WorkflowRepository().Update(ctx, id, patch, w.nextUpdatedAt(record.UpdatedAt))
	if err != nil {
		otelhelper.SetError(span, err)

		if persistence.IsWorkflowNotFound(err) {
			return nil, w.notFound("Update", id)
		}

		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.publish(ctx, id, events.NewWorkflowUpdated(updated, patchFields(patch)))

	return updated, nil
}

// UpdateStatus sets isRunning and refreshes updatedAt, leaving every other field alone.
func (w *Workflow) UpdateStatus(ctx context.Context, id string, running bool) error {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.update_status",
		attribute.String(otelhelper.WorkflowIDKey, id),
		attribute.Bool(otelhelper.WorkflowRunningKey, running),
	)
	defer span.End()

	record, err := w.fetch(ctx, "UpdateStatus", id)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	err = w.persistence.WorkflowRepository().UpdateStatus(ctx, id, running, w.nextUpdatedAt(record.UpdatedAt))
	if err != nil {
		otelhelper.SetError(span, err)

		if persistence.IsWorkflowNotFound(err) {
			return w.notFound("UpdateStatus", id)
		}

		return fmt.Errorf("failed to update workflow status: %w", err)
	}

	w.publish(ctx, id, events.NewWorkflowStatusChanged(id, running))

	return nil
}

// Delete removes the record permanently. Deleting an unknown id is ErrWorkflowNotFound.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.delete",
		attribute.String(otelhelper.WorkflowIDKey, id),
	)
	defer span.End()

	record, err := w.fetch(ctx, "Delete", id)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, id)
	if err != nil {
		otelhelper.SetError(span, err)

		if persistence.IsWorkflowNotFound(err) {
			return w.notFound("Delete", id)
		}

		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.publish(ctx, id, events.NewWorkflowDeleted(record))

	return nil
}

func (w *Workflow) fetch(ctx context.Context, op, id string) (*models.Record, error) {
	record, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if record == nil {
		return nil, w.notFound(op, id)
	}

	return record, nil
}

func (w *Workflow) notFound(op, id string) error {
	return &ServiceError{
		Op:      op,
		Code:    "WORKFLOW_NOT_FOUND",
		Message: "workflow " + id + " not found",
		Err:     ErrWorkflowNotFound,
	}
}

func (w *Workflow) now() time.Time {
	return w.clock().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt keeps updatedAt strictly increasing even when the clock has not moved.
func (w *Workflow) nextUpdatedAt(previous time.Time) time.Time {
	now := w.now()
	if !now.After(previous) {
		return previous.UTC().Add(time.Microsecond)
	}

	return now
}

// publish is best effort: the write already happened, a broker failure is only logged.
func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	if w.publisher == nil {
		return
	}

	err := w.publisher.Publish(ctx, key, event)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to publish workflow event",
			"workflow_id", key,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

func validateSteps(op string, steps []models.Step) error {
	for i, step := range steps {
		if !step.Executor.Valid() {
			return NewValidationError(op, "INVALID_EXECUTOR",
				fmt.Sprintf("step %d: executor must be %q or %q", i+1, models.ExecutorAI, models.ExecutorHuman),
				ErrInvalidExecutor)
		}

		if step.Executor == models.ExecutorHuman && step.AssignedHuman != "" && !models.ValidHuman(step.AssignedHuman) {
			return NewValidationError(op, "INVALID_ASSIGNED_HUMAN",
				fmt.Sprintf("step %d: unknown assignee %q", i+1, step.AssignedHuman),
				ErrInvalidHuman)
		}
	}

	return nil
}

// validateSection accepts an empty section: the server tolerates playbooks without one.
func validateSection(op string, section models.PlaybookSection) error {
	if section == "" || section.Valid() {
		return nil
	}

	return NewValidationError(op, "INVALID_SECTION", fmt.Sprintf("unknown playbook section %q", section), ErrInvalidSection)
}

func validatePatch(patch models.Patch) error {
	if patch.Steps != nil {
		err := validateSteps("Update", patch.Steps)
		if err != nil {
			return err
		}
	}

	if patch.PlaybookSection != nil {
		return validateSection("Update", *patch.PlaybookSection)
	}

	return nil
}

func patchFields(patch models.Patch) []string {
	fields := make([]string, 0, 5)

	if patch.Title != nil {
		fields = append(fields, "title")
	}

	if patch.Steps != nil {
		fields = append(fields, "steps")
	}

	if patch.IsPlaybook != nil {
		fields = append(fields, "isPlaybook")
	}

	if patch.PlaybookDescription != nil {
		fields = append(fields, "playbook_description")
	}

	if patch.PlaybookSection != nil {
		fields = append(fields, "playbookSection")
	}

	return fields
}
