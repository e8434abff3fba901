package console

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/playbook/pkg/client"
	"github.com/dukex/playbook/pkg/models"
)

var (
	ErrStepOutOfRange = errors.New("step index out of range")
	ErrLastStep       = errors.New("a workflow keeps at least one step")
	ErrUnknownHuman   = errors.New("unknown human")
)

const (
	msgMissingTitle       = "Please enter a workflow title"
	msgMissingInstruction = "Please fill in all step instructions"
	msgMissingSection     = "Please select a section for this playbook"
)

// ValidationError lists what has to be fixed before a draft can be saved.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// EditorAPI is the part of the REST client the editor uses.
type EditorAPI interface {
	GetWorkflow(ctx context.Context, id string) (*models.Record, error)
	CreateWorkflow(ctx context.Context, draft client.Draft) (string, error)
	CreatePlaybook(ctx context.Context, draft client.Draft) (string, error)
	UpdateWorkflow(ctx context.Context, id string, draft client.Draft) error
	UpdatePlaybook(ctx context.Context, id string, draft client.Draft) error
}

// Editor holds a record being created or edited. The record is only sent to
// the server by Save.
type Editor struct {
	id         string
	title      string
	steps      []models.Step
	isPlaybook bool
	section    models.PlaybookSection
	desc       string

	now    func() time.Time
	lastID int64
}

type EditorOption func(*Editor)

// WithStepClock sets the clock step ids are derived from.
func WithStepClock(now func() time.Time) EditorOption {
	return func(e *Editor) {
		e.now = now
	}
}

// NewEditor starts a blank workflow with a single empty AI step.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	e.steps = []models.Step{e.newStep()}

	return e
}

// EditorFor starts editing an existing record.
func EditorFor(record *models.Record, opts ...EditorOption) *Editor {
	e := &Editor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	e.bind(record)

	return e
}

func (e *Editor) bind(record *models.Record) {
	e.id = record.ID
	e.title = record.Title
	e.steps = slices.Clone(record.Steps)
	e.isPlaybook = record.IsPlaybook()
	e.section = record.Section()
	e.desc = record.Description()

	for _, step := range e.steps {
		if !step.ID.IsNumeric() {
			continue
		}

		if n, err := strconv.ParseInt(step.ID.String(), 10, 64); err == nil && n > e.lastID {
			e.lastID = n
		}
	}

	for i := range e.steps {
		if e.steps[i].ID.IsZero() {
			e.steps[i].ID = e.newStep().ID
		}
	}

	if len(e.steps) == 0 {
		e.steps = []models.Step{e.newStep()}
	}
}

// newStep returns an empty AI step with a millisecond timestamp id, bumped
// when needed so ids never repeat inside the editor.
func (e *Editor) newStep() models.Step {
	id := e.now().UnixMilli()
	if id <= e.lastID {
		id = e.lastID + 1
	}

	e.lastID = id

	return models.Step{ID: models.NumericStepID(id), Executor: models.ExecutorAI}
}

// ID is empty until the record has been created.
func (e *Editor) ID() string {
	return e.id
}

func (e *Editor) Title() string {
	return e.title
}

func (e *Editor) IsPlaybook() bool {
	return e.isPlaybook
}

func (e *Editor) Description() string {
	return e.desc
}

func (e *Editor) Section() models.PlaybookSection {
	return e.section
}

// Steps returns a copy of the steps in order.
func (e *Editor) Steps() []models.Step {
	return slices.Clone(e.steps)
}

func (e *Editor) SetTitle(title string) {
	e.title = title
}

func (e *Editor) SetPlaybook(isPlaybook bool) {
	e.isPlaybook = isPlaybook
}

func (e *Editor) SetSection(section models.PlaybookSection) {
	e.section = section
}

func (e *Editor) SetDescription(description string) {
	e.desc = description
}

func (e *Editor) checkIndex(i int) error {
	if i < 0 || i >= len(e.steps) {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, i)
	}

	return nil
}

// AddStep appends an empty AI step and returns its index.
func (e *Editor) AddStep() int {
	e.steps = append(e.steps, e.newStep())

	return len(e.steps) - 1
}

func (e *Editor) DeleteStep(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}

	if len(e.steps) == 1 {
		return ErrLastStep
	}

	e.steps = slices.Delete(e.steps, i, i+1)

	return nil
}

// MoveUp swaps step i with the one before it. It is a no-op on the first step.
func (e *Editor) MoveUp(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}

	if i > 0 {
		e.steps[i-1], e.steps[i] = e.steps[i], e.steps[i-1]
	}

	return nil
}

// MoveDown swaps step i with the one after it. It is a no-op on the last step.
func (e *Editor) MoveDown(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}

	if i < len(e.steps)-1 {
		e.steps[i], e.steps[i+1] = e.steps[i+1], e.steps[i]
	}

	return nil
}

func (e *Editor) SetInstruction(i int, instruction string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}

	e.steps[i].Instruction = instruction

	return nil
}

func (e *Editor) SetExecutor(i int, executor models.Executor) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}

	if !executor.Valid() {
		return fmt.Errorf("invalid executor %q", executor)
	}

	e.steps[i] = e.steps[i].WithExecutor(executor)

	return nil
}

// AssignHuman sets the assignee of a human step.
func (e *Editor) AssignHuman(i int, name string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}

	if !models.ValidHuman(name) {
		return fmt.Errorf("%w: %q", ErrUnknownHuman, name)
	}

	if e.steps[i].Executor != models.ExecutorHuman {
		return fmt.Errorf("step %d is not executed by a human", i)
	}

	e.steps[i].AssignedHuman = name

	return nil
}

// Validate checks the draft the way the save button does.
func (e *Editor) Validate() error {
	var problems []string

	if strings.TrimSpace(e.title) == "" {
		problems = append(problems, msgMissingTitle)
	}

	if slices.ContainsFunc(e.steps, func(step models.Step) bool {
		return strings.TrimSpace(step.Instruction) == ""
	}) {
		problems = append(problems, msgMissingInstruction)
	}

	if e.isPlaybook && !e.section.Valid() {
		problems = append(problems, msgMissingSection)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// Draft returns the request body for the current state. Playbook fields are
// cleared when the record is not a playbook.
func (e *Editor) Draft() client.Draft {
	record := &models.Record{
		Title: strings.TrimSpace(e.title),
		Steps: models.NormalizeSteps(e.steps),
	}

	if e.isPlaybook {
		record.Playbook = &models.Playbook{Section: e.section, Description: e.desc}
	}

	return client.DraftOf(record)
}

// Save validates the draft, then creates or updates it through the playbook
// or workflow routes. A created record's id is kept so the next Save updates it.
func (e *Editor) Save(ctx context.Context, api EditorAPI) Result {
	result := Result{Op: "saving workflow", ID: e.id}
	if e.isPlaybook {
		result.Op = "saving playbook"
	}

	if err := e.Validate(); err != nil {
		result.Err = err

		return result
	}

	create, update := api.CreateWorkflow, api.UpdateWorkflow
	if e.isPlaybook {
		create, update = api.CreatePlaybook, api.UpdatePlaybook
	}

	if e.id != "" {
		result.Err = update(ctx, e.id, e.Draft())

		return result
	}

	id, err := create(ctx, e.Draft())
	if err != nil {
		result.Err = err

		return result
	}

	e.id = id
	result.ID = id

	return result
}

// Load replaces the editor content with the stored record.
func (e *Editor) Load(ctx context.Context, api EditorAPI, id string) error {
	record, err := api.GetWorkflow(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	e.lastID = 0
	e.bind(record)

	return nil
}

// Overlay replaces the editor content with record while keeping the id being
// edited, so the next Save updates that record.
func (e *Editor) Overlay(record *models.Record) {
	id := e.id
	e.bind(record)
	e.id = id
}
