package console

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dukex/playbook/pkg/models"
)

type Tab string

const (
	TabWorkflows Tab = "workflows"
	TabPlaybooks Tab = "playbooks"
)

// Action names the request a row is waiting on.
type Action string

const (
	ActionToggle Action = "toggle"
	ActionDelete Action = "delete"
)

var (
	// ErrRowBusy rejects a second action on a row whose request has not resolved.
	ErrRowBusy       = errors.New("another action is in progress for this record")
	ErrUnknownRecord = errors.New("record is not on the dashboard")
)

// DashboardState is an immutable snapshot of the dashboard. Every transition
// returns a new value and leaves the receiver untouched.
type DashboardState struct {
	Workflows []*models.Record
	Playbooks []*models.Record

	// view state, never persisted
	Tab             Tab
	ExpandedSection models.PlaybookSection
	inFlight        map[string]Action
}

// SectionGroup is one collapsible playbook section.
type SectionGroup struct {
	Section   models.SectionInfo
	Playbooks []*models.Record
	Expanded  bool
}

func NewDashboardState() DashboardState {
	return DashboardState{Tab: TabWorkflows}
}

func (s DashboardState) clone() DashboardState {
	next := s
	next.Workflows = slices.Clone(s.Workflows)
	next.Playbooks = slices.Clone(s.Playbooks)
	next.inFlight = maps.Clone(s.inFlight)

	return next
}

func (s DashboardState) Loaded(workflows, playbooks []*models.Record) DashboardState {
	next := s.clone()
	next.Workflows = slices.Clone(workflows)
	next.Playbooks = slices.Clone(playbooks)

	return next
}

func (s DashboardState) WithTab(tab Tab) DashboardState {
	next := s.clone()
	next.Tab = tab

	return next
}

// ToggleSection expands section, or collapses it when it is already expanded.
func (s DashboardState) ToggleSection(section models.PlaybookSection) DashboardState {
	next := s.clone()

	if next.ExpandedSection == section {
		next.ExpandedSection = ""
	} else {
		next.ExpandedSection = section
	}

	return next
}

// Begin marks the row as waiting on action. Other rows are not affected.
func (s DashboardState) Begin(id string, action Action) (DashboardState, error) {
	if _, busy := s.inFlight[id]; busy {
		return s, ErrRowBusy
	}

	next := s.clone()
	if next.inFlight == nil {
		next.inFlight = make(map[string]Action)
	}

	next.inFlight[id] = action

	return next, nil
}

func (s DashboardState) End(id string) DashboardState {
	next := s.clone()
	delete(next.inFlight, id)

	return next
}

// Busy returns the action the row waits on, if any.
func (s DashboardState) Busy(id string) (Action, bool) {
	action, ok := s.inFlight[id]

	return action, ok
}

func (s DashboardState) ToggleApplied(id string, running bool) DashboardState {
	next := s.clone()

	apply := func(records []*models.Record) {
		for i, record := range records {
			if record.ID == id {
				updated := record.Clone()
				updated.IsRunning = running
				records[i] = updated
			}
		}
	}

	apply(next.Workflows)
	apply(next.Playbooks)

	return next
}

func (s DashboardState) DeleteApplied(id string) DashboardState {
	next := s.clone()

	matches := func(record *models.Record) bool { return record.ID == id }

	next.Workflows = slices.DeleteFunc(next.Workflows, matches)
	next.Playbooks = slices.DeleteFunc(next.Playbooks, matches)

	return next
}

// Find looks the record up in both lists.
func (s DashboardState) Find(id string) (*models.Record, bool) {
	for _, records := range [][]*models.Record{s.Workflows, s.Playbooks} {
		for _, record := range records {
			if record.ID == id {
				return record, true
			}
		}
	}

	return nil, false
}

// Visible returns the records of the active tab.
func (s DashboardState) Visible() []*models.Record {
	if s.Tab == TabPlaybooks {
		return s.Playbooks
	}

	return s.Workflows
}

// PlaybooksBySection groups playbooks in section display order. Playbooks
// without a known section end up in a trailing group with an empty id.
func (s DashboardState) PlaybooksBySection() []SectionGroup {
	sections := models.Sections()
	groups := make([]SectionGroup, 0, len(sections)+1)

	for _, info := range sections {
		group := SectionGroup{Section: info, Expanded: s.ExpandedSection == info.ID}

		for _, playbook := range s.Playbooks {
			if playbook.Section() == info.ID {
				group.Playbooks = append(group.Playbooks, playbook)
			}
		}

		groups = append(groups, group)
	}

	var other []*models.Record

	for _, playbook := range s.Playbooks {
		if !playbook.Section().Valid() {
			other = append(other, playbook)
		}
	}

	if len(other) > 0 {
		groups = append(groups, SectionGroup{
			Section:   models.SectionInfo{Title: "Other playbooks"},
			Playbooks: other,
			Expanded:  true,
		})
	}

	return groups
}

// Result reports how a dashboard or editor operation ended.
type Result struct {
	Op  string
	ID  string
	Err error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Message is the notification shown to the user.
func (r Result) Message() string {
	if r.Err != nil {
		return fmt.Sprintf("Error %s: %v", r.Op, r.Err)
	}

	return "Done: " + r.Op
}

// DashboardAPI is the part of the REST client the dashboard uses.
type DashboardAPI interface {
	ListWorkflows(ctx context.Context) ([]*models.Record, error)
	ListPlaybooks(ctx context.Context) ([]*models.Record, error)
	UpdateStatus(ctx context.Context, id string, running bool) error
	DeleteWorkflow(ctx context.Context, id string) error
}

// Dashboard applies server-confirmed changes to its state: a request is sent
// first and the state only changes when it succeeds.
type Dashboard struct {
	api DashboardAPI

	mu    sync.Mutex
	state DashboardState
}

func NewDashboard(api DashboardAPI) *Dashboard {
	return &Dashboard{api: api, state: NewDashboardState()}
}

func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}

func (d *Dashboard) update(transition func(DashboardState) DashboardState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = transition(d.state)
}

func (d *Dashboard) SelectTab(tab Tab) {
	d.update(func(s DashboardState) DashboardState { return s.WithTab(tab) })
}

func (d *Dashboard) ToggleSection(section models.PlaybookSection) {
	d.update(func(s DashboardState) DashboardState { return s.ToggleSection(section) })
}

func (d *Dashboard) Load(ctx context.Context) Result {
	result := Result{Op: "loading workflows"}

	workflows, err := d.api.ListWorkflows(ctx)
	if err != nil {
		result.Err = err

		return result
	}

	playbooks, err := d.api.ListPlaybooks(ctx)
	if err != nil {
		result.Err = err

		return result
	}

	d.update(func(s DashboardState) DashboardState { return s.Loaded(workflows, playbooks) })

	return result
}

func (d *Dashboard) begin(id string, action Action) (*models.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, ok := d.state.Find(id)
	if !ok {
		return nil, ErrUnknownRecord
	}

	next, err := d.state.Begin(id, action)
	if err != nil {
		return nil, err
	}

	d.state = next

	return record, nil
}

// Toggle flips the running flag of the record.
func (d *Dashboard) Toggle(ctx context.Context, id string) Result {
	result := Result{Op: "updating workflow status", ID: id}

	record, err := d.begin(id, ActionToggle)
	if err != nil {
		result.Err = err

		return result
	}

	running := !record.IsRunning

	err = d.api.UpdateStatus(ctx, id, running)

	d.update(func(s DashboardState) DashboardState {
		if err == nil {
			s = s.ToggleApplied(id, running)
		}

		return s.End(id)
	})

	result.Err = err

	return result
}

// Delete removes the record once the server confirmed the deletion.
func (d *Dashboard) Delete(ctx context.Context, id string) Result {
	result := Result{Op: "deleting workflow", ID: id}

	_, err := d.begin(id, ActionDelete)
	if err != nil {
		result.Err = err

		return result
	}

	err = d.api.DeleteWorkflow(ctx, id)

	d.update(func(s DashboardState) DashboardState {
		if err == nil {
			s = s.DeleteApplied(id)
		}

		return s.End(id)
	})

	result.Err = err

	return result
}
