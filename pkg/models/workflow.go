// Package models defines the domain models for workflows, playbooks and their steps.
package models

import (
	"encoding/json"
	"slices"
	"time"
)

// Kind distinguishes a user workflow from a reusable playbook template.
type Kind string

const (
	KindWorkflow Kind = "workflow"
	KindPlaybook Kind = "playbook"
)

// Playbook holds the fields that only exist on playbook records.
type Playbook struct {
	Section     PlaybookSection
	Description string
}

// Record is a stored workflow. Workflows and playbooks share the same shape and
// the same collection; a non-nil Playbook marks the record as a template.
type Record struct {
	ID        string
	Title     string
	Steps     []Step
	IsRunning bool
	Playbook  *Playbook
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Kind reports whether the record is a workflow or a playbook.
func (r *Record) Kind() Kind {
	if r.Playbook != nil {
		return KindPlaybook
	}

	return KindWorkflow
}

func (r *Record) IsPlaybook() bool {
	return r.Playbook != nil
}

// Section returns the playbook section, empty for workflows or unsectioned playbooks.
func (r *Record) Section() PlaybookSection {
	if r.Playbook == nil {
		return ""
	}

	return r.Playbook.Section
}

// Description returns the playbook description, empty for workflows.
func (r *Record) Description() string {
	if r.Playbook == nil {
		return ""
	}

	return r.Playbook.Description
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Steps = slices.Clone(r.Steps)

	if r.Playbook != nil {
		playbook := *r.Playbook
		clone.Playbook = &playbook
	}

	return &clone
}

// Patch lists the fields an update may overwrite. Nil fields are left unchanged.
type Patch struct {
	Title               *string
	Steps               []Step
	IsPlaybook          *bool
	PlaybookDescription *string
	PlaybookSection     *PlaybookSection
}

// Apply overwrites the fields present in the patch. Turning the playbook flag
// off drops the section and description along with it.
func (r *Record) Apply(p Patch) {
	if p.Title != nil {
		r.Title = *p.Title
	}

	if p.Steps != nil {
		r.Steps = NormalizeSteps(p.Steps)
	}

	if p.IsPlaybook != nil {
		switch {
		case *p.IsPlaybook && r.Playbook == nil:
			r.Playbook = &Playbook{}
		case !*p.IsPlaybook:
			r.Playbook = nil
		}
	}

	if r.Playbook == nil {
		return
	}

	if p.PlaybookDescription != nil {
		r.Playbook.Description = *p.PlaybookDescription
	}

	if p.PlaybookSection != nil {
		r.Playbook.Section = *p.PlaybookSection
	}
}

// recordJSON is the flat wire shape shared by the API and the document stores.
type recordJSON struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Steps               []Step           `json:"steps"`
	IsRunning           bool             `json:"isRunning"`
	IsPlaybook          bool             `json:"isPlaybook"`
	PlaybookSection     *PlaybookSection `json:"playbookSection"`
	PlaybookDescription string           `json:"playbook_description"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	wire := recordJSON{
		ID:        r.ID,
		Title:     r.Title,
		Steps:     r.Steps,
		IsRunning: r.IsRunning,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}

	if wire.Steps == nil {
		wire.Steps = []Step{}
	}

	if r.Playbook != nil {
		wire.IsPlaybook = true
		wire.PlaybookDescription = r.Playbook.Description

		if r.Playbook.Section != "" {
			section := r.Playbook.Section
			wire.PlaybookSection = &section
		}
	}

	return json.Marshal(wire)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var wire recordJSON

	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = Record{
		ID:        wire.ID,
		Title:     wire.Title,
		Steps:     wire.Steps,
		IsRunning: wire.IsRunning,
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}

	if wire.IsPlaybook {
		r.Playbook = &Playbook{Description: wire.PlaybookDescription}

		if wire.PlaybookSection != nil {
			r.Playbook.Section = *wire.PlaybookSection
		}
	}

	return nil
}
