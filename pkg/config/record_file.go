// Package config loads workflow and playbook definitions from YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dukex/playbook/pkg/models"
)

// RecordFile is the YAML form of a workflow or playbook.
type RecordFile struct {
	Title    string        `yaml:"title"`
	Playbook *PlaybookFile `yaml:"playbook,omitempty"`
	Steps    []StepFile    `yaml:"steps"`
}

// PlaybookFile marks the record as a playbook.
type PlaybookFile struct {
	Section     string `yaml:"section"`
	Description string `yaml:"description,omitempty"`
}

// StepFile is a step in YAML. ID may be a number or a string.
type StepFile struct {
	ID          any    `yaml:"id,omitempty"`
	Instruction string `yaml:"instruction"`
	Executor    string `yaml:"executor"`
	Human       string `yaml:"human,omitempty"`
}

// LoadRecordFile reads and validates a record definition from a YAML file.
func LoadRecordFile(filepath string) (*RecordFile, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file %s: %w", filepath, err)
	}

	return ParseRecordFile(data)
}

// ParseRecordFile decodes and validates a record definition.
func ParseRecordFile(data []byte) (*RecordFile, error) {
	var file RecordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML record: %w", err)
	}

	// An omitted executor means AI, like a fresh step in the editor.
	for i := range file.Steps {
		if file.Steps[i].Executor == "" {
			file.Steps[i].Executor = string(models.ExecutorAI)
		}
	}

	if err := ValidateRecordFile(&file); err != nil {
		return nil, err
	}

	return &file, nil
}

// ValidateRecordFile checks that the values in a record definition decode
// into known types. Completeness (title, instructions, a section for a
// playbook) is left to the editor, which owns those rules.
func ValidateRecordFile(file *RecordFile) error {
	for i, step := range file.Steps {
		executor := models.Executor(step.Executor)
		if !executor.Valid() {
			return fmt.Errorf("steps[%d]: unknown executor '%s'", i, step.Executor)
		}

		if step.Human != "" && !models.ValidHuman(step.Human) {
			return fmt.Errorf("steps[%d]: unknown human '%s'", i, step.Human)
		}

		if _, err := stepID(step.ID, i); err != nil {
			return err
		}
	}

	if file.Playbook != nil && file.Playbook.Section != "" && !models.PlaybookSection(file.Playbook.Section).Valid() {
		return fmt.Errorf("playbook: unknown section '%s'", file.Playbook.Section)
	}

	return nil
}

func stepID(raw any, index int) (models.StepID, error) {
	switch v := raw.(type) {
	case nil:
		return models.StepID{}, nil
	case int:
		return models.NumericStepID(int64(v)), nil
	case int64:
		return models.NumericStepID(v), nil
	case uint64:
		return models.ParseStepID(strconv.FormatUint(v, 10)), nil
	case float64:
		return models.ParseStepID(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case string:
		return models.StringStepID(v), nil
	default:
		return models.StepID{}, fmt.Errorf("steps[%d]: id must be a number or a string, got %T", index, v)
	}
}

// Record converts the definition into an unsaved record. Steps without an id
// keep a zero id until an editor assigns one.
func (f *RecordFile) Record() *models.Record {
	record := &models.Record{
		Title: f.Title,
		Steps: make([]models.Step, 0, len(f.Steps)),
	}

	for i, step := range f.Steps {
		id, _ := stepID(step.ID, i)

		record.Steps = append(record.Steps, models.Step{
			ID:            id,
			Instruction:   step.Instruction,
			Executor:      models.Executor(step.Executor),
			AssignedHuman: step.Human,
		})
	}

	record.Steps = models.NormalizeSteps(record.Steps)

	if f.Playbook != nil {
		record.Playbook = &models.Playbook{
			Section:     models.PlaybookSection(f.Playbook.Section),
			Description: f.Playbook.Description,
		}
	}

	return record
}

// RecordFileFrom is the inverse of Record.
func RecordFileFrom(record *models.Record) *RecordFile {
	file := &RecordFile{
		Title: record.Title,
		Steps: make([]StepFile, 0, len(record.Steps)),
	}

	for _, step := range record.Steps {
		var id any

		switch {
		case step.ID.IsZero():
		case step.ID.IsNumeric():
			if n, err := strconv.ParseInt(step.ID.String(), 10, 64); err == nil {
				id = n
			} else {
				id = step.ID.String()
			}
		default:
			id = step.ID.String()
		}

		file.Steps = append(file.Steps, StepFile{
			ID:          id,
			Instruction: step.Instruction,
			Executor:    string(step.Executor),
			Human:       step.AssignedHuman,
		})
	}

	if record.IsPlaybook() {
		file.Playbook = &PlaybookFile{
			Section:     string(record.Section()),
			Description: record.Description(),
		}
	}

	return file
}

// Marshal encodes the definition as YAML.
func (f *RecordFile) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	return data, nil
}
