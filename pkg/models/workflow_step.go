package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
)

// Executor says who carries out a step.
type Executor string

const (
	ExecutorAI    Executor = "ai"
	ExecutorHuman Executor = "human"
)

const (
	HumanFemiIbrahim = "Femi Ibrahim"
	HumanJasonMao    = "Jason Mao"

	// DefaultHuman is assigned when a step is switched to a human executor.
	DefaultHuman = HumanFemiIbrahim
)

// Humans returns the people a human step can be assigned to.
func Humans() []string {
	return []string{HumanFemiIbrahim, HumanJasonMao}
}

// Step is one instruction of a workflow.
type Step struct {
	ID            StepID   `json:"id"`
	Instruction   string   `json:"instruction"`
	Executor      Executor `json:"executor"`
	AssignedHuman string   `json:"assignedHuman,omitempty"`
}

// WithExecutor returns a copy of the step switched to the given executor.
// AI steps lose their assignee; human steps without one get DefaultHuman.
func (s Step) WithExecutor(executor Executor) Step {
	s.Executor = executor

	switch executor {
	case ExecutorAI:
		s.AssignedHuman = ""
	case ExecutorHuman:
		if s.AssignedHuman == "" {
			s.AssignedHuman = DefaultHuman
		}
	}

	return s
}

// NormalizeSteps enforces the assignee rule of WithExecutor on every step.
// Order is kept as given.
func NormalizeSteps(steps []Step) []Step {
	normalized := make([]Step, len(steps))

	for i, step := range steps {
		normalized[i] = step.WithExecutor(step.Executor)
	}

	return normalized
}

func (e Executor) Valid() bool {
	return e == ExecutorAI || e == ExecutorHuman
}

// ValidHuman reports whether name is one of the assignable people.
func ValidHuman(name string) bool {
	return slices.Contains(Humans(), name)
}

var errInvalidStepID = errors.New("step id must be a number or a string")

// StepID identifies a step inside its workflow. Clients send either numbers
// or strings; the literal is kept so it is returned the way it was sent.
type StepID struct {
	value   string
	numeric bool
}

func NumericStepID(n int64) StepID {
	return StepID{value: strconv.FormatInt(n, 10), numeric: true}
}

func StringStepID(s string) StepID {
	return StepID{value: s}
}

// ParseStepID reads a step id from text: number-looking input becomes numeric.
func ParseStepID(s string) StepID {
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return StepID{value: s, numeric: true}
	}

	return StringStepID(s)
}

func (id StepID) String() string {
	return id.value
}

func (id StepID) IsNumeric() bool {
	return id.numeric
}

func (id StepID) IsZero() bool {
	return id.value == ""
}

func (id StepID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}

	if id.value == "" {
		return []byte("null"), nil
	}

	return json.Marshal(id.value)
}

func (id *StepID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*id = StepID{}

		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*id = StringStepID(s)

		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return errInvalidStepID
	}

	*id = StepID{value: number.String(), numeric: true}

	return nil
}
