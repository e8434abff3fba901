package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Record Model Tests

func TestRecord_Kind(t *testing.T) {
	workflow := &Record{Title: "After discovery calls"}
	assert.Equal(t, KindWorkflow, workflow.Kind())
	assert.False(t, workflow.IsPlaybook())
	assert.Empty(t, workflow.Section())
	assert.Empty(t, workflow.Description())

	playbook := &Record{
		Title:    "Recover stalled deals",
		Playbook: &Playbook{Section: SectionDealsDropOff, Description: "for stalled deals"},
	}
	assert.Equal(t, KindPlaybook, playbook.Kind())
	assert.True(t, playbook.IsPlaybook())
	assert.Equal(t, SectionDealsDropOff, playbook.Section())
	assert.Equal(t, "for stalled deals", playbook.Description())
}

func TestRecord_MarshalJSON_FlatShape(t *testing.T) {
	created := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	record := Record{
		ID:    "wf-1",
		Title: "Weekly pipeline review",
		Steps: []Step{
			{ID: NumericStepID(1), Instruction: "pull the pipeline report", Executor: ExecutorAI},
			{ID: StringStepID("b"), Instruction: "review with the rep", Executor: ExecutorHuman, AssignedHuman: HumanJasonMao},
		},
		Playbook:  &Playbook{Section: SectionACVOffWhack, Description: "pricing"},
		CreatedAt: created,
		UpdatedAt: created,
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var raw map[string]any

	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "wf-1", raw["id"])
	assert.Equal(t, true, raw["isPlaybook"])
	assert.Equal(t, false, raw["isRunning"])
	assert.Equal(t, "acv-off-whack", raw["playbookSection"])
	assert.Equal(t, "pricing", raw["playbook_description"])
	assert.Equal(t, "2025-03-04T10:30:00Z", raw["createdAt"])

	steps, ok := raw["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 2)

	first, ok := steps[0].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, float64(1), first["id"], 0)
	assert.NotContains(t, first, "assignedHuman")

	second, ok := steps[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "b", second["id"])
	assert.Equal(t, HumanJasonMao, second["assignedHuman"])
}

func TestRecord_MarshalJSON_WorkflowHasNullSection(t *testing.T) {
	data, err := json.Marshal(Record{ID: "wf-2", Title: "plain"})
	require.NoError(t, err)

	var raw map[string]any

	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, false, raw["isPlaybook"])
	assert.Nil(t, raw["playbookSection"])
	assert.Equal(t, "", raw["playbook_description"])
	assert.Equal(t, []any{}, raw["steps"])
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	input := `{
		"id": "abc",
		"title": "T1",
		"steps": [{"id": 1712000000000, "instruction": "do X", "executor": "ai"}],
		"isRunning": true,
		"isPlaybook": true,
		"playbookSection": "failing-to-close",
		"playbook_description": "close more",
		"createdAt": "2025-01-01T00:00:00Z",
		"updatedAt": "2025-01-02T00:00:00Z"
	}`

	var record Record

	require.NoError(t, json.Unmarshal([]byte(input), &record))

	assert.Equal(t, "abc", record.ID)
	assert.True(t, record.IsRunning)
	require.NotNil(t, record.Playbook)
	assert.Equal(t, SectionFailingToClose, record.Playbook.Section)
	assert.Equal(t, "close more", record.Playbook.Description)
	require.Len(t, record.Steps, 1)
	assert.Equal(t, NumericStepID(1712000000000), record.Steps[0].ID)
	assert.True(t, record.UpdatedAt.After(record.CreatedAt))
}

func TestRecord_UnmarshalJSON_PlaybookWithoutSection(t *testing.T) {
	var record Record

	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","steps":[],"isPlaybook":true,"playbookSection":null}`), &record))

	require.NotNil(t, record.Playbook)
	assert.Empty(t, record.Playbook.Section)
}

func TestRecord_Apply(t *testing.T) {
	title := "renamed"
	yes := true
	no := false
	section := SectionNotMovingForward
	description := "early stage"

	tests := []struct {
		name   string
		start  Record
		patch  Patch
		verify func(t *testing.T, r Record)
	}{
		{
			name:  "empty patch leaves everything",
			start: Record{Title: "keep", Steps: []Step{{ID: NumericStepID(1), Instruction: "a", Executor: ExecutorAI}}},
			patch: Patch{},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				assert.Equal(t, "keep", r.Title)
				assert.Len(t, r.Steps, 1)
				assert.Nil(t, r.Playbook)
			},
		},
		{
			name:  "title only",
			start: Record{Title: "keep", Steps: []Step{{ID: NumericStepID(1), Instruction: "a", Executor: ExecutorAI}}},
			patch: Patch{Title: &title},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				assert.Equal(t, "renamed", r.Title)
				assert.Len(t, r.Steps, 1)
			},
		},
		{
			name:  "promote to playbook with section",
			start: Record{Title: "keep"},
			patch: Patch{IsPlaybook: &yes, PlaybookSection: &section, PlaybookDescription: &description},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				require.NotNil(t, r.Playbook)
				assert.Equal(t, section, r.Playbook.Section)
				assert.Equal(t, description, r.Playbook.Description)
			},
		},
		{
			name:  "section without flag updates an existing playbook",
			start: Record{Title: "keep", Playbook: &Playbook{Section: SectionACVOffWhack}},
			patch: Patch{PlaybookSection: &section},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				require.NotNil(t, r.Playbook)
				assert.Equal(t, section, r.Playbook.Section)
			},
		},
		{
			name:  "section is ignored on a workflow",
			start: Record{Title: "keep"},
			patch: Patch{PlaybookSection: &section},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				assert.Nil(t, r.Playbook)
			},
		},
		{
			name:  "demote drops playbook fields",
			start: Record{Title: "keep", Playbook: &Playbook{Section: SectionACVOffWhack, Description: "d"}},
			patch: Patch{IsPlaybook: &no},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				assert.Nil(t, r.Playbook)
			},
		},
		{
			name:  "steps are normalized",
			start: Record{Title: "keep"},
			patch: Patch{Steps: []Step{{ID: NumericStepID(2), Instruction: "x", Executor: ExecutorAI, AssignedHuman: HumanJasonMao}}},
			verify: func(t *testing.T, r Record) {
				t.Helper()
				require.Len(t, r.Steps, 1)
				assert.Empty(t, r.Steps[0].AssignedHuman)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := tt.start
			record.Apply(tt.patch)
			tt.verify(t, record)
		})
	}
}

func TestRecord_Clone(t *testing.T) {
	original := &Record{
		Title:    "original",
		Steps:    []Step{{ID: NumericStepID(1), Instruction: "a", Executor: ExecutorAI}},
		Playbook: &Playbook{Section: SectionDealsDropOff},
	}

	clone := original.Clone()
	clone.Steps[0].Instruction = "changed"
	clone.Playbook.Section = SectionACVOffWhack

	assert.Equal(t, "a", original.Steps[0].Instruction)
	assert.Equal(t, SectionDealsDropOff, original.Playbook.Section)
}

// Step Model Tests

func TestStep_WithExecutor(t *testing.T) {
	aiStep := Step{ID: NumericStepID(1), Instruction: "summarise calls", Executor: ExecutorAI}

	human := aiStep.WithExecutor(ExecutorHuman)
	assert.Equal(t, ExecutorHuman, human.Executor)
	assert.Equal(t, DefaultHuman, human.AssignedHuman)

	assigned := Step{Executor: ExecutorHuman, AssignedHuman: HumanJasonMao}
	assert.Equal(t, HumanJasonMao, assigned.WithExecutor(ExecutorHuman).AssignedHuman)

	back := human.WithExecutor(ExecutorAI)
	assert.Equal(t, ExecutorAI, back.Executor)
	assert.Empty(t, back.AssignedHuman)

	// the receiver is a value, the original step is untouched
	assert.Empty(t, aiStep.AssignedHuman)
}

func TestStepID_JSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		numeric bool
		value   string
	}{
		{name: "integer", input: `1`, numeric: true, value: "1"},
		{name: "timestamp id", input: `1712345678901`, numeric: true, value: "1712345678901"},
		{name: "float", input: `1.5`, numeric: true, value: "1.5"},
		{name: "string", input: `"step-a"`, value: "step-a"},
		{name: "numeric string stays a string", input: `"42"`, value: "42"},
		{name: "null", input: `null`, value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id StepID

			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.numeric, id.IsNumeric())
			assert.Equal(t, tt.value, id.String())

			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestStepID_UnmarshalJSON_Invalid(t *testing.T) {
	var id StepID

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestParseStepID(t *testing.T) {
	assert.Equal(t, NumericStepID(7), ParseStepID("7"))
	assert.Equal(t, StringStepID("seven"), ParseStepID("seven"))
	assert.Equal(t, StringStepID("Inf"), ParseStepID("Inf"))
}

// Section Model Tests

func TestSections(t *testing.T) {
	all := Sections()
	require.Len(t, all, 4)

	for _, info := range all {
		assert.True(t, info.ID.Valid())
		assert.NotEmpty(t, info.Title)
		assert.Equal(t, info.Title, info.ID.Title())
	}

	assert.False(t, PlaybookSection("unknown").Valid())
	assert.Equal(t, "unknown", PlaybookSection("unknown").Title())

	// callers cannot mutate the catalogue
	all[0].Title = "mutated"
	assert.NotEqual(t, "mutated", Sections()[0].Title)
}

func TestNormalizeSteps(t *testing.T) {
	steps := []Step{
		{ID: NumericStepID(1), Instruction: "a", Executor: ExecutorAI, AssignedHuman: HumanJasonMao},
		{ID: NumericStepID(2), Instruction: "b", Executor: ExecutorHuman},
		{ID: NumericStepID(3), Instruction: "c", Executor: ExecutorHuman, AssignedHuman: HumanJasonMao},
	}

	normalized := NormalizeSteps(steps)

	require.Len(t, normalized, 3)
	assert.Empty(t, normalized[0].AssignedHuman)
	assert.Equal(t, DefaultHuman, normalized[1].AssignedHuman)
	assert.Equal(t, HumanJasonMao, normalized[2].AssignedHuman)
	assert.Equal(t, []string{"a", "b", "c"}, []string{normalized[0].Instruction, normalized[1].Instruction, normalized[2].Instruction})

	// input slice is not modified
	assert.Equal(t, HumanJasonMao, steps[0].AssignedHuman)
}

func TestExecutor_Valid(t *testing.T) {
	assert.True(t, ExecutorAI.Valid())
	assert.True(t, ExecutorHuman.Valid())
	assert.False(t, Executor("robot").Valid())
	assert.False(t, Executor("").Valid())

	assert.True(t, ValidHuman(HumanFemiIbrahim))
	assert.False(t, ValidHuman("Someone Else"))
}
