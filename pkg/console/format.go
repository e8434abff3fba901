package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/playbook/pkg/models"
)

// StepsSummary counts steps per executor, e.g. "2 AI, 1 Human".
func StepsSummary(steps []models.Step) string {
	if len(steps) == 0 {
		return "No steps"
	}

	var ai, human int

	for _, step := range steps {
		switch step.Executor {
		case models.ExecutorAI:
			ai++
		case models.ExecutorHuman:
			human++
		}
	}

	parts := make([]string, 0, 2)

	if ai > 0 {
		parts = append(parts, fmt.Sprintf("%d AI", ai))
	}

	if human > 0 {
		parts = append(parts, fmt.Sprintf("%d Human", human))
	}

	return strings.Join(parts, ", ")
}

// FormatDate renders t like "Jan 2, 2006", or "Unknown" when unset.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}

	return t.Local().Format("Jan 2, 2006")
}

// FirstInstruction is the preview line shown under a record title.
func FirstInstruction(record *models.Record) string {
	if len(record.Steps) == 0 {
		return ""
	}

	return record.Steps[0].Instruction
}
