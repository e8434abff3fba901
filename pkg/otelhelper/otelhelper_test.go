package otelhelper

import (
	"errors"
	"testing"

	"github.com/dukex/playbook/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_SetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(t.Context(), tracer, "workflow.create", attribute.String(WorkflowIDKey, "wf-1"))
	SetError(span, errors.New("boom"), attribute.String(WorkflowKindKey, "workflow"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "workflow.create", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(WorkflowIDKey, "wf-1"))
}

func TestSetError_Classes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		class  string
		status codes.Code
		op     string
	}{
		{
			name:   "not found leaves status unset",
			err:    persistence.NewWorkflowError("GetByID", "wf-1", persistence.ErrWorkflowNotFound),
			class:  "not_found",
			status: codes.Unset,
		},
		{
			name:   "storage failure",
			err:    persistence.NewWorkflowError("List", "", errors.New("connection refused")),
			class:  "storage",
			status: codes.Error,
			op:     "List",
		},
		{name: "anything else", err: errors.New("boom"), class: "internal", status: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := tracetest.NewSpanRecorder()
			tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

			_, span := StartSpan(t.Context(), tracer, "workflow.fetch")
			SetError(span, tt.err)
			span.End()

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.status, spans[0].Status().Code)
			assert.Contains(t, spans[0].Attributes(), attribute.String(ErrorClassKey, tt.class))

			events := spans[0].Events()
			require.NotEmpty(t, events)

			last := events[len(events)-1]
			assert.Equal(t, "error_occurred", last.Name)

			if tt.op != "" {
				assert.Contains(t, last.Attributes, attribute.String(ErrorOpKey, tt.op))
			}
		})
	}
}

func TestNoopTracer(t *testing.T) {
	_, span := StartSpan(t.Context(), NoopTracer(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
}
