package otelhelper

import (
	"errors"

	"github.com/dukex/playbook/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ErrorClassKey = "playbook.error.class"
	ErrorOpKey    = "playbook.error.op"
)

// SetError records err on the span and tags it with its class. A missing
// record is the caller's mistake, so it leaves the span status unset.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	class := "internal"

	var workflowErr *persistence.WorkflowError

	switch {
	case persistence.IsWorkflowNotFound(err):
		class = "not_found"
	case errors.As(err, &workflowErr):
		class = "storage"
		attrs = append(attrs, attribute.String(ErrorOpKey, workflowErr.Op))
	}

	span.RecordError(err)
	span.SetAttributes(attribute.String(ErrorClassKey, class))

	if class != "not_found" {
		span.SetStatus(codes.Error, err.Error())
	}

	span.AddEvent("error_occurred", trace.WithAttributes(attrs...))
}
