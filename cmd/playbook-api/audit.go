package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/playbook/pkg/eventbus"
	"github.com/dukex/playbook/pkg/events"
)

var auditedEvents = []events.EventType{
	events.WorkflowCreatedEvent,
	events.WorkflowUpdatedEvent,
	events.WorkflowStatusChangedEvent,
	events.WorkflowDeletedEvent,
}

// subscribeAuditLog consumes the lifecycle events the API publishes and writes
// one log line per change. The subscription ends with ctx.
func subscribeAuditLog(ctx context.Context, logger *slog.Logger, bus eventbus.EventSubscriber) error {
	handler := auditHandler(logger)

	for _, eventType := range auditedEvents {
		err := bus.Handle(eventType, handler)
		if err != nil {
			return fmt.Errorf("failed to handle %s: %w", eventType, err)
		}
	}

	err := bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	return nil
}

func auditHandler(logger *slog.Logger) eventbus.EventHandler {
	return func(ctx context.Context, event any) error {
		switch e := event.(type) {
		case *events.WorkflowCreated:
			logger.InfoContext(ctx, "Workflow created",
				"event_type", e.Type, "workflow_id", e.WorkflowID,
				"kind", e.Kind, "title", e.Title, "step_count", e.StepCount)
		case *events.WorkflowUpdated:
			logger.InfoContext(ctx, "Workflow updated",
				"event_type", e.Type, "workflow_id", e.WorkflowID,
				"kind", e.Kind, "fields", e.Fields)
		case *events.WorkflowStatusChanged:
			logger.InfoContext(ctx, "Workflow status changed",
				"event_type", e.Type, "workflow_id", e.WorkflowID, "is_running", e.IsRunning)
		case *events.WorkflowDeleted:
			logger.InfoContext(ctx, "Workflow deleted",
				"event_type", e.Type, "workflow_id", e.WorkflowID, "kind", e.Kind)
		default:
			logger.WarnContext(ctx, "Unexpected event", "event", fmt.Sprintf("%T", event))
		}

		return nil
	}
}
