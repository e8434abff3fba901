// Package main provides the Playbook API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/playbook/pkg/eventbus"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/dukex/playbook/pkg/services"
	"github.com/dukex/playbook/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) workflowService() *services.Workflow {
	opts := []services.Option{services.WithLogger(a.logger)}

	if a.eventBus != nil {
		opts = append(opts, services.WithEventPublisher(a.eventBus))
	}

	if a.tracer != nil {
		opts = append(opts, services.WithTracer(a.tracer))
	}

	return services.NewWorkflow(a.persistence, opts...)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.workflowService(), a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Playbook API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Patch("/:id/status", handlers.UpdateWorkflowStatus)

	p := app.Group("/playbooks")
	p.Get("/", handlers.GetPlaybooks)
	p.Post("/", handlers.CreatePlaybook)
	p.Get("/:id", handlers.GetPlaybook)
	p.Put("/:id", handlers.UpdatePlaybook)

	app.Get("/health", handlers.HealthCheck)

	return app
}

// Start serves until ctx is cancelled, then shuts the server down. It returns
// as soon as Listen fails.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()
	stopped := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	err := app.Listen(":" + strconv.Itoa(port))
	close(stopped)

	return err
}
