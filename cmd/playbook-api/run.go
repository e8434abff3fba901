package main

import (
	"context"
	"fmt"

	"github.com/dukex/playbook/pkg/cmd"
	"github.com/dukex/playbook/pkg/log"
	"github.com/dukex/playbook/pkg/otelhelper"
	"github.com/urfave/cli/v3"
)

func databaseURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL for persistence (file://, postgres://, sqlite://, redis://)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logLevelFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start api",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseURLFlag(),
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus for workflow lifecycle events (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers, used with --event-bus kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			logLevelFlag(),
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write JSON logs to this file",
				Sources: cli.EnvVars("LOG_FILE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_TRACING"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			closeLog, err := log.SetupWithFile(command.String("log-level"), command.String("log-file"))
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}

			defer func() { _ = closeLog() }()

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Playbook API")

			tracer := otelhelper.NoopTracer()

			if command.Bool("tracing") {
				var shutdown func(context.Context) error

				tracer, shutdown, err = otelhelper.NewTracer(ctx, "playbook-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					err := shutdown(context.WithoutCancel(ctx))
					if err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(context.WithoutCancel(ctx))
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, command.StringSlice("kafka-brokers"))
			if err != nil {
				return fmt.Errorf("failed to initialize event bus: %w", err)
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			err = subscribeAuditLog(ctx, log.WithModule("audit"), eventBus)
			if err != nil {
				return err
			}

			api := NewAPI(logger, persistence, eventBus, tracer)

			return api.Start(ctx, command.Int("port"))
		},
	}
}
