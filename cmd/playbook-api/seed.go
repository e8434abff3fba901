package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/playbook/pkg/cmd"
	"github.com/dukex/playbook/pkg/log"
	"github.com/dukex/playbook/pkg/services"
	"github.com/dukex/playbook/pkg/web"
	"github.com/urfave/cli/v3"
	"github.com/xeipuuv/gojsonschema"
)

const seedSchema = `{
	"type": "object",
	"required": ["records"],
	"properties": {
		"records": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "steps"],
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"isPlaybook": {"type": "boolean"},
					"playbook_description": {"type": "string"},
					"playbookSection": {
						"enum": ["failing-to-close", "deals-drop-off", "not-moving-forward", "acv-off-whack", null]
					},
					"steps": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["instruction", "executor"],
							"properties": {
								"id": {"type": ["integer", "string"]},
								"instruction": {"type": "string"},
								"executor": {"enum": ["ai", "human"]},
								"assignedHuman": {"enum": ["Femi Ibrahim", "Jason Mao"]}
							}
						}
					}
				}
			}
		}
	}
}`

type seedDocument struct {
	Records []web.CreateWorkflowRequest `json:"records"`
}

// parseSeed validates data against the seed schema and returns one create input per record.
func parseSeed(data []byte) ([]services.CreateInput, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(seedSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed document: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return nil, fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	var document seedDocument

	err = json.Unmarshal(data, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed document: %w", err)
	}

	inputs := make([]services.CreateInput, 0, len(document.Records))
	for _, record := range document.Records {
		inputs = append(inputs, record.CreateInput())
	}

	return inputs, nil
}

// seed creates every input in order and returns the new ids.
func seed(ctx context.Context, workflowService *services.Workflow, inputs []services.CreateInput) ([]string, error) {
	ids := make([]string, 0, len(inputs))

	for i, input := range inputs {
		created, err := workflowService.Create(ctx, input)
		if err != nil {
			return ids, fmt.Errorf("record %d (%s): %w", i+1, input.Title, err)
		}

		ids = append(ids, created.ID)
	}

	return ids, nil
}

func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Import workflows and playbooks from a JSON seed document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Seed document path",
				Required: true,
			},
			databaseURLFlag(),
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("seed")

			data, err := os.ReadFile(command.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}

			inputs, err := parseSeed(data)
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to initialize persistence: %w", err)
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			ids, err := seed(ctx, services.NewWorkflow(persistence, services.WithLogger(logger)), inputs)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Seed imported", "records", len(ids))

			return nil
		},
	}
}
