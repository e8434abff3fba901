package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dukex/playbook/pkg/client"
	"github.com/dukex/playbook/pkg/config"
	"github.com/dukex/playbook/pkg/console"
	"github.com/dukex/playbook/pkg/models"
)

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Show the dashboard of workflows or playbooks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "playbooks",
				Usage: "Show the playbooks tab",
			},
			&cli.StringFlag{
				Name:  "layout",
				Usage: "Workflow list layout (table, cards)",
				Value: string(console.LayoutTable),
			},
			&cli.StringFlag{
				Name:  "section",
				Usage: "Expand a playbook section (" + sectionIDs() + ")",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			layout, err := console.ParseLayout(command.String("layout"))
			if err != nil {
				return err
			}

			dashboard := console.NewDashboard(apiClient(command))

			if result := dashboard.Load(ctx); !result.OK() {
				return result.Err
			}

			if command.Bool("playbooks") {
				dashboard.SelectTab(console.TabPlaybooks)
			}

			if section := command.String("section"); section != "" {
				dashboard.ToggleSection(models.PlaybookSection(section))
			}

			fmt.Fprintln(command.Root().Writer, console.NewPresentation(layout).Dashboard(dashboard.State()))

			return nil
		},
	}
}

func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a workflow or playbook",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yaml",
				Usage: "Print the record as an editable YAML file",
			},
			&cli.BoolFlag{
				Name:  "playbook",
				Usage: "Read through the playbook route, failing for plain workflows",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireID(command)
			if err != nil {
				return err
			}

			api := apiClient(command)

			get := api.GetWorkflow
			if command.Bool("playbook") {
				get = api.GetPlaybook
			}

			record, err := get(ctx, id)
			if err != nil {
				return err
			}

			if command.Bool("playbook") && !record.IsPlaybook() {
				return fmt.Errorf("%s is a workflow, not a playbook", id)
			}

			out := command.Root().Writer

			if !command.Bool("yaml") {
				fmt.Fprint(out, console.NewPresentation(console.LayoutTable).Record(record))

				return nil
			}

			data, err := config.RecordFileFrom(record).Marshal()
			if err != nil {
				return err
			}

			_, err = out.Write(data)

			return err
		},
	}
}

func ToggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Start or pause a workflow",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireID(command)
			if err != nil {
				return err
			}

			dashboard := console.NewDashboard(apiClient(command))

			if result := dashboard.Load(ctx); !result.OK() {
				return result.Err
			}

			result := dashboard.Toggle(ctx, id)
			if !result.OK() {
				return result.Err
			}

			record, _ := dashboard.State().Find(id)

			status := "paused"
			if record != nil && record.IsRunning {
				status = "running"
			}

			p := console.NewPresentation(console.LayoutTable)
			fmt.Fprintf(command.Root().Writer, "%s (%s is now %s)\n", p.Result(result), id, status)

			return nil
		},
	}
}

func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a workflow or playbook permanently",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip confirmation",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := requireID(command)
			if err != nil {
				return err
			}

			dashboard := console.NewDashboard(apiClient(command))

			if result := dashboard.Load(ctx); !result.OK() {
				return result.Err
			}

			record, found := dashboard.State().Find(id)
			if !found {
				return fmt.Errorf("workflow not found: %s", id)
			}

			out := command.Root().Writer

			if !command.Bool("yes") {
				ok, err := confirm(command, fmt.Sprintf("Delete %q (%s)?", record.Title, id))
				if err != nil {
					return err
				}

				if !ok {
					fmt.Fprintln(out, "Cancelled.")

					return nil
				}
			}

			result := dashboard.Delete(ctx, id)
			if !result.OK() {
				return result.Err
			}

			fmt.Fprintln(out, console.NewPresentation(console.LayoutTable).Result(result))

			return nil
		},
	}
}

func ApplyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Create a workflow from a YAML file, or update one with --id",
		ArgsUsage: "<file.yaml>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Update this record instead of creating a new one",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("apply requires a YAML file")
			}

			file, err := config.LoadRecordFile(path)
			if err != nil {
				return err
			}

			api := apiClient(command)
			record := file.Record()

			editor := console.EditorFor(record)

			if id := command.String("id"); id != "" {
				editor = console.NewEditor()

				err = editor.Load(ctx, api, id)
				if client.IsNotFound(err) {
					return fmt.Errorf("workflow not found: %s", id)
				}

				if err != nil {
					return err
				}

				editor.Overlay(record)
			}

			result := editor.Save(ctx, api)
			if !result.OK() {
				return result.Err
			}

			fmt.Fprintf(command.Root().Writer, "%s %s\n", record.Kind(), result.ID)

			return nil
		},
	}
}

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Write a blank workflow file to fill in and apply",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "playbook",
				Usage: "Start a playbook instead of a workflow",
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			editor := console.NewEditor()
			editor.SetPlaybook(command.Bool("playbook"))

			record := &models.Record{Title: editor.Title(), Steps: editor.Steps()}
			if editor.IsPlaybook() {
				record.Playbook = &models.Playbook{}
			}

			data, err := config.RecordFileFrom(record).Marshal()
			if err != nil {
				return err
			}

			output := command.String("output")
			if output == "" {
				_, err = command.Root().Writer.Write(data)

				return err
			}

			err = os.WriteFile(output, data, 0o644)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			return nil
		},
	}
}

func sectionIDs() string {
	var ids string

	for i, info := range models.Sections() {
		if i > 0 {
			ids += ", "
		}

		ids += string(info.ID)
	}

	return ids
}
