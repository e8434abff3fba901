package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dukex/playbook/pkg/client"
	"github.com/dukex/playbook/pkg/console"
	"github.com/dukex/playbook/pkg/log"
)

var errPasswordRequired = errors.New("password required: pass --password or set PLAYBOOK_PASSWORD")

// NewRootCommand builds the playbook CLI reading prompts from in and
// writing output to out.
func NewRootCommand(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "playbook",
		Usage:                 "Manage workflows and playbooks on a Playbook API",
		EnableShellCompletion: true,
		Reader:                in,
		Writer:                out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the Playbook API",
				Value:   client.DefaultBaseURL,
				Sources: cli.EnvVars("PLAYBOOK_API_URL"),
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Shared access password, prompted for when empty",
				Sources: cli.EnvVars("PLAYBOOK_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			if err := unlock(command); err != nil {
				return ctx, err
			}

			slog.DebugContext(ctx, "Using Playbook API", "url", command.String("api-url"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			ListCommand(),
			ShowCommand(),
			ToggleCommand(),
			DeleteCommand(),
			ApplyCommand(),
			NewCommand(),
		},
	}
}

func unlock(command *cli.Command) error {
	password := command.String("password")

	if password == "" {
		prompted, err := promptPassword(command.Root().Writer)
		if err != nil {
			return err
		}

		password = prompted
	}

	return console.NewGate("").Unlock(password)
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errPasswordRequired
	}

	fmt.Fprint(out, "Password: ")

	secret, err := term.ReadPassword(fd)

	fmt.Fprintln(out)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(secret), nil
}

func apiClient(command *cli.Command) *client.Client {
	return client.New(command.String("api-url"))
}

func confirm(command *cli.Command, question string) (bool, error) {
	out := command.Root().Writer

	fmt.Fprintf(out, "%s [y/N]: ", question)

	response, err := bufio.NewReader(command.Root().Reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))

	return response == "y" || response == "yes", nil
}

func requireID(command *cli.Command) (string, error) {
	id := command.Args().First()
	if id == "" {
		return "", fmt.Errorf("%s requires a workflow id", command.Name)
	}

	return id, nil
}
