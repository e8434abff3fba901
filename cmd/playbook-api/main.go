package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:                  "playbook-api",
		Usage:                 "Serve and manage workflows and playbooks",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			SeedCommand(),
		},
	}

	err := cmd.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
