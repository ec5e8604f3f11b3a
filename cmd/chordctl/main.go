package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/vedran77/chord/internal/config"
)

func main() {
	cfg := config.Load()

	app := &cli.Command{
		Name:  "chordctl",
		Usage: "Talk to a chord server from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "Base URL of the REST API",
				Value:   cfg.APIURL,
				Sources: cli.EnvVars("CHORD_API_URL"),
			},
			&cli.StringFlag{
				Name:    "signaling",
				Usage:   "WebSocket signaling URL",
				Value:   cfg.SignalingURL,
				Sources: cli.EnvVars("CHORD_SIGNALING_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token",
				Sources: cli.EnvVars("CHORD_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			tokenCommand(cfg),
			sendCommand(),
			historyCommand(),
			listenCommand(cfg),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
