package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

const appVersion = "0.1.0"

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:    "stemscope",
		Usage:   "Realtime and offline multi-stem audio QC for dialogue mixes",
		Version: appVersion,
		Commands: []*cli.Command{
			scanCommand(),
			monitorCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
