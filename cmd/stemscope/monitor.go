package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mikup/stemscope/internal/config"
	"github.com/mikup/stemscope/internal/orchestrator"
	"github.com/mikup/stemscope/internal/streamsync"
	"github.com/mikup/stemscope/internal/types"
)

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Stream a set of stems through the realtime analyzer bank and play the mix",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dialogue", Aliases: []string{"dx"}, Usage: "Path to the dialogue stem (required)", Required: true},
			&cli.StringFlag{Name: "music", Usage: "Path to the music stem"},
			&cli.StringFlag{Name: "effects", Aliases: []string{"fx"}, Usage: "Path to the effects stem"},
			&cli.StringFlag{Name: "foley", Usage: "Path to the foley stem"},
			&cli.StringFlag{Name: "ambience", Aliases: []string{"amb"}, Usage: "Path to the ambience stem"},
			&cli.StringFlag{Name: "start-time", Value: "0", Usage: "Media start time in seconds"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := streamsync.Paths{
				types.StemDialogue: cmd.String("dialogue"),
				types.StemMusic:    cmd.String("music"),
				types.StemEffects:  cmd.String("effects"),
				types.StemFoley:    cmd.String("foley"),
				types.StemAmbience: cmd.String("ambience"),
			}

			var stems []types.StemID

			for _, id := range types.CanonicalStemIDs {
				if paths[id] != "" {
					stems = append(stems, id)
				}
			}

			startTime, parseErr := strconv.ParseFloat(cmd.String("start-time"), 64)
			if parseErr != nil {
				return fmt.Errorf("--start-time: %w", parseErr)
			}

			orch := orchestrator.New(config.Default(), stems)

			done := make(chan error, 1)

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := orch.StartStream(paths, startTime, func(ev orchestrator.Event) {
				switch ev.Kind {
				case orchestrator.EventFrame:
					f := ev.Frame
					fmt.Fprintf(os.Stdout, "frame %d t=%.3fs corr=%.2f snr=%.1fdB\n",
						f.FrameIndex, f.TimestampSecs, f.PhaseCorrelation, f.SNRDb)
				case orchestrator.EventWarning:
					fmt.Fprintf(os.Stderr, "warning: %s\n", ev.Warning)
				case orchestrator.EventError:
					done <- ev.Err
				case orchestrator.EventComplete:
					done <- nil
				}
			})
			if err != nil {
				return fmt.Errorf("starting stream: %w", err)
			}

			select {
			case err := <-done:
				return err
			case <-sigCtx.Done():
				orch.StopStream()

				return nil
			}
		},
	}
}
