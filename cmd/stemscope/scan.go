package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/primordium/format"

	"github.com/mikup/stemscope/internal/scanner"
	"github.com/mikup/stemscope/internal/types"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Run the offline loudness and diagnostics scan over a set of stems",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dialogue", Aliases: []string{"dx"}, Usage: "Path to the dialogue stem (required)", Required: true},
			&cli.StringFlag{Name: "music", Usage: "Path to the music stem"},
			&cli.StringFlag{Name: "effects", Aliases: []string{"fx"}, Usage: "Path to the effects stem"},
			&cli.StringFlag{Name: "foley", Usage: "Path to the foley stem"},
			&cli.StringFlag{Name: "ambience", Aliases: []string{"amb"}, Usage: "Path to the ambience stem"},
			&cli.IntFlag{Name: "points-per-second", Value: 2, Usage: "Loudness sampling cadence, 1 or 2"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "console", Usage: "Output format: console, json, markdown"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			s, err := scanner.New(cmd.Int("points-per-second"))
			if err != nil {
				return err
			}

			paths := scanner.Paths{
				types.StemDialogue: cmd.String("dialogue"),
				types.StemMusic:    cmd.String("music"),
				types.StemEffects:  cmd.String("effects"),
				types.StemFoley:    cmd.String("foley"),
				types.StemAmbience: cmd.String("ambience"),
			}

			profiles, err := s.Scan(paths, func(ev scanner.Event) {
				switch ev.Kind {
				case scanner.StemStarted:
					fmt.Fprintf(os.Stderr, "[%s] started\n", ev.Stem)
				case scanner.StemProgress:
					fmt.Fprintf(os.Stderr, "[%s] %.1fs decoded\n", ev.Stem, ev.ElapsedSecs)
				case scanner.StemFinished:
					if ev.Err != nil {
						fmt.Fprintf(os.Stderr, "[%s] failed: %v\n", ev.Stem, ev.Err)
					} else {
						fmt.Fprintf(os.Stderr, "[%s] finished\n", ev.Stem)
					}
				}
			})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			return outputScanResult(profiles, cmd.String("format"))
		},
	}
}

func outputScanResult(profiles map[types.StemID]*types.StemProfile, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	datas := make([]*format.Data, 0, len(profiles))

	for _, id := range types.CanonicalStemIDs {
		profile, ok := profiles[id]
		if !ok {
			continue
		}

		meta := map[string]any{
			"integrated_lufs": fmt.Sprintf("%.1f LUFS", profile.IntegratedLUFS),
			"loudness_range":  fmt.Sprintf("%.1f LU", profile.LoudnessRange),
		}

		if profile.Diagnostics != nil {
			meta["worst_severity"] = profile.Diagnostics.WorstSeverity().String()
		}

		datas = append(datas, &format.Data{Object: id.String(), Meta: meta})
	}

	return formatter.PrintAll(datas, os.Stdout)
}
