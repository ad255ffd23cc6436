package cmd

import (
	"context"
	"fmt"

	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/dispatch"
	"github.com/urfave/cli/v3"
)

// NewRunCmd creates the command the host invokes for every hook event
func NewRunCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Evaluate rules for the hook event read from stdin",
		Description: `Reads one hook event as JSON from stdin, runs every matching rule and
writes the host response JSON to stdout. Invalid input or internal failures
produce an empty response so the host always proceeds.`,
		Flags: []cli.Flag{
			rulesFlag(),
			&cli.BoolFlag{
				Name:    "log",
				Aliases: []string{"l"},
				Value:   false,
				Usage:   "Enable logging regardless of settings.toml",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format: jsonl or pretty (default from settings)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return fmt.Errorf("run takes no arguments, got %q", cmd.Args().First())
			}
			logFormat := cmd.String("log-format")
			if logFormat != "" && !core.IsValidLogFormat(logFormat) {
				return fmt.Errorf("invalid --log-format '%s'. Valid: jsonl, pretty", logFormat)
			}

			d := dispatch.New(dispatch.Options{
				RuleFiles: cmd.StringSlice("rules"),
				ForceLog:  cmd.Bool("log"),
				LogFormat: logFormat,
				Stderr:    stderr(cmd),
			})
			return d.Run(stdin(cmd), stdout(cmd))
		},
	}
}
