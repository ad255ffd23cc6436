package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/klauern/hookwarden/internal/config"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/store"
	"github.com/urfave/cli/v3"
)

// NewStateCmd creates the command that manages session and project state
// read by session_get and project_get in conditions
func NewStateCmd() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Read and write session and project state",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a value as JSON",
				ArgsUsage: "KEY",
				Flags:     scopeFlags(),
				Action: withStore(1, func(ctx context.Context, cmd *cli.Command, s *store.Store, scope core.Scope, owner string) error {
					value, err := s.Get(ctx, scope, owner, cmd.Args().Get(0))
					if err != nil {
						return err
					}
					data, err := json.Marshal(value)
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout(cmd), "%s\n", data)
					return nil
				}),
			},
			{
				Name:      "set",
				Usage:     "Store a value; valid JSON is stored as JSON, anything else as a string",
				ArgsUsage: "KEY VALUE",
				Flags:     scopeFlags(),
				Action: withStore(2, func(ctx context.Context, cmd *cli.Command, s *store.Store, scope core.Scope, owner string) error {
					return s.Set(ctx, scope, owner, cmd.Args().Get(0), store.ParseValue(cmd.Args().Get(1)))
				}),
			},
			{
				Name:      "delete",
				Usage:     "Remove a value",
				ArgsUsage: "KEY",
				Flags:     scopeFlags(),
				Action: withStore(1, func(ctx context.Context, cmd *cli.Command, s *store.Store, scope core.Scope, owner string) error {
					return s.Delete(ctx, scope, owner, cmd.Args().Get(0))
				}),
			},
			{
				Name:  "list",
				Usage: "List every value of a session or project",
				Flags: scopeFlags(),
				Action: withStore(0, func(ctx context.Context, cmd *cli.Command, s *store.Store, scope core.Scope, owner string) error {
					entries, err := s.List(ctx, scope, owner)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(stdout(cmd), 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "KEY\tVALUE\tUPDATED")
					for _, e := range entries {
						data, _ := json.Marshal(e.Value)
						fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, data, e.UpdatedAt.Local().Format(time.RFC3339))
					}
					return tw.Flush()
				}),
			},
			{
				Name:  "prune",
				Usage: "Delete values of a scope not updated recently",
				Flags: []cli.Flag{
					scopeFlags()[0],
					&cli.DurationFlag{
						Name:  "older-than",
						Value: 7 * 24 * time.Hour,
						Usage: "Remove values not updated within this duration",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					scope, ok := core.ParseScope(cmd.String("scope"))
					if !ok {
						return fmt.Errorf("invalid --scope %q (use session or project)", cmd.String("scope"))
					}
					s, err := openStore()
					if err != nil {
						return err
					}
					defer s.Close()
					n, err := s.Prune(ctx, scope, time.Now().Add(-cmd.Duration("older-than")))
					if err != nil {
						return err
					}
					fmt.Fprintf(stdout(cmd), "Removed %d %s values\n", n, scope)
					return nil
				},
			},
		},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "scope",
			Value: string(core.ScopeSession),
			Usage: "State scope: session or project",
		},
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "Session `ID` (required for the session scope)",
		},
		&cli.StringFlag{
			Name:  "project",
			Usage: "Project `DIR` (project scope, default the current project)",
		},
	}
}

type storeAction func(ctx context.Context, cmd *cli.Command, s *store.Store, scope core.Scope, owner string) error

// withStore validates arguments, resolves scope and owner and opens the store
func withStore(nargs int, fn storeAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != nargs {
			return fmt.Errorf("expected %d arguments: %s", nargs, cmd.ArgsUsage)
		}
		scope, owner, err := resolveOwner(cmd)
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s, scope, owner)
	}
}

func resolveOwner(cmd *cli.Command) (core.Scope, string, error) {
	scope, ok := core.ParseScope(cmd.String("scope"))
	if !ok {
		return "", "", fmt.Errorf("invalid --scope %q (use session or project)", cmd.String("scope"))
	}
	if scope == core.ScopeSession {
		id := cmd.String("session")
		if id == "" {
			return "", "", fmt.Errorf("--session is required for the session scope")
		}
		return scope, id, nil
	}

	dir := cmd.String("project")
	if dir == "" {
		var err error
		if dir, err = currentProjectDir(); err != nil {
			return "", "", err
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve project dir: %w", err)
	}
	return scope, abs, nil
}

// openStore opens the state database configured for the current project
func openStore() (*store.Store, error) {
	projectDir, err := currentProjectDir()
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(config.NewXDGConfig(), projectDir)
	if err != nil {
		return nil, err
	}
	return store.Open(config.ExpandHome(settings.Store.Path))
}
