package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/klauern/hookwarden/internal/condition"
	"github.com/klauern/hookwarden/internal/config"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/rules"
	"github.com/urfave/cli/v3"
)

// NewRulesCmd creates the rules command with its subcommands
func NewRulesCmd() *cli.Command {
	return &cli.Command{
		Name:        "rules",
		Usage:       "List, validate, explain and initialize rules",
		Description: `Inspect the merged rule set: global rules, project rules, local overrides and --rules files.`,
		Commands: []*cli.Command{
			newRulesListCmd(),
			newRulesValidateCmd(),
			newRulesExplainCmd(),
			newRulesInitCmd(),
		},
	}
}

func newRulesListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the merged rules in execution order",
		Flags: []cli.Flag{
			rulesFlag(),
			&cli.StringFlag{
				Name:    "event",
				Aliases: []string{"e"},
				Usage:   "Only show rules listening to this event (pre_tool_use, Stop, ...)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			set, err := loadRuleSet(cmd)
			if err != nil {
				return err
			}
			printDiagnostics(stderr(cmd), set.Diagnostics)

			list := set.Rules
			if name := cmd.String("event"); name != "" {
				event, err := core.ParseEventType(name)
				if err != nil {
					return fmt.Errorf("%w\nValid events: %s", err, strings.Join(core.ValidEventTypes(), ", "))
				}
				list = filterByEvent(list, event)
			}
			writeRuleTable(stdout(cmd), executionOrder(list))
			return nil
		},
	}
}

func filterByEvent(list []rules.Rule, event core.EventType) []rules.Rule {
	var out []rules.Rule
	for _, r := range list {
		if event == core.AllEvents || r.AppliesTo(event) {
			out = append(out, r)
		}
	}
	return out
}

// executionOrder sorts rules the way the matcher orders matched rules
func executionOrder(list []rules.Rule) []rules.Rule {
	ordered := slices.Clone(list)
	slices.SortStableFunc(ordered, func(a, b rules.Rule) int {
		return b.Priority.Rank() - a.Priority.Rank()
	})
	return ordered
}

func writeRuleTable(w io.Writer, list []rules.Rule) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No rules configured. Use 'hookwarden rules init' to create a starter rule file.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRIORITY\tRESULT\tEVENTS\tSTATUS")
	for _, r := range list {
		events := make([]string, len(r.Events))
		for i, e := range r.Events {
			events[i] = string(e)
		}
		status := "enabled"
		if !r.Enabled {
			status = "disabled"
		}
		if r.Terminal {
			status += ",terminal"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Priority, r.Result, strings.Join(events, ","), status)
	}
	_ = tw.Flush()
}

func newRulesValidateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check rule files and conditions for errors",
		Description: `Loads every rule source, compiles every condition and reports problems with
suggestions for misspelled events, action types, keys and functions. Exits
non-zero when any error is found.`,
		Flags: []cli.Flag{rulesFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			set, err := loadRuleSet(cmd)
			if err != nil {
				return err
			}
			diags := append(slices.Clone(set.Diagnostics), config.ValidateConditions(set.Rules, condition.Default())...)
			w := stdout(cmd)
			printDiagnostics(w, diags)

			errCount := 0
			for _, d := range diags {
				if d.Severity == config.SeverityError {
					errCount++
				}
			}
			fmt.Fprintf(w, "%d rules from %d files, %d errors, %d warnings\n",
				len(set.Rules), len(set.Loaded), errCount, len(diags)-errCount)
			if errCount > 0 {
				return cli.Exit("rule validation failed", 1)
			}
			return nil
		},
	}
}

func newRulesExplainCmd() *cli.Command {
	return &cli.Command{
		Name:  "explain",
		Usage: "Show which rules an event would match, without running actions",
		Flags: []cli.Flag{rulesFlag(), inputFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			data, err := readEventDocument(cmd)
			if err != nil {
				return err
			}
			exp, err := newDispatcher(cmd).Explain(data)
			if err != nil {
				return err
			}
			printDiagnostics(stderr(cmd), exp.Diagnostics)

			w := stdout(cmd)
			fmt.Fprintf(w, "Event: %s\n", exp.Event)
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ORDER\tID\tSTATUS\tDETAIL")
			for _, r := range exp.Reports {
				order := "-"
				if r.MatchOrder >= 0 {
					order = fmt.Sprint(r.MatchOrder + 1)
				}
				detail := ""
				if r.Err != nil {
					detail = r.Err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", order, r.Rule.ID, r.Status, detail)
			}
			return tw.Flush()
		},
	}
}

func newRulesInitCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a starter rule file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "global",
				Aliases: []string{"g"},
				Value:   false,
				Usage:   "Write to the global config dir instead of the project",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Value:   false,
				Usage:   "Overwrite an existing rule file",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			global := cmd.Bool("global")
			scope := ScopeProject
			var rulesPath, settingsPath string
			if global {
				scope = ScopeGlobal
				xdg := config.NewXDGConfig()
				if err := xdg.EnsureDirectories(); err != nil {
					return err
				}
				rulesPath, settingsPath = xdg.RulesPath(), xdg.SettingsPath()
			} else {
				projectDir, err := currentProjectDir()
				if err != nil {
					return err
				}
				paths := config.NewProjectPaths(projectDir)
				rulesPath, settingsPath = paths.RulesPath(), paths.SettingsPath()
			}

			if err := config.WriteStarterRules(rulesPath, cmd.Bool("force")); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("%s already exists, use --force to overwrite", rulesPath)
				}
				return err
			}
			w := stdout(cmd)
			fmt.Fprintf(w, "✅ Wrote %s rules to %s\n", scope, rulesPath)

			if global {
				switch err := config.WriteDefaultSettings(settingsPath, false); {
				case err == nil:
					fmt.Fprintf(w, "✅ Wrote default settings to %s\n", settingsPath)
				case !errors.Is(err, fs.ErrExist):
					return err
				}
			}
			fmt.Fprintln(w, "Run 'hookwarden rules validate' after editing.")
			return nil
		},
	}
}
