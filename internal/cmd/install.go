package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauern/hookwarden/internal/config"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/urfave/cli/v3"
)

type installFlags struct {
	logEnabled bool
	logFormat  string
	ruleFiles  []string
}

// buildRunCommand returns the command line registered in settings.json
func buildRunCommand(execPath string, flags installFlags) string {
	parts := []string{execPath, "run"}
	for _, f := range flags.ruleFiles {
		parts = append(parts, "--rules", f)
	}
	if flags.logEnabled {
		parts = append(parts, "--log")
		if flags.logFormat != "" && flags.logFormat != core.LogFormatJSONL {
			parts = append(parts, "--log-format", flags.logFormat)
		}
	}
	return strings.Join(parts, " ")
}

// installEvents resolves --event values, defaulting to every hook event
func installEvents(names []string) ([]core.EventType, error) {
	if len(names) == 0 {
		all := core.AllHookEvents()
		events := make([]core.EventType, len(all))
		for i, e := range all {
			events[i] = e.Type
		}
		return events, nil
	}
	events := make([]core.EventType, 0, len(names))
	for _, name := range names {
		event, err := core.ParseEventType(name)
		if err != nil || event == core.AllEvents {
			return nil, fmt.Errorf("invalid event '%s'.\nValid events: %s", name, strings.Join(core.ValidEventTypes(), ", "))
		}
		events = append(events, event)
	}
	return events, nil
}

// handleDuplicateHookResult reports a merge outcome and whether it changed nothing
func handleDuplicateHookResult(w io.Writer, event string, result config.MergeResult) bool {
	if !result.WasDuplicate {
		return false
	}
	if strings.Contains(result.DuplicateInfo, "Replaced existing") {
		fmt.Fprintf(w, "🔄 %s: %s\n", event, result.DuplicateInfo)
		return false
	}
	fmt.Fprintf(w, "⚠️  %s: already installed\n", event)
	return true
}

// NewInstallCmd creates the command that registers hookwarden in the host settings
func NewInstallCmd() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Register hookwarden for hook events in Claude Code settings",
		Description: `Adds 'hookwarden run' to settings.json for the given events, or for every
event when none is given. An existing hookwarden command is replaced rather
than duplicated.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "global",
				Aliases: []string{"g"},
				Value:   false,
				Usage:   "Install to global settings (~/.claude/settings.json)",
			},
			&cli.StringSliceFlag{
				Name:    "event",
				Aliases: []string{"e"},
				Usage:   "Hook event to register (repeatable, default all)",
			},
			&cli.IntFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   0,
				Usage:   "Command timeout in seconds (0 for the host default)",
			},
			rulesFlag(),
			&cli.BoolFlag{
				Name:    "log",
				Aliases: []string{"l"},
				Value:   false,
				Usage:   "Register the command with --log",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: core.LogFormatJSONL,
				Usage: "Log output format: jsonl or pretty (default jsonl)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			flags := installFlags{
				logEnabled: cmd.Bool("log"),
				logFormat:  cmd.String("log-format"),
				ruleFiles:  cmd.StringSlice("rules"),
			}
			if flags.logEnabled && !core.IsValidLogFormat(flags.logFormat) {
				return fmt.Errorf("invalid --log-format '%s'. Valid: jsonl, pretty", flags.logFormat)
			}
			events, err := installEvents(cmd.StringSlice("event"))
			if err != nil {
				return err
			}

			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to get executable path: %w", err)
			}
			hookCommand := buildRunCommand(execPath, flags)

			global := cmd.Bool("global")
			settingsPath, err := settingsPathFor(global)
			if err != nil {
				return err
			}
			settings, err := config.LoadClaudeSettings(settingsPath)
			if err != nil {
				return fmt.Errorf("failed to load settings from %s: %w", settingsPath, err)
			}

			var timeout *int
			if t := cmd.Int("timeout"); t > 0 {
				timeout = &t
			}

			w := stdout(cmd)
			changed := false
			for _, event := range events {
				result, err := config.AddHookToSettings(settings, event, config.DefaultMatcher(event), hookCommand, timeout)
				if err != nil {
					return err
				}
				if !handleDuplicateHookResult(w, event.HostName(), result) {
					changed = true
				}
			}
			if !changed {
				fmt.Fprintln(w, "No changes made. hookwarden is already configured for these events.")
				return nil
			}
			if err := config.SaveClaudeSettings(settingsPath, settings); err != nil {
				return fmt.Errorf("failed to save settings to %s: %w", settingsPath, err)
			}

			fmt.Fprintf(w, "✅ Installed hookwarden in %s settings\n", scopeName(global))
			fmt.Fprintf(w, "   Events: %d\n", len(events))
			fmt.Fprintf(w, "   Command: %s\n", hookCommand)
			fmt.Fprintf(w, "   Settings: %s\n", settingsPath)
			fmt.Fprintln(w, "The hook will be active in new Claude Code sessions.")
			return nil
		},
	}
}

// NewUninstallCmd creates the command that removes hookwarden from the host settings
func NewUninstallCmd() *cli.Command {
	return &cli.Command{
		Name:  "uninstall",
		Usage: "Remove every hookwarden command from Claude Code settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "global",
				Aliases: []string{"g"},
				Value:   false,
				Usage:   "Remove from global settings (~/.claude/settings.json)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			global := cmd.Bool("global")
			settingsPath, err := settingsPathFor(global)
			if err != nil {
				return err
			}
			settings, err := config.LoadClaudeSettings(settingsPath)
			if err != nil {
				return fmt.Errorf("failed to load settings from %s: %w", settingsPath, err)
			}

			w := stdout(cmd)
			removed := config.RemoveHookwardenFromSettings(settings)
			if removed == 0 {
				fmt.Fprintf(w, "No hookwarden commands found in %s settings\n", scopeName(global))
				return nil
			}
			if err := config.SaveClaudeSettings(settingsPath, settings); err != nil {
				return fmt.Errorf("failed to save settings to %s: %w", settingsPath, err)
			}
			fmt.Fprintf(w, "✅ Removed %d hookwarden commands from %s\n", removed, settingsPath)
			return nil
		},
	}
}

func settingsPathFor(global bool) (string, error) {
	projectDir := ""
	if !global {
		var err error
		if projectDir, err = currentProjectDir(); err != nil {
			return "", err
		}
	}
	path, err := config.GetClaudeSettingsPath(global, projectDir)
	if err != nil {
		return "", fmt.Errorf("failed to locate %s settings path: %w", scopeName(global), err)
	}
	return path, nil
}

func scopeName(global bool) string {
	if global {
		return ScopeGlobal
	}
	return ScopeProject
}
