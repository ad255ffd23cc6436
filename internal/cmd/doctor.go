package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauern/hookwarden/internal/condition"
	"github.com/klauern/hookwarden/internal/config"
	"github.com/klauern/hookwarden/internal/store"
	"github.com/urfave/cli/v3"
)

// NewDoctorCmd creates the doctor command for diagnosing the installation
func NewDoctorCmd() *cli.Command {
	return &cli.Command{
		Name:        "doctor",
		Usage:       "Diagnose installation, rule files, settings and state",
		Description: `Check where hookwarden is installed, which rule files are loaded, whether they are valid and whether the state database opens.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Value:   false,
				Usage:   "Show detailed configuration information",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return runDoctorCheck(stdout(cmd), cmd.Bool("verbose"))
		},
	}
}

// runDoctorCheck prints the diagnosis. It only fails when the project
// directory cannot be determined.
func runDoctorCheck(w io.Writer, verbose bool) error {
	projectDir, err := currentProjectDir()
	if err != nil {
		return err
	}
	xdg := config.NewXDGConfig()

	fmt.Fprintln(w, "🔍 hookwarden doctor")
	fmt.Fprintln(w, "="+strings.Repeat("=", 50))
	fmt.Fprintln(w)

	section(w, "📁 Project Settings")
	checkInstallation(w, false, projectDir)
	section(w, "🌍 Global Settings")
	checkInstallation(w, true, projectDir)

	section(w, "⚙️  Rules")
	checkRules(w, xdg, projectDir, verbose)

	section(w, "🗄️  Settings and State")
	checkSettingsAndState(w, xdg, projectDir)

	section(w, "📋 Summary")
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  • Create rules: hookwarden rules init")
	fmt.Fprintln(w, "  • Register the hook: hookwarden install")
	fmt.Fprintln(w, "  • Try an event: hookwarden rules explain --input event.json")
	if !verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "For more verbose output, run: hookwarden doctor --verbose")
	}
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", 52))
}

// checkInstallation reports which events run hookwarden in one settings.json
func checkInstallation(w io.Writer, global bool, projectDir string) {
	defer fmt.Fprintln(w)
	path, err := config.GetClaudeSettingsPath(global, projectDir)
	if err != nil {
		fmt.Fprintf(w, "⚠️  Error getting %s settings path: %v\n", scopeName(global), err)
		return
	}
	fmt.Fprintf(w, "Location: %s\n", path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(w, "Status: ✗ No %s settings file found\n", scopeName(global))
		} else {
			fmt.Fprintf(w, "Status: ⚠️  Error checking settings file: %v\n", err)
		}
		return
	}
	settings, err := config.LoadClaudeSettings(path)
	if err != nil {
		fmt.Fprintf(w, "Status: ⚠️  Error loading settings: %v\n", err)
		return
	}
	events := config.InstalledEvents(settings)
	if len(events) == 0 {
		fmt.Fprintln(w, "Status: ✓ Settings file exists, but hookwarden is not installed")
		return
	}
	fmt.Fprintf(w, "Status: ✓ Installed for %d event(s): %s\n", len(events), strings.Join(events, ", "))
}

func checkRules(w io.Writer, xdg *config.XDGConfig, projectDir string, verbose bool) {
	defer fmt.Fprintln(w)
	set := config.LoadRules(config.LoadOptions{XDG: xdg, ProjectDir: projectDir})
	if len(set.Loaded) == 0 {
		fmt.Fprintln(w, "Status: ✗ No rule files found")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Searched locations:")
		for _, src := range config.RuleSources(config.LoadOptions{XDG: xdg, ProjectDir: projectDir}) {
			fmt.Fprintf(w, "  • %s (%s)\n", src.Path, src.Scope)
		}
		return
	}

	fmt.Fprintf(w, "Status: ✓ %d rule(s) from %d file(s)\n", len(set.Rules), len(set.Loaded))
	if verbose {
		fmt.Fprintln(w, "Rule files (in merge order):")
		for _, f := range set.Loaded {
			fmt.Fprintf(w, "  • %s\n", f)
		}
	}

	diags := append(set.Diagnostics, config.ValidateConditions(set.Rules, condition.Default())...)
	if len(diags) == 0 {
		fmt.Fprintln(w, "✓ Rules are valid")
		return
	}
	fmt.Fprintf(w, "⚠️  %d problem(s) found, run 'hookwarden rules validate' for details\n", len(diags))
	if verbose {
		printDiagnostics(w, diags)
	}
}

func checkSettingsAndState(w io.Writer, xdg *config.XDGConfig, projectDir string) {
	defer fmt.Fprintln(w)
	settings, err := config.LoadSettings(xdg, projectDir)
	if err != nil {
		fmt.Fprintf(w, "⚠️  Settings error (defaults in use): %v\n", err)
	} else {
		fmt.Fprintln(w, "✓ Settings are valid")
	}

	if settings.Logging.Enabled {
		fmt.Fprintf(w, "Logging: %s (%s)\n", config.ExpandHome(settings.Logging.Path), settings.Logging.Format)
	} else {
		fmt.Fprintln(w, "Logging: disabled")
	}

	path := config.ExpandHome(settings.Store.Path)
	s, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(w, "State: ⚠️  %v\n", err)
		return
	}
	defer s.Close()
	version, err := s.SchemaVersion()
	if err != nil {
		fmt.Fprintf(w, "State: ⚠️  %v\n", err)
		return
	}
	fmt.Fprintf(w, "State: ✓ %s (schema v%d)\n", path, version)
}
