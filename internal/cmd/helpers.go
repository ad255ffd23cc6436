package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauern/hookwarden/internal/config"
	"github.com/klauern/hookwarden/internal/dispatch"
	"github.com/urfave/cli/v3"
)

// Configuration scopes shown in command output
const (
	ScopeGlobal  = "global"
	ScopeProject = "project"
)

func stdout(cmd *cli.Command) io.Writer { return cmd.Root().Writer }
func stderr(cmd *cli.Command) io.Writer { return cmd.Root().ErrWriter }
func stdin(cmd *cli.Command) io.Reader  { return cmd.Root().Reader }

// currentProjectDir returns the host project root when set, or the working directory
func currentProjectDir() (string, error) {
	if dir := os.Getenv(dispatch.EnvProjectDir); dir != "" {
		return filepath.Clean(dir), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

func rulesFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "rules",
		Aliases: []string{"r"},
		Usage:   "Extra rule file applied after the discovered ones (repeatable)",
	}
}

func inputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "Read the hook event JSON from `FILE` instead of stdin",
	}
}

// loadRuleSet discovers rules for the current project plus any --rules files
func loadRuleSet(cmd *cli.Command) (*config.RuleSet, error) {
	projectDir, err := currentProjectDir()
	if err != nil {
		return nil, err
	}
	return config.LoadRules(config.LoadOptions{
		XDG:        config.NewXDGConfig(),
		ProjectDir: projectDir,
		Files:      cmd.StringSlice("rules"),
	}), nil
}

// readEventDocument reads the hook event from --input or stdin
func readEventDocument(cmd *cli.Command) ([]byte, error) {
	if path := cmd.String("input"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path given on the command line
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(stdin(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

func newDispatcher(cmd *cli.Command) *dispatch.Dispatcher {
	return dispatch.New(dispatch.Options{
		RuleFiles: cmd.StringSlice("rules"),
		Stderr:    stderr(cmd),
	})
}

func printDiagnostics(w io.Writer, diags []config.Diagnostic) {
	for i := range diags {
		marker := "⚠️ "
		if diags[i].Severity == config.SeverityError {
			marker = "❌"
		}
		fmt.Fprintf(w, "%s %s\n", marker, diags[i].Error())
	}
}
