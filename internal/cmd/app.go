package cmd

import (
	"github.com/klauern/hookwarden/internal/constants"
	"github.com/urfave/cli/v3"
)

// NewApp builds the root command
func NewApp(info VersionInfo) *cli.Command {
	return &cli.Command{
		Name:    constants.AppName,
		Usage:   "Rule-driven hook engine for Claude Code",
		Version: info.Version,
		Description: `hookwarden reads hook events from Claude Code, matches them against
declarative rules and answers with allow, deny, warn or block decisions.`,
		Commands: []*cli.Command{
			NewRunCmd(),
			NewRulesCmd(),
			NewEvalCmd(),
			NewStateCmd(),
			NewInstallCmd(),
			NewUninstallCmd(),
			NewDoctorCmd(),
			NewVersionCmd(info),
		},
	}
}
