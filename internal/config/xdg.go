package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauern/hookwarden/internal/constants"
)

// XDGConfig handles XDG Base Directory Specification compliant configuration
type XDGConfig struct {
	BaseDir string
}

// NewXDGConfig creates a new XDG configuration manager
func NewXDGConfig() *XDGConfig {
	baseDir := os.Getenv("XDG_CONFIG_HOME")
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory if home directory cannot be determined
			baseDir = ".config"
		} else {
			baseDir = filepath.Join(homeDir, ".config")
		}
	}

	return &XDGConfig{
		BaseDir: filepath.Join(baseDir, constants.AppName),
	}
}

// GetConfigDir returns the XDG configuration directory for hookwarden
func (x *XDGConfig) GetConfigDir() string {
	return x.BaseDir
}

// RulesPath returns the global rule file
func (x *XDGConfig) RulesPath() string {
	return filepath.Join(x.BaseDir, constants.RulesFileName)
}

// DropInDir returns the global rules.d directory
func (x *XDGConfig) DropInDir() string {
	return filepath.Join(x.BaseDir, constants.RulesDropInDir)
}

// SettingsPath returns the global settings.toml
func (x *XDGConfig) SettingsPath() string {
	return filepath.Join(x.BaseDir, constants.SettingsFileName)
}

// StatePath returns the default location of the state database
func (x *XDGConfig) StatePath() string {
	return filepath.Join(x.BaseDir, constants.StateFileName)
}

// LogPath returns the default engine log file
func (x *XDGConfig) LogPath() string {
	return filepath.Join(x.BaseDir, "logs", constants.DefaultLogFile)
}

// EnsureDirectories creates the necessary XDG directories
func (x *XDGConfig) EnsureDirectories() error {
	dirs := []string{
		x.GetConfigDir(),
		x.DropInDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil { // #nosec G301 - XDG directories should be user-only accessible
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ProjectPaths locates the project-scoped configuration under
// <project>/.claude/hookwarden
type ProjectPaths struct {
	Dir string
}

// NewProjectPaths returns the project paths for a project root
func NewProjectPaths(projectDir string) ProjectPaths {
	return ProjectPaths{Dir: constants.GetProjectConfigDir(projectDir)}
}

// RulesPath returns the shared project rule file
func (p ProjectPaths) RulesPath() string {
	return filepath.Join(p.Dir, constants.RulesFileName)
}

// DropInDir returns the project rules.d directory
func (p ProjectPaths) DropInDir() string {
	return filepath.Join(p.Dir, constants.RulesDropInDir)
}

// LocalRulesPath returns the uncommitted per-developer rule file
func (p ProjectPaths) LocalRulesPath() string {
	return filepath.Join(p.Dir, constants.LocalRulesFileName)
}

// SettingsPath returns the project settings.toml
func (p ProjectPaths) SettingsPath() string {
	return filepath.Join(p.Dir, constants.SettingsFileName)
}
