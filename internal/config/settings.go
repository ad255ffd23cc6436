package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/klauern/hookwarden/internal/constants"
	"github.com/klauern/hookwarden/internal/core"
)

// LoggingSettings configures the engine log
type LoggingSettings struct {
	Enabled  bool              `toml:"enabled"`
	Format   string            `toml:"format"`
	Path     string            `toml:"path"`
	Level    string            `toml:"level"`
	Rotation LogRotationConfig `toml:"rotation"`
}

// StoreSettings configures the session/project state database
type StoreSettings struct {
	Path string `toml:"path"`
}

// GitSettings configures the git snapshot taken for each event
type GitSettings struct {
	Enabled bool `toml:"enabled"`
}

// Settings is the application configuration read from settings.toml
type Settings struct {
	Logging LoggingSettings `toml:"logging"`
	Store   StoreSettings   `toml:"store"`
	Git     GitSettings     `toml:"git"`
}

// DefaultSettings returns the settings used when no file is present
func DefaultSettings(x *XDGConfig) Settings {
	if x == nil {
		x = NewXDGConfig()
	}
	return Settings{
		Logging: LoggingSettings{
			Enabled:  false,
			Format:   core.LogFormatJSONL,
			Path:     x.LogPath(),
			Level:    core.LevelInfo.String(),
			Rotation: DefaultLogRotationConfig(),
		},
		Store: StoreSettings{Path: x.StatePath()},
		Git:   GitSettings{Enabled: true},
	}
}

// LoadSettings reads the global settings.toml, overlays the project one and
// applies environment overrides. Missing files are not an error.
func LoadSettings(x *XDGConfig, projectDir string) (Settings, error) {
	if x == nil {
		x = NewXDGConfig()
	}
	settings := DefaultSettings(x)

	paths := []string{x.SettingsPath()}
	if projectDir != "" {
		paths = append(paths, NewProjectPaths(projectDir).SettingsPath())
	}
	for _, p := range paths {
		if err := decodeSettingsFile(p, &settings); err != nil {
			return settings, err
		}
	}

	applyEnvOverrides(&settings, os.LookupEnv)
	if !core.IsValidLogFormat(settings.Logging.Format) {
		return settings, fmt.Errorf("invalid logging format %q (use %s or %s)", settings.Logging.Format, core.LogFormatJSONL, core.LogFormatPretty)
	}
	if _, err := core.ParseLogLevel(settings.Logging.Level); err != nil {
		return settings, err
	}
	return settings, nil
}

// decodeSettingsFile overlays the keys present in path onto settings
func decodeSettingsFile(path string, settings *Settings) error {
	data, err := os.ReadFile(path) // #nosec G304 - controlled settings paths
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if _, err := toml.Decode(string(data), settings); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(s *Settings, lookup func(string) (string, bool)) {
	if v, ok := lookup(constants.EnvLog); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			s.Logging.Enabled = true
		case "0", "false", "no", "off":
			s.Logging.Enabled = false
		}
	}
	if v, ok := lookup(constants.EnvLogFormat); ok && v != "" {
		s.Logging.Format = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(constants.EnvStore); ok && v != "" {
		s.Store.Path = v
	}
}

// WriteDefaultSettings writes a commented settings.toml to path
func WriteDefaultSettings(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fs.ErrExist
	}
	return writeFile(path, []byte(defaultSettingsTOML))
}

const defaultSettingsTOML = `# hookwarden settings

[logging]
enabled = false
format = "jsonl"   # jsonl or pretty
level = "info"     # debug, info, warn or error
# path = "~/.config/hookwarden/logs/hookwarden.log"

[logging.rotation]
max_age = 30       # days
max_size = 10      # megabytes
max_backups = 5
compress = true

[store]
# path = "~/.config/hookwarden/state.db"

[git]
enabled = true
`
