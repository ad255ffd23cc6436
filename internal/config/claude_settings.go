package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauern/hookwarden/internal/constants"
	"github.com/klauern/hookwarden/internal/core"
)

// HookCommand is one command entry in the host settings.json
type HookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout *int   `json:"timeout,omitempty"`
}

// HookMatcher groups commands under a tool matcher
type HookMatcher struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []HookCommand `json:"hooks"`
}

// ClaudeSettings is the subset of the host settings.json hookwarden edits.
// Hooks is keyed by host event name ("PreToolUse"); unknown top-level keys
// are preserved in Other.
type ClaudeSettings struct {
	Hooks map[string][]HookMatcher `json:"hooks,omitempty"`
	Other map[string]any           `json:"-"`
}

// GetClaudeSettingsPath returns ~/.claude/settings.json when global, or
// <projectDir>/.claude/settings.json otherwise
func GetClaudeSettingsPath(global bool, projectDir string) (string, error) {
	if global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, constants.ClaudeDir, constants.ClaudeSettingsFile), nil
	}
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		projectDir = cwd
	}
	return filepath.Join(projectDir, constants.ClaudeDir, constants.ClaudeSettingsFile), nil
}

// LoadClaudeSettings reads settings.json, returning empty settings when the
// file does not exist
func LoadClaudeSettings(settingsPath string) (*ClaudeSettings, error) {
	settings := &ClaudeSettings{
		Hooks: map[string][]HookMatcher{},
		Other: map[string]any{},
	}

	data, err := os.ReadFile(settingsPath) // #nosec G304 - controlled settings paths
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// First unmarshal into a generic map to preserve unknown fields
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	delete(raw, "hooks")
	if raw != nil {
		settings.Other = raw
	}
	if settings.Hooks == nil {
		settings.Hooks = map[string][]HookMatcher{}
	}
	return settings, nil
}

// SaveClaudeSettings writes settings back, keeping unknown fields
func SaveClaudeSettings(settingsPath string, settings *ClaudeSettings) error {
	output := make(map[string]any, len(settings.Other)+1)
	for k, v := range settings.Other {
		output[k] = v
	}

	hooks := map[string][]HookMatcher{}
	for event, matchers := range settings.Hooks {
		if len(matchers) > 0 {
			hooks[event] = matchers
		}
	}
	if len(hooks) > 0 {
		output["hooks"] = hooks
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return writeFile(settingsPath, append(data, '\n'))
}

// MergeResult represents the result of merging hook matchers
type MergeResult struct {
	Matchers      []HookMatcher
	WasDuplicate  bool
	DuplicateInfo string
}

// DefaultMatcher returns the tool matcher used when registering an event:
// "*" for tool events, none otherwise
func DefaultMatcher(event core.EventType) string {
	if event.IsToolUse() || event == core.PermissionRequestEvent {
		return "*"
	}
	return ""
}

// AddHookToSettings registers command for the event. An existing hookwarden
// command under the same matcher is replaced rather than duplicated.
func AddHookToSettings(settings *ClaudeSettings, event core.EventType, matcher, command string, timeout *int) (MergeResult, error) {
	host := event.HostName()
	if host == "" {
		return MergeResult{}, fmt.Errorf("%w: %q cannot be installed", core.ErrUnknownEvent, event)
	}
	if settings.Hooks == nil {
		settings.Hooks = map[string][]HookMatcher{}
	}

	result := mergeHookMatcher(settings.Hooks[host], HookMatcher{
		Matcher: matcher,
		Hooks:   []HookCommand{{Type: "command", Command: command, Timeout: timeout}},
	})
	settings.Hooks[host] = result.Matchers
	return result, nil
}

func mergeHookMatcher(existing []HookMatcher, next HookMatcher) MergeResult {
	for i, matcher := range existing {
		if matcher.Matcher != next.Matcher {
			continue
		}
		for j, existingHook := range matcher.Hooks {
			for _, newHook := range next.Hooks {
				if existingHook.Command == newHook.Command {
					return MergeResult{
						Matchers:      existing,
						WasDuplicate:  true,
						DuplicateInfo: fmt.Sprintf("Hook command '%s' already exists for matcher '%s'", newHook.Command, matcher.Matcher),
					}
				}
				if IsHookwardenCommand(existingHook.Command) && IsHookwardenCommand(newHook.Command) {
					existing[i].Hooks[j] = newHook
					return MergeResult{
						Matchers:      existing,
						WasDuplicate:  true,
						DuplicateInfo: fmt.Sprintf("Replaced existing hookwarden command for matcher '%s'", matcher.Matcher),
					}
				}
			}
		}
		existing[i].Hooks = append(existing[i].Hooks, next.Hooks...)
		return MergeResult{Matchers: existing}
	}
	return MergeResult{Matchers: append(existing, next)}
}

// IsHookwardenCommand checks if a command invokes hookwarden run
func IsHookwardenCommand(command string) bool {
	return strings.Contains(command, constants.CommandPattern)
}

// RemoveHookwardenFromSettings removes every hookwarden command and returns
// how many were removed. Matchers left without commands are dropped.
func RemoveHookwardenFromSettings(settings *ClaudeSettings) int {
	removed := 0
	for event, matchers := range settings.Hooks {
		var kept []HookMatcher
		for _, matcher := range matchers {
			var filteredHooks []HookCommand
			for _, hook := range matcher.Hooks {
				if IsHookwardenCommand(hook.Command) {
					removed++
					continue
				}
				filteredHooks = append(filteredHooks, hook)
			}
			if len(filteredHooks) > 0 {
				matcher.Hooks = filteredHooks
				kept = append(kept, matcher)
			}
		}
		if len(kept) == 0 {
			delete(settings.Hooks, event)
		} else {
			settings.Hooks[event] = kept
		}
	}
	return removed
}

// InstalledEvents lists the host event names that run hookwarden
func InstalledEvents(settings *ClaudeSettings) []string {
	var events []string
	for event, matchers := range settings.Hooks {
	found:
		for _, matcher := range matchers {
			for _, hook := range matcher.Hooks {
				if IsHookwardenCommand(hook.Command) {
					events = append(events, event)
					break found
				}
			}
		}
	}
	sort.Strings(events)
	return events
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
