package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/hookwarden/internal/core"
)

func TestIsHookwardenCommand(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"/usr/local/bin/hookwarden run", true},
		{"hookwarden run --log --log-format pretty", true},
		{"/path/hookwarden run --rules extra.toml", true},
		{"hookwarden rules list", false},
		{"/usr/bin/some-other-tool run", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHookwardenCommand(tt.command); got != tt.want {
			t.Errorf("IsHookwardenCommand(%q) = %v, want %v", tt.command, got, tt.want)
		}
	}
}

func TestDefaultMatcher(t *testing.T) {
	if DefaultMatcher(core.PreToolUseEvent) != "*" || DefaultMatcher(core.PermissionRequestEvent) != "*" {
		t.Error("tool events should match every tool")
	}
	if DefaultMatcher(core.StopEvent) != "" {
		t.Error("non-tool events take no matcher")
	}
}

func TestAddHookToSettings(t *testing.T) {
	s := &ClaudeSettings{}

	res, err := AddHookToSettings(s, core.PreToolUseEvent, "*", "/bin/hookwarden run", nil)
	if err != nil || res.WasDuplicate {
		t.Fatalf("first add: %+v %v", res, err)
	}

	res, _ = AddHookToSettings(s, core.PreToolUseEvent, "*", "/bin/hookwarden run", nil)
	if !res.WasDuplicate || len(s.Hooks["PreToolUse"][0].Hooks) != 1 {
		t.Errorf("exact duplicate should be skipped: %+v", s.Hooks)
	}

	res, _ = AddHookToSettings(s, core.PreToolUseEvent, "*", "/usr/local/bin/hookwarden run --log", nil)
	if !res.WasDuplicate || s.Hooks["PreToolUse"][0].Hooks[0].Command != "/usr/local/bin/hookwarden run --log" {
		t.Errorf("hookwarden command should be replaced: %+v", s.Hooks)
	}

	res, _ = AddHookToSettings(s, core.PreToolUseEvent, "*", "other-linter", nil)
	if res.WasDuplicate || len(s.Hooks["PreToolUse"][0].Hooks) != 2 {
		t.Errorf("foreign command should be appended: %+v", s.Hooks)
	}

	timeout := 30
	if _, err := AddHookToSettings(s, core.StopEvent, "", "hookwarden run", &timeout); err != nil {
		t.Fatal(err)
	}
	if got := s.Hooks["Stop"]; len(got) != 1 || got[0].Matcher != "" || *got[0].Hooks[0].Timeout != 30 {
		t.Errorf("Stop hooks = %+v", got)
	}

	if _, err := AddHookToSettings(s, core.AllEvents, "", "hookwarden run", nil); err == nil {
		t.Error("the all sentinel cannot be installed")
	}
}

func TestClaudeSettingsRoundTripPreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")
	writeRuleFile(t, path, `{
  "model": "opus",
  "permissions": {"allow": ["Bash(ls)"]},
  "hooks": {
    "PreToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "audit.sh"}]}]
  }
}`)

	s, err := LoadClaudeSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AddHookToSettings(s, core.PreToolUseEvent, "*", "hookwarden run", nil); err != nil {
		t.Fatal(err)
	}
	if err := SaveClaudeSettings(path, s); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["model"] != "opus" || raw["permissions"] == nil {
		t.Errorf("unknown fields lost: %v", raw)
	}

	reloaded, err := LoadClaudeSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Hooks["PreToolUse"]; len(got) != 2 || got[0].Matcher != "Bash" || got[1].Matcher != "*" {
		t.Errorf("PreToolUse = %+v", got)
	}
	if events := InstalledEvents(reloaded); len(events) != 1 || events[0] != "PreToolUse" {
		t.Errorf("InstalledEvents = %v", events)
	}
}

func TestRemoveHookwardenFromSettings(t *testing.T) {
	s := &ClaudeSettings{Hooks: map[string][]HookMatcher{
		"PreToolUse": {
			{Matcher: "*", Hooks: []HookCommand{{Type: "command", Command: "hookwarden run"}, {Type: "command", Command: "audit.sh"}}},
		},
		"Stop": {
			{Hooks: []HookCommand{{Type: "command", Command: "/bin/hookwarden run --log"}}},
		},
	}}

	if n := RemoveHookwardenFromSettings(s); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, ok := s.Hooks["Stop"]; ok {
		t.Error("empty events should be dropped")
	}
	if got := s.Hooks["PreToolUse"]; len(got) != 1 || len(got[0].Hooks) != 1 || got[0].Hooks[0].Command != "audit.sh" {
		t.Errorf("PreToolUse = %+v", got)
	}
	if len(InstalledEvents(s)) != 0 {
		t.Error("nothing should remain installed")
	}
}

func TestLoadClaudeSettingsMissingFile(t *testing.T) {
	s, err := LoadClaudeSettings(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Hooks) != 0 || len(s.Other) != 0 {
		t.Errorf("expected empty settings, got %+v", s)
	}
}
