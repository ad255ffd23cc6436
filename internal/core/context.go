package core

import (
	"os"
	"path/filepath"
	"sync"
)

// Scope selects which key-value namespace a lookup reads
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeProject Scope = "project"
)

// ParseScope validates a scope name
func ParseScope(name string) (Scope, bool) {
	switch Scope(name) {
	case ScopeSession, ScopeProject:
		return Scope(name), true
	default:
		return "", false
	}
}

// KeyValueReader is the read-only view of the session/project store
type KeyValueReader interface {
	Lookup(scope Scope, owner, key string) (any, bool, error)
}

// HookContext is everything the engine may read while handling one event.
// It is read-only once built; the engine never mutates it.
type HookContext struct {
	Input      *HookInput
	ProjectDir string
	// Git is nil when the working directory is not inside a repository
	Git        *GitStatus
	FileSystem FileSystem
	LookupEnv  func(string) (string, bool)
	Store      KeyValueReader
	Logger     *Logger

	varsOnce sync.Once
	vars     map[string]any
}

// NewHookContext returns a context with real implementations for the given input
func NewHookContext(input *HookInput) *HookContext {
	ctx := &HookContext{
		Input:      input,
		FileSystem: &RealFileSystem{},
		LookupEnv:  os.LookupEnv,
	}
	if input != nil {
		ctx.ProjectDir = input.Common.Cwd
	}
	return ctx
}

// Event returns the event tag, or "" when there is no input
func (c *HookContext) Event() EventType {
	if c == nil || c.Input == nil {
		return ""
	}
	return c.Input.Kind
}

// SessionID returns the host session id
func (c *HookContext) SessionID() string {
	if c == nil || c.Input == nil {
		return ""
	}
	return c.Input.Common.SessionID
}

// Cwd returns the host working directory
func (c *HookContext) Cwd() string {
	if c == nil || c.Input == nil {
		return ""
	}
	return c.Input.Common.Cwd
}

// ToolName returns the tool name of tool-carrying events
func (c *HookContext) ToolName() string {
	if c == nil || c.Input == nil {
		return ""
	}
	return c.Input.ToolName()
}

// IsToolUse reports whether the event is pre_tool_use or post_tool_use
func (c *HookContext) IsToolUse() bool {
	return c.Event().IsToolUse()
}

// IsPermissionRequest reports whether the event is a permission_request
func (c *HookContext) IsPermissionRequest() bool {
	return c.Event() == PermissionRequestEvent
}

// Getenv looks up an environment variable through the injected lookup
func (c *HookContext) Getenv(name string) (string, bool) {
	if c == nil || c.LookupEnv == nil {
		return "", false
	}
	return c.LookupEnv(name)
}

// ResolvePath makes a relative path absolute against the working directory
func (c *HookContext) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Cwd(), path)
}

// SessionGet reads a session-scoped value, nil when absent or unavailable
func (c *HookContext) SessionGet(key string) any {
	return c.lookup(ScopeSession, c.SessionID(), key)
}

// ProjectGet reads a project-scoped value, nil when absent or unavailable
func (c *HookContext) ProjectGet(key string) any {
	return c.lookup(ScopeProject, c.ProjectDir, key)
}

func (c *HookContext) lookup(scope Scope, owner, key string) any {
	if c == nil || c.Store == nil || owner == "" {
		return nil
	}
	value, ok, err := c.Store.Lookup(scope, owner, key)
	if err != nil {
		c.Logger.Warn("store_lookup_error", err.Error(), map[string]any{"scope": string(scope), "key": key})
		return nil
	}
	if !ok {
		return nil
	}
	return value
}

// Variables returns the template and expression variables for this event.
// Every name is always present, with an empty default when the event lacks it.
// The map is built once and must be treated as read-only.
func (c *HookContext) Variables() map[string]any {
	c.varsOnce.Do(func() {
		c.vars = c.buildVariables()
	})
	return c.vars
}

func (c *HookContext) buildVariables() map[string]any {
	vars := map[string]any{
		"event":                string(c.Event()),
		"hook_event_name":      "",
		"tool_name":            "",
		"tool_input":           map[string]any{},
		"tool_response":        nil,
		"cwd":                  c.Cwd(),
		"session_id":           c.SessionID(),
		"transcript_path":      "",
		"permission_mode":      "",
		"prompt":               "",
		"message":              "",
		"title":                "",
		"source":               "",
		"reason":               "",
		"trigger":              "",
		"custom_instructions":  "",
		"stop_hook_active":     false,
		"project_dir":          c.ProjectDir,
		"git_branch":           "",
		"git_staged_files":     []string{},
		"git_modified_files":   []string{},
		"git_untracked_files":  []string{},
		"git_conflicted_files": []string{},
		"is_git_repo":          c.Git != nil,
	}

	if in := c.Input; in != nil {
		vars["hook_event_name"] = in.Common.HookEventName
		vars["transcript_path"] = in.Common.TranscriptPath
		vars["permission_mode"] = in.Common.PermissionMode
		vars["tool_name"] = in.ToolName()
		if ti := in.ToolInput(); ti != nil {
			vars["tool_input"] = ti
		}

		switch in.Kind {
		case PostToolUseEvent:
			vars["tool_response"] = in.PostToolUse.ToolResponse
		case UserPromptSubmitEvent:
			vars["prompt"] = in.UserPromptSubmit.Prompt
		case NotificationEvent:
			vars["message"] = in.Notification.Message
			vars["title"] = in.Notification.Title
		case SessionStartEvent:
			vars["source"] = in.SessionStart.Source
		case SessionEndEvent:
			vars["reason"] = in.SessionEnd.Reason
		case StopEvent:
			vars["stop_hook_active"] = in.Stop.StopHookActive
		case SubagentStopEvent:
			vars["stop_hook_active"] = in.SubagentStop.StopHookActive
		case PreCompactEvent:
			vars["trigger"] = in.PreCompact.Trigger
			vars["custom_instructions"] = in.PreCompact.CustomInstructions
		}
	}

	if g := c.Git; g != nil {
		vars["git_branch"] = g.Branch
		vars["git_staged_files"] = g.Staged
		vars["git_modified_files"] = g.Modified
		vars["git_untracked_files"] = g.Untracked
		vars["git_conflicted_files"] = g.Conflicted
	}
	return vars
}
