package core

import (
	"errors"
	"fmt"
	"strings"
)

// EventType is the rule-facing tag of a host hook event
type EventType string

// All supported hook events, plus the AllEvents sentinel used in rule definitions
const (
	PreToolUseEvent        EventType = "pre_tool_use"
	PostToolUseEvent       EventType = "post_tool_use"
	PermissionRequestEvent EventType = "permission_request"
	UserPromptSubmitEvent  EventType = "user_prompt_submit"
	NotificationEvent      EventType = "notification"
	SessionStartEvent      EventType = "session_start"
	SessionEndEvent        EventType = "session_end"
	StopEvent              EventType = "stop"
	SubagentStopEvent      EventType = "subagent_stop"
	PreCompactEvent        EventType = "pre_compact"

	AllEvents EventType = "all"
)

// ErrUnknownEvent is returned when an event name matches no known hook event
var ErrUnknownEvent = errors.New("unknown hook event")

// HookEvent describes a hook event with metadata
type HookEvent struct {
	Type EventType
	// HostName is the spelling used by the host in hook_event_name and settings.json
	HostName    string
	Description string
}

// AllHookEvents returns all available hook events in lifecycle order
func AllHookEvents() []HookEvent {
	return []HookEvent{
		{
			Type:        SessionStartEvent,
			HostName:    "SessionStart",
			Description: "Runs when the agent starts a new session or resumes an existing session",
		},
		{
			Type:        UserPromptSubmitEvent,
			HostName:    "UserPromptSubmit",
			Description: "Runs when the user submits a prompt, before the agent processes it",
		},
		{
			Type:        PreToolUseEvent,
			HostName:    "PreToolUse",
			Description: "Runs after the agent creates tool parameters and before processing the tool call",
		},
		{
			Type:        PermissionRequestEvent,
			HostName:    "PermissionRequest",
			Description: "Runs when the user would be shown a permission dialog for a tool call",
		},
		{
			Type:        PostToolUseEvent,
			HostName:    "PostToolUse",
			Description: "Runs immediately after a tool completes successfully",
		},
		{
			Type:        NotificationEvent,
			HostName:    "Notification",
			Description: "Runs when the agent sends a notification, e.g. when input has been idle",
		},
		{
			Type:        StopEvent,
			HostName:    "Stop",
			Description: "Runs when the main agent has finished responding",
		},
		{
			Type:        SubagentStopEvent,
			HostName:    "SubagentStop",
			Description: "Runs when a subagent (Task tool call) has finished responding",
		},
		{
			Type:        PreCompactEvent,
			HostName:    "PreCompact",
			Description: "Runs before a compact operation",
		},
		{
			Type:        SessionEndEvent,
			HostName:    "SessionEnd",
			Description: "Runs when a session ends",
		},
	}
}

// ValidEventTypes returns the rule tags of all events, including the "all" sentinel
func ValidEventTypes() []string {
	events := AllHookEvents()
	names := make([]string, 0, len(events)+1)
	for _, event := range events {
		names = append(names, string(event.Type))
	}
	return append(names, string(AllEvents))
}

// ParseEventType resolves a rule tag ("pre_tool_use"), a kebab-case tag
// ("pre-tool-use") or a host name ("PreToolUse") to its EventType.
func ParseEventType(name string) (EventType, error) {
	trimmed := strings.TrimSpace(name)
	tag := strings.ReplaceAll(strings.ToLower(trimmed), "-", "_")
	if tag == string(AllEvents) {
		return AllEvents, nil
	}
	for _, event := range AllHookEvents() {
		if tag == string(event.Type) || strings.EqualFold(trimmed, event.HostName) {
			return event.Type, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// IsValidEventType checks if an event name resolves to a known event or "all"
func IsValidEventType(name string) bool {
	_, err := ParseEventType(name)
	return err == nil
}

// HostName returns the host spelling of the event ("PreToolUse"), or "" for unknown events
func (e EventType) HostName() string {
	for _, event := range AllHookEvents() {
		if event.Type == e {
			return event.HostName
		}
	}
	return ""
}

// IsToolUse reports whether the event carries a tool call that can receive a permission decision
func (e EventType) IsToolUse() bool {
	return e == PreToolUseEvent || e == PostToolUseEvent
}
