package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommonInput holds the fields the host sends with every hook event
type CommonInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd"`
	PermissionMode string `json:"permission_mode,omitempty"`
	HookEventName  string `json:"hook_event_name"`
}

// PreToolUseInput is the payload of a pre_tool_use event
type PreToolUseInput struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// PostToolUseInput is the payload of a post_tool_use event
type PostToolUseInput struct {
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolResponse any            `json:"tool_response"`
	ToolUseID    string         `json:"tool_use_id,omitempty"`
}

// PermissionRequestInput is the payload of a permission_request event
type PermissionRequestInput struct {
	ToolName              string         `json:"tool_name"`
	ToolInput             map[string]any `json:"tool_input"`
	PermissionSuggestions []any          `json:"permission_suggestions,omitempty"`
}

// UserPromptSubmitInput is the payload of a user_prompt_submit event
type UserPromptSubmitInput struct {
	Prompt string `json:"prompt"`
}

// NotificationInput is the payload of a notification event
type NotificationInput struct {
	Message          string `json:"message"`
	Title            string `json:"title,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`
}

// SessionStartInput is the payload of a session_start event
type SessionStartInput struct {
	Source string `json:"source"`
}

// SessionEndInput is the payload of a session_end event
type SessionEndInput struct {
	Reason string `json:"reason"`
}

// StopInput is the payload of a stop event
type StopInput struct {
	StopHookActive bool `json:"stop_hook_active"`
}

// SubagentStopInput is the payload of a subagent_stop event
type SubagentStopInput struct {
	StopHookActive bool `json:"stop_hook_active"`
}

// PreCompactInput is the payload of a pre_compact event
type PreCompactInput struct {
	Trigger            string `json:"trigger"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// HookInput is a parsed host event. Kind selects which payload pointer is set;
// exactly one is non-nil for a value returned by ParseHookInput.
type HookInput struct {
	Kind   EventType
	Common CommonInput

	PreToolUse        *PreToolUseInput
	PostToolUse       *PostToolUseInput
	PermissionRequest *PermissionRequestInput
	UserPromptSubmit  *UserPromptSubmitInput
	Notification      *NotificationInput
	SessionStart      *SessionStartInput
	SessionEnd        *SessionEndInput
	Stop              *StopInput
	SubagentStop      *SubagentStopInput
	PreCompact        *PreCompactInput

	// Raw is the original JSON document, forwarded to script actions
	Raw []byte
}

// ParseHookInput decodes a host event document into its typed variant
func ParseHookInput(data []byte) (*HookInput, error) {
	var common CommonInput
	if err := json.Unmarshal(data, &common); err != nil {
		return nil, fmt.Errorf("failed to parse hook input: %w", err)
	}
	if common.HookEventName == "" {
		return nil, errors.New("hook input is missing hook_event_name")
	}
	kind, err := ParseEventType(common.HookEventName)
	if err != nil {
		return nil, err
	}

	in := &HookInput{Kind: kind, Common: common, Raw: append([]byte(nil), data...)}
	var payload any
	switch kind {
	case PreToolUseEvent:
		in.PreToolUse = &PreToolUseInput{}
		payload = in.PreToolUse
	case PostToolUseEvent:
		in.PostToolUse = &PostToolUseInput{}
		payload = in.PostToolUse
	case PermissionRequestEvent:
		in.PermissionRequest = &PermissionRequestInput{}
		payload = in.PermissionRequest
	case UserPromptSubmitEvent:
		in.UserPromptSubmit = &UserPromptSubmitInput{}
		payload = in.UserPromptSubmit
	case NotificationEvent:
		in.Notification = &NotificationInput{}
		payload = in.Notification
	case SessionStartEvent:
		in.SessionStart = &SessionStartInput{}
		payload = in.SessionStart
	case SessionEndEvent:
		in.SessionEnd = &SessionEndInput{}
		payload = in.SessionEnd
	case StopEvent:
		in.Stop = &StopInput{}
		payload = in.Stop
	case SubagentStopEvent:
		in.SubagentStop = &SubagentStopInput{}
		payload = in.SubagentStop
	case PreCompactEvent:
		in.PreCompact = &PreCompactInput{}
		payload = in.PreCompact
	default:
		return nil, fmt.Errorf("%w: %q is not a concrete event", ErrUnknownEvent, common.HookEventName)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", kind, err)
	}
	return in, nil
}

// ToolName returns the tool name for tool-carrying events, "" otherwise
func (in *HookInput) ToolName() string {
	switch in.Kind {
	case PreToolUseEvent:
		return in.PreToolUse.ToolName
	case PostToolUseEvent:
		return in.PostToolUse.ToolName
	case PermissionRequestEvent:
		return in.PermissionRequest.ToolName
	default:
		return ""
	}
}

// ToolInput returns the tool input for tool-carrying events, nil otherwise
func (in *HookInput) ToolInput() map[string]any {
	switch in.Kind {
	case PreToolUseEvent:
		return in.PreToolUse.ToolInput
	case PostToolUseEvent:
		return in.PostToolUse.ToolInput
	case PermissionRequestEvent:
		return in.PermissionRequest.ToolInput
	default:
		return nil
	}
}
