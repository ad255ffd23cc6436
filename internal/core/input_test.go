package core

import (
	"errors"
	"testing"
)

func TestParseHookInputVariants(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		kind  EventType
		check func(t *testing.T, in *HookInput)
	}{
		{
			name: "pre tool use",
			doc:  `{"session_id":"s1","cwd":"/repo","hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"ls"}}`,
			kind: PreToolUseEvent,
			check: func(t *testing.T, in *HookInput) {
				if in.PreToolUse == nil || in.ToolName() != "Bash" {
					t.Fatalf("unexpected payload: %+v", in.PreToolUse)
				}
				if in.ToolInput()["command"] != "ls" {
					t.Errorf("tool_input.command = %v", in.ToolInput()["command"])
				}
			},
		},
		{
			name: "post tool use keeps response",
			doc:  `{"hook_event_name":"PostToolUse","tool_name":"Write","tool_input":{},"tool_response":{"success":true}}`,
			kind: PostToolUseEvent,
			check: func(t *testing.T, in *HookInput) {
				resp, ok := in.PostToolUse.ToolResponse.(map[string]any)
				if !ok || resp["success"] != true {
					t.Errorf("tool_response = %#v", in.PostToolUse.ToolResponse)
				}
			},
		},
		{
			name: "permission request by tag spelling",
			doc:  `{"hook_event_name":"permission_request","tool_name":"Bash","tool_input":{"command":"rm"}}`,
			kind: PermissionRequestEvent,
			check: func(t *testing.T, in *HookInput) {
				if in.PermissionRequest == nil || in.ToolName() != "Bash" {
					t.Fatalf("unexpected payload: %+v", in.PermissionRequest)
				}
			},
		},
		{
			name: "user prompt",
			doc:  `{"hook_event_name":"UserPromptSubmit","prompt":"hello"}`,
			kind: UserPromptSubmitEvent,
			check: func(t *testing.T, in *HookInput) {
				if in.UserPromptSubmit.Prompt != "hello" {
					t.Errorf("prompt = %q", in.UserPromptSubmit.Prompt)
				}
				if in.ToolName() != "" || in.ToolInput() != nil {
					t.Error("prompt events carry no tool")
				}
			},
		},
		{
			name: "pre compact",
			doc:  `{"hook_event_name":"PreCompact","trigger":"manual","custom_instructions":"keep tests"}`,
			kind: PreCompactEvent,
			check: func(t *testing.T, in *HookInput) {
				if in.PreCompact.Trigger != "manual" || in.PreCompact.CustomInstructions != "keep tests" {
					t.Errorf("unexpected payload: %+v", in.PreCompact)
				}
			},
		},
		{
			name: "subagent stop",
			doc:  `{"hook_event_name":"SubagentStop","stop_hook_active":true}`,
			kind: SubagentStopEvent,
			check: func(t *testing.T, in *HookInput) {
				if !in.SubagentStop.StopHookActive {
					t.Error("stop_hook_active not decoded")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseHookInput([]byte(tt.doc))
			if err != nil {
				t.Fatalf("ParseHookInput: %v", err)
			}
			if in.Kind != tt.kind {
				t.Fatalf("Kind = %q, want %q", in.Kind, tt.kind)
			}
			if string(in.Raw) != tt.doc {
				t.Errorf("Raw not preserved")
			}
			tt.check(t, in)
		})
	}
}

func TestParseHookInputErrors(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantUnknown bool
	}{
		{name: "invalid json", doc: `{`},
		{name: "missing event name", doc: `{"session_id":"s"}`},
		{name: "unknown event", doc: `{"hook_event_name":"Teleport"}`, wantUnknown: true},
		{name: "all is not concrete", doc: `{"hook_event_name":"all"}`, wantUnknown: true},
		{name: "wrong payload type", doc: `{"hook_event_name":"UserPromptSubmit","prompt":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHookInput([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantUnknown && !errors.Is(err, ErrUnknownEvent) {
				t.Errorf("expected ErrUnknownEvent, got %v", err)
			}
		})
	}
}
