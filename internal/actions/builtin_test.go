package actions

import (
	"strings"
	"testing"

	"github.com/klauern/hookwarden/internal/core"
)

func contextFor(t *testing.T, doc string) *core.HookContext {
	t.Helper()
	in, err := core.ParseHookInput([]byte(doc))
	if err != nil {
		t.Fatalf("ParseHookInput: %v", err)
	}
	return core.TestHookContext(in)
}

const (
	preToolUseDoc        = `{"session_id":"s1","cwd":"/repo","hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`
	permissionRequestDoc = `{"session_id":"s1","cwd":"/repo","hook_event_name":"PermissionRequest","tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`
	userPromptDoc        = `{"session_id":"s1","cwd":"/repo","hook_event_name":"UserPromptSubmit","prompt":"deploy"}`
)

func TestDenyHandler(t *testing.T) {
	tests := []struct {
		name           string
		doc            string
		action         Params
		wantMessage    string
		wantDecision   PermissionDecision
		wantRequest    *RequestDecision
		wantNoDecision bool
	}{
		{
			name:         "tool use with template",
			doc:          preToolUseDoc,
			action:       Params{Type: TypeDeny, Message: "No ${tool_input.command}"},
			wantMessage:  "No rm -rf /",
			wantDecision: DecisionDeny,
		},
		{
			name:         "tool use default message",
			doc:          preToolUseDoc,
			action:       Params{Type: TypeDeny},
			wantMessage:  DefaultDenyMessage,
			wantDecision: DecisionDeny,
		},
		{
			name:        "permission request",
			doc:         permissionRequestDoc,
			action:      Params{Type: TypeDeny, Message: "Denied ${tool_name}", Interrupt: true},
			wantMessage: "Denied Bash",
			wantRequest: &RequestDecision{Behavior: DecisionDeny, Message: "Denied Bash", Interrupt: true},
		},
		{
			name:        "permission request default message",
			doc:         permissionRequestDoc,
			action:      Params{Type: TypeDeny},
			wantMessage: DefaultPermissionRequestMessage,
			wantRequest: &RequestDecision{Behavior: DecisionDeny, Message: DefaultPermissionRequestMessage},
		},
		{
			name:           "other event",
			doc:            userPromptDoc,
			action:         Params{Type: TypeDeny},
			wantMessage:    DefaultBlockMessage,
			wantNoDecision: true,
		},
		{
			name:           "template rendering empty falls back",
			doc:            userPromptDoc,
			action:         Params{Type: TypeDeny, Message: "${missing}"},
			wantMessage:    DefaultBlockMessage,
			wantNoDecision: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := contextFor(t, tt.doc)
			acc := NewAccumulator()
			sig, err := Default().Lookup(TypeDeny).Run(ctx, tt.action, acc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sig.Stop || sig.Message != tt.wantMessage {
				t.Errorf("signal = %+v, want Stop(%q)", sig, tt.wantMessage)
			}
			if acc.PermissionDecision != tt.wantDecision {
				t.Errorf("decision = %q, want %q", acc.PermissionDecision, tt.wantDecision)
			}
			if tt.wantDecision != "" && acc.PermissionDecisionReason != tt.wantMessage {
				t.Errorf("reason = %q, want %q", acc.PermissionDecisionReason, tt.wantMessage)
			}
			if tt.wantRequest != nil {
				if acc.RequestDecision == nil || *acc.RequestDecision != *tt.wantRequest {
					t.Errorf("request decision = %+v, want %+v", acc.RequestDecision, tt.wantRequest)
				}
			}
			if tt.wantNoDecision && (acc.PermissionDecision != "" || acc.RequestDecision != nil) {
				t.Errorf("expected no decision, got %+v", acc)
			}
		})
	}
}

func TestAllowHandler(t *testing.T) {
	ctx := contextFor(t, preToolUseDoc)
	acc := NewAccumulator()
	sig, err := Default().Lookup(TypeAllow).Run(ctx, Params{Type: TypeAllow, Message: "ok ${tool_name}"}, acc)
	if err != nil || sig.Stop {
		t.Fatalf("allow must continue, got %+v, %v", sig, err)
	}
	if acc.PermissionDecision != DecisionAllow || acc.PermissionDecisionReason != "ok Bash" {
		t.Errorf("unexpected accumulator: %+v", acc)
	}

	ctx = contextFor(t, permissionRequestDoc)
	acc = NewAccumulator()
	_, _ = Default().Lookup(TypeAllow).Run(ctx, Params{Type: TypeAllow}, acc)
	if acc.RequestDecision == nil || acc.RequestDecision.Behavior != DecisionAllow {
		t.Errorf("expected allow request decision, got %+v", acc.RequestDecision)
	}

	ctx = contextFor(t, userPromptDoc)
	acc = NewAccumulator()
	_, _ = Default().Lookup(TypeAllow).Run(ctx, Params{Type: TypeAllow}, acc)
	if acc.PermissionDecision != "" || acc.RequestDecision != nil {
		t.Errorf("allow on other events must be a no-op, got %+v", acc)
	}
}

func TestWarnHandler(t *testing.T) {
	ctx := contextFor(t, userPromptDoc)
	acc := NewAccumulator()
	warnHandler := Default().Lookup(TypeWarn)

	_, _ = warnHandler.Run(ctx, Params{Type: TypeWarn, Message: "Prompt: ${prompt}"}, acc)
	_, _ = warnHandler.Run(ctx, Params{Type: TypeWarn, Message: ""}, acc)
	_, _ = warnHandler.Run(ctx, Params{Type: TypeWarn, Message: "${missing}"}, acc)

	if len(acc.SystemMessages) != 1 || acc.SystemMessages[0] != "Prompt: deploy" {
		t.Errorf("SystemMessages = %q", acc.SystemMessages)
	}
}

func TestLogHandler(t *testing.T) {
	ctx := contextFor(t, preToolUseDoc)
	logger, buf := core.CaptureLogger()
	ctx.Logger = logger

	sig, err := Default().Lookup(TypeLog).Run(ctx, Params{Type: TypeLog, Message: "saw ${tool_name}", Level: "warn"}, NewAccumulator())
	if err != nil || sig.Stop {
		t.Fatalf("log must continue, got %+v, %v", sig, err)
	}
	out := buf.String()
	if !strings.Contains(out, `"message":"saw Bash"`) || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("unexpected log output: %s", out)
	}

	ctx.Logger = nil
	if _, err := Default().Lookup(TypeLog).Run(ctx, Params{Type: TypeLog, Message: "x"}, NewAccumulator()); err != nil {
		t.Errorf("log without a logger must not fail: %v", err)
	}
}

func TestUnknownTypeIsNoop(t *testing.T) {
	ctx := contextFor(t, preToolUseDoc)
	acc := NewAccumulator()
	h, found := Default().Get("teleport")
	if found {
		t.Fatal("unexpected handler for unknown type")
	}
	sig, err := h.Run(ctx, Params{Type: "teleport", Message: "x"}, acc)
	if err != nil || sig.Stop {
		t.Errorf("fallback must continue without error, got %+v, %v", sig, err)
	}
	if acc.PermissionDecision != "" || len(acc.SystemMessages) != 0 {
		t.Errorf("fallback must not touch the accumulator: %+v", acc)
	}
}
