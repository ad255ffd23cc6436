package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauern/hookwarden/internal/actions"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/rules"
	"github.com/sebdah/goldie/v2"
)

func TestBuildGolden(t *testing.T) {
	tests := []struct {
		name   string
		event  core.EventType
		result rules.ExecutionResult
		acc    *actions.Accumulator
	}{
		{
			name:   "pre_tool_use_block",
			event:  core.PreToolUseEvent,
			result: rules.ExecutionResult{ShouldBlock: true, BlockReason: "Blocked by rule: r1"},
		},
		{
			name:  "pre_tool_use_deny_action",
			event: core.PreToolUseEvent,
			result: rules.ExecutionResult{
				Warnings: []string{"Heads up"},
				Denial:   &rules.Denial{RuleID: "deny-rm", Message: "No rm -rf /"},
			},
			acc: &actions.Accumulator{
				PermissionDecision:       actions.DecisionDeny,
				PermissionDecisionReason: "No rm -rf /",
				SystemMessages:           []string{"careful"},
			},
		},
		{
			name:  "pre_tool_use_allow",
			event: core.PreToolUseEvent,
			acc:   &actions.Accumulator{PermissionDecision: actions.DecisionAllow},
		},
		{
			name:   "post_tool_use_denial_without_message",
			event:  core.PostToolUseEvent,
			result: rules.ExecutionResult{Denial: &rules.Denial{RuleID: "r"}},
		},
		{
			name:  "permission_request_deny",
			event: core.PermissionRequestEvent,
			acc: &actions.Accumulator{RequestDecision: &actions.RequestDecision{
				Behavior:  actions.DecisionDeny,
				Message:   "Not here",
				Interrupt: true,
			}},
		},
		{
			name:   "permission_request_block",
			event:  core.PermissionRequestEvent,
			result: rules.ExecutionResult{ShouldBlock: true, BlockReason: "Sensitive path"},
		},
		{
			name:   "stop_block",
			event:  core.StopEvent,
			result: rules.ExecutionResult{ShouldBlock: true, BlockReason: "Tests must pass"},
		},
		{
			name:   "user_prompt_submit_warn",
			event:  core.UserPromptSubmitEvent,
			result: rules.ExecutionResult{Warnings: []string{"Use <redacted> & retry"}},
		},
		{
			name:  "empty",
			event: core.SessionStartEvent,
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, Build(tt.event, tt.result, tt.acc)); err != nil {
				t.Fatal(err)
			}
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestBuildExplicitDecision(t *testing.T) {
	tests := []struct {
		name       string
		decision   actions.PermissionDecision
		reason     string
		result     rules.ExecutionResult
		wantResult string
		wantReason string
	}{
		{
			name:       "allow applies when nothing blocks",
			decision:   actions.DecisionAllow,
			reason:     "reviewed",
			result:     rules.ExecutionResult{},
			wantResult: "allow",
			wantReason: "reviewed",
		},
		{
			name:       "block overrides allow from another rule",
			decision:   actions.DecisionAllow,
			reason:     "reviewed",
			result:     rules.ExecutionResult{ShouldBlock: true, BlockReason: "no rm -rf"},
			wantResult: "deny",
			wantReason: "no rm -rf",
		},
		{
			name:       "deny reason kept on block",
			decision:   actions.DecisionDeny,
			reason:     "denied by action",
			result:     rules.ExecutionResult{ShouldBlock: true, BlockReason: "blocked"},
			wantResult: "deny",
			wantReason: "denied by action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := actions.NewAccumulator()
			acc.SetPermissionDecision(tt.decision, tt.reason)
			resp := Build(core.PreToolUseEvent, tt.result, acc)
			out := resp.HookSpecificOutput
			if out == nil || out.PermissionDecision != tt.wantResult || out.PermissionDecisionReason != tt.wantReason {
				t.Errorf("got %+v, want %s %q", out, tt.wantResult, tt.wantReason)
			}
			if resp.Continue != nil {
				t.Error("tool events never set continue")
			}
		})
	}
}

func TestBuildPermissionRequestBlockOverridesAllow(t *testing.T) {
	acc := actions.NewAccumulator()
	acc.RequestDecision = &actions.RequestDecision{Behavior: actions.DecisionAllow}
	resp := Build(core.PermissionRequestEvent, rules.ExecutionResult{ShouldBlock: true, BlockReason: "blocked"}, acc)
	if resp.HookSpecificOutput == nil || resp.HookSpecificOutput.Decision == nil {
		t.Fatalf("missing decision: %+v", resp)
	}
	if d := resp.HookSpecificOutput.Decision; d.Behavior != "deny" || d.Message != "blocked" {
		t.Errorf("decision = %+v", d)
	}

	acc = actions.NewAccumulator()
	acc.RequestDecision = &actions.RequestDecision{Behavior: actions.DecisionAllow}
	resp = Build(core.PermissionRequestEvent, rules.ExecutionResult{}, acc)
	if d := resp.HookSpecificOutput.Decision; d.Behavior != "allow" {
		t.Errorf("decision = %+v", d)
	}
}

func TestBuildOmitsNulls(t *testing.T) {
	resp := Build(core.NotificationEvent, rules.ExecutionResult{}, nil)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("got %s", data)
	}
}
