// Package output renders an execution result into the host's JSON hook
// output protocol.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauern/hookwarden/internal/actions"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/rules"
)

// Decision is the verdict object of a permission_request response
type Decision struct {
	Behavior  string `json:"behavior"`
	Message   string `json:"message,omitempty"`
	Interrupt bool   `json:"interrupt,omitempty"`
}

// HookSpecificOutput carries the event-specific part of the response
type HookSpecificOutput struct {
	HookEventName            string    `json:"hookEventName"`
	PermissionDecision       string    `json:"permissionDecision,omitempty"`       // "allow" or "deny"
	PermissionDecisionReason string    `json:"permissionDecisionReason,omitempty"` // shown to the agent
	Decision                 *Decision `json:"decision,omitempty"`
}

// HookResponse is the top-level JSON structure written to stdout. Absent
// values are omitted, never written as null.
type HookResponse struct {
	Continue           *bool               `json:"continue,omitempty"`
	StopReason         string              `json:"stopReason,omitempty"`
	SuppressOutput     bool                `json:"suppressOutput,omitempty"`
	SystemMessage      string              `json:"systemMessage,omitempty"`
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// Build maps an execution result and the accumulator of the same run to a
// response for the given event. A blocking result always renders as deny;
// an accumulated allow only applies when nothing blocked.
func Build(event core.EventType, result rules.ExecutionResult, acc *actions.Accumulator) HookResponse {
	if acc == nil {
		acc = actions.NewAccumulator()
	}
	var resp HookResponse

	switch {
	case event.IsToolUse():
		decision, reason := acc.PermissionDecision, acc.PermissionDecisionReason
		if result.Blocked() && decision != actions.DecisionDeny {
			decision, reason = actions.DecisionDeny, blockMessage(result)
		}
		if decision != "" {
			resp.HookSpecificOutput = &HookSpecificOutput{
				HookEventName:            event.HostName(),
				PermissionDecision:       string(decision),
				PermissionDecisionReason: reason,
			}
		}
	case event == core.PermissionRequestEvent:
		var d *Decision
		req := acc.RequestDecision
		switch {
		case req != nil && (req.Behavior == actions.DecisionDeny || !result.Blocked()):
			d = &Decision{
				Behavior:  string(acc.RequestDecision.Behavior),
				Message:   acc.RequestDecision.Message,
				Interrupt: acc.RequestDecision.Interrupt,
			}
		case result.Blocked():
			d = &Decision{Behavior: string(actions.DecisionDeny), Message: blockMessage(result)}
		}
		if d != nil {
			resp.HookSpecificOutput = &HookSpecificOutput{HookEventName: event.HostName(), Decision: d}
		}
	default:
		if result.Blocked() {
			stop := false
			resp.Continue = &stop
			resp.StopReason = blockMessage(result)
		}
	}

	messages := make([]string, 0, len(acc.SystemMessages)+len(result.Warnings))
	messages = append(messages, acc.SystemMessages...)
	messages = append(messages, result.Warnings...)
	resp.SystemMessage = strings.Join(messages, "\n")
	return resp
}

// blockMessage prefers the denial raised by an action over the block reason
func blockMessage(result rules.ExecutionResult) string {
	if result.Denial != nil && result.Denial.Message != "" {
		return result.Denial.Message
	}
	if result.BlockReason != "" {
		return result.BlockReason
	}
	return actions.DefaultBlockMessage
}

// Write encodes resp as a single JSON line
func Write(w io.Writer, resp HookResponse) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write hook output: %w", err)
	}
	return nil
}
