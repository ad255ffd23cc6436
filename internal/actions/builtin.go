package actions

import (
	"strings"

	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/template"
)

// Built-in action types
const (
	TypeDeny  = "deny"
	TypeAllow = "allow"
	TypeWarn  = "warn"
	TypeLog   = "log"
	TypeNoop  = "noop"
	TypeShell = "shell"
)

// Default messages used when a deny action has none
const (
	DefaultDenyMessage              = "Operation denied by hook rule"
	DefaultPermissionRequestMessage = "Permission request denied by hook rule"
	DefaultBlockMessage             = "Operation blocked by hook rule"
)

func render(ctx *core.HookContext, message string) string {
	return template.Substitute(message, ctx.Variables())
}

func renderOr(ctx *core.HookContext, message, fallback string) string {
	if msg := render(ctx, message); strings.TrimSpace(msg) != "" {
		return msg
	}
	return fallback
}

func deny(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error) {
	return applyDeny(ctx, acc, action.Message, action.Interrupt), nil
}

func applyDeny(ctx *core.HookContext, acc *Accumulator, message string, interrupt bool) Signal {
	switch {
	case ctx.IsToolUse():
		msg := renderOr(ctx, message, DefaultDenyMessage)
		acc.SetPermissionDecision(DecisionDeny, msg)
		return StopWith(msg)
	case ctx.IsPermissionRequest():
		msg := renderOr(ctx, message, DefaultPermissionRequestMessage)
		acc.SetRequestDecision(RequestDecision{Behavior: DecisionDeny, Message: msg, Interrupt: interrupt})
		return StopWith(msg)
	default:
		return StopWith(renderOr(ctx, message, DefaultBlockMessage))
	}
}

func allow(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error) {
	applyAllow(ctx, acc, action.Message)
	return Continue, nil
}

func applyAllow(ctx *core.HookContext, acc *Accumulator, message string) {
	switch {
	case ctx.IsToolUse():
		acc.SetPermissionDecision(DecisionAllow, render(ctx, message))
	case ctx.IsPermissionRequest():
		acc.SetRequestDecision(RequestDecision{Behavior: DecisionAllow})
	}
}

func warn(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error) {
	if msg := render(ctx, action.Message); msg != "" {
		acc.AddSystemMessage(msg)
	}
	return Continue, nil
}

func logAction(ctx *core.HookContext, action Params, _ *Accumulator) (Signal, error) {
	msg := render(ctx, action.Message)
	details := map[string]any{"hook_event": string(ctx.Event())}
	if tool := ctx.ToolName(); tool != "" {
		details["tool_name"] = tool
	}

	level, err := core.ParseLogLevel(action.Level)
	if err != nil {
		level = core.LevelInfo
	}
	switch level {
	case core.LevelDebug:
		ctx.Logger.Debug("rule_log", msg, details)
	case core.LevelWarn:
		ctx.Logger.Warn("rule_log", msg, details)
	case core.LevelError:
		ctx.Logger.Error("rule_log", msg, details)
	default:
		ctx.Logger.Info("rule_log", msg, details)
	}
	return Continue, nil
}

func noop(*core.HookContext, Params, *Accumulator) (Signal, error) {
	return Continue, nil
}
