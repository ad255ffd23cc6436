package rules

import (
	"fmt"

	"github.com/klauern/hookwarden/internal/actions"
	"github.com/klauern/hookwarden/internal/core"
)

// ExecutionState tracks an executor run
type ExecutionState int

const (
	StatePending ExecutionState = iota
	StateRunning
	StateTerminatedEarly
	StateCompleted
)

func (s ExecutionState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminatedEarly:
		return "terminated_early"
	case StateCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// ActionResult records the outcome of one action
type ActionResult struct {
	ActionType string
	Success    bool
	Error      string
}

// RuleExecutionResult records the outcome of one rule
type RuleExecutionResult struct {
	RuleID        string
	ResultType    ResultType
	IsTerminal    bool
	ActionResults []ActionResult
}

// Denial is the stop signal raised by a deny action
type Denial struct {
	RuleID  string
	Message string
}

// ExecutionResult aggregates a whole run
type ExecutionResult struct {
	RuleResults     []RuleExecutionResult
	ShouldBlock     bool
	BlockReason     string
	Warnings        []string
	TerminatedEarly bool
	Denial          *Denial
	State           ExecutionState
}

// Blocked reports whether the run blocks the operation, by result or by denial
func (r ExecutionResult) Blocked() bool {
	return r.ShouldBlock || r.Denial != nil
}

// Executor runs the actions of matched rules
type Executor struct {
	Handlers *actions.Registry
}

// NewExecutor returns an executor using the given handler registry, or the
// default registry when nil
func NewExecutor(handlers *actions.Registry) *Executor {
	if handlers == nil {
		handlers = actions.Default()
	}
	return &Executor{Handlers: handlers}
}

// Execute runs matched rules in MatchOrder. Action failures are recorded and
// logged but never stop the run or turn into a block.
func (e *Executor) Execute(matched []MatchedRule, ctx *core.HookContext, acc *actions.Accumulator) ExecutionResult {
	var result ExecutionResult
	if len(matched) == 0 {
		return result
	}
	if acc == nil {
		acc = actions.NewAccumulator()
	}

	result.State = StateRunning
	for i, m := range matched {
		rule := m.Rule
		logger := ctx.Logger.WithRule(rule.ID)

		ruleResult := RuleExecutionResult{
			RuleID:        rule.ID,
			ResultType:    rule.Result,
			IsTerminal:    rule.Terminal,
			ActionResults: make([]ActionResult, 0, len(rule.Actions)),
		}

		denied := false
		for _, action := range rule.Actions {
			sig, err := e.runAction(ctx, action, acc)
			if err != nil {
				ruleResult.ActionResults = append(ruleResult.ActionResults, ActionResult{
					ActionType: action.Type,
					Success:    false,
					Error:      err.Error(),
				})
				logger.Warn("action_error", err.Error(), map[string]any{"action": action.Type})
				continue
			}
			ruleResult.ActionResults = append(ruleResult.ActionResults, ActionResult{ActionType: action.Type, Success: true})
			if sig.Stop {
				denied = true
				if result.Denial == nil {
					result.Denial = &Denial{RuleID: rule.ID, Message: sig.Message}
				}
				logger.Info("rule_denied", sig.Message, nil)
				break
			}
		}

		result.RuleResults = append(result.RuleResults, ruleResult)

		switch rule.Result {
		case ResultBlock:
			if !result.ShouldBlock {
				result.ShouldBlock = true
				result.BlockReason = describe(rule, "Blocked by rule: ")
			}
		case ResultWarn:
			result.Warnings = append(result.Warnings, describe(rule, "Warning from rule: "))
		}

		// terminated early only when a terminal rule cut off later rules
		if rule.Terminal {
			if i < len(matched)-1 {
				result.TerminatedEarly = true
				result.State = StateTerminatedEarly
			} else {
				result.State = StateCompleted
			}
			return result
		}
		if denied {
			break
		}
	}

	result.State = StateCompleted
	return result
}

func (e *Executor) runAction(ctx *core.HookContext, action Action, acc *actions.Accumulator) (sig actions.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = actions.Continue
			err = fmt.Errorf("action %q panicked: %v", action.Type, r)
		}
	}()
	handlers := e.Handlers
	if handlers == nil {
		handlers = actions.Default()
	}
	return handlers.Lookup(action.Type).Run(ctx, action, acc)
}

func describe(rule Rule, fallbackPrefix string) string {
	if rule.Description != "" {
		return rule.Description
	}
	return fallbackPrefix + rule.ID
}
