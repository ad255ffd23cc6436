// Package rules matches rules against a hook event and executes their actions.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauern/hookwarden/internal/actions"
	"github.com/klauern/hookwarden/internal/core"
)

// ErrInvalidRule marks a rule that cannot be loaded
var ErrInvalidRule = errors.New("invalid rule")

// Priority orders matched rules; higher priorities run first
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns the ordinal of the priority, higher meaning earlier
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// ParsePriority parses a priority name; "" yields the medium default
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q (use critical, high, medium or low)", ErrInvalidRule, s)
	}
}

// ResultType is the outcome a rule contributes when it runs
type ResultType string

const (
	ResultBlock ResultType = "block"
	ResultWarn  ResultType = "warn"
	ResultOK    ResultType = "ok"
)

// ParseResultType parses a result name; "" yields ok
func ParseResultType(s string) (ResultType, error) {
	switch r := ResultType(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return ResultOK, nil
	case ResultBlock, ResultWarn, ResultOK:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown result %q (use block, warn or ok)", ErrInvalidRule, s)
	}
}

// Action is one step of a rule
type Action = actions.Params

// Rule is a loaded rule definition. Rules are immutable once loaded.
type Rule struct {
	ID          string
	Description string
	Events      []core.EventType
	Condition   string
	Priority    Priority
	Enabled     bool
	Result      ResultType
	Terminal    bool
	Actions     []Action

	// Source is the file the rule was loaded from, empty for rules built in code
	Source string
}

// AppliesTo reports whether the rule listens to the event, directly or via "all"
func (r Rule) AppliesTo(event core.EventType) bool {
	for _, e := range r.Events {
		if e == event || e == core.AllEvents {
			return true
		}
	}
	return false
}

// MatchedRule is a rule that passed matching, with its execution position
type MatchedRule struct {
	Rule       Rule
	MatchOrder int
}
