package rules

import (
	"slices"
	"strings"

	"github.com/klauern/hookwarden/internal/condition"
	"github.com/klauern/hookwarden/internal/core"
)

// ConditionEvaluator evaluates a rule condition against an event
type ConditionEvaluator interface {
	Evaluate(expression string, ctx *core.HookContext) (bool, error)
}

// Matcher selects and orders the rules that apply to an event
type Matcher struct {
	Evaluator ConditionEvaluator
}

// NewMatcher returns a matcher using the shared condition evaluator
func NewMatcher() *Matcher {
	return &Matcher{Evaluator: condition.Default()}
}

// MatchStatus explains why a rule did or did not match
type MatchStatus string

const (
	StatusMatched        MatchStatus = "matched"
	StatusDisabled       MatchStatus = "disabled"
	StatusEventMismatch  MatchStatus = "event_mismatch"
	StatusConditionFalse MatchStatus = "condition_false"
	StatusConditionError MatchStatus = "condition_error"
)

// MatchReport is the per-rule outcome of Explain
type MatchReport struct {
	Rule   Rule
	Status MatchStatus
	Err    error
	// MatchOrder is the execution position, -1 unless Status is matched
	MatchOrder int
}

// Match keeps enabled rules that listen to the event and whose condition holds,
// ordered by priority and then by their original position. A condition that
// fails to evaluate drops its rule and is logged.
func (m *Matcher) Match(rules []Rule, ctx *core.HookContext) []MatchedRule {
	reports := m.Explain(rules, ctx)
	matched := make([]MatchedRule, 0, len(reports))
	for _, r := range reports {
		if r.Status == StatusMatched {
			matched = append(matched, MatchedRule{Rule: r.Rule, MatchOrder: r.MatchOrder})
		}
	}
	slices.SortFunc(matched, func(a, b MatchedRule) int {
		return a.MatchOrder - b.MatchOrder
	})
	return matched
}

// Explain reports the matching outcome of every rule, in input order
func (m *Matcher) Explain(rules []Rule, ctx *core.HookContext) []MatchReport {
	event := ctx.Event()
	reports := make([]MatchReport, len(rules))
	var kept []int

	for i, rule := range rules {
		reports[i] = MatchReport{Rule: rule, MatchOrder: -1}
		switch {
		case !rule.Enabled:
			reports[i].Status = StatusDisabled
		case !rule.AppliesTo(event):
			reports[i].Status = StatusEventMismatch
		default:
			ok, err := m.evaluate(rule, ctx)
			switch {
			case err != nil:
				reports[i].Status = StatusConditionError
				reports[i].Err = err
				ctx.Logger.WithRule(rule.ID).Warn("condition_error", err.Error(), map[string]any{
					"condition": rule.Condition,
				})
			case !ok:
				reports[i].Status = StatusConditionFalse
			default:
				reports[i].Status = StatusMatched
				kept = append(kept, i)
			}
		}
	}

	// key: (priority rank desc, original index asc)
	slices.SortFunc(kept, func(a, b int) int {
		ra, rb := rules[a].Priority.Rank(), rules[b].Priority.Rank()
		if ra != rb {
			return rb - ra
		}
		return a - b
	})
	for order, idx := range kept {
		reports[idx].MatchOrder = order
	}
	return reports
}

func (m *Matcher) evaluate(rule Rule, ctx *core.HookContext) (bool, error) {
	if strings.TrimSpace(rule.Condition) == "" {
		return true, nil
	}
	evaluator := m.Evaluator
	if evaluator == nil {
		evaluator = condition.Default()
	}
	return evaluator.Evaluate(rule.Condition, ctx)
}
