package rules

import (
	"strings"
	"testing"

	"github.com/klauern/hookwarden/internal/core"
)

func bashContext(t *testing.T) *core.HookContext {
	t.Helper()
	in := core.MustParseHookInput(`{"session_id":"s1","cwd":"/repo","hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`)
	return core.TestHookContext(in)
}

func rule(id string, p Priority, cond string) Rule {
	return Rule{
		ID:        id,
		Events:    []core.EventType{core.PreToolUseEvent},
		Condition: cond,
		Priority:  p,
		Enabled:   true,
		Result:    ResultOK,
	}
}

func ids(matched []MatchedRule) []string {
	out := make([]string, len(matched))
	for i, m := range matched {
		out[i] = m.Rule.ID
	}
	return out
}

func TestMatchSingleRule(t *testing.T) {
	r1 := rule("r1", PriorityHigh, `tool_name == "Bash"`)
	r1.Result = ResultBlock

	matched := NewMatcher().Match([]Rule{r1}, bashContext(t))
	if len(matched) != 1 || matched[0].Rule.ID != "r1" || matched[0].MatchOrder != 0 {
		t.Fatalf("matched = %+v", matched)
	}
}

func TestMatchOrdersByPriorityThenDefinition(t *testing.T) {
	rules := []Rule{
		rule("low", PriorityLow, ""),
		rule("medium", PriorityMedium, ""),
		rule("high", PriorityHigh, ""),
		rule("critical", PriorityCritical, ""),
	}
	got := ids(NewMatcher().Match(rules, bashContext(t)))
	want := []string{"critical", "high", "medium", "low"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", got, want)
	}

	ties := []Rule{
		rule("m1", PriorityMedium, ""),
		rule("h1", PriorityHigh, ""),
		rule("m2", PriorityMedium, "true"),
		rule("h2", PriorityHigh, ""),
		rule("m3", PriorityMedium, ""),
	}
	matched := NewMatcher().Match(ties, bashContext(t))
	if got := strings.Join(ids(matched), ","); got != "h1,h2,m1,m2,m3" {
		t.Errorf("tie order = %s", got)
	}
	for i, m := range matched {
		if m.MatchOrder != i {
			t.Errorf("MatchOrder of %s = %d, want %d", m.Rule.ID, m.MatchOrder, i)
		}
	}
}

func TestMatchFilters(t *testing.T) {
	disabled := rule("disabled", PriorityMedium, "")
	disabled.Enabled = false
	otherEvent := rule("other-event", PriorityMedium, "")
	otherEvent.Events = []core.EventType{core.PostToolUseEvent}
	allEvents := rule("all-events", PriorityMedium, "")
	allEvents.Events = []core.EventType{core.AllEvents}
	noEvents := rule("no-events", PriorityMedium, "")
	noEvents.Events = nil
	falseCond := rule("false-cond", PriorityMedium, `tool_name == "Write"`)
	blankCond := rule("blank-cond", PriorityMedium, "   ")

	got := ids(NewMatcher().Match([]Rule{disabled, otherEvent, allEvents, noEvents, falseCond, blankCond}, bashContext(t)))
	if strings.Join(got, ",") != "all-events,blank-cond" {
		t.Errorf("matched = %v", got)
	}
}

func TestMatchEmptyInput(t *testing.T) {
	if got := NewMatcher().Match(nil, bashContext(t)); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	everythingFiltered := []Rule{rule("x", PriorityLow, "false")}
	if got := NewMatcher().Match(everythingFiltered, bashContext(t)); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestMatchInvalidConditionIsDroppedAndLogged(t *testing.T) {
	ctx := bashContext(t)
	logger, buf := core.CaptureLogger()
	ctx.Logger = logger

	rules := []Rule{
		rule("broken", PriorityCritical, "invalid !@# syntax"),
		rule("ok", PriorityLow, ""),
	}
	got := ids(NewMatcher().Match(rules, ctx))
	if strings.Join(got, ",") != "ok" {
		t.Errorf("matched = %v", got)
	}
	out := buf.String()
	if !strings.Contains(out, `"event":"condition_error"`) || !strings.Contains(out, `"rule_id":"broken"`) {
		t.Errorf("expected warning for broken rule, got %s", out)
	}
}

func TestExplain(t *testing.T) {
	disabled := rule("disabled", PriorityMedium, "")
	disabled.Enabled = false
	rules := []Rule{
		disabled,
		rule("low", PriorityLow, ""),
		rule("false", PriorityMedium, "false"),
		rule("broken", PriorityMedium, "((("),
		rule("high", PriorityHigh, ""),
	}
	reports := NewMatcher().Explain(rules, bashContext(t))

	want := []struct {
		status MatchStatus
		order  int
	}{
		{StatusDisabled, -1},
		{StatusMatched, 1},
		{StatusConditionFalse, -1},
		{StatusConditionError, -1},
		{StatusMatched, 0},
	}
	for i, w := range want {
		if reports[i].Status != w.status || reports[i].MatchOrder != w.order {
			t.Errorf("report %s = %s/%d, want %s/%d", reports[i].Rule.ID, reports[i].Status, reports[i].MatchOrder, w.status, w.order)
		}
	}
	if reports[3].Err == nil {
		t.Error("condition error must be reported")
	}
}

func TestParsePriorityAndResult(t *testing.T) {
	if p, err := ParsePriority(""); err != nil || p != PriorityMedium {
		t.Errorf("default priority = %q, %v", p, err)
	}
	if p, err := ParsePriority("HIGH"); err != nil || p != PriorityHigh {
		t.Errorf("ParsePriority(HIGH) = %q, %v", p, err)
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
	if r, err := ParseResultType(""); err != nil || r != ResultOK {
		t.Errorf("default result = %q, %v", r, err)
	}
	if _, err := ParseResultType("explode"); err == nil {
		t.Error("expected error for unknown result")
	}
	if PriorityCritical.Rank() <= PriorityHigh.Rank() || PriorityHigh.Rank() <= PriorityMedium.Rank() || PriorityMedium.Rank() <= PriorityLow.Rank() {
		t.Error("priority ranks out of order")
	}
}
