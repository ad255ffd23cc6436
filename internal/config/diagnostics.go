package config

import (
	"fmt"
	"strings"

	"github.com/klauern/hookwarden/internal/condition"
	"github.com/klauern/hookwarden/internal/rules"
	"github.com/sahilm/fuzzy"
)

// Severity grades a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic reports a problem found while loading or validating rules
type Diagnostic struct {
	Source     string
	RuleID     string
	Severity   Severity
	Message    string
	Suggestion string
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	if d.Source != "" {
		b.WriteString(d.Source)
		b.WriteString(": ")
	}
	if d.RuleID != "" {
		fmt.Fprintf(&b, "rule %s: ", d.RuleID)
	}
	b.WriteString(d.Message)
	if d.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", d.Suggestion)
	}
	return b.String()
}

// Suggest returns the closest candidate to input, or "" when nothing is close.
// A candidate matches when either string is a fuzzy subsequence of the other.
func Suggest(input string, candidates []string) string {
	input = strings.TrimSpace(input)
	if input == "" || len(candidates) == 0 {
		return ""
	}
	if matches := fuzzy.Find(input, candidates); len(matches) > 0 {
		return matches[0].Str
	}

	best, bestScore := "", 0
	for _, c := range candidates {
		for _, m := range fuzzy.Find(c, []string{input}) {
			if best == "" || m.Score > bestScore {
				best, bestScore = c, m.Score
			}
		}
	}
	if best != "" {
		return best
	}

	// transpositions and single-letter typos ("dney") defeat subsequence matching
	bestDist := 3
	for _, c := range candidates {
		if d := editDistance(strings.ToLower(input), strings.ToLower(c)); d < bestDist && d < len(input) {
			best, bestDist = c, d
		}
	}
	return best
}

// editDistance is the optimal string alignment distance between a and b
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(ra)][len(rb)]
}

// ValidateConditions compiles every rule condition and reports the ones the
// matcher would drop at run time
func ValidateConditions(rs []rules.Rule, ev *condition.Evaluator) []Diagnostic {
	if ev == nil {
		ev = condition.Default()
	}
	names := append(condition.FunctionNames(), condition.VariableNames()...)

	var diags []Diagnostic
	for _, r := range rs {
		if strings.TrimSpace(r.Condition) == "" {
			continue
		}
		if err := ev.Validate(r.Condition); err != nil {
			diags = append(diags, Diagnostic{
				Source:     r.Source,
				RuleID:     r.ID,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("invalid condition: %v", err),
				Suggestion: suggestIdentifier(err.Error(), names),
			})
		}
	}
	return diags
}

// suggestIdentifier looks for an unknown name in a compile error message
// ("unknown name foo") and proposes a known function or variable
func suggestIdentifier(msg string, names []string) string {
	const marker = "unknown name "
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	})
	if end >= 0 {
		rest = rest[:end]
	}
	return Suggest(rest, names)
}
