package template

import "testing"

func TestSubstitute(t *testing.T) {
	vars := map[string]any{
		"tool_name":        "Bash",
		"tool_input":       map[string]any{"command": "rm -rf /", "timeout": float64(30), "nested": map[string]any{"k": "v"}},
		"stop_hook_active": false,
		"tool_response":    nil,
		"files":            []string{"a.go", "b.go"},
		"mixed":            []any{"x", float64(2), true},
		"ratio":            1.5,
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tokens", "plain text", "plain text"},
		{"simple", "Tool ${tool_name} blocked", "Tool Bash blocked"},
		{"field", "cmd: ${tool_input.command}", "cmd: rm -rf /"},
		{"number field", "${tool_input.timeout}s", "30s"},
		{"float", "${ratio}", "1.5"},
		{"map field renders json", "${tool_input.nested}", `{"k":"v"}`},
		{"bool", "active=${stop_hook_active}", "active=false"},
		{"nil", "[${tool_response}]", "[]"},
		{"missing name", "[${nope}]", "[]"},
		{"missing field", "[${tool_input.nope}]", "[]"},
		{"field of scalar", "[${tool_name.length}]", "[]"},
		{"string list", "${files}", "a.go, b.go"},
		{"mixed list", "${mixed}", "x, 2, true"},
		{"duplicates", "${tool_name}/${tool_name}", "Bash/Bash"},
		{"adjacent", "${tool_name}${tool_name}", "BashBash"},
		{"deep path untouched", "${tool_input.nested.k}", "${tool_input.nested.k}"},
		{"unterminated untouched", "${tool_name", "${tool_name"},
		{"invalid name untouched", "${1abc}", "${1abc}"},
		{"empty braces untouched", "${}", "${}"},
		{"dollar without brace", "$tool_name", "$tool_name"},
		{"double braces untouched", "${{x}}", "${{x}}"},
		{"bare braces", "a {} b $", "a {} b $"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Substitute(tt.in, vars); got != tt.want {
				t.Errorf("Substitute(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubstituteMapRendersCompactJSON(t *testing.T) {
	got := Substitute("${tool_input}", map[string]any{"tool_input": map[string]any{"b": 1, "a": "x"}})
	if got != `{"a":"x","b":1}` {
		t.Errorf("got %q", got)
	}
}

func TestSubstituteNilVars(t *testing.T) {
	if got := Substitute("hi ${name}", nil); got != "hi " {
		t.Errorf("got %q", got)
	}
}
