package condition

import (
	"errors"
	"testing"

	"github.com/klauern/hookwarden/internal/core"
)

func bashContext(command string) *core.HookContext {
	in := core.MustParseHookInput(`{"session_id":"s1","cwd":"/repo","hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"` + command + `","timeout":30}}`)
	return core.TestHookContext(in)
}

func TestEvaluate(t *testing.T) {
	ctx := bashContext("rm -rf /tmp/x")
	ctx.Git = &core.GitStatus{Root: "/repo", Branch: "main", Staged: []string{"a.go"}}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"blank is true", "", true},
		{"whitespace is true", "   \t", true},
		{"equality", `tool_name == "Bash"`, true},
		{"inequality", `tool_name != "Bash"`, false},
		{"member access", `tool_input.command == "rm -rf /tmp/x"`, true},
		{"index access", `tool_input["command"] startsWith "rm"`, true},
		{"numeric compare with JSON number", `tool_input.timeout > 10`, true},
		{"substring in", `"rm -rf" in tool_input.command`, true},
		{"substring not in", `"sudo" not in tool_input.command`, true},
		{"list literal in", `tool_name in ["Bash", "Write"]`, true},
		{"list literal not in", `tool_name in ["Edit", "Write"]`, false},
		{"number in list", `1 in [1, 2]`, true},
		{"map key in", `"command" in tool_input`, true},
		{"missing map key", `"file_path" in tool_input`, false},
		{"git list in", `"a.go" in git_staged_files`, true},
		{"unsupported membership", `5 in "abc"`, false},
		{"matches regex", `tool_input.command matches "^rm\\s+-rf"`, true},
		{"contains operator", `tool_input.command contains "/tmp"`, true},
		{"endsWith operator", `tool_input.command endsWith "/x"`, true},
		{"and or not", `tool_name == "Bash" and not (event == "stop") || false`, true},
		{"symbolic ops", `!(tool_name == "Write") && true`, true},
		{"python constants", `True and not False`, true},
		{"none constant", `tool_response == None`, true},
		{"nil literal", `tool_response == nil`, true},
		{"truthy string", `tool_name`, true},
		{"falsy empty string", `prompt`, false},
		{"falsy empty list", `git_modified_files`, false},
		{"truthy bool var", `is_git_repo`, true},
		{"allowed builtin", `len(git_staged_files) == 1 and lower(tool_name) == "bash"`, true},
		{"function call", `is_staged("a.go") and current_branch() == "main"`, true},
		{"function safe default", `is_staged(42)`, false},
		{"event tag", `event == "pre_tool_use"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, ctx)
			if err != nil {
				t.Fatalf("Evaluate(%q) unexpected error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateRejectsOutsideGrammar(t *testing.T) {
	ctx := bashContext("ls")

	tests := []struct {
		name  string
		expr  string
		phase Phase
	}{
		{"syntax error", `tool_name ==`, PhaseParse},
		{"unknown identifier", `undefined_var == 1`, PhaseCheck},
		{"nested member access", `tool_input.a.b == 1`, PhaseCheck},
		{"method call", `tool_name.Upper()`, PhaseCheck},
		{"closure", `all(git_staged_files, {# == "a"})`, PhaseCheck},
		{"let binding", `let x = 1; x == 1`, PhaseCheck},
		{"ternary", `true ? true : false`, PhaseCheck},
		{"slice", `prompt[0:2] == ""`, PhaseCheck},
		{"map literal", `{"a": 1} != nil`, PhaseCheck},
		{"pipe", `tool_name | lower() == "bash"`, PhaseCheck},
		{"disabled builtin", `now() != nil`, PhaseCheck},
		{"arithmetic", `1 + 1 == 2`, PhaseCheck},
		{"unknown function", `rm_rf("/")`, PhaseCheck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, ctx)
			if err == nil {
				t.Fatalf("Evaluate(%q) = %v, expected error", tt.expr, got)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *EvaluationError, got %T: %v", err, err)
			}
			if evalErr.Phase != tt.phase {
				t.Errorf("phase = %s, want %s (%v)", evalErr.Phase, tt.phase, err)
			}
			if evalErr.Expression != tt.expr {
				t.Errorf("expression = %q, want %q", evalErr.Expression, tt.expr)
			}
			if got {
				t.Error("a failing condition must evaluate to false")
			}
		})
	}
}

func TestPipeInsideStringIsAllowed(t *testing.T) {
	ctx := bashContext("cat a | grep b")
	got, err := Evaluate(`"|" in tool_input.command || tool_name == "x|y"`, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected true")
	}
}

func TestEvaluateRecoversPanics(t *testing.T) {
	e := &Evaluator{
		functions: append(Functions(), Function{
			Name:      "boom",
			Predicate: true,
			Call:      func(*core.HookContext, []any) any { panic("boom") },
		}),
		programs: make(map[string]compiled),
	}
	e.typeEnv = e.buildTypeEnv()

	got, err := e.Evaluate(`boom()`, bashContext("ls"))
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Phase != PhaseRun {
		t.Fatalf("expected run-phase EvaluationError, got %v", err)
	}
	if got {
		t.Error("panicking condition must be false")
	}
}

func TestCompileCachesResults(t *testing.T) {
	e := NewEvaluator()
	p1, err := e.Compile(`tool_name == "Bash"`)
	if err != nil {
		t.Fatal(err)
	}
	p2, _ := e.Compile(`tool_name == "Bash"`)
	if p1 != p2 {
		t.Error("expected cached program")
	}

	_, err1 := e.Compile(`tool_name ==`)
	_, err2 := e.Compile(`tool_name ==`)
	if err1 == nil || err1 != err2 {
		t.Error("expected cached compile error")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(""); err != nil {
		t.Errorf("blank condition should be valid: %v", err)
	}
	if err := Validate(`is_modified("x") or has_conflicts()`); err != nil {
		t.Errorf("expected valid: %v", err)
	}
	if err := Validate(`tool_input.a.b`); err == nil {
		t.Error("expected nested member access to be invalid")
	}
}

func TestVariableTypesCoverContext(t *testing.T) {
	vars := bashContext("ls").Variables()
	for name := range vars {
		if _, ok := variableTypes[name]; !ok {
			t.Errorf("context variable %q has no declared type", name)
		}
	}
	for name := range variableTypes {
		if _, ok := vars[name]; !ok {
			t.Errorf("declared variable %q missing from context", name)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{0.0, false},
		{3, true},
		{"", false},
		{"x", true},
		{[]string{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{map[string]any{"a": 1}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.in); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
