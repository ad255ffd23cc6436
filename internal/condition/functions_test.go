package condition

import (
	"testing"

	"github.com/klauern/hookwarden/internal/core"
)

func functionContext(t *testing.T) *core.HookContext {
	t.Helper()
	in := core.MustParseHookInput(`{"session_id":"s1","cwd":"/repo/src","hook_event_name":"PreToolUse","tool_name":"Write","tool_input":{"file_path":"/repo/src/main.go"}}`)
	ctx := core.TestHookContext(in)
	ctx.ProjectDir = "/repo"
	ctx.Git = &core.GitStatus{
		Root:       "/repo",
		Branch:     "feature/x",
		Staged:     []string{"src/main.go", "docs/readme.md"},
		Modified:   []string{"src/util.go"},
		Untracked:  []string{"tmp/new.txt"},
		Conflicted: []string{},
	}
	fs := ctx.FileSystem.(*core.MockFileSystem)
	fs.AddFile("/repo/src/main.go", []byte("package main"), 0o644)
	fs.AddFile("/repo/scripts/build.sh", []byte("#!/bin/sh"), 0o755)
	ctx.LookupEnv = func(name string) (string, bool) {
		if name == "CI" {
			return "true", true
		}
		return "", false
	}
	store := ctx.Store.(*core.MemoryStore)
	store.Put(core.ScopeSession, "s1", "edits", float64(2))
	store.Put(core.ScopeProject, "/repo", "frozen", true)
	return ctx
}

func TestFunctions(t *testing.T) {
	ctx := functionContext(t)

	tests := []struct {
		expr string
		want bool
	}{
		{`is_staged("main.go")`, true},
		{`is_staged("/repo/docs/readme.md")`, true},
		{`is_staged("util.go")`, false},
		{`is_modified("util.go")`, true},
		{`is_staged()`, false},
		{`has_conflicts()`, false},
		{`current_branch() == "feature/x"`, true},
		{`git_has_staged()`, true},
		{`git_has_staged("*.md")`, true},
		{`git_has_staged("*.rs")`, false},
		{`git_has_staged("src/**")`, true},
		{`git_file_in("../tmp/new.txt", "untracked")`, true},
		{`git_file_in("main.go", "modified")`, false},
		{`git_file_in("main.go", "bogus")`, false},
		{`env("CI") == "true"`, true},
		{`env("MISSING") == nil`, true},
		{`env(1) == nil`, true},
		{`file_exists("main.go")`, true},
		{`file_exists(tool_input.file_path)`, true},
		{`file_exists("nope.go")`, false},
		{`is_executable("/repo/scripts/build.sh")`, true},
		{`is_executable("main.go")`, false},
		{`matches_glob(tool_input.file_path, "*.go")`, true},
		{`matches_glob("src/app/main.go", "**/*.go")`, true},
		{`matches_glob("/repo/src/x.ts", "x.*")`, true},
		{`matches_glob("notes.txt", "*.go")`, false},
		{`matches_glob("a", "[")`, false},
		{`session_get("edits") == 2`, true},
		{`session_get("missing") == nil`, true},
		{`project_get("frozen")`, true},
		{`is_path_under(tool_input.file_path, project_dir)`, true},
		{`is_path_under("main.go", "/repo")`, true},
		{`is_path_under("../../etc/passwd", "/repo")`, false},
		{`is_path_under("/repo", "/repo")`, true},
		{`is_path_under("/repository/x", "/repo")`, false},
		{`regex_match("^feat", current_branch())`, true},
		{`regex_match("(", "x")`, false},
		{`basename(tool_input.file_path) == "main.go"`, true},
		{`extname(tool_input.file_path) == ".go"`, true},
		{`basename("") == nil`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
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

func TestGitFunctionsWithoutRepository(t *testing.T) {
	ctx := functionContext(t)
	ctx.Git = nil

	for _, expr := range []string{
		`is_staged("main.go")`,
		`is_modified("util.go")`,
		`has_conflicts()`,
		`git_has_staged()`,
		`git_file_in("main.go", "staged")`,
		`current_branch() != nil`,
	} {
		got, err := Evaluate(expr, ctx)
		if err != nil {
			t.Fatalf("Evaluate(%q) unexpected error: %v", expr, err)
		}
		if got {
			t.Errorf("Evaluate(%q) = true outside a repository", expr)
		}
	}
}

func TestFunctionNamesSorted(t *testing.T) {
	names := FunctionNames()
	if len(names) != len(builtinFunctions) {
		t.Fatalf("expected %d names, got %d", len(builtinFunctions), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
