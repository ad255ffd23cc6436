package condition

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauern/hookwarden/internal/core"
)

// Function is a condition function bound to the current HookContext at call time.
// Implementations return a safe default (false or nil) for bad arguments instead
// of failing.
type Function struct {
	Name string
	// Signature is shown by `rules validate` and `eval --help`
	Signature string
	// Predicate functions always return a bool
	Predicate bool
	Call      func(ctx *core.HookContext, args []any) any
}

var builtinFunctions = []Function{
	{Name: "is_staged", Signature: "is_staged(path)", Predicate: true, Call: gitPathIn(core.GitSetStaged)},
	{Name: "is_modified", Signature: "is_modified(path)", Predicate: true, Call: gitPathIn(core.GitSetModified)},
	{Name: "has_conflicts", Signature: "has_conflicts()", Predicate: true, Call: hasConflicts},
	{Name: "current_branch", Signature: "current_branch()", Call: currentBranch},
	{Name: "git_has_staged", Signature: "git_has_staged(pattern?)", Predicate: true, Call: gitHasStaged},
	{Name: "git_file_in", Signature: "git_file_in(path, set)", Predicate: true, Call: gitFileIn},
	{Name: "env", Signature: "env(name)", Call: envLookup},
	{Name: "file_exists", Signature: "file_exists(path)", Predicate: true, Call: fileExists},
	{Name: "is_executable", Signature: "is_executable(path)", Predicate: true, Call: isExecutable},
	{Name: "matches_glob", Signature: "matches_glob(path, pattern)", Predicate: true, Call: matchesGlob},
	{Name: "session_get", Signature: "session_get(key)", Call: sessionGet},
	{Name: "project_get", Signature: "project_get(key)", Call: projectGet},
	{Name: "is_path_under", Signature: "is_path_under(path, base)", Predicate: true, Call: isPathUnder},
	{Name: "regex_match", Signature: "regex_match(pattern, text)", Predicate: true, Call: regexMatch},
	{Name: "basename", Signature: "basename(path)", Call: baseName},
	{Name: "extname", Signature: "extname(path)", Call: extName},
}

// FunctionNames returns the names of all registered condition functions, sorted
func FunctionNames() []string {
	names := make([]string, 0, len(builtinFunctions))
	for _, fn := range builtinFunctions {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	return names
}

// Functions returns a copy of the function table
func Functions() []Function {
	return append([]Function(nil), builtinFunctions...)
}

func stringArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func gitPathIn(set string) func(*core.HookContext, []any) any {
	return func(ctx *core.HookContext, args []any) any {
		p, ok := stringArg(args, 0)
		if !ok || len(args) != 1 {
			return false
		}
		return ctx.Git.InSet(set, ctx.Cwd(), p)
	}
}

func hasConflicts(ctx *core.HookContext, args []any) any {
	if len(args) != 0 || ctx.Git == nil {
		return false
	}
	return len(ctx.Git.Conflicted) > 0
}

func currentBranch(ctx *core.HookContext, args []any) any {
	if len(args) != 0 || ctx.Git == nil {
		return nil
	}
	return ctx.Git.Branch
}

func gitHasStaged(ctx *core.HookContext, args []any) any {
	if ctx.Git == nil || len(args) > 1 {
		return false
	}
	if len(args) == 0 {
		return len(ctx.Git.Staged) > 0
	}
	pattern, ok := stringArg(args, 0)
	if !ok {
		return false
	}
	for _, p := range ctx.Git.Staged {
		if globMatch(pattern, p) {
			return true
		}
	}
	return false
}

func gitFileIn(ctx *core.HookContext, args []any) any {
	p, ok1 := stringArg(args, 0)
	set, ok2 := stringArg(args, 1)
	if !ok1 || !ok2 || len(args) != 2 {
		return false
	}
	return ctx.Git.InSet(set, ctx.Cwd(), p)
}

func envLookup(ctx *core.HookContext, args []any) any {
	name, ok := stringArg(args, 0)
	if !ok || len(args) != 1 {
		return nil
	}
	if v, found := ctx.Getenv(name); found {
		return v
	}
	return nil
}

func fileExists(ctx *core.HookContext, args []any) any {
	p, ok := stringArg(args, 0)
	if !ok || len(args) != 1 || p == "" || ctx.FileSystem == nil {
		return false
	}
	_, err := ctx.FileSystem.Stat(ctx.ResolvePath(p))
	return err == nil
}

func isExecutable(ctx *core.HookContext, args []any) any {
	p, ok := stringArg(args, 0)
	if !ok || len(args) != 1 || p == "" || ctx.FileSystem == nil {
		return false
	}
	info, err := ctx.FileSystem.Stat(ctx.ResolvePath(p))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

func matchesGlob(ctx *core.HookContext, args []any) any {
	p, ok1 := stringArg(args, 0)
	pattern, ok2 := stringArg(args, 1)
	if !ok1 || !ok2 || len(args) != 2 {
		return false
	}
	if globMatch(pattern, p) {
		return true
	}
	// absolute paths also match project-relative patterns
	if filepath.IsAbs(p) && !filepath.IsAbs(pattern) && ctx.Cwd() != "" {
		if rel, err := filepath.Rel(ctx.Cwd(), p); err == nil && !strings.HasPrefix(rel, "..") {
			return globMatch(pattern, rel)
		}
	}
	return false
}

// globMatch matches with doublestar semantics; patterns without a separator
// also match the basename, so "*.go" matches "src/main.go".
func globMatch(pattern, p string) bool {
	p = filepath.ToSlash(p)
	if ok, err := doublestar.Match(pattern, p); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, err := doublestar.Match(pattern, path.Base(p))
		return err == nil && ok
	}
	return false
}

func sessionGet(ctx *core.HookContext, args []any) any {
	key, ok := stringArg(args, 0)
	if !ok || len(args) != 1 {
		return nil
	}
	return ctx.SessionGet(key)
}

func projectGet(ctx *core.HookContext, args []any) any {
	key, ok := stringArg(args, 0)
	if !ok || len(args) != 1 {
		return nil
	}
	return ctx.ProjectGet(key)
}

func isPathUnder(ctx *core.HookContext, args []any) any {
	p, ok1 := stringArg(args, 0)
	base, ok2 := stringArg(args, 1)
	if !ok1 || !ok2 || len(args) != 2 || p == "" || base == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(ctx.ResolvePath(base)), filepath.Clean(ctx.ResolvePath(p)))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func regexMatch(_ *core.HookContext, args []any) any {
	pattern, ok1 := stringArg(args, 0)
	text, ok2 := stringArg(args, 1)
	if !ok1 || !ok2 || len(args) != 2 {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func baseName(_ *core.HookContext, args []any) any {
	p, ok := stringArg(args, 0)
	if !ok || len(args) != 1 || p == "" {
		return nil
	}
	return filepath.Base(p)
}

func extName(_ *core.HookContext, args []any) any {
	p, ok := stringArg(args, 0)
	if !ok || len(args) != 1 {
		return nil
	}
	return filepath.Ext(p)
}
