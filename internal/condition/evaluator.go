// Package condition evaluates rule conditions: a small boolean expression
// language over the event variables and a fixed set of functions.
package condition

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/types"
	"github.com/expr-lang/expr/vm"
	"github.com/klauern/hookwarden/internal/core"
)

// Phase identifies where a condition failed
type Phase string

const (
	PhaseParse Phase = "parse"
	PhaseCheck Phase = "check"
	PhaseRun   Phase = "run"
)

// EvaluationError is returned for every failing condition
type EvaluationError struct {
	Expression string
	Phase      Phase
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s error in condition %q: %v", e.Phase, e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// name of the function `in` is rewritten to
const membershipFunc = "__in__"

var variableTypes = map[string]types.Type{
	"event":                types.String,
	"hook_event_name":      types.String,
	"tool_name":            types.String,
	"tool_input":           types.Any,
	"tool_response":        types.Any,
	"cwd":                  types.String,
	"session_id":           types.String,
	"transcript_path":      types.String,
	"permission_mode":      types.String,
	"prompt":               types.String,
	"message":              types.String,
	"title":                types.String,
	"source":               types.String,
	"reason":               types.String,
	"trigger":              types.String,
	"custom_instructions":  types.String,
	"stop_hook_active":     types.Bool,
	"project_dir":          types.String,
	"git_branch":           types.String,
	"git_staged_files":     types.Any,
	"git_modified_files":   types.Any,
	"git_untracked_files":  types.Any,
	"git_conflicted_files": types.Any,
	"is_git_repo":          types.Bool,
}

var constants = map[string]any{
	"True":  true,
	"False": false,
	"None":  nil,
}

var (
	predicateType = types.TypeOf((func(...any) bool)(nil))
	lookupType    = types.TypeOf((func(...any) any)(nil))
)

// VariableNames returns every variable a condition can reference
func VariableNames() []string {
	names := make([]string, 0, len(variableTypes))
	for name := range variableTypes {
		names = append(names, name)
	}
	return names
}

type compiled struct {
	program *vm.Program
	err     error
}

// Evaluator compiles conditions once and evaluates them against a HookContext.
// It is safe for concurrent use.
type Evaluator struct {
	functions []Function
	typeEnv   types.Map

	mu       sync.RWMutex
	programs map[string]compiled
}

// NewEvaluator creates an evaluator with the built-in function table
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		functions: Functions(),
		programs:  make(map[string]compiled),
	}
	e.typeEnv = e.buildTypeEnv()
	return e
}

func (e *Evaluator) buildTypeEnv() types.Map {
	env := types.Map{}
	for name, t := range variableTypes {
		env[name] = t
	}
	env["True"] = types.Bool
	env["False"] = types.Bool
	env["None"] = types.Nil
	for _, fn := range e.functions {
		if fn.Predicate {
			env[fn.Name] = predicateType
		} else {
			env[fn.Name] = lookupType
		}
	}
	env[membershipFunc] = types.TypeOf(contains)
	return env
}

// Compile checks the expression against the grammar and compiles it.
// Results, including failures, are cached per expression.
func (e *Evaluator) Compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	c, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return c.program, c.err
	}

	c = e.compile(expression)
	e.mu.Lock()
	e.programs[expression] = c
	e.mu.Unlock()
	return c.program, c.err
}

func (e *Evaluator) compile(expression string) compiled {
	if gerr := checkGrammar(expression); gerr != nil {
		return compiled{err: gerr}
	}

	opts := []expr.Option{
		expr.Env(e.typeEnv),
		expr.DisableAllBuiltins(),
		expr.Patch(membershipPatcher{}),
	}
	for _, name := range allowedBuiltins {
		opts = append(opts, expr.EnableBuiltin(name))
	}

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return compiled{err: &EvaluationError{Expression: expression, Phase: PhaseCheck, Err: err}}
	}
	return compiled{program: program}
}

// Validate reports whether a condition would compile. Blank conditions are valid.
func (e *Evaluator) Validate(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	_, err := e.Compile(expression)
	return err
}

// Eval evaluates the expression and returns its raw value
func (e *Evaluator) Eval(expression string, ctx *core.HookContext) (result any, err error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &EvaluationError{Expression: expression, Phase: PhaseRun, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, runErr := expr.Run(program, e.runtimeEnv(ctx))
	if runErr != nil {
		return nil, &EvaluationError{Expression: expression, Phase: PhaseRun, Err: runErr}
	}
	return out, nil
}

// Evaluate evaluates a condition to a boolean using truthiness.
// Blank conditions are true.
func (e *Evaluator) Evaluate(expression string, ctx *core.HookContext) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return true, nil
	}
	out, err := e.Eval(expression, ctx)
	if err != nil {
		return false, err
	}
	return Truthy(out), nil
}

func (e *Evaluator) runtimeEnv(ctx *core.HookContext) map[string]any {
	vars := ctx.Variables()
	env := make(map[string]any, len(vars)+len(constants)+len(e.functions)+1)
	for k, v := range vars {
		env[k] = v
	}
	for k, v := range constants {
		env[k] = v
	}
	for _, fn := range e.functions {
		env[fn.Name] = bind(fn, ctx)
	}
	env[membershipFunc] = contains
	return env
}

func bind(fn Function, ctx *core.HookContext) any {
	if fn.Predicate {
		return func(args ...any) bool {
			b, _ := fn.Call(ctx, args).(bool)
			return b
		}
	}
	return func(args ...any) any {
		return fn.Call(ctx, args)
	}
}

// Truthy converts an evaluation result to a bool: nil, false, zero numbers,
// empty strings and empty collections are false.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

var defaultEvaluator = NewEvaluator()

// Evaluate evaluates a condition with the shared default evaluator
func Evaluate(expression string, ctx *core.HookContext) (bool, error) {
	return defaultEvaluator.Evaluate(expression, ctx)
}

// Validate compiles a condition with the shared default evaluator
func Validate(expression string) error {
	return defaultEvaluator.Validate(expression)
}

// Default returns the shared evaluator
func Default() *Evaluator {
	return defaultEvaluator
}
