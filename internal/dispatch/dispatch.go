// Package dispatch wires one hook invocation together: it reads the event from
// stdin, loads settings and rules, builds the context, matches and executes
// rules and writes the host response.
package dispatch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauern/hookwarden/internal/actions"
	"github.com/klauern/hookwarden/internal/condition"
	"github.com/klauern/hookwarden/internal/config"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/output"
	"github.com/klauern/hookwarden/internal/rules"
	"github.com/klauern/hookwarden/internal/store"
)

// EnvProjectDir is set by the host to the project root for every hook
const EnvProjectDir = "CLAUDE_PROJECT_DIR"

// Options configures a Dispatcher. Zero values select the real implementations.
type Options struct {
	XDG *config.XDGConfig
	// RuleFiles are applied after every discovered rule file
	RuleFiles []string
	// ForceLog enables logging regardless of settings
	ForceLog  bool
	LogFormat string

	Executor  core.CommandExecutor
	Handlers  *actions.Registry
	Evaluator *condition.Evaluator
	LookupEnv func(string) (string, bool)
	// Stderr receives a one-line notice when the invocation fails open
	Stderr io.Writer
}

// Outcome is everything one handled event produced
type Outcome struct {
	Event       core.EventType
	ProjectDir  string
	Matched     []rules.MatchedRule
	Result      rules.ExecutionResult
	Response    output.HookResponse
	Diagnostics []config.Diagnostic
}

// Dispatcher handles hook events
type Dispatcher struct {
	opts Options
}

// New creates a Dispatcher
func New(opts Options) *Dispatcher {
	if opts.XDG == nil {
		opts.XDG = config.NewXDGConfig()
	}
	if opts.Executor == nil {
		opts.Executor = &core.RealCommandExecutor{}
	}
	if opts.Handlers == nil {
		opts.Handlers = actions.Default()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = condition.Default()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	return &Dispatcher{opts: opts}
}

// Run reads one event from in and writes the response to out. Any failure
// before the response is built, a panic included, produces an empty response
// so the host proceeds as if no hook were installed. The returned error only
// reports a failed write.
func (d *Dispatcher) Run(in io.Reader, out io.Writer) error {
	resp, err := d.safeHandle(in)
	if err != nil {
		fmt.Fprintf(d.opts.Stderr, "hookwarden: %v\n", err)
		resp = output.HookResponse{}
	}
	return output.Write(out, resp)
}

func (d *Dispatcher) safeHandle(in io.Reader) (resp output.HookResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling event: %v", r)
		}
	}()

	data, err := io.ReadAll(in)
	if err != nil {
		return resp, fmt.Errorf("failed to read hook input: %w", err)
	}
	outcome, err := d.Handle(data)
	if err != nil {
		return resp, err
	}
	return outcome.Response, nil
}

// invocation is the prepared state shared by Handle, Explain and Eval
type invocation struct {
	input    *core.HookInput
	ctx      *core.HookContext
	settings config.Settings
	rules    *config.RuleSet
	logger   *core.Logger
	closers  []io.Closer
}

func (inv *invocation) Close() {
	for i := len(inv.closers) - 1; i >= 0; i-- {
		_ = inv.closers[i].Close()
	}
}

// prepare parses the input and builds everything rules are evaluated against
func (d *Dispatcher) prepare(data []byte) (*invocation, error) {
	input, err := core.ParseHookInput(data)
	if err != nil {
		return nil, err
	}

	projectDir := d.projectDir(input)
	settings, settingsErr := config.LoadSettings(d.opts.XDG, projectDir)
	if d.opts.ForceLog {
		settings.Logging.Enabled = true
	}
	if d.opts.LogFormat != "" {
		settings.Logging.Format = d.opts.LogFormat
	}

	logger, closer := config.NewEngineLogger(settings.Logging)
	inv := &invocation{input: input, settings: settings, logger: logger, closers: []io.Closer{closer}}
	if settingsErr != nil {
		logger.Warn("settings_error", settingsErr.Error(), nil)
	}
	if settings.Logging.Enabled {
		dir := filepath.Dir(config.ExpandHome(settings.Logging.Path))
		if _, err := config.CleanupOldLogs(dir, settings.Logging.Rotation.MaxAge); err != nil {
			logger.Debug("log_cleanup_error", err.Error(), map[string]any{"dir": dir})
		}
	}

	ctx := core.NewHookContext(input)
	ctx.ProjectDir = projectDir
	ctx.Logger = logger
	ctx.LookupEnv = d.opts.LookupEnv
	if settings.Git.Enabled && input.Common.Cwd != "" {
		git, err := core.LoadGitStatus(d.opts.Executor, input.Common.Cwd)
		if err != nil {
			logger.Debug("git_unavailable", err.Error(), nil)
		} else {
			ctx.Git = git
		}
	}
	kv := &lazyStore{path: config.ExpandHome(settings.Store.Path)}
	inv.closers = append(inv.closers, kv)
	ctx.Store = kv
	inv.ctx = ctx

	logger.Debug("hook_start", "handling event", map[string]any{
		"hook_event": string(input.Kind),
		"session_id": input.Common.SessionID,
		"project":    projectDir,
	})

	inv.rules = config.LoadRules(config.LoadOptions{
		XDG:        d.opts.XDG,
		ProjectDir: projectDir,
		Files:      d.opts.RuleFiles,
	})
	for _, diag := range inv.rules.Diagnostics {
		logger.WithRule(diag.RuleID).Warn("rule_diagnostic", diag.Message, map[string]any{
			"source":   diag.Source,
			"severity": string(diag.Severity),
		})
	}
	return inv, nil
}

// Handle processes one raw hook input document
func (d *Dispatcher) Handle(data []byte) (*Outcome, error) {
	inv, err := d.prepare(data)
	if err != nil {
		return nil, err
	}
	defer inv.Close()

	matcher := &rules.Matcher{Evaluator: d.opts.Evaluator}
	matched := matcher.Match(inv.rules.Rules, inv.ctx)

	acc := actions.NewAccumulator()
	result := rules.NewExecutor(d.opts.Handlers).Execute(matched, inv.ctx, acc)
	resp := output.Build(inv.input.Kind, result, acc)

	inv.logger.Info("hook_complete", "event handled", map[string]any{
		"hook_event": string(inv.input.Kind),
		"rules":      len(inv.rules.Rules),
		"matched":    len(matched),
		"blocked":    result.Blocked(),
		"state":      result.State.String(),
	})

	return &Outcome{
		Event:       inv.input.Kind,
		ProjectDir:  inv.ctx.ProjectDir,
		Matched:     matched,
		Result:      result,
		Response:    resp,
		Diagnostics: inv.rules.Diagnostics,
	}, nil
}

// Explanation is the dry-run outcome of an event: which rules would run,
// in what order, without running any action
type Explanation struct {
	Event       core.EventType
	Reports     []rules.MatchReport
	Diagnostics []config.Diagnostic
}

// Explain matches the event against the loaded rules without executing actions
func (d *Dispatcher) Explain(data []byte) (*Explanation, error) {
	inv, err := d.prepare(data)
	if err != nil {
		return nil, err
	}
	defer inv.Close()

	matcher := &rules.Matcher{Evaluator: d.opts.Evaluator}
	return &Explanation{
		Event:       inv.input.Kind,
		Reports:     matcher.Explain(inv.rules.Rules, inv.ctx),
		Diagnostics: inv.rules.Diagnostics,
	}, nil
}

// Eval evaluates an expression against the event, returning its raw value
func (d *Dispatcher) Eval(expression string, data []byte) (any, error) {
	inv, err := d.prepare(data)
	if err != nil {
		return nil, err
	}
	defer inv.Close()
	return d.opts.Evaluator.Eval(expression, inv.ctx)
}

// projectDir is the host-provided project root, or the event's cwd
func (d *Dispatcher) projectDir(input *core.HookInput) string {
	if dir, ok := d.opts.LookupEnv(EnvProjectDir); ok && dir != "" {
		return filepath.Clean(dir)
	}
	return input.Common.Cwd
}

// lazyStore opens the state database on first lookup, so events whose rules
// never read state do not touch it. A missing database reads as empty and is
// not created.
type lazyStore struct {
	path string

	once    sync.Once
	s       *store.Store
	missing bool
	err     error
}

func (l *lazyStore) Lookup(scope core.Scope, owner, key string) (any, bool, error) {
	l.once.Do(func() {
		if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
			l.missing = true
			return
		}
		l.s, l.err = store.Open(l.path)
	})
	if l.err != nil {
		return nil, false, l.err
	}
	if l.missing {
		return nil, false, nil
	}
	return l.s.Lookup(scope, owner, key)
}

func (l *lazyStore) Close() error {
	if l.s == nil {
		return nil
	}
	return l.s.Close()
}
