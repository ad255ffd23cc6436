package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauern/hookwarden/internal/core"
)

// DefaultShellTimeout bounds a shell action that sets no timeout
const DefaultShellTimeout = 60 * time.Second

// ShellResponse is the optional JSON a shell action may print on stdout
type ShellResponse struct {
	Decision string `json:"decision"`
	Message  string `json:"message"`
}

// ShellHandler runs an action's command with bash, feeding it the raw event on stdin
type ShellHandler struct {
	Shell string
	// Environ supplies the base environment; defaults to os.Environ
	Environ func() []string
}

// NewShellHandler returns a handler that runs commands through bash -lc
func NewShellHandler() *ShellHandler {
	return &ShellHandler{Shell: "bash", Environ: os.Environ}
}

type shellResult struct {
	exitCode int
	stdout   string
	stderr   string
}

// Run executes the command. A non-zero exit or a timeout is an action failure;
// a decision printed on stdout is applied like the deny/allow/warn actions.
func (h *ShellHandler) Run(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error) {
	if strings.TrimSpace(action.Command) == "" {
		return Continue, errors.New("shell action requires a command")
	}

	result, err := h.execute(ctx, action)
	if err != nil {
		return Continue, err
	}
	if result.exitCode != 0 {
		stderr := strings.TrimSpace(result.stderr)
		if stderr == "" {
			return Continue, fmt.Errorf("command exited with code %d", result.exitCode)
		}
		return Continue, fmt.Errorf("command exited with code %d: %s", result.exitCode, stderr)
	}

	resp, err := parseShellResponse(result.stdout)
	if err != nil || resp == nil {
		return Continue, err
	}

	message := resp.Message
	if message == "" {
		message = action.Message
	}
	switch strings.ToLower(resp.Decision) {
	case TypeDeny, "block":
		return applyDeny(ctx, acc, message, action.Interrupt), nil
	case TypeAllow, "approve":
		applyAllow(ctx, acc, message)
	case TypeWarn:
		if msg := render(ctx, message); msg != "" {
			acc.AddSystemMessage(msg)
		}
	case "":
	default:
		return Continue, fmt.Errorf("unknown decision %q in command output", resp.Decision)
	}
	return Continue, nil
}

func (h *ShellHandler) execute(ctx *core.HookContext, action Params) (*shellResult, error) {
	timeout := DefaultShellTimeout
	if action.Timeout > 0 {
		timeout = time.Duration(action.Timeout) * time.Second
	}
	cmdCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	shell := h.Shell
	if shell == "" {
		shell = "bash"
	}
	cmd := exec.CommandContext(cmdCtx, shell, "-lc", action.Command) // #nosec G204 -- running the rule author's command is the purpose of this action

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if ctx.Input != nil && len(ctx.Input.Raw) > 0 {
		cmd.Stdin = bytes.NewReader(ctx.Input.Raw)
	}
	cmd.Dir = h.workDir(ctx, action)
	cmd.Env = h.environment(ctx, action)
	// children that inherit stdout must not hold Run open past the timeout
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	result := &shellResult{stdout: stdout.String(), stderr: stderr.String()}
	if err == nil {
		return result, nil
	}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("command timed out after %s", timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.exitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, fmt.Errorf("failed to run command: %w", err)
}

func (h *ShellHandler) workDir(ctx *core.HookContext, action Params) string {
	if action.WorkDir == "" {
		return ctx.Cwd()
	}
	if filepath.IsAbs(action.WorkDir) {
		return action.WorkDir
	}
	return ctx.ResolvePath(action.WorkDir)
}

func (h *ShellHandler) environment(ctx *core.HookContext, action Params) []string {
	var env []string
	if h.Environ != nil {
		env = h.Environ()
	}
	env = append(env,
		"HOOK_EVENT="+string(ctx.Event()),
		"HOOK_TOOL_NAME="+ctx.ToolName(),
		"HOOK_SESSION_ID="+ctx.SessionID(),
		"HOOK_CWD="+ctx.Cwd(),
		"HOOK_PROJECT_DIR="+ctx.ProjectDir,
	)
	for k, v := range action.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// parseShellResponse looks for a JSON object in the command output. Login
// shells may print banners first, so the last line is tried as well.
func parseShellResponse(output string) (*ShellResponse, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, nil
	}
	candidate := trimmed
	if !strings.HasPrefix(candidate, "{") {
		lines := strings.Split(trimmed, "\n")
		candidate = strings.TrimSpace(lines[len(lines)-1])
		if !strings.HasPrefix(candidate, "{") {
			return nil, nil
		}
	}

	var resp ShellResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON in command output: %w", err)
	}
	return &resp, nil
}
