// Package actions implements rule action handlers and the output they accumulate.
package actions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/klauern/hookwarden/internal/core"
)

// Params is one action of a rule as written in a rule file. Handlers read the
// fields they need and ignore the rest.
type Params struct {
	Type      string `toml:"type" yaml:"type" json:"type"`
	Message   string `toml:"message,omitempty" yaml:"message,omitempty" json:"message,omitempty"`
	Interrupt bool   `toml:"interrupt,omitempty" yaml:"interrupt,omitempty" json:"interrupt,omitempty"`

	// shell
	Command string            `toml:"command,omitempty" yaml:"command,omitempty" json:"command,omitempty"`
	Timeout int               `toml:"timeout,omitempty" yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `toml:"env,omitempty" yaml:"env,omitempty" json:"env,omitempty"`
	WorkDir string            `toml:"workdir,omitempty" yaml:"workdir,omitempty" json:"workdir,omitempty"`

	// log
	Level string `toml:"level,omitempty" yaml:"level,omitempty" json:"level,omitempty"`
}

// Signal tells the executor whether to keep running the current rule's actions
type Signal struct {
	Stop    bool
	Message string
}

// Continue lets the executor move on to the next action
var Continue = Signal{}

// StopWith halts the rule with a denial message
func StopWith(message string) Signal {
	return Signal{Stop: true, Message: message}
}

// Handler runs one action type. Errors are reported back to the executor,
// which records them and continues with the next action.
type Handler interface {
	Run(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error)

// Run calls f
func (f HandlerFunc) Run(ctx *core.HookContext, action Params, acc *Accumulator) (Signal, error) {
	return f(ctx, action, acc)
}

// Registry maps action types to handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry creates an empty registry whose fallback is the no-op handler
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		fallback: HandlerFunc(noop),
	}
}

// NewDefaultRegistry creates a registry with all built-in handlers
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegisterBatch(map[string]Handler{
		TypeDeny:  HandlerFunc(deny),
		TypeAllow: HandlerFunc(allow),
		TypeWarn:  HandlerFunc(warn),
		TypeLog:   HandlerFunc(logAction),
		TypeNoop:  HandlerFunc(noop),
		TypeShell: NewShellHandler(),
	})
	return r
}

// Register registers a handler for an action type
func (r *Registry) Register(actionType string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[actionType]; exists {
		return fmt.Errorf("action handler '%s' already registered", actionType)
	}
	r.handlers[actionType] = h
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(actionType string, h Handler) {
	if err := r.Register(actionType, h); err != nil {
		panic(err)
	}
}

// RegisterBatch registers several handlers atomically
func (r *Registry) RegisterBatch(handlers map[string]Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for actionType := range handlers {
		if _, exists := r.handlers[actionType]; exists {
			return fmt.Errorf("action handler '%s' already registered", actionType)
		}
	}
	for actionType, h := range handlers {
		r.handlers[actionType] = h
	}
	return nil
}

// MustRegisterBatch is like RegisterBatch but panics on error
func (r *Registry) MustRegisterBatch(handlers map[string]Handler) {
	if err := r.RegisterBatch(handlers); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for an action type, or the no-op handler
func (r *Registry) Lookup(actionType string) Handler {
	h, _ := r.Get(actionType)
	return h
}

// Get returns the handler and whether the type is registered
func (r *Registry) Get(actionType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[actionType]; ok {
		return h, true
	}
	return r.fallback, false
}

// Types returns all registered action types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

var defaultRegistry = NewDefaultRegistry()

// Default returns the process-wide registry holding the built-in handlers
func Default() *Registry {
	return defaultRegistry
}
