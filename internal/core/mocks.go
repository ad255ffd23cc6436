package core

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// MockFileSystem implements FileSystem interface for testing
type MockFileSystem struct {
	Files   map[string][]byte
	Modes   map[string]os.FileMode
	StatErr error
	mu      sync.RWMutex
}

// NewMockFileSystem creates a new mock filesystem for testing
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files: make(map[string][]byte),
		Modes: make(map[string]os.FileMode),
	}
}

// AddFile registers a file with the given content and mode
func (m *MockFileSystem) AddFile(name string, data []byte, mode os.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[name] = append([]byte(nil), data...)
	m.Modes[name] = mode
}

// Stat returns file information for the specified path (mock implementation)
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if m.StatErr != nil {
		return nil, m.StatErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if data, exists := m.Files[name]; exists {
		mode, ok := m.Modes[name]
		if !ok {
			mode = 0o644
		}
		return &mockFileInfo{name: name, size: int64(len(data)), mode: mode}, nil
	}

	return nil, os.ErrNotExist
}

// ReadFile returns the registered content of a mock file
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, exists := m.Files[name]; exists {
		return append([]byte(nil), data...), nil
	}
	return nil, os.ErrNotExist
}

type mockFileInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return m.mode.IsDir() }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// MockCommandExecutor implements CommandExecutor interface for testing
type MockCommandExecutor struct {
	Commands  []MockCommand
	Responses map[string]MockCommandResponse
	mu        sync.RWMutex
}

// MockCommand represents a mock command execution
type MockCommand struct {
	Name string
	Args []string
}

// MockCommandResponse represents the response from a mock command
type MockCommandResponse struct {
	Output []byte
	Error  error
}

// NewMockCommandExecutor creates a new mock command executor for testing
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Commands:  []MockCommand{},
		Responses: make(map[string]MockCommandResponse),
	}
}

// ExecuteCommand records the call and returns the response registered for the
// longest matching "name arg1 arg2..." prefix. Unknown commands fail.
func (m *MockCommandExecutor) ExecuteCommand(name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, MockCommand{
		Name: name,
		Args: append([]string{}, args...),
	})

	parts := append([]string{name}, args...)
	for n := len(parts); n > 0; n-- {
		if response, exists := m.Responses[strings.Join(parts[:n], " ")]; exists {
			return response.Output, response.Error
		}
	}
	return nil, fmt.Errorf("mock: no response for %q", strings.Join(parts, " "))
}

// SetResponse configures a response for a command prefix such as "git -C /repo status"
func (m *MockCommandExecutor) SetResponse(command string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Responses[command] = MockCommandResponse{
		Output: output,
		Error:  err,
	}
}

// GetExecutedCommands returns all executed commands (used in tests)
func (m *MockCommandExecutor) GetExecutedCommands() []MockCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]MockCommand, len(m.Commands))
	copy(result, m.Commands)
	return result
}

// MemoryStore is an in-memory KeyValueReader for tests
type MemoryStore struct {
	Values map[string]any
	Err    error
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Values: make(map[string]any)}
}

// Put stores a value under scope/owner/key
func (m *MemoryStore) Put(scope Scope, owner, key string, value any) {
	m.Values[memoryKey(scope, owner, key)] = value
}

// Lookup implements KeyValueReader
func (m *MemoryStore) Lookup(scope Scope, owner, key string) (any, bool, error) {
	if m.Err != nil {
		return nil, false, m.Err
	}
	v, ok := m.Values[memoryKey(scope, owner, key)]
	return v, ok, nil
}

func memoryKey(scope Scope, owner, key string) string {
	return string(scope) + "\x00" + owner + "\x00" + key
}

// TestHookContext creates a context suitable for testing: mock filesystem, an
// empty environment, an in-memory store and no git repository.
func TestHookContext(input *HookInput) *HookContext {
	ctx := &HookContext{
		Input:      input,
		FileSystem: NewMockFileSystem(),
		LookupEnv:  func(string) (string, bool) { return "", false },
		Store:      NewMemoryStore(),
	}
	if input != nil {
		ctx.ProjectDir = input.Common.Cwd
	}
	return ctx
}

// MustParseHookInput parses a JSON document and panics on error; tests only
func MustParseHookInput(doc string) *HookInput {
	in, err := ParseHookInput([]byte(doc))
	if err != nil {
		panic(err)
	}
	return in
}

// CaptureLogger returns a JSONL logger writing into the returned buffer
func CaptureLogger() (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(buf, LogFormatJSONL, LevelDebug), buf
}
