// Package core provides the hook event model, the per-invocation HookContext and the
// injectable dependencies (filesystem, commands, logging) shared by the rule engine.
package core

import (
	"os"
	"os/exec"
)

// FileSystem interface for dependency injection in testing
type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// RealFileSystem implements FileSystem using the real filesystem
type RealFileSystem struct{}

// Stat returns file information for the specified path
func (fs *RealFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// ReadFile reads the named file
func (fs *RealFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name) // #nosec G304 - filesystem interface, paths controlled by caller
}

// CommandExecutor interface for dependency injection in testing
type CommandExecutor interface {
	ExecuteCommand(name string, args ...string) ([]byte, error)
}

// RealCommandExecutor implements CommandExecutor using real system commands
type RealCommandExecutor struct{}

// ExecuteCommand executes a system command and returns its standard output.
// Stderr is discarded so warnings do not corrupt machine-readable output.
// #nosec G204 - only used for fixed git invocations
func (ce *RealCommandExecutor) ExecuteCommand(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.Output()
}
