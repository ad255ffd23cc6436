package constants

// Application constants - single source of truth for naming throughout the codebase
const (
	// Core application identity
	AppName    = "hookwarden"
	BinaryName = "hookwarden"

	// Module and repository
	ModulePath    = "github.com/klauern/hookwarden"
	RepositoryURL = "https://github.com/klauern/hookwarden"

	// Configuration files
	RulesFileName      = "rules.toml"
	LocalRulesFileName = "rules.local.toml"
	RulesDropInDir     = "rules.d"
	SettingsFileName   = "settings.toml"
	ClaudeSettingsFile = "settings.json"
	StateFileName      = "state.db"

	// Log files
	DefaultLogFile = "hookwarden.log"

	// Directory paths
	ClaudeDir  = ".claude"
	ProjectDir = "hookwarden"

	// Command patterns for settings
	CommandPattern = BinaryName + " run"

	// Environment variables
	EnvLog       = "HOOKWARDEN_LOG"
	EnvLogFormat = "HOOKWARDEN_LOG_FORMAT"
	EnvStore     = "HOOKWARDEN_STORE"
)

// Common tool names
const (
	ToolBash      = "Bash"
	ToolEdit      = "Edit"
	ToolMultiEdit = "MultiEdit"
	ToolWrite     = "Write"
	ToolRead      = "Read"
	ToolGlob      = "Glob"
	ToolGrep      = "Grep"
	ToolWebFetch  = "WebFetch"
)

// GetProjectConfigDir returns the project-scoped configuration directory
func GetProjectConfigDir(baseDir string) string {
	return baseDir + "/" + ClaudeDir + "/" + ProjectDir
}
