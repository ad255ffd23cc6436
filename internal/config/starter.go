package config

import (
	"io/fs"
	"os"
)

// StarterRules is the rule file written by `rules init`
const StarterRules = `# hookwarden rules
#
# Rules run in priority order (critical, high, medium, low), then in the order
# they are written. Later files override earlier ones by id.

[[rules]]
id = "block-destructive-shell"
description = "Destructive shell command blocked"
events = ["pre_tool_use"]
condition = 'tool_name == "Bash" and regex_match("(^|[;&|]\\s*)(sudo\\s+)?(rm\\s+-[a-zA-Z]*[rR][a-zA-Z]*\\s+/(\\s|$|\\*)|mkfs|dd\\s+if=)", tool_input.command)'
priority = "critical"
result = "block"
terminal = true

[[rules.actions]]
type = "deny"
message = "Refusing to run: ${tool_input.command}"

[[rules.actions]]
type = "log"
level = "warn"
message = "blocked destructive command in ${cwd}"

[[rules]]
id = "protect-env-files"
description = "Writes to .env files need review"
events = ["pre_tool_use"]
condition = 'tool_name in ["Edit", "MultiEdit", "Write"] and matches_glob(tool_input.file_path, ".env*")'
priority = "high"
result = "warn"

[[rules.actions]]
type = "warn"
message = "Editing ${tool_input.file_path}, which may contain secrets"

[[rules]]
id = "no-push-to-main"
description = "Pushing directly to main is not allowed"
events = ["pre_tool_use"]
condition = 'tool_name == "Bash" and tool_input.command startsWith "git push" and current_branch() in ["main", "master"]'
priority = "high"
result = "block"

[[rules.actions]]
type = "deny"
message = "Open a pull request instead of pushing to ${git_branch}"

[[rules]]
id = "conflict-reminder"
description = "Resolve merge conflicts before stopping"
events = ["stop"]
condition = "has_conflicts()"
priority = "medium"
result = "warn"
enabled = false
`

// WriteStarterRules writes StarterRules to path unless the file exists and
// overwrite is false, in which case fs.ErrExist is returned
func WriteStarterRules(path string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fs.ErrExist
	}
	return writeFile(path, []byte(StarterRules))
}
