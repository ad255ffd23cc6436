package core

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Git file set names accepted by GitStatus.Set
const (
	GitSetStaged     = "staged"
	GitSetModified   = "modified"
	GitSetUntracked  = "untracked"
	GitSetConflicted = "conflicted"
)

// GitStatus is a snapshot of the working tree taken once per invocation.
// All file paths are slash-separated and relative to Root.
type GitStatus struct {
	Root       string
	Branch     string
	Staged     []string
	Modified   []string
	Untracked  []string
	Conflicted []string
}

// unmerged status pairs as documented by git-status(1)
var conflictCodes = map[string]bool{
	"DD": true, "AU": true, "UD": true, "UA": true,
	"DU": true, "AA": true, "UU": true,
}

// LoadGitStatus runs git in dir and returns the working tree snapshot.
// An error means dir is not inside a usable git repository.
func LoadGitStatus(exec CommandExecutor, dir string) (*GitStatus, error) {
	out, err := exec.ExecuteCommand("git", "-C", dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return nil, fmt.Errorf("not a git repository: empty toplevel for %s", dir)
	}

	status, err := exec.ExecuteCommand("git", "-C", root, "status", "--porcelain=v1", "-b", "--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}
	return ParseGitStatus(root, status), nil
}

// ParseGitStatus parses `git status --porcelain=v1 -b` output
func ParseGitStatus(root string, porcelain []byte) *GitStatus {
	gs := &GitStatus{
		Root:       filepath.Clean(root),
		Staged:     []string{},
		Modified:   []string{},
		Untracked:  []string{},
		Conflicted: []string{},
	}

	scanner := bufio.NewScanner(bytes.NewReader(porcelain))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "## ") {
			gs.Branch = parseBranchLine(line[3:])
			continue
		}
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := parseStatusPath(line[3:])
		if path == "" {
			continue
		}

		switch {
		case code == "??":
			gs.Untracked = append(gs.Untracked, path)
		case code == "!!":
		case conflictCodes[code]:
			gs.Conflicted = append(gs.Conflicted, path)
		default:
			if x := code[0]; x != ' ' && x != '?' && x != '!' {
				gs.Staged = append(gs.Staged, path)
			}
			if y := code[1]; y != ' ' && y != '?' && y != '!' {
				gs.Modified = append(gs.Modified, path)
			}
		}
	}
	return gs
}

func parseBranchLine(s string) string {
	switch {
	case strings.HasPrefix(s, "No commits yet on "):
		return strings.TrimPrefix(s, "No commits yet on ")
	case strings.HasPrefix(s, "Initial commit on "):
		return strings.TrimPrefix(s, "Initial commit on ")
	case strings.HasPrefix(s, "HEAD (no branch)"):
		return "HEAD"
	}
	if i := strings.Index(s, "..."); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	return s
}

// parseStatusPath extracts the destination path, unquoting C-style quoted names
func parseStatusPath(s string) string {
	if i := strings.LastIndex(s, " -> "); i >= 0 {
		s = s[i+4:]
	}
	if strings.HasPrefix(s, `"`) {
		if unquoted, err := strconv.Unquote(s); err == nil {
			s = unquoted
		}
	}
	return filepath.ToSlash(s)
}

// Set returns the named file set and whether the name is known
func (g *GitStatus) Set(name string) ([]string, bool) {
	if g == nil {
		return nil, false
	}
	switch strings.ToLower(name) {
	case GitSetStaged:
		return g.Staged, true
	case GitSetModified:
		return g.Modified, true
	case GitSetUntracked:
		return g.Untracked, true
	case GitSetConflicted:
		return g.Conflicted, true
	default:
		return nil, false
	}
}

// RelPath converts path (absolute, or relative to cwd) into a repository-relative
// slash path. It returns false when the path lies outside the repository.
func (g *GitStatus) RelPath(cwd, path string) (string, bool) {
	if g == nil || path == "" {
		return "", false
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	rel, err := filepath.Rel(g.Root, filepath.Clean(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// InSet reports whether path belongs to the named file set
func (g *GitStatus) InSet(name, cwd, path string) bool {
	set, ok := g.Set(name)
	if !ok {
		return false
	}
	rel, ok := g.RelPath(cwd, path)
	if !ok {
		return false
	}
	return slices.Contains(set, rel)
}
