package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/klauern/hookwarden/internal/actions"
	"github.com/klauern/hookwarden/internal/core"
	"github.com/klauern/hookwarden/internal/rules"
	yaml "gopkg.in/yaml.v3"
)

// Rule file formats
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// RuleEntry is one rule as written in a rule file
type RuleEntry struct {
	ID          string         `toml:"id" yaml:"id" json:"id"`
	Description string         `toml:"description,omitempty" yaml:"description,omitempty" json:"description,omitempty"`
	Events      []string       `toml:"events" yaml:"events" json:"events"`
	Condition   string         `toml:"condition,omitempty" yaml:"condition,omitempty" json:"condition,omitempty"`
	Priority    string         `toml:"priority,omitempty" yaml:"priority,omitempty" json:"priority,omitempty"`
	Enabled     *bool          `toml:"enabled,omitempty" yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Result      string         `toml:"result,omitempty" yaml:"result,omitempty" json:"result,omitempty"`
	Terminal    bool           `toml:"terminal,omitempty" yaml:"terminal,omitempty" json:"terminal,omitempty"`
	Actions     []actions.Params `toml:"actions,omitempty" yaml:"actions,omitempty" json:"actions,omitempty"`
}

var (
	documentKeys = map[string]bool{"rules": true}
	ruleKeys     = map[string]bool{
		"id": true, "description": true, "events": true, "condition": true, "priority": true,
		"enabled": true, "result": true, "terminal": true, "actions": true,
	}
	actionKeys = map[string]bool{
		"type": true, "message": true, "interrupt": true, "command": true, "timeout": true,
		"env": true, "workdir": true, "level": true,
	}
)

// RuleSource is one rule file in the discovery order
type RuleSource struct {
	Path  string
	Scope string
	// Required sources report a diagnostic when missing
	Required bool
}

// Rule source scopes
const (
	ScopeGlobal  = "global"
	ScopeProject = "project"
	ScopeLocal   = "local"
	ScopeFlag    = "flag"
)

// LoadOptions selects where rules are discovered
type LoadOptions struct {
	XDG        *XDGConfig
	ProjectDir string
	// Files are extra rule files, applied last in the given order
	Files []string
	// SkipGlobal ignores the XDG rule files
	SkipGlobal bool
}

// RuleSet is the merged outcome of loading every rule source
type RuleSet struct {
	Rules       []rules.Rule
	Diagnostics []Diagnostic
	// Loaded lists the files that were read, in precedence order
	Loaded []string
}

// HasErrors reports whether any diagnostic is an error
func (s *RuleSet) HasErrors() bool {
	for _, d := range s.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// RuleSources returns the rule files in ascending precedence: global file,
// global drop-ins, project file, project drop-ins, local file, flag files.
func RuleSources(opts LoadOptions) []RuleSource {
	var sources []RuleSource
	if !opts.SkipGlobal {
		x := opts.XDG
		if x == nil {
			x = NewXDGConfig()
		}
		sources = append(sources, RuleSource{Path: x.RulesPath(), Scope: ScopeGlobal})
		for _, p := range dropInFiles(x.DropInDir()) {
			sources = append(sources, RuleSource{Path: p, Scope: ScopeGlobal})
		}
	}
	if opts.ProjectDir != "" {
		proj := NewProjectPaths(opts.ProjectDir)
		sources = append(sources, RuleSource{Path: proj.RulesPath(), Scope: ScopeProject})
		for _, p := range dropInFiles(proj.DropInDir()) {
			sources = append(sources, RuleSource{Path: p, Scope: ScopeProject})
		}
		sources = append(sources, RuleSource{Path: proj.LocalRulesPath(), Scope: ScopeLocal})
	}
	for _, f := range opts.Files {
		sources = append(sources, RuleSource{Path: f, Scope: ScopeFlag, Required: true})
	}
	return sources
}

// dropInFiles lists rule files in dir in lexicographic order
func dropInFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if FormatOf(e.Name()) != "" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// FormatOf returns the rule file format for a path, or "" when unsupported
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yml", ".yaml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return ""
	}
}

// LoadRules discovers, parses and merges every rule source. Problems never
// abort loading; they are returned as diagnostics and the offending file or
// rule is skipped.
func LoadRules(opts LoadOptions) *RuleSet {
	set := &RuleSet{}
	for _, src := range RuleSources(opts) {
		data, err := os.ReadFile(src.Path) // #nosec G304 - rule paths come from known config dirs or explicit flags
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !src.Required {
				continue
			}
			set.Diagnostics = append(set.Diagnostics, Diagnostic{
				Source:   src.Path,
				Severity: SeverityError,
				Message:  fmt.Sprintf("failed to read rule file: %v", err),
			})
			continue
		}
		loaded, diags := ParseRules(data, FormatOf(src.Path), src.Path)
		set.Diagnostics = append(set.Diagnostics, diags...)
		set.Rules = MergeRules(set.Rules, loaded)
		set.Loaded = append(set.Loaded, src.Path)
	}
	return set
}

// MergeRules overlays override onto base by rule ID. A replaced rule keeps
// the position of its first appearance; new rules are appended.
func MergeRules(base, override []rules.Rule) []rules.Rule {
	result := make([]rules.Rule, 0, len(base)+len(override))
	index := map[string]int{}
	for _, r := range base {
		if idx, ok := index[r.ID]; ok {
			result[idx] = r
			continue
		}
		index[r.ID] = len(result)
		result = append(result, r)
	}
	for _, r := range override {
		if idx, ok := index[r.ID]; ok {
			// Replace existing rule with same ID
			result[idx] = r
			continue
		}
		index[r.ID] = len(result)
		result = append(result, r)
	}
	return result
}

// ParseRules decodes a rule document and converts its valid entries. The
// source is recorded on every rule and diagnostic.
func ParseRules(data []byte, format, source string) ([]rules.Rule, []Diagnostic) {
	var (
		entries []RuleEntry
		diags   []Diagnostic
	)
	switch format {
	case FormatTOML:
		entries, diags = decodeTOML(data, source)
	case FormatYAML:
		entries, diags = decodeYAML(data, source)
	case FormatJSON:
		entries, diags = decodeJSON(data, source)
	default:
		return nil, []Diagnostic{{
			Source:   source,
			Severity: SeverityError,
			Message:  "unsupported rule file extension (use .toml, .yaml, .yml or .json)",
		}}
	}

	out := make([]rules.Rule, 0, len(entries))
	seen := map[string]bool{}
	for i, e := range entries {
		r, ruleDiags := e.ToRule(source, i)
		diags = append(diags, ruleDiags...)
		if hasError(ruleDiags) {
			continue
		}
		if seen[r.ID] {
			diags = append(diags, Diagnostic{
				Source:   source,
				RuleID:   r.ID,
				Severity: SeverityWarning,
				Message:  "duplicate rule id in the same file; the later definition wins",
			})
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return MergeRules(nil, out), diags
}

func decodeTOML(data []byte, source string) ([]RuleEntry, []Diagnostic) {
	var doc struct {
		Rules []toml.Primitive `toml:"rules"`
	}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, []Diagnostic{decodeDiagnostic(source, err)}
	}

	var diags []Diagnostic
	entries := make([]RuleEntry, 0, len(doc.Rules))
	for i, prim := range doc.Rules {
		var e RuleEntry
		if err := md.PrimitiveDecode(prim, &e); err != nil {
			diags = append(diags, Diagnostic{
				Source:   source,
				RuleID:   fmt.Sprintf("rules[%d]", i),
				Severity: SeverityError,
				Message:  err.Error(),
			})
			entries = append(entries, RuleEntry{})
			continue
		}
		entries = append(entries, e)
	}
	for _, key := range md.Undecoded() {
		diags = append(diags, unknownKeyDiagnostic(source, "", key.String(), knownFor(key)))
	}
	return entries, diags
}

// knownFor picks the key set a TOML key path belongs to
func knownFor(key toml.Key) map[string]bool {
	switch {
	case len(key) >= 3 && key[0] == "rules" && key[1] == "actions":
		return actionKeys
	case len(key) >= 2 && key[0] == "rules":
		return ruleKeys
	default:
		return documentKeys
	}
}

func decodeYAML(data []byte, source string) ([]RuleEntry, []Diagnostic) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, []Diagnostic{decodeDiagnostic(source, err)}
	}
	diags := unknownKeys(source, generic)

	var doc struct {
		Rules []yaml.Node `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, append(diags, decodeDiagnostic(source, err))
	}
	entries := make([]RuleEntry, 0, len(doc.Rules))
	for i := range doc.Rules {
		var e RuleEntry
		if err := doc.Rules[i].Decode(&e); err != nil {
			diags = append(diags, Diagnostic{
				Source:   source,
				RuleID:   fmt.Sprintf("rules[%d]", i),
				Severity: SeverityError,
				Message:  err.Error(),
			})
			entries = append(entries, RuleEntry{})
			continue
		}
		entries = append(entries, e)
	}
	return entries, diags
}

func decodeJSON(data []byte, source string) ([]RuleEntry, []Diagnostic) {
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, []Diagnostic{decodeDiagnostic(source, err)}
	}
	diags := unknownKeys(source, generic)

	var doc struct {
		Rules []json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, append(diags, decodeDiagnostic(source, err))
	}
	entries := make([]RuleEntry, 0, len(doc.Rules))
	for i, raw := range doc.Rules {
		var e RuleEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			diags = append(diags, Diagnostic{
				Source:   source,
				RuleID:   fmt.Sprintf("rules[%d]", i),
				Severity: SeverityError,
				Message:  err.Error(),
			})
			entries = append(entries, RuleEntry{})
			continue
		}
		entries = append(entries, e)
	}
	return entries, diags
}

// unknownKeys walks a generically decoded document and reports keys that are
// not part of the rule file schema
func unknownKeys(source string, doc map[string]any) []Diagnostic {
	var diags []Diagnostic
	for _, k := range sortedKeys(doc) {
		if !documentKeys[k] {
			diags = append(diags, unknownKeyDiagnostic(source, "", k, documentKeys))
		}
	}
	list, _ := doc["rules"].([]any)
	for i, item := range list {
		rule, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := rule["id"].(string)
		if id == "" {
			id = fmt.Sprintf("rules[%d]", i)
		}
		for _, k := range sortedKeys(rule) {
			if !ruleKeys[k] {
				diags = append(diags, unknownKeyDiagnostic(source, id, k, ruleKeys))
			}
		}
		acts, _ := rule["actions"].([]any)
		for _, a := range acts {
			action, ok := a.(map[string]any)
			if !ok {
				continue
			}
			for _, k := range sortedKeys(action) {
				if !actionKeys[k] {
					diags = append(diags, unknownKeyDiagnostic(source, id, "actions."+k, actionKeys))
				}
			}
		}
	}
	return diags
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unknownKeyDiagnostic(source, ruleID, key string, known map[string]bool) Diagnostic {
	names := make([]string, 0, len(known))
	for k := range known {
		names = append(names, k)
	}
	sort.Strings(names)
	last := key
	if i := strings.LastIndex(key, "."); i >= 0 {
		last = key[i+1:]
	}
	return Diagnostic{
		Source:     source,
		RuleID:     ruleID,
		Severity:   SeverityWarning,
		Message:    fmt.Sprintf("unknown key %q", key),
		Suggestion: Suggest(last, names),
	}
}

func decodeDiagnostic(source string, err error) Diagnostic {
	return Diagnostic{
		Source:   source,
		Severity: SeverityError,
		Message:  fmt.Sprintf("failed to parse rule file: %v", err),
	}
}

// ToRule validates the entry and converts it to a rule. index locates the
// entry in its file when the id is missing.
func (e RuleEntry) ToRule(source string, index int) (rules.Rule, []Diagnostic) {
	var diags []Diagnostic
	id := strings.TrimSpace(e.ID)
	label := id
	if label == "" {
		label = fmt.Sprintf("rules[%d]", index)
	}
	fail := func(msg, suggestion string) {
		diags = append(diags, Diagnostic{
			Source:     source,
			RuleID:     label,
			Severity:   SeverityError,
			Message:    msg,
			Suggestion: suggestion,
		})
	}

	if id == "" {
		fail("rule is missing an id", "")
	}

	events := make([]core.EventType, 0, len(e.Events))
	if len(e.Events) == 0 {
		fail("rule has no events", "")
	}
	for _, name := range e.Events {
		ev, err := core.ParseEventType(name)
		if err != nil {
			fail(fmt.Sprintf("unknown event %q", name), Suggest(name, core.ValidEventTypes()))
			continue
		}
		events = append(events, ev)
	}

	priority, err := rules.ParsePriority(e.Priority)
	if err != nil {
		fail(err.Error(), Suggest(e.Priority, []string{"critical", "high", "medium", "low"}))
	}
	result, err := rules.ParseResultType(e.Result)
	if err != nil {
		fail(err.Error(), Suggest(e.Result, []string{"block", "warn", "ok"}))
	}

	known := actions.Default().Types()
	for i, a := range e.Actions {
		switch {
		case strings.TrimSpace(a.Type) == "":
			fail(fmt.Sprintf("actions[%d] is missing a type", i), "")
		case !contains(known, a.Type):
			diags = append(diags, Diagnostic{
				Source:     source,
				RuleID:     label,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("actions[%d] has unknown type %q and will do nothing", i, a.Type),
				Suggestion: Suggest(a.Type, known),
			})
		case a.Type == actions.TypeShell && strings.TrimSpace(a.Command) == "":
			fail(fmt.Sprintf("actions[%d] is a shell action without a command", i), "")
		}
	}

	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}

	return rules.Rule{
		ID:          id,
		Description: e.Description,
		Events:      events,
		Condition:   e.Condition,
		Priority:    priority,
		Enabled:     enabled,
		Result:      result,
		Terminal:    e.Terminal,
		Actions:     append([]actions.Params(nil), e.Actions...),
		Source:      source,
	}, diags
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasError(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
