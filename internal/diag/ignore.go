package diag

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreRule suppresses diagnostics whose file matches Path. An empty Codes
// list suppresses every code for that path.
type IgnoreRule struct {
	Path  string   `yaml:"path" toml:"path"`
	Codes []string `yaml:"codes" toml:"codes"`
}

type compiledRule struct {
	pattern glob.Glob
	codes   map[string]bool
}

// IgnoreRules is a compiled, read-only rule set. A nil *IgnoreRules matches
// nothing. Plugins evaluate it themselves; the core only aggregates the
// counts they report.
type IgnoreRules struct {
	rules []compiledRule
}

// CompileIgnoreRules compiles path globs ('/' separated, "**" crosses
// directories).
func CompileIgnoreRules(rules []IgnoreRule) (*IgnoreRules, error) {
	out := &IgnoreRules{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		p := strings.TrimSpace(r.Path)
		if p == "" {
			return nil, fmt.Errorf("ignore rule %d: empty path", i)
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore rule %d (%s): %w", i, p, err)
		}
		cr := compiledRule{pattern: g}
		if len(r.Codes) > 0 {
			cr.codes = make(map[string]bool, len(r.Codes))
			for _, c := range r.Codes {
				cr.codes[strings.TrimSpace(c)] = true
			}
		}
		out.rules = append(out.rules, cr)
	}
	return out, nil
}

// Matches reports whether a diagnostic with code at file is suppressed.
func (r *IgnoreRules) Matches(file, code string) bool {
	if r == nil || file == "" {
		return false
	}
	for _, cr := range r.rules {
		if cr.codes != nil && !cr.codes[code] {
			continue
		}
		if cr.pattern.Match(file) {
			return true
		}
	}
	return false
}

// Len returns the number of rules.
func (r *IgnoreRules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Collector accumulates one plugin's diagnostics, applying ignore rules and
// counting suppressions for the plugin's result metadata.
type Collector struct {
	plugin     string
	rules      *IgnoreRules
	items      []Diagnostic
	suppressed int
}

// NewCollector creates a collector that stamps every diagnostic with plugin.
func NewCollector(plugin string, rules *IgnoreRules) *Collector {
	return &Collector{plugin: plugin, rules: rules}
}

// Add records d. Matching ignore rules mark it suppressed.
func (c *Collector) Add(d Diagnostic) {
	if d.Plugin == "" {
		d.Plugin = c.plugin
	}
	if !d.Suppressed && c.rules.Matches(d.File, d.Code) {
		d.Suppressed = true
	}
	if d.Suppressed {
		c.suppressed++
	}
	c.items = append(c.items, d)
}

// Addf is a shorthand for Add with a formatted message.
func (c *Collector) Addf(sev Severity, code, file, format string, args ...any) {
	c.Add(Diagnostic{Code: code, Severity: sev, File: file, Message: fmt.Sprintf(format, args...)})
}

// Diagnostics returns everything collected so far, suppressed entries
// included.
func (c *Collector) Diagnostics() []Diagnostic { return c.items }

// SuppressedCount returns how many diagnostics ignore rules suppressed.
func (c *Collector) SuppressedCount() int { return c.suppressed }
