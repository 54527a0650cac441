// Package diag holds the diagnostic model shared by plugins, the phase
// runner and the orchestrator.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	// SevFatal diagnostics feed the strict-mode barrier.
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevFatal:
		return "fatal"
	}
	return "unknown"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SevInfo, true
	case "warning", "warn":
		return SevWarning, true
	case "fatal", "error":
		return SevFatal, true
	}
	return SevInfo, false
}

// Diagnostic is one plugin-reported finding. Diagnostics are collected,
// never thrown.
type Diagnostic struct {
	Code     string
	Severity Severity
	Message  string
	Plugin   string
	// File is the project-relative path the finding refers to, if any. Ignore
	// rules match against it.
	File       string
	Suppressed bool
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", d.Severity, d.Code, d.Message)
	if d.File != "" {
		fmt.Fprintf(&sb, " (%s)", d.File)
	}
	if d.Plugin != "" {
		fmt.Fprintf(&sb, " <%s>", d.Plugin)
	}
	if d.Suppressed {
		sb.WriteString(" (suppressed)")
	}
	return sb.String()
}

// Blocking reports whether d counts against the strict-mode barrier.
func (d Diagnostic) Blocking() bool {
	return d.Severity == SevFatal && !d.Suppressed
}

// Blocking returns the fatal, unsuppressed diagnostics of ds in input order.
func Blocking(ds []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		if d.Blocking() {
			out = append(out, d)
		}
	}
	return out
}

// CountBySeverity tallies ds per severity, ignoring suppressed entries.
func CountBySeverity(ds []Diagnostic) map[Severity]int {
	out := make(map[Severity]int, 3)
	for _, d := range ds {
		if d.Suppressed {
			continue
		}
		out[d.Severity]++
	}
	return out
}

// Sort orders diagnostics by severity (desc), plugin, file, code for stable
// report output.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		di, dj := ds[i], ds[j]
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Plugin != dj.Plugin {
			return di.Plugin < dj.Plugin
		}
		if di.File != dj.File {
			return di.File < dj.File
		}
		return di.Code < dj.Code
	})
}
