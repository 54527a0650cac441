package diag

import (
	"fmt"
	"strings"
)

// StrictModeError is the single aggregate failure raised by the orchestrator
// at a phase boundary when strict mode is on and unsuppressed fatal
// diagnostics exist. Plugins and the phase runner never construct it.
type StrictModeError struct {
	Phase           string
	Diagnostics     []Diagnostic
	SuppressedCount int
}

func (e *StrictModeError) Error() string {
	plugins := make([]string, 0, len(e.Diagnostics))
	seen := make(map[string]bool)
	for _, d := range e.Diagnostics {
		if !seen[d.Plugin] {
			seen[d.Plugin] = true
			plugins = append(plugins, d.Plugin)
		}
	}
	return fmt.Sprintf("strict mode: %d fatal diagnostic(s) after %s phase from [%s] (%d suppressed by ignore rules)",
		len(e.Diagnostics), e.Phase, strings.Join(plugins, ", "), e.SuppressedCount)
}
