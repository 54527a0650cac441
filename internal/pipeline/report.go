package pipeline

import (
	"time"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/phase"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// PhaseSummary aggregates every execution of one phase.
type PhaseSummary struct {
	Phase   plugin.Phase
	Elapsed time.Duration
	// Executions is the number of runner invocations: one for project-wide
	// phases, one per unit otherwise.
	Executions   int
	Executed     int
	Skipped      []phase.Skip
	Aborted      int
	Diagnostics  int
	Suppressed   int
	NodesCreated int
	EdgesCreated int
	Produced     tagset.Set[graph.EdgeType]
	// Blocking holds this phase's fatal, unsuppressed diagnostics.
	Blocking []diag.Diagnostic
	Internal []*phase.PanicError
}

// Report is the outcome of one Run.
type Report struct {
	RunID       string
	ProjectRoot string
	Units       []*plugin.Unit
	Phases      []PhaseSummary
	// Diagnostics holds everything plugins reported, suppressed ones included.
	Diagnostics     []diag.Diagnostic
	SuppressedCount int
	Produced        tagset.Set[graph.EdgeType]
	Elapsed         time.Duration
}

// Phase returns the summary of ph, or nil if it never ran.
func (r *Report) Phase(ph plugin.Phase) *PhaseSummary {
	for i := range r.Phases {
		if r.Phases[i].Phase == ph {
			return &r.Phases[i]
		}
	}
	return nil
}

// Blocking returns every fatal, unsuppressed diagnostic of the run.
func (r *Report) Blocking() []diag.Diagnostic {
	return diag.Blocking(r.Diagnostics)
}

// NodesCreated sums node writes over all phases.
func (r *Report) NodesCreated() int {
	n := 0
	for _, p := range r.Phases {
		n += p.NodesCreated
	}
	return n
}

// EdgesCreated sums edge writes over all phases.
func (r *Report) EdgesCreated() int {
	n := 0
	for _, p := range r.Phases {
		n += p.EdgesCreated
	}
	return n
}

func summarize(ph plugin.Phase, acc *phaseAcc, elapsed time.Duration) PhaseSummary {
	s := PhaseSummary{
		Phase:      ph,
		Elapsed:    elapsed,
		Executions: len(acc.results),
		Produced:   acc.produced.Clone(),
	}
	for _, r := range acc.results {
		s.Executed += len(r.Executed)
		s.Skipped = append(s.Skipped, r.Skipped...)
		s.Aborted += len(r.Aborted)
		s.Diagnostics += len(r.Diagnostics)
		s.Suppressed += r.SuppressedCount
		s.NodesCreated += r.NodesCreated
		s.EdgesCreated += r.EdgesCreated
		s.Blocking = append(s.Blocking, diag.Blocking(r.Diagnostics)...)
		if r.Internal != nil {
			s.Internal = append(s.Internal, r.Internal)
		}
	}
	return s
}
