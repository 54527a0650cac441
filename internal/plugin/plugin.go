// Package plugin defines the contract between analysis plugins and the
// pipeline core: static descriptors, the per-execution context handed to a
// plugin, and the result it returns.
package plugin

import (
	"context"
	"log/slog"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Unit is one independently analyzable subdivision of the project,
// conventionally a package.json service. Units are produced by Discovery
// plugins and read-only afterwards.
type Unit struct {
	ID             string
	Name           string
	EntrypointPath string
	// Root is the unit directory relative to the project root ("" or "." for
	// the root package).
	Root string
	// DeclaredDependencyNames merges dependencies, devDependencies and
	// peerDependencies of the unit manifest.
	DeclaredDependencyNames tagset.Set[string]
}

// Manifest is the immutable input of one plugin execution.
type Manifest struct {
	// Unit is nil for project-wide phases.
	Unit        *Unit
	ProjectRoot string
	// Units holds every discovered unit; empty during Discovery.
	Units []*Unit
}

// ExecContext is what a plugin sees during Execute.
type ExecContext struct {
	Manifest  Manifest
	Phase     Phase
	Graph     graph.Graph
	Resources *Resources
	// Ignore is the project's ignore-rule set. Plugins apply it themselves,
	// usually through a diag.Collector, and report the suppressed count.
	Ignore *diag.IgnoreRules
	Logger *slog.Logger
}

// UnitName returns the current unit's name, or "" in project-wide phases.
func (ec *ExecContext) UnitName() string {
	if ec.Manifest.Unit == nil {
		return ""
	}
	return ec.Manifest.Unit.Name
}

// Metadata carries optional counters a plugin reports.
type Metadata struct {
	SuppressedByIgnore int
}

// Result is what a plugin returns from Execute.
type Result struct {
	NodesCreated int
	EdgesCreated int
	Diagnostics  []diag.Diagnostic
	// Units is only meaningful for Discovery plugins.
	Units    []*Unit
	Metadata Metadata
}

// Collect copies a collector's diagnostics and suppression count into r.
func (r *Result) Collect(c *diag.Collector) {
	r.Diagnostics = append(r.Diagnostics, c.Diagnostics()...)
	r.Metadata.SuppressedByIgnore += c.SuppressedCount()
}

// Plugin is one analysis pass.
type Plugin interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, ec *ExecContext) (*Result, error)
}

// Func adapts a descriptor and a function into a Plugin.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, ec *ExecContext) (*Result, error)
}

func (f *Func) Descriptor() Descriptor { return f.Desc }

func (f *Func) Execute(ctx context.Context, ec *ExecContext) (*Result, error) {
	if f.Fn == nil {
		return &Result{}, nil
	}
	return f.Fn(ctx, ec)
}
