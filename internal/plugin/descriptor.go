package plugin

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Creates lists the node and edge types a plugin may write. It is
// informational: the runner learns produced edge types from actual writes.
type Creates struct {
	Nodes []string
	Edges []graph.EdgeType
}

// Descriptor is the static metadata of one plugin.
//
// Dependencies name other plugins in the same phase that must run first.
// Consumes and Produces drive the Enrichment selective-skip; Covers drives the
// Analysis applicability filter. Empty sets mean "always run".
type Descriptor struct {
	Name         string
	Phase        Phase
	Dependencies []string
	Consumes     tagset.Set[graph.EdgeType]
	Produces     tagset.Set[graph.EdgeType]
	Covers       tagset.Set[string]
	Creates      Creates
}

// Clone returns a deep copy so the registry's copy cannot be mutated through
// the plugin that supplied it.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Dependencies = slices.Clone(d.Dependencies)
	out.Consumes = d.Consumes.Clone()
	out.Produces = d.Produces.Clone()
	out.Covers = d.Covers.Clone()
	out.Creates = Creates{
		Nodes: slices.Clone(d.Creates.Nodes),
		Edges: slices.Clone(d.Creates.Edges),
	}
	return out
}

// Validate checks the descriptor in isolation.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("plugin descriptor: empty name")
	}
	if !d.Phase.Valid() {
		return fmt.Errorf("plugin %s: %w (%d)", d.Name, ErrUnknownPhase, uint8(d.Phase))
	}
	for _, dep := range d.Dependencies {
		if dep == d.Name {
			return &CycleError{Phase: d.Phase, Path: []string{d.Name, d.Name}}
		}
	}
	return nil
}
