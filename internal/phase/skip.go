package phase

import (
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Skip records one plugin the runner did not execute.
type Skip struct {
	Plugin string
	Unit   string
	// Reason is observability.SkipNotApplicable or SkipNothingNew.
	Reason string
	// Declared is the plugin's covers or consumes list.
	Declared []string
	// Present is the unit's dependency names or the edge types produced so
	// far, whichever Declared was compared against.
	Present []string
}

// nothingNew reports whether an Enrichment plugin can be skipped because none
// of the edge types it consumes has been produced. Plugins without a consumes
// set always run.
func nothingNew(d plugin.Descriptor, produced tagset.Set[graph.EdgeType]) bool {
	if d.Phase != plugin.Enrichment || d.Consumes.Empty() {
		return false
	}
	return !d.Consumes.Intersects(produced)
}

// notApplicable reports whether an Analysis plugin can be skipped because the
// unit declares none of the packages it covers. Plugins without a covers set
// always run.
func notApplicable(d plugin.Descriptor, unit *plugin.Unit) bool {
	if d.Phase != plugin.Analysis || d.Covers.Empty() {
		return false
	}
	if unit == nil {
		return true
	}
	return !d.Covers.Intersects(unit.DeclaredDependencyNames)
}

func strs[T ~string](s tagset.Set[T]) []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, t := range sorted {
		out[i] = string(t)
	}
	return out
}
