// Package imports links modules to the project modules they import.
package imports

import (
	"context"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
	"github.com/Disentinel/grafema-sub012/internal/plugins/resolve"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Name is the registered plugin name.
const Name = "ImportResolver"

// CodeUnresolvedImport is reported for relative specifiers that name no
// module of the project.
const CodeUnresolvedImport = "WARN_UNRESOLVED_IMPORT"

// PropSpecifier holds the specifier an IMPORTS edge was written for.
const PropSpecifier = "specifier"

// Plugin is the ImportResolver plugin.
type Plugin struct{}

// New creates the plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:     Name,
		Phase:    plugin.Enrichment,
		Produces: tagset.Of(graph.EdgeImports),
		Creates:  plugin.Creates{Edges: []graph.EdgeType{graph.EdgeImports}},
	}
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	mods, err := resolve.LoadModules(ctx, ec.Graph, ec.UnitName())
	if err != nil {
		return nil, err
	}

	col := diag.NewCollector(Name, ec.Ignore)
	var edges []graph.Edge
	external := 0
	for _, m := range mods.All() {
		seen := make(map[string]bool)
		for _, spec := range jsast.ModuleImports(m) {
			if !resolve.IsRelative(spec) {
				external++
				continue
			}
			file, ok := mods.Resolve(m.File, spec)
			if !ok {
				col.Addf(diag.SevWarning, CodeUnresolvedImport, m.File, "cannot resolve import %q", spec)
				continue
			}
			if file == m.File || seen[file] {
				continue
			}
			seen[file] = true
			dst, _ := mods.Module(file)
			edges = append(edges, graph.Edge{
				Src:        m.ID,
				Dst:        dst.ID,
				Type:       graph.EdgeImports,
				Properties: map[string]any{PropSpecifier: spec},
			})
		}
	}
	if len(edges) > 0 {
		if err := ec.Graph.AddEdges(ctx, edges); err != nil {
			return nil, err
		}
	}
	ec.Logger.Debug("imports.done", "edges", len(edges), "external", external)

	res := &plugin.Result{EdgesCreated: len(edges)}
	res.Collect(col)
	return res, nil
}
