// Package inherits links classes to the base classes they extend.
package inherits

import (
	"context"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
	"github.com/Disentinel/grafema-sub012/internal/plugins/resolve"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Name is the registered plugin name.
const Name = "InheritanceResolver"

// Plugin is the InheritanceResolver plugin.
type Plugin struct{}

// New creates the plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:     Name,
		Phase:    plugin.Enrichment,
		Consumes: tagset.Of(graph.EdgeDeclares),
		Produces: tagset.Of(graph.EdgeInherits),
		Creates:  plugin.Creates{Edges: []graph.EdgeType{graph.EdgeInherits}},
	}
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	classes, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeClass, Unit: ec.UnitName()})
	if err != nil {
		return nil, err
	}
	decls := resolve.NewDecls()
	for _, c := range classes {
		decls.Add(c)
	}
	mods, err := resolve.LoadModules(ctx, ec.Graph, ec.UnitName())
	if err != nil {
		return nil, err
	}

	var edges []graph.Edge
	unresolved := 0
	for _, c := range classes {
		base, _ := c.Properties[jsast.PropExtends].(string)
		if base == "" {
			continue
		}
		target := resolveBase(c, base, decls, mods)
		if target == "" || target == c.ID {
			unresolved++
			continue
		}
		edges = append(edges, graph.Edge{Src: c.ID, Dst: target, Type: graph.EdgeInherits})
	}
	if len(edges) > 0 {
		if err := ec.Graph.AddEdges(ctx, edges); err != nil {
			return nil, err
		}
	}
	ec.Logger.Debug("inherits.done", "edges", len(edges), "unresolved", unresolved)
	return &plugin.Result{EdgesCreated: len(edges)}, nil
}

// resolveBase finds the CLASS node a base expression names. A bare name
// resolves to a visible class in the same file, then through an import, then
// to a class name unique in the unit. ns.Base resolves through a namespace
// import of ns. Anything else (mixin calls, globals) stays unresolved.
func resolveBase(c graph.Node, base string, decls *resolve.Decls, mods *resolve.Modules) string {
	id, ok := fqn.Parse(c.ID)
	if !ok {
		return ""
	}
	parts := strings.Split(base, ".")
	switch len(parts) {
	case 1:
		if t := decls.Closest(c.File, base, graph.NodeClass, id.ScopePath); t != "" {
			return t
		}
		if t, ok := mods.Lookup(c.File, base); ok {
			return decls.TopLevel(t.File, t.Name, graph.NodeClass)
		}
		if mods.Bound(c.File, base) {
			return ""
		}
		return decls.Unique(c.Unit, base, graph.NodeClass)
	case 2:
		t, ok := mods.Lookup(c.File, parts[0])
		if !ok || t.Name != jsast.ImportNamespace {
			return ""
		}
		return decls.TopLevel(t.File, parts[1], graph.NodeClass)
	}
	return ""
}
