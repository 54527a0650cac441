// Package callresolve links CALL nodes to the functions and methods they
// invoke.
package callresolve

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
const Name = "CallResolver"

// Plugin is the CallResolver plugin.
type Plugin struct{}

// New creates the plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:     Name,
		Phase:    plugin.Enrichment,
		Consumes: tagset.Of(graph.EdgeHasCall),
		Produces: tagset.Of(graph.EdgeCalls),
		Creates:  plugin.Creates{Edges: []graph.EdgeType{graph.EdgeCalls}},
	}
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	decls, err := resolve.LoadDecls(ctx, ec.Graph, ec.UnitName(), graph.NodeFunction, graph.NodeMethod)
	if err != nil {
		return nil, err
	}
	mods, err := resolve.LoadModules(ctx, ec.Graph, ec.UnitName())
	if err != nil {
		return nil, err
	}
	r := &resolver{decls: decls, modules: mods}

	calls, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeCall, Unit: ec.UnitName()})
	if err != nil {
		return nil, err
	}
	var edges []graph.Edge
	unresolved := 0
	for _, c := range calls {
		target := r.resolve(c)
		if target == "" {
			unresolved++
			continue
		}
		edges = append(edges, graph.Edge{Src: c.ID, Dst: target, Type: graph.EdgeCalls})
	}
	if len(edges) > 0 {
		if err := ec.Graph.AddEdges(ctx, edges); err != nil {
			return nil, err
		}
	}
	ec.Logger.Debug("callresolve.done", "calls", len(calls), "resolved", len(edges), "unresolved", unresolved)
	return &plugin.Result{EdgesCreated: len(edges)}, nil
}

type resolver struct {
	decls   *resolve.Decls
	modules *resolve.Modules
}

// resolve returns the target id for call, or "" when it cannot be decided.
//
// this.m() resolves to a same-file method visible from the call site. A bare
// f() prefers the same-file function whose declaring scope is the longest
// prefix of the call's scope, then the function an import binds f to, then a
// function name that is unique in the unit. ns.f() resolves through a
// namespace import or require of ns. Other member calls stay unresolved.
func (r *resolver) resolve(call graph.Node) string {
	cid, ok := fqn.Parse(call.ID)
	if !ok {
		return ""
	}
	callee, _ := call.Properties[jsast.PropCallee].(string)
	obj, _ := call.Properties[jsast.PropObject].(string)
	method, _ := call.Properties[jsast.PropMethod].(string)
	if obj == "this" {
		return r.decls.Closest(call.File, method, graph.NodeMethod, cid.ScopePath)
	}
	if callee == "" {
		return ""
	}
	if strings.Contains(callee, ".") {
		if strings.Contains(obj, ".") {
			return ""
		}
		t, ok := r.modules.Lookup(call.File, obj)
		if !ok || t.Name != jsast.ImportNamespace {
			return ""
		}
		return r.decls.TopLevel(t.File, method, graph.NodeFunction)
	}
	if id := r.decls.Closest(call.File, callee, graph.NodeFunction, cid.ScopePath); id != "" {
		return id
	}
	if t, ok := r.modules.Lookup(call.File, callee); ok {
		return r.decls.TopLevel(t.File, t.Name, graph.NodeFunction)
	}
	if r.modules.Bound(call.File, callee) {
		// Imported from a package outside the project.
		return ""
	}
	return r.decls.Unique(call.Unit, callee, graph.NodeFunction)
}
