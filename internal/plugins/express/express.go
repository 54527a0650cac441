// Package express turns Express route registrations into http:route nodes.
package express

import (
	"context"
	"fmt"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
	"github.com/Disentinel/grafema-sub012/internal/scope"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Name is the registered plugin name.
const Name = "ExpressRouteAnalyzer"

var httpMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
	"options": true, "head": true, "all": true,
}

// Initializer callees whose result is an Express app or router.
var appFactories = map[string]bool{
	"express": true, "express.Router": true, "Router": true, "express.default": true,
}

// Plugin is the ExpressRouteAnalyzer plugin.
type Plugin struct{}

// New creates the plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:         Name,
		Phase:        plugin.Analysis,
		Dependencies: []string{jsast.Name},
		Covers:       tagset.Of("express"),
		Produces:     tagset.Of(graph.EdgeRoutesTo, graph.EdgeContains),
		Creates: plugin.Creates{
			Nodes: []string{graph.NodeRoute},
			Edges: []graph.EdgeType{graph.EdgeRoutesTo, graph.EdgeContains},
		},
	}
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	u := ec.Manifest.Unit
	if u == nil {
		return nil, fmt.Errorf("%s runs per unit", Name)
	}
	vars, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeVariable, Unit: u.Name})
	if err != nil {
		return nil, err
	}
	// Receivers are tracked per file; app/router are assumed everywhere.
	receivers := make(map[string]map[string]bool)
	for _, v := range vars {
		if init, _ := v.Properties[jsast.PropInit].(string); appFactories[init] {
			if receivers[v.File] == nil {
				receivers[v.File] = make(map[string]bool)
			}
			receivers[v.File][v.Name] = true
		}
	}

	calls, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeCall, Unit: u.Name})
	if err != nil {
		return nil, err
	}

	var nodes []graph.Node
	var edges []graph.Edge
	seen := make(map[string]int)
	for _, c := range calls {
		method, _ := c.Properties[jsast.PropMethod].(string)
		object, _ := c.Properties[jsast.PropObject].(string)
		path, _ := c.Properties[jsast.PropArg0].(string)
		if !httpMethods[method] || !strings.HasPrefix(path, "/") {
			continue
		}
		if !receivers[c.File][object] && object != "app" && object != "router" {
			continue
		}

		name := strings.ToUpper(method) + " " + path
		var opts []fqn.Option
		key := c.File + "\x00" + name
		if n := seen[key]; n > 0 {
			opts = append(opts, fqn.WithDiscriminator(n))
		}
		seen[key]++
		id, err := fqn.Compute(graph.NodeRoute, name, scope.Context{File: c.File}, opts...)
		if err != nil {
			ec.Logger.Debug("express.skip_route", "call", c.ID, "err", err)
			continue
		}
		nodes = append(nodes, graph.Node{
			ID:        id,
			Type:      graph.NodeRoute,
			Name:      name,
			File:      c.File,
			Unit:      u.Name,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Properties: map[string]any{
				"method": strings.ToUpper(method),
				"path":   path,
				"call":   c.ID,
			},
		})
		if modID, err := fqn.ModuleID(c.File); err == nil {
			edges = append(edges, graph.Edge{Src: modID, Dst: id, Type: graph.EdgeContains})
		}

		handler, err := resolveHandler(ctx, ec.Graph, c)
		if err != nil {
			return nil, err
		}
		if handler != "" {
			edges = append(edges, graph.Edge{Src: id, Dst: handler, Type: graph.EdgeRoutesTo})
		}
	}

	if len(nodes) == 0 {
		return &plugin.Result{}, nil
	}
	if err := ec.Graph.AddNodes(ctx, nodes); err != nil {
		return nil, err
	}
	if err := ec.Graph.AddEdges(ctx, edges); err != nil {
		return nil, err
	}
	return &plugin.Result{NodesCreated: len(nodes), EdgesCreated: len(edges)}, nil
}

// resolveHandler returns the function a route call hands requests to: an
// inline function, or a same-file function named by the last argument.
func resolveHandler(ctx context.Context, g graph.Graph, call graph.Node) (string, error) {
	if id, _ := call.Properties[jsast.PropHandler].(string); id != "" {
		return id, nil
	}
	ref, _ := call.Properties[jsast.PropHandlerRef].(string)
	if ref == "" {
		return "", nil
	}
	fns, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeFunction, Name: ref, File: call.File})
	if err != nil {
		return "", err
	}
	if len(fns) == 0 {
		return "", nil
	}
	return fns[0].ID, nil
}
