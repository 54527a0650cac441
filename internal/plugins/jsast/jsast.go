// Package jsast walks JavaScript and TypeScript syntax trees and writes
// declaration, scope and call-site nodes keyed by semantic identifiers.
package jsast

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/lang"
	"github.com/Disentinel/grafema-sub012/internal/parser"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Name is the registered plugin name.
const Name = "JSASTAnalyzer"

// Diagnostic codes.
const (
	CodeParseError = "WARN_PARSE_ERROR"
	CodeSyntax     = "WARN_SYNTAX_ERROR"
)

// Call node property keys read by downstream plugins.
const (
	PropCallee     = "callee"     // full callee text, e.g. "app.get"
	PropObject     = "object"     // receiver of a member call
	PropMethod     = "method"     // property of a member call
	PropArg0       = "arg0"       // first argument when it is a string literal
	PropHandler    = "handler"    // id of an inline function passed last
	PropHandlerRef = "handlerRef" // identifier passed last
	PropInit       = "init"       // callee of a variable's initializer call
)

// Plugin is the JSASTAnalyzer plugin.
type Plugin struct{}

// New creates the plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:     Name,
		Phase:    plugin.Analysis,
		Produces: tagset.Of(graph.EdgeContains, graph.EdgeDeclares, graph.EdgeHasCall),
		Creates: plugin.Creates{
			Nodes: []string{graph.NodeFunction, graph.NodeClass, graph.NodeMethod, graph.NodeVariable, graph.NodeScope, graph.NodeCall},
			Edges: []graph.EdgeType{graph.EdgeContains, graph.EdgeDeclares, graph.EdgeHasCall},
		},
	}
}

func (p *Plugin) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	u := ec.Manifest.Unit
	if u == nil {
		return nil, fmt.Errorf("%s runs per unit", Name)
	}
	modules, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeModule, Unit: u.Name})
	if err != nil {
		return nil, err
	}

	col := diag.NewCollector(Name, ec.Ignore)
	res := &plugin.Result{}
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr, err := analyzeModule(ec.Manifest.ProjectRoot, m, col)
		if err != nil {
			return nil, err
		}
		if fr == nil {
			continue
		}
		if err := ec.Graph.AddNodes(ctx, fr.nodes); err != nil {
			return nil, err
		}
		if err := ec.Graph.AddEdges(ctx, fr.edges); err != nil {
			return nil, err
		}
		res.NodesCreated += len(fr.nodes)
		res.EdgesCreated += len(fr.edges)
	}
	res.Collect(col)
	return res, nil
}

// analyzeModule parses one MODULE node's file. A nil result with nil error
// means the file was skipped and a diagnostic recorded.
func analyzeModule(projectRoot string, m graph.Node, col *diag.Collector) (*fileResult, error) {
	if lang.ForExtension(filepath.Ext(m.File)) == nil {
		return nil, nil
	}
	f, err := parser.ParseFile(filepath.Join(projectRoot, filepath.FromSlash(m.File)))
	if err != nil {
		col.Addf(diag.SevWarning, CodeParseError, m.File, "parse: %v", err)
		return nil, nil
	}
	defer f.Close()

	if lines := f.ErrorLines(); len(lines) > 0 {
		col.Addf(diag.SevWarning, CodeSyntax, m.File, "syntax errors from line %d; partial results", lines[0])
	}
	return walkFile(m, f.Spec, f.Root(), f.Source), nil
}
