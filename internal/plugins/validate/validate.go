// Package validate holds the builtin Validation-phase checks.
package validate

import (
	"context"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
	"github.com/Disentinel/grafema-sub012/internal/plugins/resolve"
)

// Plugin names.
const (
	EvalBanName        = "EvalBanValidator"
	UnresolvedCallName = "UnresolvedCallValidator"
)

// Diagnostic codes.
const (
	CodeEvalBanned     = "ERR_EVAL_BANNED"
	CodeUnresolvedCall = "WARN_UNRESOLVED_CALL"
)

var evalCallees = map[string]bool{
	"eval":            true,
	"Function":        true,
	"window.eval":     true,
	"globalThis.eval": true,
}

// Bare callees provided by the runtime rather than the project.
var globals = map[string]bool{
	"require": true, "setTimeout": true, "setInterval": true, "clearTimeout": true,
	"clearInterval": true, "setImmediate": true, "queueMicrotask": true,
	"parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,
	"encodeURIComponent": true, "decodeURIComponent": true, "encodeURI": true, "decodeURI": true,
	"String": true, "Number": true, "Boolean": true, "Symbol": true, "BigInt": true,
	"Array": true, "Object": true, "Promise": true, "Error": true, "Date": true,
	"fetch": true, "structuredClone": true, "import": true, "super": true,
	"eval": true, "Function": true,
}

// EvalBan reports every eval-like call as fatal.
type EvalBan struct{}

// NewEvalBan creates the EvalBanValidator plugin.
func NewEvalBan() *EvalBan { return &EvalBan{} }

func (p *EvalBan) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{Name: EvalBanName, Phase: plugin.Validation}
}

func (p *EvalBan) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	calls, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeCall, Unit: ec.UnitName()})
	if err != nil {
		return nil, err
	}
	col := diag.NewCollector(EvalBanName, ec.Ignore)
	for _, c := range calls {
		callee, _ := c.Properties[jsast.PropCallee].(string)
		if evalCallees[callee] {
			col.Addf(diag.SevFatal, CodeEvalBanned, c.File, "%s() is banned (line %d)", callee, c.StartLine)
		}
	}
	res := &plugin.Result{}
	res.Collect(col)
	return res, nil
}

// UnresolvedCalls warns about bare calls no enrichment linked to a target.
type UnresolvedCalls struct{}

// NewUnresolvedCalls creates the UnresolvedCallValidator plugin.
func NewUnresolvedCalls() *UnresolvedCalls { return &UnresolvedCalls{} }

func (p *UnresolvedCalls) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{Name: UnresolvedCallName, Phase: plugin.Validation}
}

func (p *UnresolvedCalls) Execute(ctx context.Context, ec *plugin.ExecContext) (*plugin.Result, error) {
	calls, err := ec.Graph.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeCall, Unit: ec.UnitName()})
	if err != nil {
		return nil, err
	}
	edges, err := ec.Graph.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeCalls})
	if err != nil {
		return nil, err
	}
	linked := make(map[string]bool, len(edges))
	for _, e := range edges {
		linked[e.Src] = true
	}

	mods, err := resolve.LoadModules(ctx, ec.Graph, ec.UnitName())
	if err != nil {
		return nil, err
	}

	col := diag.NewCollector(UnresolvedCallName, ec.Ignore)
	for _, c := range calls {
		callee, _ := c.Properties[jsast.PropCallee].(string)
		if callee == "" || strings.ContainsAny(callee, ".<") || globals[callee] || linked[c.ID] {
			continue
		}
		if mods.Bound(c.File, callee) {
			// Imported; an unresolved target lives in a package.
			continue
		}
		col.Addf(diag.SevWarning, CodeUnresolvedCall, c.File, "call to %s has no known target (line %d)", callee, c.StartLine)
	}
	res := &plugin.Result{}
	res.Collect(col)
	return res, nil
}
