package validate

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
)

func call(file, callee string, n int) graph.Node {
	return graph.Node{
		ID:         file + "->CALL->" + callee + "#0",
		Type:       graph.NodeCall,
		Name:       callee,
		File:       file,
		Unit:       "app",
		StartLine:  n,
		Properties: map[string]any{jsast.PropCallee: callee},
	}
}

func fixture(t *testing.T) *graph.Memory {
	t.Helper()
	ctx := context.Background()
	g := graph.NewMemory()
	require.NoError(t, g.AddNodes(ctx, []graph.Node{
		call("src/a.js", "eval", 1),
		call("src/a.js", "window.eval", 2),
		call("vendor/lib.js", "eval", 3),
		call("src/a.js", "helper", 4),
		call("src/a.js", "missing", 5),
		call("src/a.js", "setTimeout", 6),
		call("src/a.js", "res.send", 7),
		{ID: "src/a.js->FUNCTION->helper", Type: graph.NodeFunction, Name: "helper", File: "src/a.js", Unit: "app"},
	}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{
		Src: "src/a.js->CALL->helper#0", Dst: "src/a.js->FUNCTION->helper", Type: graph.EdgeCalls,
	}))
	return g
}

func execCtx(t *testing.T, g graph.Graph, rules []diag.IgnoreRule) *plugin.ExecContext {
	t.Helper()
	ignore, err := diag.CompileIgnoreRules(rules)
	require.NoError(t, err)
	return &plugin.ExecContext{
		Phase:  plugin.Validation,
		Graph:  g,
		Ignore: ignore,
		Logger: slog.New(slog.DiscardHandler),
	}
}

func TestEvalBanReportsFatal(t *testing.T) {
	res, err := NewEvalBan().Execute(context.Background(), execCtx(t, fixture(t), nil))
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 3)
	for _, d := range res.Diagnostics {
		assert.Equal(t, CodeEvalBanned, d.Code)
		assert.Equal(t, diag.SevFatal, d.Severity)
		assert.Equal(t, EvalBanName, d.Plugin)
	}
	assert.Len(t, diag.Blocking(res.Diagnostics), 3)
}

func TestEvalBanHonorsIgnoreRules(t *testing.T) {
	ec := execCtx(t, fixture(t), []diag.IgnoreRule{{Path: "vendor/**", Codes: []string{CodeEvalBanned}}})
	res, err := NewEvalBan().Execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Len(t, diag.Blocking(res.Diagnostics), 2)
	assert.Equal(t, 1, res.Metadata.SuppressedByIgnore)
}

func TestUnresolvedCalls(t *testing.T) {
	res, err := NewUnresolvedCalls().Execute(context.Background(), execCtx(t, fixture(t), nil))
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, CodeUnresolvedCall, d.Code)
	assert.Equal(t, diag.SevWarning, d.Severity)
	assert.Contains(t, d.Message, "missing")
	assert.Empty(t, diag.Blocking(res.Diagnostics))
}

func TestUnresolvedCallsSkipImportedNames(t *testing.T) {
	g := fixture(t)
	require.NoError(t, g.AddNode(context.Background(), graph.Node{
		ID: "src/a.js->MODULE->src/a.js", Type: graph.NodeModule, Name: "src/a.js", File: "src/a.js", Unit: "app",
		Properties: map[string]any{jsast.PropBindings: map[string]string{"missing": "missing:some-package"}},
	}))

	res, err := NewUnresolvedCalls().Execute(context.Background(), execCtx(t, g, nil))
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}
