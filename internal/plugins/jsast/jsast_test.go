package jsast

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/scope"
)

const appJS = `const express = require('express');
const app = express();

function handler(req, res) {
  if (req.ok) {
    res.send('a');
    res.send('b');
  }
  if (req.bad) {
    res.send('c');
  }
}

app.get('/users', handler);
app.post('/users', (req, res) => { res.send('d'); });

class Repo {
  save() { this.check(); }
  check() { throw new Error('x'); }
}
`

func analyze(t *testing.T, rel, src string) (*graph.Memory, *plugin.Result) {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(src), 0o600))

	g := graph.NewMemory()
	modID, err := fqn.ModuleID(rel)
	require.NoError(t, err)
	require.NoError(t, g.AddNode(context.Background(), graph.Node{
		ID: modID, Type: graph.NodeModule, Name: rel, File: rel, Unit: "api",
		Properties: map[string]any{"contentHash": "h"},
	}))

	ec := &plugin.ExecContext{
		Manifest: plugin.Manifest{Unit: &plugin.Unit{Name: "api", Root: "."}, ProjectRoot: dir},
		Phase:    plugin.Analysis,
		Graph:    g,
		Logger:   slog.New(slog.DiscardHandler),
	}
	res, err := New().Execute(context.Background(), ec)
	require.NoError(t, err)
	return g, res
}

func ids(t *testing.T, g *graph.Memory, typ string) []string {
	t.Helper()
	nodes, err := g.FindNodes(context.Background(), graph.NodeFilter{Type: typ})
	require.NoError(t, err)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func node(t *testing.T, g *graph.Memory, id string) graph.Node {
	t.Helper()
	nodes, err := g.FindNodes(context.Background(), graph.NodeFilter{})
	require.NoError(t, err)
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return graph.Node{}
}

func TestAnalyzerAssignsSemanticIDs(t *testing.T) {
	g, res := analyze(t, "src/app.js", appJS)
	assert.Empty(t, res.Diagnostics)

	assert.Equal(t, []string{
		"src/app.js->FUNCTION->handler",
		"src/app.js->FUNCTION->anonymous#0",
	}, ids(t, g, graph.NodeFunction))
	assert.Equal(t, []string{"src/app.js->CLASS->Repo"}, ids(t, g, graph.NodeClass))
	assert.Equal(t, []string{
		"src/app.js->Repo->METHOD->save",
		"src/app.js->Repo->METHOD->check",
	}, ids(t, g, graph.NodeMethod))
	assert.Equal(t, []string{
		"src/app.js->handler->SCOPE->if#0",
		"src/app.js->handler->SCOPE->if#1",
	}, ids(t, g, graph.NodeScope))
	assert.Equal(t, []string{
		"src/app.js->VARIABLE->express",
		"src/app.js->VARIABLE->app",
	}, ids(t, g, graph.NodeVariable))
	assert.Equal(t, []string{
		"src/app.js->CALL->require#0",
		"src/app.js->CALL->express#0",
		"src/app.js->handler->if#0->CALL->res.send#0",
		"src/app.js->handler->if#0->CALL->res.send#1",
		"src/app.js->handler->if#1->CALL->res.send#0",
		"src/app.js->CALL->app.get#0",
		"src/app.js->CALL->app.post#0",
		"src/app.js->anonymous#0->CALL->res.send#0",
		"src/app.js->Repo->save->CALL->this.check#0",
	}, ids(t, g, graph.NodeCall))

	for _, typ := range []string{graph.NodeFunction, graph.NodeCall, graph.NodeScope} {
		for _, id := range ids(t, g, typ) {
			parsed, ok := fqn.Parse(id)
			require.True(t, ok, id)
			assert.Equal(t, typ, parsed.Type)
			assert.Equal(t, "src/app.js", parsed.File)
		}
	}
}

func TestAnalyzerCallProperties(t *testing.T) {
	g, _ := analyze(t, "src/app.js", appJS)

	get := node(t, g, "src/app.js->CALL->app.get#0")
	assert.Equal(t, "app", get.Properties[PropObject])
	assert.Equal(t, "get", get.Properties[PropMethod])
	assert.Equal(t, "/users", get.Properties[PropArg0])
	assert.Equal(t, "handler", get.Properties[PropHandlerRef])

	post := node(t, g, "src/app.js->CALL->app.post#0")
	assert.Equal(t, "src/app.js->FUNCTION->anonymous#0", post.Properties[PropHandler])

	app := node(t, g, "src/app.js->VARIABLE->app")
	assert.Equal(t, "express", app.Properties[PropInit])
	assert.Equal(t, "const", app.Properties["kind"])

	check := node(t, g, "src/app.js->Repo->METHOD->check")
	assert.Equal(t, 1, check.Properties["throws"])

	mod := node(t, g, "src/app.js->MODULE->src/app.js")
	assert.Equal(t, []string{"express"}, mod.Properties["imports"])
	assert.Equal(t, "h", mod.Properties["contentHash"])
}

func TestAnalyzerEdges(t *testing.T) {
	g, res := analyze(t, "src/app.js", appJS)
	ctx := context.Background()

	hasCall, err := g.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeHasCall, Src: "src/app.js->handler->SCOPE->if#0"})
	require.NoError(t, err)
	assert.Len(t, hasCall, 2)

	declares, err := g.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeDeclares, Src: "src/app.js->CLASS->Repo"})
	require.NoError(t, err)
	assert.Len(t, declares, 2)

	contains, err := g.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeContains, Dst: "src/app.js->handler->SCOPE->if#1"})
	require.NoError(t, err)
	require.Len(t, contains, 1)
	assert.Equal(t, "src/app.js->FUNCTION->handler", contains[0].Src)

	assert.Equal(t, g.EdgeCount(), res.EdgesCreated)
}

func TestIdentifiersSurviveUnrelatedEdits(t *testing.T) {
	before, _ := analyze(t, "src/app.js", appJS)
	edited := "// header comment\n\n" + appJS + "\nfunction later() { later(); }\n"
	after, _ := analyze(t, "src/app.js", edited)

	afterIDs := make(map[string]bool)
	for _, n := range mustAll(t, after) {
		afterIDs[n.ID] = true
	}
	for _, n := range mustAll(t, before) {
		assert.True(t, afterIDs[n.ID], "id %s changed after unrelated edit", n.ID)
	}
}

func TestDuplicateNamesGetDiscriminators(t *testing.T) {
	src := `var x = 1;
var x = 2;
function f() {}
function f() {}
`
	g, _ := analyze(t, "a.js", src)
	assert.Equal(t, []string{"a.js->VARIABLE->x", "a.js->VARIABLE->x#1"}, ids(t, g, graph.NodeVariable))
	assert.Equal(t, []string{"a.js->FUNCTION->f", "a.js->FUNCTION->f#1"}, ids(t, g, graph.NodeFunction))
}

func TestDuplicateNamesKeepChildrenApart(t *testing.T) {
	src := `class C {
  get x() { return a(); }
  set x(v) { a(); }
}
function f() { if (ok) { b(); } }
function f() { if (ok) { b(); } }
`
	g, _ := analyze(t, "c.js", src)
	assert.Equal(t, []string{"c.js->C->METHOD->x", "c.js->C->METHOD->x#1"}, ids(t, g, graph.NodeMethod))
	assert.Equal(t, []string{
		"c.js->C->x->CALL->a#0",
		"c.js->C->x#1->CALL->a#0",
		"c.js->f->if#0->CALL->b#0",
		"c.js->f#1->if#0->CALL->b#0",
	}, ids(t, g, graph.NodeCall))
	assert.Equal(t, []string{"c.js->f->SCOPE->if#0", "c.js->f#1->SCOPE->if#0"}, ids(t, g, graph.NodeScope))

	// Each CALL keeps its own HAS_CALL edge.
	edges, err := g.FindEdges(context.Background(), graph.EdgeFilter{Type: graph.EdgeHasCall})
	require.NoError(t, err)
	assert.Len(t, edges, 4)
}

func TestTypeScriptClass(t *testing.T) {
	src := `export class Svc {
  run(): void {
    for (const x of [1]) { log(x); }
  }
}
function log(v: number) {}
`
	g, _ := analyze(t, "svc.ts", src)
	assert.Equal(t, []string{"svc.ts->Svc->METHOD->run"}, ids(t, g, graph.NodeMethod))
	assert.Equal(t, []string{"svc.ts->Svc->run->SCOPE->for#0"}, ids(t, g, graph.NodeScope))
	assert.Equal(t, []string{"svc.ts->Svc->run->for#0->CALL->log#0"}, ids(t, g, graph.NodeCall))
}

func TestSyntaxErrorIsReported(t *testing.T) {
	_, res := analyze(t, "bad.js", "function ok() {}\nfunction ( {\n")
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, CodeSyntax, res.Diagnostics[0].Code)
	assert.Equal(t, "bad.js", res.Diagnostics[0].File)
}

func TestValidName(t *testing.T) {
	assert.Equal(t, "#priv", validName("#priv"))
	assert.Equal(t, "", validName("a->b"))
	assert.Equal(t, "", validName("v#1"))
	assert.Equal(t, "", validName(""))
	_, err := fqn.Compute("X", validName("ok"), scope.Context{File: "f"})
	assert.NoError(t, err)
}

func mustAll(t *testing.T, g *graph.Memory) []graph.Node {
	t.Helper()
	nodes, err := g.FindNodes(context.Background(), graph.NodeFilter{})
	require.NoError(t, err)
	return nodes
}
