package modules

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/workspace"
)

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for rel, src := range map[string]string{
		"package.json":      `{"name": "svc", "version": "2.0.0"}`,
		"index.js":          "module.exports = 1;\n",
		"lib/util.ts":       "export const x = 1;\n",
		"node_modules/a.js": "ignored\n",
	} {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o600))
	}
	return dir
}

func execute(t *testing.T, g graph.Graph, root string, u *plugin.Unit) *plugin.Result {
	t.Helper()
	res, err := New(nil).Execute(context.Background(), &plugin.ExecContext{
		Manifest: plugin.Manifest{Unit: u, ProjectRoot: root, Units: []*plugin.Unit{u}},
		Phase:    plugin.Indexing,
		Graph:    g,
		Logger:   slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	return res
}

func TestIndexerKeepsDiscoveredService(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemory()
	u := &plugin.Unit{Name: "svc", Root: "."}
	id, err := workspace.ServiceID(u)
	require.NoError(t, err)
	require.NoError(t, g.AddNode(ctx, graph.Node{
		ID: id, Type: graph.NodeService, Name: "svc", File: "package.json", Unit: "svc",
		Properties: map[string]any{"version": "2.0.0", "root": "."},
	}))

	res := execute(t, g, project(t), u)
	assert.Equal(t, 2, res.NodesCreated)

	services, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeService})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "2.0.0", services[0].Properties["version"])

	contains, err := g.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeContains, Src: id})
	require.NoError(t, err)
	assert.Len(t, contains, 2)
}

func TestIndexerCreatesServiceForUndescribedUnit(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemory()
	u := &plugin.Unit{Name: "root", Root: "."}

	res := execute(t, g, project(t), u)
	assert.Equal(t, 3, res.NodesCreated)

	services, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeService})
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "package.json->SERVICE->root", services[0].ID)
	assert.Equal(t, ".", services[0].Properties["root"])

	modules, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeModule})
	require.NoError(t, err)
	files := make([]string, len(modules))
	for i, m := range modules {
		files[i] = m.File
	}
	assert.ElementsMatch(t, []string{"index.js", "lib/util.ts"}, files)
}
