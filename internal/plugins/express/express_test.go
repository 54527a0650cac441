package express

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
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

const routesJS = `const express = require('express');
const api = express.Router();

function listUsers(req, res) { res.json([]); }

api.get('/users', listUsers);
api.post('/users', (req, res) => res.sendStatus(201));
api.get('/users', listUsers);
api.use(logger);
client.get('/not-a-route');
`

func TestRoutesFromRouterCalls(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "routes.js"), []byte(routesJS), 0o600))

	ctx := context.Background()
	g := graph.NewMemory()
	modID, err := fqn.ModuleID("routes.js")
	require.NoError(t, err)
	require.NoError(t, g.AddNode(ctx, graph.Node{ID: modID, Type: graph.NodeModule, Name: "routes.js", File: "routes.js", Unit: "api"}))

	ec := &plugin.ExecContext{
		Manifest: plugin.Manifest{
			Unit:        &plugin.Unit{Name: "api", Root: ".", DeclaredDependencyNames: tagset.Of("express")},
			ProjectRoot: dir,
		},
		Phase:  plugin.Analysis,
		Graph:  g,
		Logger: slog.New(slog.DiscardHandler),
	}
	_, err = jsast.New().Execute(ctx, ec)
	require.NoError(t, err)

	res, err := New().Execute(ctx, ec)
	require.NoError(t, err)
	assert.Equal(t, 3, res.NodesCreated)

	routes, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeRoute})
	require.NoError(t, err)
	got := make([]string, len(routes))
	for i, r := range routes {
		got[i] = r.ID
	}
	assert.Equal(t, []string{
		"routes.js->http:route->GET /users",
		"routes.js->http:route->POST /users",
		"routes.js->http:route->GET /users#1",
	}, got)

	routesTo, err := g.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeRoutesTo})
	require.NoError(t, err)
	require.Len(t, routesTo, 3)
	assert.Equal(t, "routes.js->FUNCTION->listUsers", routesTo[0].Dst)
	assert.Equal(t, "routes.js->FUNCTION->anonymous#0", routesTo[1].Dst)
}

func TestDescriptorCoversExpress(t *testing.T) {
	d := New().Descriptor()
	assert.Equal(t, plugin.Analysis, d.Phase)
	assert.True(t, d.Covers.Has("express"))
	assert.Equal(t, []string{jsast.Name}, d.Dependencies)
}
