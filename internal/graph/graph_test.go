package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUpsertAndFind(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()

	require.NoError(t, g.AddNodes(ctx, []Node{
		{ID: "a.js->FUNCTION->foo", Type: NodeFunction, Name: "foo", File: "a.js"},
		{ID: "a.js->FUNCTION->bar", Type: NodeFunction, Name: "bar", File: "a.js"},
		{ID: "b.js->FUNCTION->foo", Type: NodeFunction, Name: "foo", File: "b.js"},
	}))
	require.NoError(t, g.AddNode(ctx, Node{ID: "a.js->FUNCTION->foo", Type: NodeFunction, Name: "foo", File: "a.js", StartLine: 9}))

	assert.Equal(t, 3, g.NodeCount())

	foos, err := g.FindNodes(ctx, NodeFilter{Name: "foo"})
	require.NoError(t, err)
	require.Len(t, foos, 2)
	assert.Equal(t, "a.js->FUNCTION->foo", foos[0].ID)
	assert.Equal(t, 9, foos[0].StartLine)

	inA, err := g.FindNodes(ctx, NodeFilter{File: "a.js", Type: NodeFunction})
	require.NoError(t, err)
	assert.Len(t, inA, 2)
}

func TestMemoryEdgeRequiresEndpoints(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	require.NoError(t, g.AddNode(ctx, Node{ID: "x", Type: NodeModule}))

	err := g.AddEdge(ctx, Edge{Src: "x", Dst: "missing", Type: EdgeContains})
	assert.ErrorIs(t, err, ErrUnknownNode)

	require.NoError(t, g.AddNode(ctx, Node{ID: "y", Type: NodeFunction}))
	require.NoError(t, g.AddEdge(ctx, Edge{Src: "x", Dst: "y", Type: EdgeContains}))
	require.NoError(t, g.AddEdge(ctx, Edge{Src: "x", Dst: "y", Type: EdgeContains}))
	assert.Equal(t, 1, g.EdgeCount())

	edges, err := g.FindEdges(ctx, EdgeFilter{Src: "x"})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, EdgeContains, edges[0].Type)
}

func TestRecorderCountsOnlySuccessfulWrites(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder(NewMemory())

	require.NoError(t, rec.AddNodes(ctx, []Node{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, rec.AddEdge(ctx, Edge{Src: "a", Dst: "b", Type: EdgeCalls}))
	require.Error(t, rec.AddEdge(ctx, Edge{Src: "a", Dst: "nope", Type: EdgeHasCall}))

	assert.Equal(t, 2, rec.NodesWritten())
	assert.Equal(t, 1, rec.EdgesWritten())
	assert.Equal(t, []EdgeType{EdgeCalls}, rec.EdgeTypes())
}
