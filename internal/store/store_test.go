package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Disentinel/grafema-sub012/internal/graph"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graph.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path() = %s", s.Path())
	}
}

func TestNodeUpsertBySemanticID(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertProject("shop", "/tmp/shop", "run-1"); err != nil {
		t.Fatalf("UpsertProject: %v", err)
	}

	n := &Node{
		Project:    "shop",
		Unit:       "api",
		Type:       "FUNCTION",
		Name:       "handler",
		SemanticID: "src/api.js->FUNCTION->handler",
		FilePath:   "src/api.js",
		StartLine:  3,
		EndLine:    9,
		Properties: map[string]any{"async": true},
	}
	id1, err := s.UpsertNode(n)
	if err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if id1 == 0 {
		t.Fatal("expected non-zero id")
	}

	// Same semantic id, moved lines: one row, updated in place.
	n.StartLine, n.EndLine = 30, 39
	id2, err := s.UpsertNode(n)
	if err != nil {
		t.Fatalf("UpsertNode again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("re-upsert changed id %d -> %d", id1, id2)
	}

	found, err := s.FindNodeBySemanticID("shop", n.SemanticID)
	if err != nil {
		t.Fatalf("FindNodeBySemanticID: %v", err)
	}
	if found == nil || found.StartLine != 30 || found.Unit != "api" {
		t.Fatalf("found = %+v", found)
	}
	if found.Properties["async"] != true {
		t.Errorf("properties = %v", found.Properties)
	}
	if count, _ := s.CountNodes("shop"); count != 1 {
		t.Errorf("CountNodes = %d, want 1", count)
	}

	missing, err := s.FindNodeBySemanticID("shop", "nope")
	if err != nil || missing != nil {
		t.Errorf("missing node: %v, %v", missing, err)
	}
}

func TestUpsertNodeBatchAcrossChunks(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertProject("p", "/", ""); err != nil {
		t.Fatal(err)
	}
	n := nodesBatchSize*2 + 7
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{
			Project:    "p",
			Type:       "VARIABLE",
			Name:       fmt.Sprintf("v%d", i),
			SemanticID: fmt.Sprintf("a.js->VARIABLE->v%d", i),
			FilePath:   "a.js",
		}
	}
	ids, err := s.UpsertNodeBatch(nodes)
	if err != nil {
		t.Fatalf("UpsertNodeBatch: %v", err)
	}
	if len(ids) != n {
		t.Errorf("ids = %d, want %d", len(ids), n)
	}
	if _, err := s.UpsertNodeBatch([]*Node{{Project: "p", Name: "x"}}); err == nil {
		t.Error("expected error for empty semantic id")
	}
}

func TestEdgesAndCascade(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertProject("p", "/", ""); err != nil {
		t.Fatal(err)
	}
	ids, err := s.UpsertNodeBatch([]*Node{
		{Project: "p", Type: "MODULE", Name: "a.js", SemanticID: "a.js->MODULE->a.js", FilePath: "a.js"},
		{Project: "p", Type: "FUNCTION", Name: "f", SemanticID: "a.js->FUNCTION->f", FilePath: "a.js"},
		{Project: "p", Type: "FUNCTION", Name: "g", SemanticID: "b.js->FUNCTION->g", FilePath: "b.js"},
	})
	if err != nil {
		t.Fatal(err)
	}
	edges := []*Edge{
		{Project: "p", SourceID: ids["a.js->MODULE->a.js"], TargetID: ids["a.js->FUNCTION->f"], Type: "CONTAINS"},
		{Project: "p", SourceID: ids["a.js->FUNCTION->f"], TargetID: ids["b.js->FUNCTION->g"], Type: "CALLS"},
		{Project: "p", SourceID: ids["a.js->FUNCTION->f"], TargetID: ids["b.js->FUNCTION->g"], Type: "CALLS"},
	}
	if err := s.InsertEdgeBatch(edges); err != nil {
		t.Fatalf("InsertEdgeBatch: %v", err)
	}
	if count, _ := s.CountEdges("p"); count != 2 {
		t.Errorf("CountEdges = %d, want 2 (duplicate collapsed)", count)
	}

	calls, err := s.FindEdges("p", EdgeQuery{Type: "CALLS"})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0].SourceSemanticID != "a.js->FUNCTION->f" || calls[0].TargetSemanticID != "b.js->FUNCTION->g" {
		t.Fatalf("calls = %+v", calls)
	}

	// Deleting b.js drops g and the CALLS edge pointing at it.
	if err := s.DeleteNodesByFile("p", "b.js"); err != nil {
		t.Fatal(err)
	}
	if count, _ := s.CountEdges("p"); count != 1 {
		t.Errorf("CountEdges after delete = %d, want 1", count)
	}
}

func TestProjectsAndFileHashes(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertProject("b", "/b", "r1"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertProject("a", "/a", "r2"); err != nil {
		t.Fatal(err)
	}
	list, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[1].RunID != "r1" {
		t.Errorf("projects = %+v", list)
	}

	if err := s.UpsertFileHashBatch("a", map[string]string{"x.js": "1", "y.js": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertFileHash("a", "x.js", "3"); err != nil {
		t.Fatal(err)
	}
	hashes, err := s.GetFileHashes("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 2 || hashes["x.js"] != "3" {
		t.Errorf("hashes = %v", hashes)
	}

	if err := s.DeleteProject("a"); err != nil {
		t.Fatal(err)
	}
	if p, err := s.GetProject("a"); err != nil || p != nil {
		t.Errorf("deleted project still present: %v %v", p, err)
	}
	if hashes, _ := s.GetFileHashes("a"); len(hashes) != 0 {
		t.Errorf("hashes survived cascade: %v", hashes)
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertProject("p", "/", ""); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := s.WithTransaction(func(tx *Store) error {
		if _, err := tx.UpsertNode(&Node{Project: "p", Type: "MODULE", Name: "a", SemanticID: "a->MODULE->a"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if count, _ := s.CountNodes("p"); count != 0 {
		t.Errorf("rolled back insert is visible: %d nodes", count)
	}
}

func TestGraphAdapter(t *testing.T) {
	s := openTest(t)
	g, err := s.Graph("shop", 2)
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	ctx := context.Background()

	nodes := []graph.Node{
		{ID: "a.js->MODULE->a.js", Type: graph.NodeModule, Name: "a.js", File: "a.js", Unit: "api"},
		{ID: "a.js->FUNCTION->f", Type: graph.NodeFunction, Name: "f", File: "a.js", Unit: "api"},
		{ID: "a.js->FUNCTION->g", Type: graph.NodeFunction, Name: "g", File: "a.js", Unit: "api"},
	}
	if err := g.AddNodes(ctx, nodes); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	// Cache size 2 forces at least one endpoint through the database.
	err = g.AddEdges(ctx, []graph.Edge{
		{Src: nodes[0].ID, Dst: nodes[1].ID, Type: graph.EdgeContains},
		{Src: nodes[0].ID, Dst: nodes[2].ID, Type: graph.EdgeContains},
		{Src: nodes[1].ID, Dst: nodes[2].ID, Type: graph.EdgeCalls},
	})
	if err != nil {
		t.Fatalf("AddEdges: %v", err)
	}

	fns, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeFunction})
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 2 || fns[0].Name != "f" || fns[1].Name != "g" {
		t.Errorf("functions = %+v", fns)
	}
	contains, err := g.FindEdges(ctx, graph.EdgeFilter{Type: graph.EdgeContains, Src: nodes[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(contains) != 2 {
		t.Errorf("contains = %+v", contains)
	}

	err = g.AddEdge(ctx, graph.Edge{Src: nodes[1].ID, Dst: "ghost->FUNCTION->x", Type: graph.EdgeCalls})
	if !errors.Is(err, graph.ErrUnknownNode) {
		t.Errorf("unknown endpoint: err = %v", err)
	}
	if count, _ := s.CountEdges("shop"); count != 3 {
		t.Errorf("CountEdges = %d, want 3", count)
	}
}

func TestStatsCountsLegacyIDs(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertProject("p", "/", ""); err != nil {
		t.Fatal(err)
	}
	_, err := s.UpsertNodeBatch([]*Node{
		{Project: "p", Type: "FUNCTION", Name: "f", SemanticID: "a.js->FUNCTION->f"},
		{Project: "p", Type: "FUNCTION", Name: "g", SemanticID: "a.js->FUNCTION->g"},
		{Project: "p", Type: "FUNCTION", Name: "h", SemanticID: "FUNCTION:h:a.js:12:4"},
		{Project: "p", Type: "MODULE", Name: "a.js", SemanticID: "a.js->MODULE->a.js"},
	})
	if err != nil {
		t.Fatal(err)
	}
	st, err := s.GetStats("p")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if st.Nodes != 4 || st.Edges != 0 {
		t.Errorf("stats = %+v", st)
	}
	if st.LegacyIDs != 1 {
		t.Errorf("LegacyIDs = %d, want 1", st.LegacyIDs)
	}
	if len(st.NodeTypes) != 2 || st.NodeTypes[0] != (TypeCount{Type: "FUNCTION", Count: 3}) {
		t.Errorf("NodeTypes = %+v", st.NodeTypes)
	}

	if err := s.ClearProject("p"); err != nil {
		t.Fatal(err)
	}
	if count, _ := s.CountNodes("p"); count != 0 {
		t.Errorf("ClearProject left %d nodes", count)
	}
	if p, _ := s.GetProject("p"); p == nil {
		t.Error("ClearProject removed the project row")
	}
}
