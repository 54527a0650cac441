package store

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/observability"
)

// DefaultIDCacheSize bounds the semantic id to row id cache of a Graph.
const DefaultIDCacheSize = 65536

// Graph adapts one project of a Store to graph.Graph. Writes from concurrent
// plugin executions are serialized.
type Graph struct {
	store   *Store
	project string

	mu  sync.Mutex
	ids *lru.Cache[string, int64]
}

var _ graph.Graph = (*Graph)(nil)

// Graph returns a graph.Graph writing into project, creating the project row
// when it does not exist yet.
func (s *Store) Graph(project string, cacheSize int) (*Graph, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultIDCacheSize
	}
	cache, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("id cache: %w", err)
	}
	if _, err := s.q.Exec(`INSERT OR IGNORE INTO projects (name, indexed_at, root_path) VALUES (?, ?, '')`, project, Now()); err != nil {
		return nil, fmt.Errorf("ensure project %s: %w", project, err)
	}
	return &Graph{store: s, project: project, ids: cache}, nil
}

// Project returns the project this graph writes into.
func (g *Graph) Project() string { return g.project }

func (g *Graph) AddNode(ctx context.Context, n graph.Node) error {
	return g.AddNodes(ctx, []graph.Node{n})
}

func (g *Graph) AddNodes(ctx context.Context, nodes []graph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([]*Node, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("add nodes: empty id")
		}
		rows[i] = &Node{
			Project:    g.project,
			Unit:       n.Unit,
			Type:       n.Type,
			Name:       n.Name,
			SemanticID: n.ID,
			FilePath:   n.File,
			StartLine:  n.StartLine,
			EndLine:    n.EndLine,
			Properties: n.Properties,
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	var ids map[string]int64
	err := g.store.WithTransaction(func(tx *Store) error {
		var err error
		ids, err = tx.UpsertNodeBatch(rows)
		return err
	})
	if err != nil {
		return err
	}
	for sid, id := range ids {
		g.ids.Add(sid, id)
	}
	return nil
}

func (g *Graph) AddEdge(ctx context.Context, e graph.Edge) error {
	return g.AddEdges(ctx, []graph.Edge{e})
}

// AddEdges inserts edges; both endpoints of every edge must already exist.
// Nothing is written when any endpoint is unknown.
func (g *Graph) AddEdges(ctx context.Context, edges []graph.Edge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	ids, err := g.resolve(edges)
	if err != nil {
		return err
	}
	rows := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		src, ok := ids[e.Src]
		if !ok {
			return fmt.Errorf("add edge %s: source %q: %w", e.Type, e.Src, graph.ErrUnknownNode)
		}
		dst, ok := ids[e.Dst]
		if !ok {
			return fmt.Errorf("add edge %s: target %q: %w", e.Type, e.Dst, graph.ErrUnknownNode)
		}
		rows = append(rows, &Edge{
			Project:    g.project,
			SourceID:   src,
			TargetID:   dst,
			Type:       string(e.Type),
			Properties: e.Properties,
		})
	}
	return g.store.WithTransaction(func(tx *Store) error {
		return tx.InsertEdgeBatch(rows)
	})
}

// resolve maps every endpoint to its row id, consulting the cache first.
func (g *Graph) resolve(edges []graph.Edge) (map[string]int64, error) {
	ids := make(map[string]int64, len(edges)*2)
	var missing []string
	for _, e := range edges {
		for _, sid := range [2]string{e.Src, e.Dst} {
			if _, done := ids[sid]; done {
				continue
			}
			if id, ok := g.ids.Get(sid); ok {
				observability.StoreCacheHits.WithLabelValues("hit").Inc()
				ids[sid] = id
				continue
			}
			observability.StoreCacheHits.WithLabelValues("miss").Inc()
			ids[sid] = 0
			missing = append(missing, sid)
		}
	}
	for _, sid := range missing {
		delete(ids, sid)
	}
	if len(missing) == 0 {
		return ids, nil
	}
	found, err := g.store.FindNodeIDs(g.project, missing)
	if err != nil {
		return nil, err
	}
	for sid, id := range found {
		g.ids.Add(sid, id)
		ids[sid] = id
	}
	return ids, nil
}

func (g *Graph) FindNodes(ctx context.Context, f graph.NodeFilter) ([]graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := g.store.FindNodes(g.project, NodeQuery{Type: f.Type, Name: f.Name, FilePath: f.File, Unit: f.Unit})
	if err != nil {
		return nil, err
	}
	out := make([]graph.Node, len(rows))
	for i, r := range rows {
		out[i] = graph.Node{
			ID:         r.SemanticID,
			Type:       r.Type,
			Name:       r.Name,
			File:       r.FilePath,
			Unit:       r.Unit,
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			Properties: r.Properties,
		}
	}
	return out, nil
}

func (g *Graph) FindEdges(ctx context.Context, f graph.EdgeFilter) ([]graph.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := g.store.FindEdges(g.project, EdgeQuery{Type: string(f.Type), SourceID: f.Src, TargetID: f.Dst})
	if err != nil {
		return nil, err
	}
	out := make([]graph.Edge, len(rows))
	for i, r := range rows {
		out[i] = graph.Edge{
			Src:        r.SourceSemanticID,
			Dst:        r.TargetSemanticID,
			Type:       graph.EdgeType(r.Type),
			Properties: r.Properties,
		}
	}
	return out, nil
}
