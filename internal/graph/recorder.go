package graph

import (
	"context"
	"sync"
)

// Recorder wraps a Graph and counts successful writes. The phase runner hands
// one Recorder to each plugin execution so it can learn which edge types were
// actually produced without trusting plugin-reported metadata.
type Recorder struct {
	Graph

	mu    sync.Mutex
	nodes int
	edges map[EdgeType]int
}

// NewRecorder wraps g.
func NewRecorder(g Graph) *Recorder {
	return &Recorder{Graph: g, edges: make(map[EdgeType]int)}
}

func (r *Recorder) AddNode(ctx context.Context, n Node) error {
	if err := r.Graph.AddNode(ctx, n); err != nil {
		return err
	}
	r.mu.Lock()
	r.nodes++
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AddNodes(ctx context.Context, nodes []Node) error {
	if err := r.Graph.AddNodes(ctx, nodes); err != nil {
		return err
	}
	r.mu.Lock()
	r.nodes += len(nodes)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AddEdge(ctx context.Context, e Edge) error {
	if err := r.Graph.AddEdge(ctx, e); err != nil {
		return err
	}
	r.mu.Lock()
	r.edges[e.Type]++
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AddEdges(ctx context.Context, edges []Edge) error {
	if err := r.Graph.AddEdges(ctx, edges); err != nil {
		return err
	}
	r.mu.Lock()
	for _, e := range edges {
		r.edges[e.Type]++
	}
	r.mu.Unlock()
	return nil
}

// NodesWritten returns the number of node writes recorded.
func (r *Recorder) NodesWritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes
}

// EdgesWritten returns the total number of edge writes recorded.
func (r *Recorder) EdgesWritten() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.edges {
		total += n
	}
	return total
}

// EdgeTypes returns the edge types written at least once.
func (r *Recorder) EdgeTypes() []EdgeType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EdgeType, 0, len(r.edges))
	for t, n := range r.edges {
		if n > 0 {
			out = append(out, t)
		}
	}
	return out
}
