package graph

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

type edgeKey struct {
	src, dst string
	typ      EdgeType
}

// Memory is a mutex-guarded in-memory Graph. Reads return nodes and edges in
// first-insertion order so tests see deterministic output.
type Memory struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[edgeKey]*Edge
	edgeOrder []edgeKey
}

// NewMemory creates an empty in-memory graph.
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]*Edge),
	}
}

// AddNode inserts or replaces a node keyed by ID.
func (m *Memory) AddNode(_ context.Context, n Node) error {
	if n.ID == "" {
		return fmt.Errorf("add node: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putNode(n)
	return nil
}

// AddNodes inserts or replaces nodes keyed by ID.
func (m *Memory) AddNodes(_ context.Context, nodes []Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("add nodes: empty id")
		}
		m.putNode(n)
	}
	return nil
}

func (m *Memory) putNode(n Node) {
	if _, ok := m.nodes[n.ID]; !ok {
		m.nodeOrder = append(m.nodeOrder, n.ID)
	}
	n.Properties = maps.Clone(n.Properties)
	m.nodes[n.ID] = &n
}

// AddEdge inserts an edge; both endpoints must already exist.
func (m *Memory) AddEdge(_ context.Context, e Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putEdge(e)
}

// AddEdges inserts edges; stops at the first edge with an unknown endpoint.
func (m *Memory) AddEdges(_ context.Context, edges []Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range edges {
		if err := m.putEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) putEdge(e Edge) error {
	if _, ok := m.nodes[e.Src]; !ok {
		return fmt.Errorf("add edge %s: source %q: %w", e.Type, e.Src, ErrUnknownNode)
	}
	if _, ok := m.nodes[e.Dst]; !ok {
		return fmt.Errorf("add edge %s: target %q: %w", e.Type, e.Dst, ErrUnknownNode)
	}
	k := edgeKey{src: e.Src, dst: e.Dst, typ: e.Type}
	if _, ok := m.edges[k]; !ok {
		m.edgeOrder = append(m.edgeOrder, k)
	}
	e.Properties = maps.Clone(e.Properties)
	m.edges[k] = &e
	return nil
}

// FindNodes returns copies of all nodes matching f.
func (m *Memory) FindNodes(_ context.Context, f NodeFilter) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Node
	for _, id := range m.nodeOrder {
		n := m.nodes[id]
		if f.Match(n) {
			c := *n
			c.Properties = maps.Clone(n.Properties)
			out = append(out, c)
		}
	}
	return out, nil
}

// FindEdges returns copies of all edges matching f.
func (m *Memory) FindEdges(_ context.Context, f EdgeFilter) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Edge
	for _, k := range m.edgeOrder {
		e := m.edges[k]
		if f.Match(e) {
			c := *e
			c.Properties = maps.Clone(e.Properties)
			out = append(out, c)
		}
	}
	return out, nil
}

// NodeCount returns the number of stored nodes.
func (m *Memory) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// EdgeCount returns the number of stored edges.
func (m *Memory) EdgeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges)
}
