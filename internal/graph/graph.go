// Package graph defines the narrow read/write contract plugins use to reach
// the persistent graph, plus an in-memory implementation and a write
// recorder used by the phase runner.
package graph

import (
	"context"
	"errors"
)

// EdgeType names a relationship kind ("CALLS", "CONTAINS", ...).
type EdgeType string

// Common edge types written by the builtin plugins.
const (
	EdgeContains EdgeType = "CONTAINS"
	EdgeDeclares EdgeType = "DECLARES"
	EdgeHasCall  EdgeType = "HAS_CALL"
	EdgeCalls    EdgeType = "CALLS"
	EdgeRoutesTo EdgeType = "ROUTES_TO"
	EdgeImports  EdgeType = "IMPORTS"
	EdgeInherits EdgeType = "INHERITS"
)

// Common node types written by the builtin plugins.
const (
	NodeService  = "SERVICE"
	NodeModule   = "MODULE"
	NodeFunction = "FUNCTION"
	NodeClass    = "CLASS"
	NodeMethod   = "METHOD"
	NodeVariable = "VARIABLE"
	NodeScope    = "SCOPE"
	NodeCall     = "CALL"
	NodeRoute    = "http:route"
)

// ErrUnknownNode is returned when an edge references a node id that has not
// been written.
var ErrUnknownNode = errors.New("unknown node")

// Node is one graph vertex. ID is the semantic identifier.
type Node struct {
	ID         string
	Type       string
	Name       string
	File       string
	Unit       string
	StartLine  int
	EndLine    int
	Properties map[string]any
}

// Edge is a typed, directed relationship between two node ids.
type Edge struct {
	Src        string
	Dst        string
	Type       EdgeType
	Properties map[string]any
}

// NodeFilter selects nodes; empty fields match anything.
type NodeFilter struct {
	Type string
	Name string
	File string
	Unit string
}

// EdgeFilter selects edges; empty fields match anything.
type EdgeFilter struct {
	Type EdgeType
	Src  string
	Dst  string
}

// Graph is the write/read surface handed to plugins. Implementations must be
// safe for concurrent use: units in one batch share the same Graph.
type Graph interface {
	AddNode(ctx context.Context, n Node) error
	AddNodes(ctx context.Context, nodes []Node) error
	AddEdge(ctx context.Context, e Edge) error
	AddEdges(ctx context.Context, edges []Edge) error
	FindNodes(ctx context.Context, f NodeFilter) ([]Node, error)
	FindEdges(ctx context.Context, f EdgeFilter) ([]Edge, error)
}

// Match reports whether n satisfies f.
func (f NodeFilter) Match(n *Node) bool {
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.Name != "" && n.Name != f.Name {
		return false
	}
	if f.File != "" && n.File != f.File {
		return false
	}
	if f.Unit != "" && n.Unit != f.Unit {
		return false
	}
	return true
}

// Match reports whether e satisfies f.
func (f EdgeFilter) Match(e *Edge) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Src != "" && e.Src != f.Src {
		return false
	}
	if f.Dst != "" && e.Dst != f.Dst {
		return false
	}
	return true
}
