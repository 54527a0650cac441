package resolve

import (
	"context"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
)

type decl struct {
	id    string
	typ   string
	scope []string
}

// Decls indexes declarations by file and by unit-wide simple name.
type Decls struct {
	byFile map[string]map[string][]decl
	byUnit map[string]map[string][]decl
}

// NewDecls returns an empty table.
func NewDecls() *Decls {
	return &Decls{
		byFile: make(map[string]map[string][]decl),
		byUnit: make(map[string]map[string][]decl),
	}
}

// LoadDecls reads the nodes of the given types in unit ("" for every unit).
func LoadDecls(ctx context.Context, g graph.Graph, unit string, types ...string) (*Decls, error) {
	d := NewDecls()
	for _, typ := range types {
		nodes, err := g.FindNodes(ctx, graph.NodeFilter{Type: typ, Unit: unit})
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			d.Add(n)
		}
	}
	return d, nil
}

// Add indexes n. Nodes without a semantic id are ignored.
func (d *Decls) Add(n graph.Node) {
	id, ok := fqn.Parse(n.ID)
	if !ok {
		return
	}
	e := decl{id: n.ID, typ: n.Type, scope: id.ScopePath}
	add(d.byFile, n.File, n.Name, e)
	add(d.byUnit, n.Unit, n.Name, e)
}

func add(idx map[string]map[string][]decl, key, name string, e decl) {
	m := idx[key]
	if m == nil {
		m = make(map[string][]decl)
		idx[key] = m
	}
	m[name] = append(m[name], e)
}

// Closest returns the declaration of typ named name in file whose scope is
// the longest prefix of from. Ties keep the first declaration.
func (d *Decls) Closest(file, name, typ string, from []string) string {
	best, bestLen := "", -1
	for _, c := range d.byFile[file][name] {
		if c.typ != typ || !IsPrefix(c.scope, from) {
			continue
		}
		if len(c.scope) > bestLen {
			best, bestLen = c.id, len(c.scope)
		}
	}
	return best
}

// TopLevel returns the module-level declaration of typ named name in file.
func (d *Decls) TopLevel(file, name, typ string) string {
	return d.Closest(file, name, typ, nil)
}

// Unique returns the only declaration of typ named name in unit, or "" when
// there is none or more than one.
func (d *Decls) Unique(unit, name, typ string) string {
	found := ""
	for _, c := range d.byUnit[unit][name] {
		if c.typ != typ {
			continue
		}
		if found != "" {
			return ""
		}
		found = c.id
	}
	return found
}

// IsPrefix reports whether prefix is a leading segment run of s.
func IsPrefix(prefix, s []string) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if prefix[i] != s[i] {
			return false
		}
	}
	return true
}
