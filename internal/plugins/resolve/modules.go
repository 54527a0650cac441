// Package resolve holds the lookup tables the enrichment plugins share:
// MODULE nodes with their import bindings, and declarations by name.
package resolve

import (
	"context"
	"path"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
)

// Extensions tried, in order, when a specifier omits one.
var extensions = []string{".js", ".ts", ".tsx", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// Emitted-JavaScript extensions that TypeScript sources import by.
var jsToTS = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// Modules indexes MODULE nodes by file and resolves specifiers between them.
type Modules struct {
	order    []string
	byFile   map[string]graph.Node
	bindings map[string]map[string]jsast.Binding
}

// NewModules indexes modules. Later nodes for the same file win.
func NewModules(modules []graph.Node) *Modules {
	m := &Modules{
		byFile:   make(map[string]graph.Node, len(modules)),
		bindings: make(map[string]map[string]jsast.Binding, len(modules)),
	}
	for _, n := range modules {
		if _, dup := m.byFile[n.File]; !dup {
			m.order = append(m.order, n.File)
		}
		m.byFile[n.File] = n
		m.bindings[n.File] = jsast.ModuleBindings(n)
	}
	return m
}

// LoadModules reads the MODULE nodes of unit ("" for every unit).
func LoadModules(ctx context.Context, g graph.Graph, unit string) (*Modules, error) {
	nodes, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeModule, Unit: unit})
	if err != nil {
		return nil, err
	}
	return NewModules(nodes), nil
}

// All returns the modules in load order.
func (m *Modules) All() []graph.Node {
	out := make([]graph.Node, len(m.order))
	for i, f := range m.order {
		out[i] = m.byFile[f]
	}
	return out
}

// Module returns the MODULE node of file.
func (m *Modules) Module(file string) (graph.Node, bool) {
	n, ok := m.byFile[file]
	return n, ok
}

// IsRelative reports whether spec names a file rather than a package.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// Resolve maps a relative specifier written in importer to the file of the
// module it names. Package specifiers never resolve.
func (m *Modules) Resolve(importer, spec string) (string, bool) {
	if !IsRelative(spec) {
		return "", false
	}
	base := path.Join(path.Dir(importer), spec)
	if base == ".." || strings.HasPrefix(base, "../") {
		return "", false
	}
	cands := []string{base}
	if ext := path.Ext(base); jsToTS[ext] != nil {
		stem := strings.TrimSuffix(base, ext)
		for _, alt := range jsToTS[ext] {
			cands = append(cands, stem+alt)
		}
	}
	for _, ext := range extensions {
		cands = append(cands, base+ext)
	}
	for _, ext := range extensions {
		cands = append(cands, path.Join(base, "index"+ext))
	}
	for _, c := range cands {
		if _, ok := m.byFile[c]; ok {
			return c, true
		}
	}
	return "", false
}

// Target is what an imported local name refers to: a module file and the
// name exported from it, or jsast.ImportNamespace for the module itself.
type Target struct {
	File string
	Name string
}

// Bound reports whether local is introduced by an import or require in file,
// whether or not its module is part of the project.
func (m *Modules) Bound(file, local string) bool {
	_, ok := m.bindings[file][local]
	return ok
}

// Lookup resolves local, bound in file, to its target. Default imports take
// the name of the target's default-exported declaration when it is known.
func (m *Modules) Lookup(file, local string) (Target, bool) {
	b, ok := m.bindings[file][local]
	if !ok {
		return Target{}, false
	}
	dst, ok := m.Resolve(file, b.Specifier)
	if !ok {
		return Target{}, false
	}
	name := b.Imported
	if name == jsast.ImportDefault {
		if d, _ := m.byFile[dst].Properties[jsast.PropDefaultExport].(string); d != "" {
			name = d
		}
	}
	return Target{File: dst, Name: name}, true
}
