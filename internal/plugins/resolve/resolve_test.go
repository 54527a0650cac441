package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
)

func module(file string, props map[string]any) graph.Node {
	return graph.Node{ID: file + "->MODULE->" + file, Type: graph.NodeModule, Name: file, File: file, Unit: "app", Properties: props}
}

func TestResolveSpecifiers(t *testing.T) {
	m := NewModules([]graph.Node{
		module("src/a.js", nil),
		module("src/lib/index.ts", nil),
		module("src/util.ts", nil),
		module("shared/x.mjs", nil),
	})

	cases := []struct {
		importer, spec, want string
	}{
		{"src/b.js", "./a", "src/a.js"},
		{"src/b.js", "./a.js", "src/a.js"},
		{"src/b.js", "./lib", "src/lib/index.ts"},
		{"src/b.js", "./util.js", "src/util.ts"},
		{"src/deep/c.js", "../a", "src/a.js"},
		{"src/b.js", "../shared/x", "shared/x.mjs"},
	}
	for _, c := range cases {
		got, ok := m.Resolve(c.importer, c.spec)
		if assert.True(t, ok, "%s from %s", c.spec, c.importer) {
			assert.Equal(t, c.want, got)
		}
	}

	for _, spec := range []string{"lodash", "@org/pkg", "./missing", "../../outside"} {
		_, ok := m.Resolve("src/b.js", spec)
		assert.False(t, ok, spec)
	}
}

func TestLookupBindings(t *testing.T) {
	// Properties as read back from the store.
	main := module("main.js", map[string]any{
		jsast.PropBindings: map[string]any{
			"view": "default:./view",
			"ns":   "*:./view",
			"f":    "format:./util",
			"ext":  "pick:lodash",
		},
	})
	view := module("view.js", map[string]any{jsast.PropDefaultExport: "View"})
	m := NewModules([]graph.Node{main, view, module("util.js", nil)})

	tgt, ok := m.Lookup("main.js", "view")
	assert.True(t, ok)
	assert.Equal(t, Target{File: "view.js", Name: "View"}, tgt)

	tgt, ok = m.Lookup("main.js", "ns")
	assert.True(t, ok)
	assert.Equal(t, Target{File: "view.js", Name: jsast.ImportNamespace}, tgt)

	tgt, ok = m.Lookup("main.js", "f")
	assert.True(t, ok)
	assert.Equal(t, Target{File: "util.js", Name: "format"}, tgt)

	_, ok = m.Lookup("main.js", "ext")
	assert.False(t, ok)
	assert.True(t, m.Bound("main.js", "ext"))
	assert.False(t, m.Bound("main.js", "nothing"))
}

func TestDeclsLookups(t *testing.T) {
	d := NewDecls()
	d.Add(graph.Node{ID: "a.js->FUNCTION->run", Type: graph.NodeFunction, Name: "run", File: "a.js", Unit: "app"})
	d.Add(graph.Node{ID: "a.js->outer->FUNCTION->run", Type: graph.NodeFunction, Name: "run", File: "a.js", Unit: "app"})
	d.Add(graph.Node{ID: "b.js->FUNCTION->only", Type: graph.NodeFunction, Name: "only", File: "b.js", Unit: "app"})
	d.Add(graph.Node{ID: "b.js->Svc->METHOD->only", Type: graph.NodeMethod, Name: "only", File: "b.js", Unit: "app"})
	d.Add(graph.Node{ID: "legacy-hash", Type: graph.NodeFunction, Name: "run", File: "a.js", Unit: "app"})

	assert.Equal(t, "a.js->outer->FUNCTION->run", d.Closest("a.js", "run", graph.NodeFunction, []string{"outer", "if#0"}))
	assert.Equal(t, "a.js->FUNCTION->run", d.Closest("a.js", "run", graph.NodeFunction, []string{"other"}))
	assert.Equal(t, "a.js->FUNCTION->run", d.TopLevel("a.js", "run", graph.NodeFunction))
	assert.Equal(t, "", d.Unique("app", "run", graph.NodeFunction))
	assert.Equal(t, "b.js->FUNCTION->only", d.Unique("app", "only", graph.NodeFunction))
}

func TestIsPrefix(t *testing.T) {
	assert.True(t, IsPrefix(nil, []string{"a"}))
	assert.True(t, IsPrefix([]string{"a"}, []string{"a", "b"}))
	assert.False(t, IsPrefix([]string{"a", "b"}, []string{"a"}))
	assert.False(t, IsPrefix([]string{"x"}, []string{"a", "b"}))
}
