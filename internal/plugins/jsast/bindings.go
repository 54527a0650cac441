package jsast

import (
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/graph"
)

// MODULE and CLASS node property keys read by the resolvers.
const (
	PropImports       = "imports"       // module specifiers in source order
	PropBindings      = "bindings"      // local name -> "imported:specifier"
	PropDefaultExport = "defaultExport" // name of the default-exported declaration
	PropExtends       = "extends"       // base class expression of a CLASS
)

// Imported names with a special meaning.
const (
	ImportDefault   = "default"
	ImportNamespace = "*"
)

// Binding is one local name introduced by an import or a require call.
type Binding struct {
	Local     string
	Imported  string
	Specifier string
}

func encodeBinding(imported, spec string) string {
	return imported + ":" + spec
}

// ModuleBindings decodes the import bindings recorded on a MODULE node. It
// accepts the property as written and as read back from the store.
func ModuleBindings(m graph.Node) map[string]Binding {
	out := make(map[string]Binding)
	add := func(local string, v any) {
		s, _ := v.(string)
		i := strings.IndexByte(s, ':')
		if i <= 0 || i == len(s)-1 {
			return
		}
		out[local] = Binding{Local: local, Imported: s[:i], Specifier: s[i+1:]}
	}
	switch raw := m.Properties[PropBindings].(type) {
	case map[string]string:
		for local, v := range raw {
			add(local, v)
		}
	case map[string]any:
		for local, v := range raw {
			add(local, v)
		}
	}
	return out
}

// ModuleImports returns the specifiers recorded on a MODULE node.
func ModuleImports(m graph.Node) []string {
	switch raw := m.Properties[PropImports].(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
