package jsast

import (
	"maps"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/lang"
	"github.com/Disentinel/grafema-sub012/internal/parser"
	"github.com/Disentinel/grafema-sub012/internal/scope"
)

// AnonymousLabel names functions and classes that have no usable name.
const AnonymousLabel = "anonymous"

// unresolvedCallee stands in for callees that are not an identifier chain,
// e.g. `fns[0]()` or `make()()`.
const unresolvedCallee = "<expr>"

type fileResult struct {
	nodes []graph.Node
	edges []graph.Edge
}

type walker struct {
	spec   *lang.LanguageSpec
	src    []byte
	module graph.Node
	tr     *scope.Tracker

	// containers holds the ids of enclosing nodes; the module is at the
	// bottom.
	containers []string
	// functions holds indexes into res.nodes of enclosing functions.
	functions []int
	// handlers maps an argument syntax node to the call node it was passed
	// to as last argument.
	handlers map[uintptr]int
	imports  []string
	bindings map[string]string
	// defaultExport names the declaration behind `export default`.
	defaultExport string
	res           *fileResult
}

func walkFile(m graph.Node, spec *lang.LanguageSpec, root *tree_sitter.Node, src []byte) *fileResult {
	w := &walker{
		spec:       spec,
		src:        src,
		module:     m,
		tr:         scope.NewTracker(m.File),
		containers: []string{m.ID},
		handlers:   make(map[uintptr]int),
		bindings:   make(map[string]string),
		res:        &fileResult{},
	}
	w.visitChildren(root)
	w.tr.CheckBalanced()

	if len(w.imports) > 0 || w.defaultExport != "" {
		mod := m
		mod.Properties = maps.Clone(m.Properties)
		if mod.Properties == nil {
			mod.Properties = make(map[string]any)
		}
		if len(w.imports) > 0 {
			mod.Properties[PropImports] = w.imports
		}
		if len(w.bindings) > 0 {
			mod.Properties[PropBindings] = w.bindings
		}
		if w.defaultExport != "" {
			mod.Properties[PropDefaultExport] = w.defaultExport
		}
		w.res.nodes = append([]graph.Node{mod}, w.res.nodes...)
	}
	return w.res
}

func (w *walker) visitChildren(n *tree_sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if child := n.NamedChild(i); child != nil {
			w.visit(child)
		}
	}
}

func (w *walker) visit(n *tree_sitter.Node) {
	// Keywords such as `function` and `class` share kinds with expressions.
	if !n.IsNamed() {
		return
	}
	kind := n.Kind()
	switch {
	case lang.Has(w.spec.FunctionNodeTypes, kind):
		w.function(n, graph.NodeFunction, w.functionName(n))
	case lang.Has(w.spec.MethodNodeTypes, kind):
		w.function(n, graph.NodeMethod, validName(parser.FieldText(n, "name", w.src)))
	case lang.Has(w.spec.ClassNodeTypes, kind):
		w.class(n)
	case w.spec.CountedScopeLabels[kind] != "":
		w.counted(n, w.spec.CountedScopeLabels[kind])
	case lang.Has(w.spec.CallNodeTypes, kind):
		w.call(n)
	case lang.Has(w.spec.VariableNodeTypes, kind):
		w.variable(n)
	case lang.Has(w.spec.ImportNodeTypes, kind):
		w.importStatement(n)
	case kind == "export_statement":
		w.exportStatement(n)
		w.visitChildren(n)
	case lang.Has(w.spec.ThrowNodeTypes, kind):
		if len(w.functions) > 0 {
			props := w.res.nodes[w.functions[len(w.functions)-1]].Properties
			props["throws"] = props["throws"].(int) + 1
		}
		w.visitChildren(n)
	default:
		w.visitChildren(n)
	}
}

func (w *walker) container() string {
	return w.containers[len(w.containers)-1]
}

func (w *walker) add(n *tree_sitter.Node, typ, name, id string, props map[string]any) int {
	w.res.nodes = append(w.res.nodes, graph.Node{
		ID:         id,
		Type:       typ,
		Name:       name,
		File:       w.module.File,
		Unit:       w.module.Unit,
		StartLine:  int(n.StartPosition().Row) + 1,
		EndLine:    int(n.EndPosition().Row) + 1,
		Properties: props,
	})
	return len(w.res.nodes) - 1
}

func (w *walker) edge(src, dst string, typ graph.EdgeType) {
	w.res.edges = append(w.res.edges, graph.Edge{Src: src, Dst: dst, Type: typ})
}

// enterDeclaration computes the id of a scope-opening declaration and pushes
// its frame. Anonymous declarations are counted per parent scope. A repeated
// name gets a discriminator on both its id and its frame, so the children of
// the two declarations stay apart.
func (w *walker) enterDeclaration(typ, name string) (id, label string) {
	ctx := w.tr.Context()
	if name == "" {
		disc := w.tr.EnterCountedScope(AnonymousLabel)
		return fqn.MustCompute(typ, AnonymousLabel, ctx, fqn.WithDiscriminator(disc)), AnonymousLabel
	}
	var opts []fqn.Option
	if n := w.tr.ItemCounter(typ + ":" + name); n > 0 {
		opts = append(opts, fqn.WithDiscriminator(n))
	}
	id = fqn.MustCompute(typ, name, ctx, opts...)
	w.tr.EnterNamedScope(name)
	return id, name
}

func (w *walker) function(n *tree_sitter.Node, typ, name string) {
	parent := w.container()
	id, label := w.enterDeclaration(typ, name)

	props := map[string]any{"throws": 0}
	if name == "" {
		props["anonymous"] = true
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		props["signature"] = parser.NodeText(params, w.src)
	}
	idx := w.add(n, typ, label, id, props)
	w.edge(parent, id, graph.EdgeDeclares)

	if callIdx, ok := w.handlers[n.Id()]; ok {
		w.res.nodes[callIdx].Properties[PropHandler] = id
	}

	w.containers = append(w.containers, id)
	w.functions = append(w.functions, idx)
	w.visitChildren(n)
	w.functions = w.functions[:len(w.functions)-1]
	w.containers = w.containers[:len(w.containers)-1]
	w.tr.ExitScope()
}

func (w *walker) class(n *tree_sitter.Node) {
	name := validName(parser.FieldText(n, "name", w.src))
	if name == "" {
		if p := n.Parent(); p != nil && p.Kind() == "variable_declarator" {
			name = validName(parser.FieldText(p, "name", w.src))
		}
	}
	parent := w.container()
	id, label := w.enterDeclaration(graph.NodeClass, name)

	props := map[string]any{}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if h := n.NamedChild(i); h != nil && h.Kind() == "class_heritage" {
			if base := w.heritage(h); base != "" {
				props[PropExtends] = base
			}
		}
	}
	w.add(n, graph.NodeClass, label, id, props)
	w.edge(parent, id, graph.EdgeDeclares)

	w.containers = append(w.containers, id)
	w.visitChildren(n)
	w.containers = w.containers[:len(w.containers)-1]
	w.tr.ExitScope()
}

func (w *walker) counted(n *tree_sitter.Node, label string) {
	parent := w.container()
	ctx := w.tr.Context()
	disc := w.tr.EnterCountedScope(label)
	id := fqn.MustCompute(graph.NodeScope, label, ctx, fqn.WithDiscriminator(disc))

	w.add(n, graph.NodeScope, label, id, map[string]any{"kind": n.Kind()})
	w.edge(parent, id, graph.EdgeContains)

	w.containers = append(w.containers, id)
	w.visitChildren(n)
	w.containers = w.containers[:len(w.containers)-1]
	w.tr.ExitScope()
}

func (w *walker) call(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	name := calleeName(fn, w.src)
	if name == "" {
		name = unresolvedCallee
	}
	disc := w.tr.ItemCounter(graph.NodeCall + ":" + name)
	id := fqn.MustCompute(graph.NodeCall, name, w.tr.Context(), fqn.WithDiscriminator(disc))

	props := map[string]any{PropCallee: name}
	if fn != nil && fn.Kind() == "member_expression" && name != unresolvedCallee {
		props[PropObject] = calleeName(fn.ChildByFieldName("object"), w.src)
		props[PropMethod] = parser.FieldText(fn, "property", w.src)
	}
	idx := w.add(n, graph.NodeCall, name, id, props)
	w.edge(w.container(), id, graph.EdgeHasCall)

	if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		if s := stringContent(args.NamedChild(0), w.src); s != "" {
			props[PropArg0] = s
			if name == "require" {
				w.imports = append(w.imports, s)
			}
		}
		last := args.NamedChild(args.NamedChildCount() - 1)
		switch {
		case last == nil:
		case lang.Has(w.spec.FunctionNodeTypes, last.Kind()):
			w.handlers[last.Id()] = idx
		case last.Kind() == "identifier":
			props[PropHandlerRef] = parser.NodeText(last, w.src)
		}
	}

	w.visitChildren(n)
}

func (w *walker) variable(n *tree_sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	w.requireBinding(nameNode, n.ChildByFieldName("value"))
	if nameNode == nil || nameNode.Kind() != "identifier" {
		// Destructuring patterns declare nothing addressable.
		w.visitChildren(n)
		return
	}
	name := validName(parser.NodeText(nameNode, w.src))
	if name == "" {
		w.visitChildren(n)
		return
	}

	var opts []fqn.Option
	if d := w.tr.ItemCounter(graph.NodeVariable + ":" + name); d > 0 {
		opts = append(opts, fqn.WithDiscriminator(d))
	}
	id := fqn.MustCompute(graph.NodeVariable, name, w.tr.Context(), opts...)

	props := map[string]any{}
	if p := n.Parent(); p != nil && p.ChildCount() > 0 {
		props["kind"] = parser.NodeText(p.Child(0), w.src)
	}
	if v := n.ChildByFieldName("value"); v != nil {
		switch v.Kind() {
		case "call_expression":
			props[PropInit] = calleeName(v.ChildByFieldName("function"), w.src)
		case "new_expression":
			props[PropInit] = "new " + calleeName(v.ChildByFieldName("constructor"), w.src)
		}
	}
	w.add(n, graph.NodeVariable, name, id, props)
	w.edge(w.container(), id, graph.EdgeDeclares)

	w.visitChildren(n)
}

// importStatement records the specifier and the local names an import
// statement binds.
func (w *walker) importStatement(n *tree_sitter.Node) {
	spec := stringContent(n.ChildByFieldName("source"), w.src)
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "import_clause":
			if spec != "" {
				w.importClause(c, spec)
			}
		case "import_require_clause":
			// import x = require('y')
			spec = stringContent(c.ChildByFieldName("source"), w.src)
			if id := firstNamed(c, "identifier"); id != nil && spec != "" {
				w.bind(parser.NodeText(id, w.src), ImportNamespace, spec)
			}
		}
	}
	if spec != "" {
		w.imports = append(w.imports, spec)
	}
}

func (w *walker) importClause(clause *tree_sitter.Node, spec string) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier":
			w.bind(parser.NodeText(c, w.src), ImportDefault, spec)
		case "namespace_import":
			if id := firstNamed(c, "identifier"); id != nil {
				w.bind(parser.NodeText(id, w.src), ImportNamespace, spec)
			}
		case "named_imports":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				s := c.NamedChild(j)
				if s == nil || s.Kind() != "import_specifier" {
					continue
				}
				imported := parser.FieldText(s, "name", w.src)
				if str := stringContent(s.ChildByFieldName("name"), w.src); str != "" {
					imported = str
				}
				local := parser.FieldText(s, "alias", w.src)
				if local == "" {
					local = imported
				}
				w.bind(local, imported, spec)
			}
		}
	}
}

// requireBinding records `const x = require('m')` and
// `const { a, b: c } = require('m')`.
func (w *walker) requireBinding(name, value *tree_sitter.Node) {
	if name == nil || value == nil || value.Kind() != "call_expression" {
		return
	}
	if calleeName(value.ChildByFieldName("function"), w.src) != "require" {
		return
	}
	args := value.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	spec := stringContent(args.NamedChild(0), w.src)
	if spec == "" {
		return
	}
	switch name.Kind() {
	case "identifier":
		w.bind(parser.NodeText(name, w.src), ImportNamespace, spec)
	case "object_pattern":
		for i := uint(0); i < name.NamedChildCount(); i++ {
			p := name.NamedChild(i)
			if p == nil {
				continue
			}
			switch p.Kind() {
			case "shorthand_property_identifier_pattern":
				local := parser.NodeText(p, w.src)
				w.bind(local, local, spec)
			case "pair_pattern":
				if v := p.ChildByFieldName("value"); v != nil && v.Kind() == "identifier" {
					w.bind(parser.NodeText(v, w.src), parser.FieldText(p, "key", w.src), spec)
				}
			}
		}
	}
}

func (w *walker) bind(local, imported, spec string) {
	if validName(local) == "" || imported == "" || strings.Contains(imported, ":") {
		return
	}
	w.bindings[local] = encodeBinding(imported, spec)
}

// exportStatement records the name behind `export default`.
func (w *walker) exportStatement(n *tree_sitter.Node) {
	isDefault := false
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() && c.Kind() == "default" {
			isDefault = true
			break
		}
	}
	if !isDefault {
		return
	}
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		w.defaultExport = validName(parser.FieldText(decl, "name", w.src))
		return
	}
	v := n.ChildByFieldName("value")
	if v == nil {
		return
	}
	if v.Kind() == "identifier" {
		w.defaultExport = validName(parser.NodeText(v, w.src))
		return
	}
	w.defaultExport = validName(parser.FieldText(v, "name", w.src))
}

// heritage returns the base class expression of a class_heritage node:
// `extends Base` in JavaScript, the extends_clause value in TypeScript.
func (w *walker) heritage(h *tree_sitter.Node) string {
	base := h.NamedChild(0)
	if base != nil {
		switch base.Kind() {
		case "extends_clause":
			base = base.ChildByFieldName("value")
		case "implements_clause":
			return ""
		}
	}
	if base == nil {
		return ""
	}
	if name := calleeName(base, w.src); name != "" {
		return name
	}
	return parser.NodeText(base, w.src)
}

func firstNamed(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// functionName resolves the name of a function node. Anonymous functions
// take the name of the binding they are assigned to; "" means anonymous.
func (w *walker) functionName(n *tree_sitter.Node) string {
	if name := validName(parser.FieldText(n, "name", w.src)); name != "" {
		return name
	}
	p := n.Parent()
	if p == nil {
		return ""
	}
	switch p.Kind() {
	case "variable_declarator":
		if id := p.ChildByFieldName("name"); id != nil && id.Kind() == "identifier" {
			return validName(parser.NodeText(id, w.src))
		}
	case "pair":
		key := p.ChildByFieldName("key")
		if key == nil {
			return ""
		}
		if s := stringContent(key, w.src); s != "" {
			return validName(s)
		}
		return validName(parser.NodeText(key, w.src))
	case "assignment_expression":
		left := p.ChildByFieldName("left")
		if left == nil {
			return ""
		}
		if left.Kind() == "member_expression" {
			return validName(parser.FieldText(left, "property", w.src))
		}
		if left.Kind() == "identifier" {
			return validName(parser.NodeText(left, w.src))
		}
	case "field_definition", "public_field_definition":
		if name := validName(parser.FieldText(p, "property", w.src)); name != "" {
			return name
		}
		return validName(parser.FieldText(p, "name", w.src))
	}
	return ""
}

// calleeName renders identifier chains ("app.get", "this.save"); anything
// else yields "".
func calleeName(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier", "this", "super", "property_identifier":
		return parser.NodeText(n, src)
	case "member_expression":
		obj := calleeName(n.ChildByFieldName("object"), src)
		prop := parser.FieldText(n, "property", src)
		if obj == "" || prop == "" {
			return ""
		}
		return obj + "." + prop
	}
	return ""
}

// stringContent returns the text of a string literal without quotes, or ""
// when n is not a plain string.
func stringContent(n *tree_sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "string":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c != nil && c.Kind() == "string_fragment" {
				return parser.NodeText(c, src)
			}
		}
	case "template_string":
		if n.NamedChildCount() == 0 || (n.NamedChildCount() == 1 && n.NamedChild(0).Kind() == "string_fragment") {
			return strings.Trim(parser.NodeText(n, src), "`")
		}
	}
	return ""
}

// validName returns name when it can appear in a semantic identifier, ""
// otherwise.
func validName(name string) string {
	if name == "" {
		return ""
	}
	if _, err := fqn.Compute("NAME", name, scope.Context{File: "f"}); err != nil {
		return ""
	}
	return name
}
