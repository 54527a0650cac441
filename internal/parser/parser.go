// Package parser wraps the tree-sitter grammars of the JavaScript family.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/Disentinel/grafema-sub012/internal/lang"
)

// ErrUnsupported is returned for languages or extensions without a grammar.
var ErrUnsupported = errors.New("unsupported language")

// grammar is one loaded language with its pool of ready parsers.
type grammar struct {
	lang    *tree_sitter.Language
	parsers sync.Pool
}

var (
	grammarsOnce sync.Once
	grammars     map[lang.Language]*grammar
)

func loadGrammars() {
	grammarsOnce.Do(func() {
		raw := map[lang.Language]*tree_sitter.Language{
			lang.JavaScript: tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
			lang.TypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			lang.TSX:        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		}
		grammars = make(map[lang.Language]*grammar, len(raw))
		for l, tsLang := range raw {
			g := &grammar{lang: tsLang}
			g.parsers.New = func() any {
				p := tree_sitter.NewParser()
				if err := p.SetLanguage(tsLang); err != nil {
					panic(fmt.Sprintf("set %s grammar: %v", l, err))
				}
				return p
			}
			grammars[l] = g
		}
	})
}

func grammarFor(l lang.Language) (*grammar, error) {
	loadGrammars()
	g, ok := grammars[l]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, l)
	}
	return g, nil
}

// Language returns the tree-sitter grammar for l.
func Language(l lang.Language) (*tree_sitter.Language, error) {
	g, err := grammarFor(l)
	if err != nil {
		return nil, err
	}
	return g.lang, nil
}

// Parse parses source with the grammar of l. The caller closes the tree.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	g, err := grammarFor(l)
	if err != nil {
		return nil, err
	}
	p := g.parsers.Get().(*tree_sitter.Parser)
	tree := p.Parse(source, nil)
	g.parsers.Put(p)
	if tree == nil {
		return nil, fmt.Errorf("parse %s source: no tree", l)
	}
	return tree, nil
}

// File is a parsed source file. Node text is sliced from Source, so it must
// outlive every node taken from Tree.
type File struct {
	Path   string
	Spec   *lang.LanguageSpec
	Source []byte
	Tree   *tree_sitter.Tree
}

// ParseFile reads path and parses it with the grammar its extension selects.
func ParseFile(path string) (*File, error) {
	spec := lang.ForExtension(filepath.Ext(path))
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := Parse(spec.Language, source)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Spec: spec, Source: source, Tree: tree}, nil
}

// Root returns the root node of the tree.
func (f *File) Root() *tree_sitter.Node { return f.Tree.RootNode() }

// Close releases the tree.
func (f *File) Close() { f.Tree.Close() }

// ErrorLines returns the 1-based lines of ERROR and MISSING nodes in source
// order. It is empty for a clean parse.
func (f *File) ErrorLines() []int {
	root := f.Root()
	if !root.HasError() {
		return nil
	}
	var lines []int
	Walk(root, func(n *tree_sitter.Node) bool {
		if n.IsError() || n.IsMissing() {
			lines = append(lines, int(n.StartPosition().Row)+1)
			return false
		}
		return n.HasError()
	})
	return lines
}

// WalkFunc visits one node. Returning false skips its children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk visits node and its descendants depth-first.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil || !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		Walk(node.Child(i), fn)
	}
}

// NodeText returns the source text covered by node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// FieldText returns the text of node's child field, or "" if absent.
func FieldText(node *tree_sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}
