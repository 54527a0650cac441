// Command ast_debug prints the tree-sitter syntax tree of a JavaScript or
// TypeScript file, with the field name under which each node hangs.
package main

import (
	"fmt"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/Disentinel/grafema-sub012/internal/parser"
)

func printAST(node *tree_sitter.Node, field string, source []byte, depth int) {
	if node == nil {
		return
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	label := node.Kind()
	if field != "" {
		label = field + ": " + label
	}
	if !node.IsNamed() {
		label = "(" + label + ")"
	}
	fmt.Printf("%s%s L%d %q\n", strings.Repeat("  ", depth), label, node.StartPosition().Row+1, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), node.FieldNameForChild(uint32(i)), source, depth+1)
	}
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ast_debug <file.js|file.ts>")
		os.Exit(2)
	}
	f, err := parser.ParseFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer f.Close()
	printAST(f.Root(), "", f.Source, 0)
	for _, line := range f.ErrorLines() {
		fmt.Fprintf(os.Stderr, "syntax error at line %d\n", line)
	}
}
