package model

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
)

func printNode(fset *token.FileSet, n ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, n); err != nil {
		return ""
	}
	return buf.String()
}

// NodeText renders an AST node back to source text.
func NodeText(fset *token.FileSet, n ast.Node) string {
	if fset == nil {
		fset = token.NewFileSet()
	}
	return printNode(fset, n)
}
