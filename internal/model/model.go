package model

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"unicode"
	"unicode/utf8"
)

// Pos locates an attribute group or declaration in source.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" && p.Line == 0 {
		return "-"
	}
	if p.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Attr is one raw attribute group, e.g. the body of a `//builder:` directive
// or of a `builder:"..."` struct tag.
type Attr struct {
	Text string
	Pos  Pos
}

// TypeExpr is an opaque type (or expression) token. The generator never
// interprets it beyond syntactic shape matching.
type TypeExpr struct {
	Text string
}

// Expr parses the token as a Go expression.
func (t TypeExpr) Expr() (ast.Expr, error) {
	return parser.ParseExpr(t.Text)
}

// IsPointer reports whether the token is syntactically *T.
func (t TypeExpr) IsPointer() bool {
	e, err := t.Expr()
	if err != nil {
		return false
	}
	_, ok := unparen(e).(*ast.StarExpr)
	return ok
}

// Collection reports the collection shape of the token.
func (t TypeExpr) Collection() CollectionKind {
	e, err := t.Expr()
	if err != nil {
		return NotCollection
	}
	switch x := unparen(e).(type) {
	case *ast.ArrayType:
		if x.Len == nil {
			return SliceCollection
		}
	case *ast.MapType:
		return MapCollection
	}
	return NotCollection
}

// Elem returns the element of *T or []T, or key/value of map[K]V.
func (t TypeExpr) Elem() (key, elem TypeExpr, ok bool) {
	e, err := t.Expr()
	if err != nil {
		return TypeExpr{}, TypeExpr{}, false
	}
	switch x := unparen(e).(type) {
	case *ast.StarExpr:
		return TypeExpr{}, TypeExpr{Text: nodeText(x.X)}, true
	case *ast.ArrayType:
		if x.Len != nil {
			return TypeExpr{}, TypeExpr{}, false
		}
		return TypeExpr{}, TypeExpr{Text: nodeText(x.Elt)}, true
	case *ast.MapType:
		return TypeExpr{Text: nodeText(x.Key)}, TypeExpr{Text: nodeText(x.Value)}, true
	}
	return TypeExpr{}, TypeExpr{}, false
}

func (t TypeExpr) String() string { return t.Text }

func (t TypeExpr) MarshalText() ([]byte, error) { return []byte(t.Text), nil }

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

// CollectionKind is the syntactic collection shape of a type.
type CollectionKind int

const (
	NotCollection   CollectionKind = iota
	SliceCollection                // []T
	MapCollection                  // map[K]V
)

func (k CollectionKind) String() string {
	switch k {
	case SliceCollection:
		return "slice"
	case MapCollection:
		return "map"
	default:
		return "none"
	}
}

// TypeParam is one declared type parameter of a generic struct.
type TypeParam struct {
	Name       string
	Constraint TypeExpr
}

// FieldDescriptor describes one named field of an annotated struct.
type FieldDescriptor struct {
	Name     string   // Go identifier
	Type     TypeExpr // declared type
	Attrs    []Attr   // builder tag and field directives
	Doc      []string // doc comment lines, copied to setters
	Embedded bool     // embedded field; Name is the type name
	Pos      Pos
}

// StructDescriptor describes one annotated struct. It is produced once by
// the source parser and never mutated afterwards.
type StructDescriptor struct {
	Name       string
	PkgName    string
	PkgPath    string
	TypeParams []TypeParam
	Fields     []FieldDescriptor
	Attrs      []Attr            // struct-level //builder: directives
	Imports    map[string]string // alias → import path of the declaring file
	// Scope holds the package-level names of the declaring package; nil
	// when unknown.
	Scope      map[string]bool
	Doc        []string
	Pos        Pos
	File       string // declaring file
}

// Exported reports whether the struct itself is exported.
func (s *StructDescriptor) Exported() bool {
	return IsExported(s.Name)
}

// Field returns the field with the given name.
func (s *StructDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// IsExported reports whether name starts with an upper-case letter.
func IsExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// Export upper-cases the first rune of name.
func Export(name string) string {
	r, n := utf8.DecodeRuneInString(name)
	if n == 0 {
		return name
	}
	return string(unicode.ToUpper(r)) + name[n:]
}

// Unexport lower-cases the leading rune of name, keeping initialisms
// readable: "URL" → "url", "HTTPServer" → "httpServer".
func Unexport(name string) string {
	runes := []rune(name)
	if len(runes) == 0 {
		return name
	}
	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		i++
	}
	if i == 0 {
		return name
	}
	if i > 1 && i < len(runes) {
		// the last upper-case rune starts the next word
		i--
	}
	for j := 0; j < i; j++ {
		runes[j] = unicode.ToLower(runes[j])
	}
	return string(runes)
}

func nodeText(n ast.Node) string {
	return printNode(token.NewFileSet(), n)
}
