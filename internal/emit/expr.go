package emit

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/dave/jennifer/jen"

	"github.com/cmmoran/buildergen/internal/model"
)

// converter turns type tokens and default expressions into jennifer code.
// Selectors on an imported package become qualified references so the
// generated file imports what it uses.
type converter struct {
	fset    *token.FileSet
	imports map[string]string // alias → path
	scope   map[string]bool   // package-level names, nil when unknown
	src     string            // expression being converted
	err     error
}

func newConverter(imports map[string]string, scope map[string]bool) *converter {
	if _, dot := imports["."]; dot {
		// dot-imported names are unknown here
		scope = nil
	}
	return &converter{fset: token.NewFileSet(), imports: imports, scope: scope}
}

func (c *converter) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *converter) typ(t model.TypeExpr) *jen.Statement {
	return c.source(t.Text)
}

func (c *converter) source(src string) *jen.Statement {
	e, err := parser.ParseExprFrom(c.fset, "", src, 0)
	if err != nil {
		c.fail(fmt.Errorf("parse %q: %w", src, err))
		return jen.Id(src)
	}
	c.src = src
	return c.expr(e)
}

func (c *converter) offset(p token.Pos) int {
	return c.fset.Position(p).Offset
}

// raw copies e as written. Selectors on imported packages inside it are
// still qualified so the generated file imports them.
func (c *converter) raw(e ast.Expr) *jen.Statement {
	var parts []jen.Code
	last := c.offset(e.Pos())
	ast.Inspect(e, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		id, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		path, imported := c.imports[id.Name]
		if !imported {
			return true
		}
		parts = append(parts, jen.Op(c.src[last:c.offset(sel.Pos())]), jen.Qual(path, sel.Sel.Name))
		last = c.offset(sel.End())
		return false
	})
	parts = append(parts, jen.Op(c.src[last:c.offset(e.End())]))
	return jen.Add(parts...)
}

func (c *converter) exprs(list []ast.Expr) []jen.Code {
	out := make([]jen.Code, len(list))
	for i, e := range list {
		out[i] = c.expr(e)
	}
	return out
}

func (c *converter) expr(e ast.Expr) *jen.Statement {
	switch x := e.(type) {
	case nil:
		// keeps the separator of an omitted slice bound
		return jen.Empty()
	case *ast.Ident:
		return jen.Id(x.Name)
	case *ast.BasicLit:
		return jen.Id(x.Value)
	case *ast.SelectorExpr:
		if id, ok := x.X.(*ast.Ident); ok {
			if path, imported := c.imports[id.Name]; imported {
				return jen.Qual(path, x.Sel.Name)
			}
			if c.scope != nil && !c.scope[id.Name] {
				c.fail(fmt.Errorf("%q: %s is neither imported nor declared in the package", c.src, id.Name))
			}
		}
		return c.expr(x.X).Dot(x.Sel.Name)
	case *ast.StarExpr:
		return jen.Op("*").Add(c.expr(x.X))
	case *ast.UnaryExpr:
		return jen.Op(x.Op.String()).Add(c.expr(x.X))
	case *ast.BinaryExpr:
		return c.expr(x.X).Op(x.Op.String()).Add(c.expr(x.Y))
	case *ast.ParenExpr:
		return jen.Parens(c.expr(x.X))
	case *ast.CallExpr:
		args := c.exprs(x.Args)
		if x.Ellipsis.IsValid() && len(args) > 0 {
			args[len(args)-1] = jen.Add(args[len(args)-1]).Op("...")
		}
		return c.expr(x.Fun).Call(args...)
	case *ast.CompositeLit:
		if x.Type == nil {
			return jen.Values(c.exprs(x.Elts)...)
		}
		return c.expr(x.Type).Values(c.exprs(x.Elts)...)
	case *ast.KeyValueExpr:
		return c.expr(x.Key).Op(":").Add(c.expr(x.Value))
	case *ast.IndexExpr:
		return c.expr(x.X).Index(c.expr(x.Index))
	case *ast.IndexListExpr:
		return c.expr(x.X).Types(c.exprs(x.Indices)...)
	case *ast.SliceExpr:
		parts := []jen.Code{c.expr(x.Low), c.expr(x.High)}
		if x.Slice3 {
			parts = append(parts, c.expr(x.Max))
		}
		return c.expr(x.X).Index(parts...)
	case *ast.TypeAssertExpr:
		if x.Type == nil {
			return c.expr(x.X).Assert(jen.Type())
		}
		return c.expr(x.X).Assert(c.expr(x.Type))
	case *ast.ArrayType:
		switch l := x.Len.(type) {
		case nil:
			return jen.Index().Add(c.expr(x.Elt))
		case *ast.Ellipsis:
			return jen.Index(jen.Op("...")).Add(c.expr(x.Elt))
		default:
			return jen.Index(c.expr(l)).Add(c.expr(x.Elt))
		}
	case *ast.Ellipsis:
		return jen.Op("...").Add(c.expr(x.Elt))
	case *ast.MapType:
		return jen.Map(c.expr(x.Key)).Add(c.expr(x.Value))
	case *ast.ChanType:
		switch x.Dir {
		case ast.SEND:
			return jen.Chan().Op("<-").Add(c.expr(x.Value))
		case ast.RECV:
			return jen.Op("<-").Chan().Add(c.expr(x.Value))
		}
		return jen.Chan().Add(c.expr(x.Value))
	case *ast.FuncType:
		return c.signature(jen.Func(), x)
	case *ast.StructType:
		return jen.Struct(c.fields(x.Fields)...)
	case *ast.InterfaceType:
		return jen.Interface(c.methods(x.Methods)...)
	}
	// function literals and the like are copied as written
	return c.raw(e)
}

func (c *converter) signature(s *jen.Statement, ft *ast.FuncType) *jen.Statement {
	s = s.Params(c.fields(ft.Params)...)
	if ft.Results == nil || len(ft.Results.List) == 0 {
		return s
	}
	if len(ft.Results.List) == 1 && len(ft.Results.List[0].Names) == 0 {
		return s.Add(c.expr(ft.Results.List[0].Type))
	}
	return s.Params(c.fields(ft.Results)...)
}

func (c *converter) fields(fl *ast.FieldList) []jen.Code {
	if fl == nil {
		return nil
	}
	var out []jen.Code
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			out = append(out, c.expr(f.Type))
			continue
		}
		for _, n := range f.Names {
			s := jen.Id(n.Name).Add(c.expr(f.Type))
			if f.Tag != nil {
				s = s.Op(f.Tag.Value)
			}
			out = append(out, s)
		}
	}
	return out
}

func (c *converter) methods(fl *ast.FieldList) []jen.Code {
	if fl == nil {
		return nil
	}
	var out []jen.Code
	for _, f := range fl.List {
		ft, isMethod := f.Type.(*ast.FuncType)
		if !isMethod || len(f.Names) == 0 {
			out = append(out, c.expr(f.Type))
			continue
		}
		out = append(out, c.signature(jen.Id(f.Names[0].Name), ft))
	}
	return out
}
