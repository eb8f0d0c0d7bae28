// Package parser loads Go packages and describes the structs annotated
// with builder directives.
package parser

import (
	"cmp"
	"context"
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"

	"github.com/cmmoran/buildergen/internal/model"
)

// Parser holds state/results of a parse run.
type Parser struct {
	Opts Options

	// Module is the main module path read from go.mod, and ModDir its
	// directory. Set by Parse.
	Module string
	ModDir string

	Structs Structs
	// Files lists every source file read.
	Files []string

	fset *token.FileSet
}

type Structs []*model.StructDescriptor

func (x Structs) Find(name string) *model.StructDescriptor {
	for _, s := range x {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ByFile groups descriptors by declaring file, keeping declaration order.
func (x Structs) ByFile() map[string]Structs {
	out := make(map[string]Structs)
	for _, s := range x {
		out[s.File] = append(out[s.File], s)
	}
	return out
}

// New returns a parser configured by opts on top of NewOptions.
func New(opts ...Option) (*Parser, error) {
	o := NewOptions()
	for _, fn := range opts {
		fn(o)
	}
	return NewWithOpts(o)
}

func NewWithOpts(opts *Options) (*Parser, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	return &Parser{
		Opts: *opts,
		fset: token.NewFileSet(),
	}, nil
}

// Parse loads the configured packages and collects every annotated struct
// of the selected files. Package load errors are combined and returned
// after the readable files were collected.
func (p *Parser) Parse(ctx context.Context) error {
	if err := p.findModule(); err != nil {
		return err
	}
	pkgs, err := packages.Load(&packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Dir:     p.Opts.InDir,
		Fset:    p.fset,
		Tests:   p.Opts.Tests,
	}, p.Opts.Patterns...)
	if err != nil {
		return err
	}

	var errs error
	seen := make(map[string]bool)
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = multierr.Append(errs, e)
		}
		scope := declared(pkg.Syntax)
		for _, file := range pkg.Syntax {
			name := p.fset.Position(file.Package).Filename
			// test variants repeat the package's files
			if seen[name] || !p.Opts.SelectsFile(name) {
				continue
			}
			seen[name] = true
			p.Files = append(p.Files, name)
			p.collectStructs(pkg.PkgPath, name, file, scope)
		}
	}
	p.sort()
	slog.Debug("parsed packages", "dir", p.Opts.InDir, "packages", len(pkgs), "structs", len(p.Structs))
	return errs
}

// ParseSource collects the annotated structs of one in-memory file.
func (p *Parser) ParseSource(pkgPath, filename string, src []byte) error {
	file, err := goparser.ParseFile(p.fset, filename, src, goparser.ParseComments|goparser.SkipObjectResolution)
	if err != nil {
		return err
	}
	p.Files = append(p.Files, filename)
	p.collectStructs(pkgPath, filename, file, declared([]*ast.File{file}))
	p.sort()
	return nil
}

func (p *Parser) sort() {
	slices.SortStableFunc(p.Structs, func(a, b *model.StructDescriptor) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Pos.Line, b.Pos.Line))
	})
}

// findModule walks up from InDir until it finds go.mod.
func (p *Parser) findModule() error {
	from := p.Opts.InDir
	for {
		data, err := os.ReadFile(filepath.Join(from, "go.mod"))
		if err == nil {
			mf, err := modfile.Parse("go.mod", data, nil)
			if err != nil {
				return err
			}
			if mf.Module == nil {
				return fmt.Errorf("%s: no module directive", filepath.Join(from, "go.mod"))
			}
			p.Module, p.ModDir = mf.Module.Mod.Path, from
			return nil
		}
		parent := filepath.Dir(from)
		if parent == from {
			return fmt.Errorf("no go.mod found above %s", p.Opts.InDir)
		}
		from = parent
	}
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// importName guesses the package name of an import path the way goimports
// does without loading it.
func importName(importPath string) string {
	base := path.Base(importPath)
	if majorVersion.MatchString(base) {
		if dir := path.Dir(importPath); dir != "." {
			base = path.Base(dir)
		}
	}
	if i := strings.Index(base, ".v"); i > 0 { // gopkg.in/yaml.v3
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return -1
		}
		return r
	}, base)
}

func collectImports(file *ast.File) map[string]string {
	out := make(map[string]string, len(file.Imports))
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		alias := importName(importPath)
		if imp.Name != nil {
			alias = imp.Name.Name
		}
		out[alias] = importPath
	}
	return out
}

func (p *Parser) pos(at token.Pos) model.Pos {
	ps := p.fset.Position(at)
	return model.Pos{File: ps.Filename, Line: ps.Line, Column: ps.Column}
}

// declared returns the package-level names declared across files.
func declared(files []*ast.File) map[string]bool {
	out := make(map[string]bool)
	for _, file := range files {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil {
					out[d.Name.Name] = true
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch sp := spec.(type) {
					case *ast.TypeSpec:
						out[sp.Name.Name] = true
					case *ast.ValueSpec:
						for _, n := range sp.Names {
							out[n.Name] = true
						}
					}
				}
			}
		}
	}
	return out
}

func (p *Parser) collectStructs(pkgPath, filename string, file *ast.File, scope map[string]bool) {
	var imports map[string]string
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok || ts.Assign.IsValid() {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil && !gen.Lparen.IsValid() {
				doc = gen.Doc
			}
			attrs, docLines, annotated := p.comments(doc)
			if !annotated || !p.Opts.selectsType(ts.Name.Name, docLines) {
				continue
			}
			if imports == nil {
				imports = collectImports(file)
			}

			desc := &model.StructDescriptor{
				Name:    ts.Name.Name,
				PkgName: file.Name.Name,
				PkgPath: pkgPath,
				Attrs:   attrs,
				Imports: imports,
				Scope:   scope,
				Doc:     docLines,
				Pos:     p.pos(ts.Name.Pos()),
				File:    filename,
			}
			if ts.TypeParams != nil {
				for _, fp := range ts.TypeParams.List {
					constraint := model.TypeExpr{Text: model.NodeText(p.fset, fp.Type)}
					for _, n := range fp.Names {
						desc.TypeParams = append(desc.TypeParams, model.TypeParam{Name: n.Name, Constraint: constraint})
					}
				}
			}
			for _, f := range st.Fields.List {
				desc.Fields = append(desc.Fields, p.fields(f)...)
			}
			p.Structs = append(p.Structs, desc)
		}
	}
}

// comments splits a doc comment into attribute directives and plain doc
// lines. annotated is true when at least one directive is present.
func (p *Parser) comments(cg *ast.CommentGroup) (attrs []model.Attr, doc []string, annotated bool) {
	if cg == nil {
		return nil, nil, false
	}
	prefix := len("//") + len(p.Opts.Directive)
	for _, c := range cg.List {
		if text, ok := p.Opts.directive(c.Text); ok {
			annotated = true
			if strings.TrimSpace(text) == "" {
				continue
			}
			pos := p.pos(c.Slash)
			pos.Column += prefix
			attrs = append(attrs, model.Attr{Text: text, Pos: pos})
			continue
		}
		doc = append(doc, commentLines(c.Text)...)
	}
	return attrs, trimBlank(doc), annotated
}

func commentLines(text string) []string {
	if line, ok := strings.CutPrefix(text, "//"); ok {
		return []string{strings.TrimPrefix(line, " ")}
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
	var out []string
	for _, l := range strings.Split(text, "\n") {
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

// embeddedFieldName is the implicit name of an embedded field.
func embeddedFieldName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.StarExpr:
		return embeddedFieldName(t.X)
	case *ast.IndexExpr:
		return embeddedFieldName(t.X)
	case *ast.IndexListExpr:
		return embeddedFieldName(t.X)
	}
	return ""
}

// fields describes one field declaration; `X, Y string` yields two.
func (p *Parser) fields(f *ast.Field) []model.FieldDescriptor {
	attrs, doc, _ := p.comments(f.Doc)
	if f.Tag != nil {
		if text, off, ok := p.Opts.tagAttr(f.Tag.Value); ok {
			pos := p.pos(f.Tag.Pos())
			if off >= 0 {
				pos.Column += off
			} else {
				pos.Column = 0
			}
			attrs = append(attrs, model.Attr{Text: text, Pos: pos})
		}
	}
	// trailing comments contribute directives but no documentation
	trailing, _, _ := p.comments(f.Comment)
	attrs = append(attrs, trailing...)
	typ := model.TypeExpr{Text: model.NodeText(p.fset, f.Type)}

	if len(f.Names) == 0 {
		return []model.FieldDescriptor{{
			Name:     embeddedFieldName(f.Type),
			Type:     typ,
			Attrs:    attrs,
			Doc:      doc,
			Embedded: true,
			Pos:      p.pos(f.Type.Pos()),
		}}
	}
	out := make([]model.FieldDescriptor, 0, len(f.Names))
	for _, id := range f.Names {
		out = append(out, model.FieldDescriptor{
			Name:  id.Name,
			Type:  typ,
			Attrs: attrs,
			Doc:   doc,
			Pos:   p.pos(id.Pos()),
		})
	}
	return out
}
