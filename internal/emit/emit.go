// Package emit renders builder models to Go source with jennifer.
package emit

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/cmmoran/buildergen/internal/model"
)

// KitPath is the import path of the runtime support package.
const KitPath = "github.com/cmmoran/buildergen/pkg/builderkit"

// Header is the first line of every generated file.
const Header = "Code generated by buildergen. DO NOT EDIT."

var ErrNoModels = errors.New("no builders to render")

// Render renders models into one file. All models must belong to the same
// package.
func Render(models ...*model.BuilderModel) (*jen.File, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	pkg := models[0].Target
	var f *jen.File
	if pkg.PkgPath == "" {
		f = jen.NewFile(pkg.PkgName)
	} else {
		f = jen.NewFilePathName(pkg.PkgPath, pkg.PkgName)
	}
	f.HeaderComment(Header)

	for _, m := range models {
		if m.Target.PkgName != pkg.PkgName || m.Target.PkgPath != pkg.PkgPath {
			return nil, fmt.Errorf("builder %s: package %s differs from %s", m.Name, m.Target.PkgName, pkg.PkgName)
		}
		for _, alias := range slices.Sorted(maps.Keys(m.Imports)) {
			if alias == "_" || alias == "." {
				continue
			}
			f.ImportAlias(m.Imports[alias], alias)
		}
		e := &emitter{f: f, m: m, conv: newConverter(m.Imports, m.Scope)}
		if err := e.emit(); err != nil {
			return nil, fmt.Errorf("builder %s: %w", m.Name, err)
		}
	}
	return f, nil
}

// Write renders models and writes the formatted source to w.
func Write(w io.Writer, models ...*model.BuilderModel) error {
	f, err := Render(models...)
	if err != nil {
		return err
	}
	return f.Render(w)
}

type emitter struct {
	f    *jen.File
	m    *model.BuilderModel
	conv *converter
}

func (e *emitter) emit() error {
	e.builderType()
	if e.m.Constructor != nil {
		e.constructor()
	}
	for _, s := range e.m.Setters {
		e.setter(s)
	}
	if e.m.Clone != nil {
		e.clone()
	}
	if e.m.Stringer {
		e.stringer()
	}
	if e.m.Build != nil {
		e.errorType()
		e.build()
	}
	return e.conv.err
}

func withTypes(s *jen.Statement, args []jen.Code) *jen.Statement {
	if len(args) == 0 {
		return s
	}
	return s.Types(args...)
}

func (e *emitter) typeParamDecls() []jen.Code {
	var out []jen.Code
	for _, tp := range e.m.Target.TypeParams {
		constraint := jen.Any()
		if tp.Constraint.Text != "" {
			constraint = e.conv.typ(tp.Constraint)
		}
		out = append(out, jen.Id(tp.Name).Add(constraint))
	}
	return out
}

func (e *emitter) typeArgs() []jen.Code {
	var out []jen.Code
	for _, tp := range e.m.Target.TypeParams {
		out = append(out, jen.Id(tp.Name))
	}
	return out
}

func (e *emitter) builderRef() *jen.Statement {
	return withTypes(jen.Id(e.m.Name), e.typeArgs())
}

func (e *emitter) targetRef() *jen.Statement {
	return withTypes(jen.Id(e.m.Target.Name), e.typeArgs())
}

func (e *emitter) receiver(p model.Pattern) *jen.Statement {
	if p.PointerReceiver() {
		return jen.Id("b").Op("*").Add(e.builderRef())
	}
	return jen.Id("b").Add(e.builderRef())
}

func (e *emitter) result(p model.Pattern) *jen.Statement {
	if p.PointerReceiver() {
		return jen.Op("*").Add(e.builderRef())
	}
	return e.builderRef()
}

func (e *emitter) comment(lines []string) {
	for _, l := range lines {
		e.f.Comment(l)
	}
}

func (e *emitter) builderType() {
	e.comment(e.m.Doc)
	fields := make([]jen.Code, 0, len(e.m.Fields)*2)
	for _, fd := range e.m.Fields {
		fields = append(fields, jen.Id(fd.Name).Add(e.conv.typ(fd.Type)))
		if fd.PresenceName != "" {
			fields = append(fields, jen.Id(fd.PresenceName).Bool())
		}
	}
	withTypes(e.f.Type().Id(e.m.Name), e.typeParamDecls()).Struct(fields...)
}

func (e *emitter) constructor() {
	name := e.m.Constructor.Name
	e.f.Commentf("%s returns an empty %s.", name, e.m.Name)
	fn := withTypes(e.f.Func().Id(name), e.typeParamDecls()).Params()
	if e.m.Pattern.PointerReceiver() {
		fn.Op("*").Add(e.builderRef()).Block(jen.Return(jen.Op("&").Add(e.builderRef()).Values()))
		return
	}
	fn.Add(e.builderRef()).Block(jen.Return(e.builderRef().Values()))
}

func (e *emitter) into(t model.TypeExpr) *jen.Statement {
	if e.m.Standalone {
		return jen.Interface(jen.Id("Into").Params().Add(e.conv.typ(t)))
	}
	return jen.Qual(KitPath, "Into").Types(e.conv.typ(t))
}

func (e *emitter) tryInto(t model.TypeExpr) *jen.Statement {
	if e.m.Standalone {
		return jen.Interface(jen.Id("TryInto").Params().Params(e.conv.typ(t), jen.Error()))
	}
	return jen.Qual(KitPath, "TryInto").Types(e.conv.typ(t))
}

func (e *emitter) setter(s model.Setter) {
	fd, _ := e.m.Field(s.Field)
	doc := s.Doc
	if len(doc) == 0 {
		doc = []string{fmt.Sprintf("%s sets %s.", s.Name, fd.Source)}
	}
	e.comment(doc)

	store := jen.Id("b").Dot(fd.Name)
	var params, pre, assign []jen.Code
	switch s.Kind {
	case model.SetterDirect, model.SetterTry:
		var v *jen.Statement
		switch {
		case s.Kind == model.SetterTry:
			params = []jen.Code{jen.Id("value").Add(e.tryInto(s.ParamType))}
			pre = []jen.Code{
				jen.List(jen.Id("item"), jen.Err()).Op(":=").Id("value").Dot("TryInto").Call(),
				jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Id("b"), jen.Err())),
			}
			v = jen.Id("item")
		case s.Into && s.StripOption:
			params = []jen.Code{jen.Id("value").Add(e.into(s.ParamType))}
			pre = []jen.Code{jen.Id("item").Op(":=").Id("value").Dot("Into").Call()}
			v = jen.Id("item")
		case s.Into:
			params = []jen.Code{jen.Id("value").Add(e.into(s.ParamType))}
			v = jen.Id("value").Dot("Into").Call()
		default:
			params = []jen.Code{jen.Id("value").Add(e.conv.typ(s.ParamType))}
			v = jen.Id("value")
		}
		if s.StripOption {
			v = jen.Op("&").Add(v)
		}
		assign = []jen.Code{store.Clone().Op("=").Add(v)}
	case model.SetterEach:
		if fd.Collection == model.MapCollection {
			assign = e.insert(s, fd, &params)
		} else {
			assign = e.appendItem(s, fd, &params)
		}
	}
	if fd.PresenceName != "" {
		assign = append(assign, jen.Id("b").Dot(fd.PresenceName).Op("=").True())
	}

	body := append([]jen.Code{}, pre...)
	if s.Pattern.ClonesOnSet() {
		body = append(body, jen.Id("b").Op("=").Id("b").Dot("Clone").Call())
	}
	body = append(body, assign...)

	fn := e.f.Func().Params(e.receiver(s.Pattern)).Id(s.Name).Params(params...)
	if s.Kind == model.SetterTry {
		body = append(body, jen.Return(jen.Id("b"), jen.Nil()))
		fn.Params(e.result(s.Pattern), jen.Error()).Block(body...)
		return
	}
	body = append(body, jen.Return(jen.Id("b")))
	fn.Add(e.result(s.Pattern)).Block(body...)
}

// appendItem adds one element to slice storage. A by-value builder clips
// the slice first so copies never share a backing array.
func (e *emitter) appendItem(s model.Setter, fd model.BuilderField, params *[]jen.Code) []jen.Code {
	item := jen.Id("item")
	if s.Into {
		*params = []jen.Code{jen.Id("item").Add(e.into(s.ParamType))}
		item = jen.Id("item").Dot("Into").Call()
	} else {
		*params = []jen.Code{jen.Id("item").Add(e.conv.typ(s.ParamType))}
	}
	store := jen.Id("b").Dot(fd.Name)
	base := store.Clone()
	if s.Pattern == model.PatternOwned {
		base = jen.Qual("slices", "Clip").Call(store.Clone())
	}
	return []jen.Code{store.Clone().Op("=").Append(base, item)}
}

// insert adds one entry to map storage, allocating the map on first use.
func (e *emitter) insert(s model.Setter, fd model.BuilderField, params *[]jen.Code) []jen.Code {
	value := jen.Id("value")
	if s.Into {
		*params = []jen.Code{jen.Id("key").Add(e.conv.typ(s.KeyType)), jen.Id("value").Add(e.into(s.ParamType))}
		value = jen.Id("value").Dot("Into").Call()
	} else {
		*params = []jen.Code{jen.Id("key").Add(e.conv.typ(s.KeyType)), jen.Id("value").Add(e.conv.typ(s.ParamType))}
	}
	store := jen.Id("b").Dot(fd.Name)
	var out []jen.Code
	if s.Pattern == model.PatternOwned {
		out = append(out, store.Clone().Op("=").Qual("maps", "Clone").Call(store.Clone()))
	}
	return append(out,
		jen.If(store.Clone().Op("==").Nil()).Block(
			store.Clone().Op("=").Make(e.conv.typ(fd.Type)),
		),
		store.Clone().Index(jen.Id("key")).Op("=").Add(value),
	)
}

func collectionClone(kind model.CollectionKind, src *jen.Statement) *jen.Statement {
	switch kind {
	case model.SliceCollection:
		return jen.Qual("slices", "Clone").Call(src)
	case model.MapCollection:
		return jen.Qual("maps", "Clone").Call(src)
	}
	return src
}

func (e *emitter) clone() {
	e.f.Commentf("%s returns a copy of the builder that shares no collection storage with it.", e.m.Clone.Name)
	body := []jen.Code{jen.Id("out").Op(":=").Op("*").Id("b")}
	for _, fd := range e.m.Fields {
		if fd.Collection != model.NotCollection {
			body = append(body, jen.Id("out").Dot(fd.Name).Op("=").Add(collectionClone(fd.Collection, jen.Id("b").Dot(fd.Name))))
		}
	}
	body = append(body, jen.Return(jen.Op("&").Id("out")))
	e.f.Func().Params(jen.Id("b").Op("*").Add(e.builderRef())).Id(e.m.Clone.Name).Params().
		Op("*").Add(e.builderRef()).Block(body...)
}

func (e *emitter) stringer() {
	e.f.Comment("String describes the builder's current state.")
	var (
		parts []string
		args  []jen.Code
	)
	for _, fd := range e.m.Fields {
		parts = append(parts, fd.Name+": %v")
		args = append(args, jen.Id("b").Dot(fd.Name))
	}
	format := e.m.Name + "{" + strings.Join(parts, ", ") + "}"
	var ret jen.Code = jen.Lit(format)
	if len(args) > 0 {
		ret = jen.Qual("fmt", "Sprintf").Call(append([]jen.Code{jen.Lit(format)}, args...)...)
	}
	e.f.Func().Params(e.receiver(e.m.Pattern)).Id("String").Params().String().Block(jen.Return(ret))
}

func (e *emitter) errorType() {
	name := e.m.ErrorType.Name
	e.f.Commentf("%s is returned by %s.%s.", name, e.m.Name, e.m.Build.Name)
	e.f.Type().Id(name).Struct(
		jen.Comment("Field names the required field that was never set."),
		jen.Id("Field").String(),
		jen.Comment("Err is the underlying cause."),
		jen.Id("Err").Error(),
	)
	e.f.Func().Params(jen.Id("e").Op("*").Id(name)).Id("Error").Params().String().Block(
		jen.If(jen.Id("e").Dot("Err").Op("==").Nil()).Block(
			jen.Return(jen.Qual("fmt", "Sprintf").Call(jen.Lit(e.m.Name+": field %q must be initialized"), jen.Id("e").Dot("Field"))),
		),
		jen.Return(jen.Lit(e.m.Name+": ").Op("+").Id("e").Dot("Err").Dot("Error").Call()),
	)
	e.f.Func().Params(jen.Id("e").Op("*").Id(name)).Id("Unwrap").Params().Error().Block(
		jen.Return(jen.Id("e").Dot("Err")),
	)
}

// buildErr is the error returned for a missing field, or for a rejected
// validation when field is empty.
func (e *emitter) buildErr(field string) jen.Code {
	dict := jen.Dict{}
	switch {
	case field != "":
		dict[jen.Id("Field")] = jen.Lit(field)
		if !e.m.Standalone {
			dict[jen.Id("Err")] = jen.Op("&").Qual(KitPath, "UninitializedFieldError").Values(jen.Dict{jen.Id("Field"): jen.Lit(field)})
		}
	case e.m.Standalone:
		dict[jen.Id("Err")] = jen.Err()
	default:
		dict[jen.Id("Err")] = jen.Op("&").Qual(KitPath, "ValidationError").Values(jen.Dict{jen.Id("Err"): jen.Err()})
	}
	v := jen.Op("&").Id(e.m.ErrorType.Name).Values(dict)
	if ce := e.m.Build.CustomError; ce != nil {
		target := jen.Id(ce.Name)
		if ce.PkgPath != "" {
			target = jen.Qual(ce.PkgPath, ce.Name)
		}
		return jen.Qual(KitPath, "ErrorAs").Types(target).Call(v)
	}
	return v
}

func (e *emitter) fail(field string) jen.Code {
	return jen.Return(e.targetRef().Values(), e.buildErr(field))
}

func (e *emitter) build() {
	bm := e.m.Build
	e.f.Commentf("%s returns the %s assembled from the builder.", bm.Name, e.m.Target.Name)
	var body []jen.Code
	if bm.ValidateBefore != "" {
		body = append(body, jen.If(
			jen.Err().Op(":=").Add(e.conv.source(bm.ValidateBefore)).Call(jen.Id("b")),
			jen.Err().Op("!=").Nil(),
		).Block(e.fail("")))
	}
	body = append(body, jen.Var().Id("out").Add(e.targetRef()))
	if bm.WholeDefault != "" {
		body = append(body, jen.Id("defaults").Op(":=").Qual("sync", "OnceValue").Call(
			jen.Func().Params().Add(e.targetRef()).Block(jen.Return(e.conv.source(bm.WholeDefault))),
		))
	}
	for _, in := range bm.Initializers {
		body = append(body, e.initializer(in)...)
	}
	if bm.ValidateAfter != "" {
		body = append(body, jen.If(
			jen.Err().Op(":=").Add(e.conv.source(bm.ValidateAfter)).Call(jen.Op("&").Id("out")),
			jen.Err().Op("!=").Nil(),
		).Block(e.fail("")))
	}
	body = append(body, jen.Return(jen.Id("out"), jen.Nil()))

	e.f.Func().Params(e.receiver(bm.Pattern)).Id(bm.Name).Params().
		Params(e.targetRef(), jen.Error()).Block(body...)
}

func (e *emitter) fallback(in model.Initializer) []jen.Code {
	dst := jen.Id("out").Dot(in.Target)
	switch in.Fallback {
	case model.FallbackExpr:
		return []jen.Code{dst.Op("=").Add(e.conv.source(in.Expr))}
	case model.FallbackWhole:
		return []jen.Code{dst.Op("=").Id("defaults").Call().Dot(in.Target)}
	case model.FallbackUninitialized:
		return []jen.Code{e.fail(in.Target)}
	}
	return nil
}

func (e *emitter) initializer(in model.Initializer) []jen.Code {
	if in.Field == "" {
		return e.fallback(in)
	}
	read := collectionClone(in.CloneCollection, jen.Id("b").Dot(in.Field))
	set := jen.Id("out").Dot(in.Target).Op("=").Add(read)
	if in.Presence == "" {
		return []jen.Code{set}
	}
	present := jen.Id("b").Dot(in.Presence)
	if in.Fallback == model.FallbackUninitialized {
		return []jen.Code{
			jen.If(jen.Op("!").Add(present)).Block(e.fail(in.Target)),
			set,
		}
	}
	return []jen.Code{jen.If(present).Block(set).Else().Block(e.fallback(in)...)}
}
