// Package validate rejects resolved configurations that cannot produce a
// coherent builder.
package validate

import (
	"fmt"
	"go/parser"
	"go/token"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/options"
	"github.com/cmmoran/buildergen/internal/resolve"
)

// Code classifies a validation failure.
type Code string

const (
	VisibilityConflict Code = "visibility-conflict"
	BuildFnSkipped     Code = "build-fn-skipped"
	MissingDefault     Code = "missing-default"
	NotOptional        Code = "strip-option-not-pointer"
	NotCollection      Code = "each-not-collection"
	ReservedTypeParam  Code = "reserved-type-param"
	DefaultOverlap     Code = "default-overlap"
	SkippedSetter      Code = "skipped-setter"
	InvalidIdentifier  Code = "invalid-identifier"
	InvalidExpression  Code = "invalid-expression"
	UnknownDerive      Code = "unknown-derive"
	InvalidErrorType   Code = "invalid-error-type"
	DuplicateName      Code = "duplicate-name"
	MissingSetting     Code = "missing-setting"
	ConstructorSkipped Code = "constructor-skipped"
)

// ValidationError is one rejected combination.
type ValidationError struct {
	Struct string
	Field  string
	Pos    model.Pos
	Code   Code
	Msg    string
}

func (e *ValidationError) Error() string {
	where := e.Struct
	if e.Field != "" {
		where += "." + e.Field
	}
	return fmt.Sprintf("%s: %s: %s (%s)", e.Pos, where, e.Msg, e.Code)
}

// Reserved are the identifiers every generated method scope binds. A type
// parameter with one of these names would shadow them.
var Reserved = []string{"b", "value", "item", "key", "out", "err", "defaults", "fmt", "slices", "maps", "sync", "builderkit"}

// Derives are the capabilities derive accepts.
var Derives = []string{"Clone", "String"}

// Validate checks r and returns every independent problem, combined with
// multierr. A nil result means synthesis cannot fail on r.
func Validate(r *resolve.Resolved) error {
	v := &validator{r: r}
	v.build()
	for i := range r.Fields {
		v.field(&r.Fields[i])
	}
	v.names()
	return v.errs
}

type validator struct {
	r    *resolve.Resolved
	errs error
	// fields whose naming is already known to be broken
	tainted map[int]bool
}

func (v *validator) fail(field string, pos model.Pos, code Code, format string, args ...any) {
	v.errs = multierr.Append(v.errs, &ValidationError{
		Struct: v.r.Build.Struct,
		Field:  field,
		Pos:    pos,
		Code:   code,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func (v *validator) taint(i int) {
	if v.tainted == nil {
		v.tainted = make(map[int]bool)
	}
	v.tainted[i] = true
}

// at returns the position of the first written key, else fallback.
func at(set *options.Set, fallback model.Pos, keys ...string) model.Pos {
	for _, k := range keys {
		if o := set.Get(k); o.Explicit() {
			return o.Pos()
		}
	}
	return fallback
}

func (v *validator) build() {
	b := &v.r.Build
	s := b.Options

	if b.Visibility == resolve.Conflict {
		v.fail("", at(s, b.Pos, "public"), VisibilityConflict, "builder is both public and private")
	} else {
		v.ident("", at(s, b.Pos, "name"), "builder name", b.Name)
		if n := s.Get("constructor.name"); n.Explicit() && !b.Constructor.Skip {
			v.ident("", n.Pos(), "constructor name", b.Constructor.Name)
		}
	}
	if n := s.Get("constructor.name"); n.Explicit() && b.Constructor.Skip {
		v.fail("", n.Pos(), ConstructorSkipped, "constructor.name has no effect: the constructor is skipped")
	}
	if b.FieldVisibility == resolve.Conflict {
		v.fail("", at(s, b.Pos, "field.public"), VisibilityConflict, "builder fields are both public and private")
	}

	for _, tp := range b.TypeParams {
		if slices.Contains(Reserved, tp.Name) {
			v.fail("", b.Pos, ReservedTypeParam, "type parameter %s collides with a name reserved by generated methods", tp.Name)
		}
	}
	for _, d := range b.Derives {
		if !slices.Contains(Derives, d) {
			v.fail("", at(s, b.Pos, "derive"), UnknownDerive, "cannot derive %s; supported: %s", d, strings.Join(Derives, ", "))
		}
	}
	if b.Default.Kind == resolve.WholeDefault {
		v.expr("", at(s, b.Pos, "default"), b.Default.Expr)
	}

	if b.BuildFn.Skip {
		for _, k := range []string{"build_fn.name", "build_fn.validate", "build_fn.error", "build_fn.public", "build_fn.private"} {
			if o := s.Get(k); o.Explicit() {
				v.fail("", o.Pos(), BuildFnSkipped, "%s has no effect: build_fn is skipped", k)
			}
		}
		return
	}

	ownVis := resolve.VisibilityAt(s, "build_fn.")
	switch {
	case ownVis == resolve.Conflict:
		v.fail("", at(s, b.Pos, "build_fn.public"), VisibilityConflict, "build method is both public and private")
	case b.BuildFn.Visibility != resolve.Conflict:
		v.ident("", at(s, b.Pos, "build_fn.name"), "build method name", b.BuildFn.Name)
	}
	switch {
	case b.BuildFn.Validate != "":
		v.qualified("", at(s, b.Pos, "build_fn.validate"), "validation function", b.BuildFn.Validate)
	case s.Get("build_fn.validate").IsSet():
		v.fail("", at(s, b.Pos, "build_fn.validate"), MissingSetting, "build_fn.validate needs a function name")
	}
	if b.BuildFn.Error != "" {
		pos := at(s, b.Pos, "build_fn.error")
		if _, err := model.ParseTypeRef(b.BuildFn.Error); err != nil {
			v.fail("", pos, InvalidErrorType, "build_fn error: %v", err)
		} else if b.Standalone {
			v.fail("", pos, InvalidErrorType, "a custom error type needs the builderkit runtime; drop standalone")
		}
	}
}

func (v *validator) field(f *resolve.Field) {
	s := f.Options
	b := &v.r.Build

	if resolve.VisibilityAt(s, "") == resolve.Conflict {
		v.fail(f.Name, at(s, f.Pos, "public"), VisibilityConflict, "setter is both public and private")
		v.taint(f.Index)
	} else if f.SetterVisibility == resolve.Conflict {
		// reported on the struct
		v.taint(f.Index)
	}
	if resolve.VisibilityAt(s, "field.") == resolve.Conflict {
		v.fail(f.Name, at(s, f.Pos, "field.public"), VisibilityConflict, "builder field is both public and private")
		v.taint(f.Index)
	} else if f.FieldVisibility == resolve.Conflict {
		v.taint(f.Index)
	}

	skipExplicit := s.Get("setter.skip").IsSet()
	switch {
	case f.Custom && skipExplicit:
		v.fail(f.Name, at(s, f.Pos, "setter.custom"), SkippedSetter, "setter cannot be both custom and skipped")
	case skipExplicit:
		for _, k := range resolve.SetterKeys {
			if o := s.Get(k); o.Explicit() {
				v.fail(f.Name, o.Pos(), SkippedSetter, "%s has no effect: the setter is skipped", k)
			}
		}
	}

	if f.Skip && !f.Custom && f.Default.Kind == resolve.NoDefault && b.Default.Kind != resolve.WholeDefault {
		v.fail(f.Name, at(s, f.Pos, "setter.skip"), MissingDefault, "field %s has no setter and no default", f.Name)
	}
	if f.Default.Explicit && b.Default.Kind == resolve.WholeDefault {
		v.fail(f.Name, at(s, f.Pos, "default"), DefaultOverlap, "field default conflicts with the struct's whole-instance default")
	}
	if f.Default.Kind == resolve.ExprDefault {
		v.expr(f.Name, at(s, f.Pos, "default"), f.Default.Expr)
	}

	if f.Skip {
		return
	}
	if f.StripOption && !f.Type.IsPointer() {
		v.fail(f.Name, at(s, f.Pos, "setter.strip_option"), NotOptional, "strip_option needs a pointer type, field is %s", f.Type)
	}
	if f.Each != nil && f.Type.Collection() == model.NotCollection {
		v.fail(f.Name, at(s, f.Pos, "setter.each"), NotCollection, "each needs a slice or map type, field is %s", f.Type)
	}
	if f.Prefix != "" && s.Get("setter.prefix").Explicit() {
		v.ident(f.Name, at(s, f.Pos, "setter.prefix"), "setter prefix", f.Prefix)
	}
	if !v.tainted[f.Index] {
		if f.SetterEnabled() {
			v.ident(f.Name, at(s, f.Pos, "setter.name"), "setter name", f.SetterName)
		}
		if f.Each != nil {
			v.ident(f.Name, at(s, f.Pos, "setter.each"), "each setter name", f.Each.Name)
		}
	}
}

// names reports generated members that would share a name. Fields and
// methods share one namespace on the builder type.
func (v *validator) names() {
	seen := make(map[string]string)
	claim := func(field, name, what string, pos model.Pos) {
		if name == "" {
			return
		}
		if prev, dup := seen[name]; dup {
			v.fail(field, pos, DuplicateName, "%s %s collides with %s", what, name, prev)
			return
		}
		seen[name] = what + " of " + orStruct(field)
	}

	b := &v.r.Build
	if !b.BuildFn.Skip && b.BuildFn.Visibility != resolve.Conflict {
		claim("", b.BuildFn.Name, "build method", b.Pos)
	}
	if v.r.NeedsClone() {
		claim("", "Clone", "clone method", b.Pos)
	}
	if b.HasDerive("String") {
		claim("", "String", "string method", b.Pos)
	}
	for i := range v.r.Fields {
		f := &v.r.Fields[i]
		if f.Skip || v.tainted[f.Index] {
			continue
		}
		claim(f.Name, f.StorageName, "builder field", f.Pos)
		if f.Tracked() {
			claim(f.Name, f.PresenceName(), "presence flag", f.Pos)
		}
		if f.SetterEnabled() {
			claim(f.Name, f.SetterName, "setter", f.Pos)
			if f.TrySetter {
				claim(f.Name, f.TrySetterName(), "try setter", f.Pos)
			}
		}
		if f.Each != nil {
			claim(f.Name, f.Each.Name, "each setter", f.Pos)
		}
	}
}

func orStruct(field string) string {
	if field == "" {
		return "the builder"
	}
	return field
}

func (v *validator) ident(field string, pos model.Pos, what, name string) {
	if !token.IsIdentifier(name) {
		v.fail(field, pos, InvalidIdentifier, "%s %q is not a Go identifier", what, name)
	}
}

// qualified accepts ident or pkg.ident.
func (v *validator) qualified(field string, pos model.Pos, what, name string) {
	for _, part := range strings.Split(name, ".") {
		if !token.IsIdentifier(part) {
			v.fail(field, pos, InvalidIdentifier, "%s %q is not a Go identifier", what, name)
			return
		}
	}
}

func (v *validator) expr(field string, pos model.Pos, src string) {
	if _, err := parser.ParseExpr(src); err != nil {
		v.fail(field, pos, InvalidExpression, "default %q is not a Go expression: %v", src, err)
	}
}
