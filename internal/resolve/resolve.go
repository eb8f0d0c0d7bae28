// Package resolve merges struct-level options into every field and applies
// built-in defaults.
package resolve

import (
	"fmt"
	"slices"

	"github.com/jinzhu/inflection"

	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/options"
)

// DefaultKind is where a default value comes from.
type DefaultKind int

const (
	NoDefault    DefaultKind = iota
	ZeroDefault              // bare `default`: zero value of the type
	ExprDefault              // field `default = "expr"`
	WholeDefault             // struct `default = "expr"`: one instance for all fields
)

func (k DefaultKind) String() string {
	switch k {
	case ZeroDefault:
		return "zero"
	case ExprDefault:
		return "expr"
	case WholeDefault:
		return "whole"
	default:
		return "none"
	}
}

// Default is a resolved default value source.
type Default struct {
	Kind DefaultKind
	Expr string
	// Explicit is set when the field itself wrote `default`.
	Explicit bool
}

// Each is a resolved collection-append setter.
type Each struct {
	Name string
	Into bool
}

// Build is the struct-wide resolved configuration.
type Build struct {
	Struct     string
	Pos        model.Pos
	TypeParams []model.TypeParam

	Pattern    model.Pattern
	Name       string
	Visibility Visibility
	Derives    []string
	Default    Default
	Standalone bool

	BuildFn     BuildFn
	Constructor Constructor

	// FieldVisibility is the struct-level field.public/private pair.
	FieldVisibility Visibility

	Options *options.Set
}

// HasDerive reports whether name is in the derive list.
func (b *Build) HasDerive(name string) bool {
	return slices.Contains(b.Derives, name)
}

// BuildFn is the resolved finalizing method.
type BuildFn struct {
	Skip       bool
	Name       string
	Visibility Visibility
	Error      string
	Validate   string
	Stage      string // before or after
}

// Constructor is the resolved builder constructor.
type Constructor struct {
	Skip bool
	Name string
}

// Field is the resolved configuration of one field.
type Field struct {
	Index    int
	Name     string
	Type     model.TypeExpr
	Doc      []string
	Pos      model.Pos
	Embedded bool

	Pattern model.Pattern
	// Skip drops the field from builder storage and generates no setter.
	Skip bool
	// Custom keeps storage but leaves the setter to the user.
	Custom bool

	SetterName       string
	SetterVisibility Visibility
	Prefix           string
	Into             bool
	StripOption      bool
	TrySetter        bool
	Each             *Each

	StorageName     string
	FieldVisibility Visibility

	Default Default

	Options *options.Set
}

// StorageSuffix is appended to a storage name that equals one of the
// field's own setter names, as with a private setter over private storage.
const StorageSuffix = "Field"

// ownsMethod reports whether one of the field's generated setters is
// called name.
func (f *Field) ownsMethod(name string) bool {
	if f.SetterEnabled() && (f.SetterName == name || f.TrySetter && f.TrySetterName() == name) {
		return true
	}
	return f.Each != nil && f.Each.Name == name
}

// SetterEnabled reports whether a plain setter is generated.
func (f *Field) SetterEnabled() bool { return !f.Skip && !f.Custom }

// Tracked reports whether the field's storage carries a presence flag.
// Zero-defaulted fields need none.
func (f *Field) Tracked() bool { return !f.Skip && f.Default.Kind != ZeroDefault }

// PresenceName is the name of the presence flag of tracked storage.
func (f *Field) PresenceName() string { return f.StorageName + "Set" }

// TrySetterName is the name of the fallible setter variant.
func (f *Field) TrySetterName() string {
	return f.SetterVisibility.Apply("Try" + model.Export(f.SetterName))
}

// Resolved is the full resolution of one struct.
type Resolved struct {
	Build  Build
	Fields []Field
}

// NeedsClone reports whether the builder gets a Clone method: requested
// through derive, or required by a chaining pattern.
func (r *Resolved) NeedsClone() bool {
	if r.Build.HasDerive("Clone") || r.Build.Pattern.RequiresClone() {
		return true
	}
	for i := range r.Fields {
		if r.Fields[i].Pattern.RequiresClone() {
			return true
		}
	}
	return false
}

// Resolve merges structSet into each field set. fieldSets is aligned with
// desc.Fields; a nil entry is an empty set. The result depends only on the
// arguments.
func Resolve(desc *model.StructDescriptor, structSet *options.Set, fieldSets []*options.Set) (*Resolved, error) {
	if len(fieldSets) != len(desc.Fields) {
		return nil, fmt.Errorf("resolve %s: %d option sets for %d fields", desc.Name, len(fieldSets), len(desc.Fields))
	}
	if structSet == nil {
		structSet = options.NewSet(options.StructScope)
	}
	r := &Resolved{Build: resolveBuild(desc, structSet), Fields: make([]Field, len(desc.Fields))}
	for i, fd := range desc.Fields {
		fs := fieldSets[i]
		if fs == nil {
			fs = options.NewSet(options.FieldScope)
		}
		r.Fields[i] = resolveField(i, fd, structSet, fs, &r.Build)
	}
	return r, nil
}

func resolveBuild(desc *model.StructDescriptor, s *options.Set) Build {
	b := Build{
		Struct:     desc.Name,
		Pos:        desc.Pos,
		TypeParams: desc.TypeParams,
		Options:    s,
		Pattern:    model.PatternMutable,
		Standalone: s.Get("standalone").IsSet(),
	}
	if p := s.Get("pattern"); p.IsSet() {
		// enum checked by the parser
		b.Pattern, _ = model.ParsePattern(p.Str())
	}

	name := desc.Name + "Builder"
	vis := VisibilityAt(s, "")
	if n := s.Get("name"); n.IsSet() {
		name = n.Str()
		vis = vis.Or(visibilityOf(name))
	}
	b.Visibility = vis.Or(visibilityOf(desc.Name))
	b.Name = b.Visibility.Apply(name)

	if d := s.Get("derive"); d.IsSet() {
		b.Derives = d.Value.List
	}

	switch d := s.Get("default"); {
	case d.IsSet() && d.Value.Kind == options.KindString:
		b.Default = Default{Kind: WholeDefault, Expr: d.Str(), Explicit: true}
	case d.IsSet():
		b.Default = Default{Kind: ZeroDefault, Explicit: true}
	}

	b.BuildFn = BuildFn{
		Skip:       s.Get("build_fn.skip").IsSet(),
		Name:       "Build",
		Visibility: VisibilityAt(s, "build_fn.").Or(b.Visibility),
		Error:      s.Get("build_fn.error").Str(),
		Validate:   s.Get("build_fn.validate.name").Str(),
		Stage:      "after",
	}
	if n := s.Get("build_fn.name"); n.IsSet() {
		b.BuildFn.Name = n.Str()
	}
	b.BuildFn.Name = b.BuildFn.Visibility.Apply(b.BuildFn.Name)
	if st := s.Get("build_fn.validate.stage"); st.IsSet() {
		b.BuildFn.Stage = st.Str()
	}

	b.Constructor = Constructor{
		Skip: s.Get("constructor.skip").IsSet(),
		Name: b.Visibility.Apply("New" + model.Export(b.Name)),
	}
	if n := s.Get("constructor.name"); n.IsSet() {
		b.Constructor.Name = n.Str()
	}
	b.FieldVisibility = VisibilityAt(s, "field.")
	return b
}

// SetterKeys lists the field-level setter keys that switch a setter on even
// when the struct skips setters.
var SetterKeys = []string{"setter.prefix", "setter.name", "setter.into", "setter.strip_option", "setter.each"}

// pick returns the field option when written, else the inherited struct
// option.
func pick(field, strct *options.Set, key string) options.Option {
	if o := field.Get(key); o.Explicit() {
		return o
	}
	if options.Inherited(key) {
		return strct.Get(key)
	}
	return options.Option{}
}

func resolveField(i int, fd model.FieldDescriptor, s, f *options.Set, b *Build) Field {
	rf := Field{
		Index:    i,
		Name:     fd.Name,
		Type:     fd.Type,
		Doc:      fd.Doc,
		Pos:      fd.Pos,
		Embedded: fd.Embedded,
		Options:  f,
		Pattern:  b.Pattern,
	}
	if p := f.Get("pattern"); p.IsSet() {
		rf.Pattern, _ = model.ParsePattern(p.Str())
	}

	rf.Custom = f.Get("setter.custom").IsSet()
	switch skip := f.Get("setter.skip"); {
	case skip.Explicit():
		rf.Skip = skip.IsSet()
	case rf.Custom || anyWritten(f, SetterKeys):
		rf.Skip = false
	default:
		rf.Skip = s.Get("setter.skip").IsSet()
	}

	rf.Into = pick(f, s, "setter.into").IsSet()
	rf.StripOption = pick(f, s, "setter.strip_option").IsSet()
	if rf.StripOption && !f.Get("setter.strip_option").Explicit() && !fd.Type.IsPointer() {
		// an inherited strip_option only applies to pointer fields
		rf.StripOption = false
	}
	rf.TrySetter = pick(f, s, "try_setter").IsSet()
	rf.Prefix = pick(f, s, "setter.prefix").Str()

	rf.SetterVisibility = VisibilityAt(f, "").Or(VisibilityAt(s, "")).Or(Public)
	base := fd.Name
	if rf.Prefix != "" {
		base = rf.Prefix + model.Export(fd.Name)
	}
	if n := f.Get("setter.name"); n.IsSet() {
		base = n.Str()
	}
	rf.SetterName = rf.SetterVisibility.Apply(base)

	if f.Get("setter.each").IsSet() {
		name := f.Get("setter.each.name").Str()
		if name == "" {
			name = inflection.Singular(fd.Name)
		}
		rf.Each = &Each{
			Name: rf.SetterVisibility.Apply(name),
			Into: f.Get("setter.each.into").IsSet(),
		}
	}

	rf.FieldVisibility = VisibilityAt(f, "field.").Or(b.FieldVisibility).Or(Private)
	rf.StorageName = rf.FieldVisibility.Apply(fd.Name)
	if rf.ownsMethod(rf.StorageName) {
		// fields and methods share the builder's namespace
		rf.StorageName += StorageSuffix
	}

	switch d := f.Get("default"); {
	case d.IsSet() && d.Value.Kind == options.KindString:
		rf.Default = Default{Kind: ExprDefault, Expr: d.Str(), Explicit: true}
	case d.IsSet():
		rf.Default = Default{Kind: ZeroDefault, Explicit: true}
	case d.State == options.Disabled:
		// `default = false` opts out of the struct's per-field default
	case b.Default.Kind == ZeroDefault:
		rf.Default = Default{Kind: ZeroDefault}
	}
	return rf
}

func anyWritten(set *options.Set, keys []string) bool {
	for _, k := range keys {
		if set.Get(k).Explicit() {
			return true
		}
	}
	return false
}
