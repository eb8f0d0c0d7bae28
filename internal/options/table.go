package options

import "strings"

// Scope is where an attribute appears.
type Scope uint8

const (
	StructScope Scope = 1 << iota
	FieldScope

	AnyScope = StructScope | FieldScope
)

func (s Scope) String() string {
	switch s {
	case StructScope:
		return "struct"
	case FieldScope:
		return "field"
	default:
		return "struct/field"
	}
}

// Shape is the set of syntactic forms a key accepts.
type Shape uint8

const (
	ShapeFlag   Shape = 1 << iota // key, key = true|false
	ShapeString                   // key = "literal"
	ShapeGroup                    // key(sub, ...)
	ShapeList                     // key(Ident, Ident, ...)
)

func (s Shape) String() string {
	var parts []string
	if s&ShapeFlag != 0 {
		parts = append(parts, "flag")
	}
	if s&ShapeString != 0 {
		parts = append(parts, "string")
	}
	if s&ShapeGroup != 0 {
		parts = append(parts, "group")
	}
	if s&ShapeList != 0 {
		parts = append(parts, "list")
	}
	return strings.Join(parts, " or ")
}

// Spec describes one recognized key.
type Spec struct {
	Shapes Shape
	Scopes Scope
	// Inherit marks keys whose struct-level value flows into fields.
	Inherit bool
	// Enum restricts string payloads.
	Enum []string
	// Children are the keys accepted inside key(...).
	Children map[string]*Spec
	// Record stores the group key itself as an enabled flag when it appears
	// in any form, so `each(name = "x")` leaves "setter.each" set.
	Record bool
	// ShortField is the child a string shorthand expands to:
	// `each = "x"` ≡ `each(name = "x")`.
	ShortField string
	// BareKey / BareState redirect a bare group key: the field-level word
	// `setter` means `setter(skip = false)`.
	BareKey   string
	BareState State
}

// Accepts reports whether the spec allows shape.
func (s *Spec) Accepts(shape Shape) bool { return s.Shapes&shape != 0 }

// Table is the static table of recognized keys. Adding an option is a new
// entry here plus its resolution accessor.
var Table = map[string]*Spec{
	"pattern": {Shapes: ShapeString, Scopes: AnyScope, Inherit: true, Enum: []string{"owned", "mutable", "immutable"}},
	"name":    {Shapes: ShapeString, Scopes: StructScope},
	"public":  {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
	"private": {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
	"setter": {
		Shapes:    ShapeFlag | ShapeGroup,
		Scopes:    AnyScope,
		BareKey:   "setter.skip",
		BareState: Disabled,
		Children: map[string]*Spec{
			"into":         {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
			"strip_option": {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
			"skip":         {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
			"prefix":       {Shapes: ShapeString, Scopes: AnyScope, Inherit: true},
			"name":         {Shapes: ShapeString, Scopes: FieldScope},
			"custom":       {Shapes: ShapeFlag, Scopes: FieldScope},
			"each": {
				Shapes:     ShapeFlag | ShapeString | ShapeGroup,
				Scopes:     FieldScope,
				Record:     true,
				ShortField: "name",
				Children: map[string]*Spec{
					"name": {Shapes: ShapeString, Scopes: FieldScope},
					"into": {Shapes: ShapeFlag, Scopes: FieldScope},
				},
			},
		},
	},
	"default": {Shapes: ShapeFlag | ShapeString, Scopes: AnyScope},
	"derive":  {Shapes: ShapeList, Scopes: StructScope},
	"build_fn": {
		Shapes: ShapeGroup,
		Scopes: StructScope,
		Children: map[string]*Spec{
			"name":    {Shapes: ShapeString, Scopes: StructScope},
			"skip":    {Shapes: ShapeFlag, Scopes: StructScope},
			"public":  {Shapes: ShapeFlag, Scopes: StructScope},
			"private": {Shapes: ShapeFlag, Scopes: StructScope},
			"error":   {Shapes: ShapeString, Scopes: StructScope},
			"validate": {
				Shapes:     ShapeString | ShapeGroup,
				Scopes:     StructScope,
				Record:     true,
				ShortField: "name",
				Children: map[string]*Spec{
					"name":  {Shapes: ShapeString, Scopes: StructScope},
					"stage": {Shapes: ShapeString, Scopes: StructScope, Enum: []string{"before", "after"}},
				},
			},
		},
	},
	"field": {
		Shapes: ShapeGroup,
		Scopes: AnyScope,
		Children: map[string]*Spec{
			"public":  {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
			"private": {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
		},
	},
	"try_setter": {Shapes: ShapeFlag, Scopes: AnyScope, Inherit: true},
	"standalone": {Shapes: ShapeFlag, Scopes: StructScope},
	"constructor": {
		Shapes:     ShapeString | ShapeGroup,
		Scopes:     StructScope,
		Record:     true,
		ShortField: "name",
		Children: map[string]*Spec{
			"name": {Shapes: ShapeString, Scopes: StructScope},
			"skip": {Shapes: ShapeFlag, Scopes: StructScope},
		},
	},
}

// Lookup walks the table along a dotted key.
func Lookup(key string) (*Spec, bool) {
	parts := strings.Split(key, ".")
	level := Table
	var spec *Spec
	for _, p := range parts {
		s, ok := level[p]
		if !ok {
			return nil, false
		}
		spec = s
		level = s.Children
	}
	return spec, spec != nil
}

// Inherited reports whether a struct-level value of key flows into fields.
func Inherited(key string) bool {
	s, ok := Lookup(key)
	return ok && s.Inherit
}
