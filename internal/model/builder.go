package model

import (
	"fmt"
	"go/token"
	"strings"

	"golang.org/x/mod/module"
)

// Pattern selects how setters and the build method take and return the
// builder.
type Pattern int

const (
	PatternMutable   Pattern = iota // func (b *B) X(v T) *B, in place
	PatternOwned                    // func (b B) X(v T) B, by value
	PatternImmutable                // func (b *B) X(v T) *B, on a clone
)

// ParsePattern maps the attribute literal to a Pattern.
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "mutable":
		return PatternMutable, nil
	case "owned":
		return PatternOwned, nil
	case "immutable":
		return PatternImmutable, nil
	}
	return PatternMutable, fmt.Errorf("unknown pattern %q", s)
}

func (p Pattern) String() string {
	switch p {
	case PatternOwned:
		return "owned"
	case PatternImmutable:
		return "immutable"
	default:
		return "mutable"
	}
}

// PointerReceiver reports whether methods take *B.
func (p Pattern) PointerReceiver() bool { return p != PatternOwned }

// ClonesOnSet reports whether setters work on a copy of the receiver.
func (p Pattern) ClonesOnSet() bool { return p == PatternImmutable }

// RequiresClone reports whether the builder must be able to duplicate
// itself: chaining patterns share the receiver, so the build method and
// immutable setters copy collections out of it.
func (p Pattern) RequiresClone() bool { return p != PatternOwned }

func (p Pattern) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Storage is the shape of one builder storage slot.
type Storage int

const (
	StorageTracked Storage = iota // value plus presence flag
	StoragePlain                  // value only, zero value is the default
)

func (s Storage) String() string {
	if s == StoragePlain {
		return "plain"
	}
	return "tracked"
}

func (s Storage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SetterKind is the body shape of a generated setter.
type SetterKind int

const (
	SetterDirect SetterKind = iota // assign value
	SetterEach                     // append / insert one element
	SetterTry                      // fallible conversion
)

func (k SetterKind) String() string {
	switch k {
	case SetterEach:
		return "each"
	case SetterTry:
		return "try"
	default:
		return "direct"
	}
}

func (k SetterKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Fallback is what the build method does when a field was never set.
type Fallback int

const (
	FallbackUninitialized Fallback = iota // fail with an uninitialized field error
	FallbackExpr                          // field-level default expression
	FallbackZero                          // zero value of the field type
	FallbackWhole                         // field of the lazily built whole default
)

func (f Fallback) String() string {
	switch f {
	case FallbackExpr:
		return "expr"
	case FallbackZero:
		return "zero"
	case FallbackWhole:
		return "whole"
	default:
		return "uninitialized"
	}
}

func (f Fallback) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// BuilderModel is the emission-ready description of one builder. It is
// owned by the synthesizer until handed to the emitter.
type BuilderModel struct {
	Name        string            `yaml:"name"`
	Target      Target            `yaml:"target"`
	Pattern     Pattern           `yaml:"pattern"`
	Doc         []string          `yaml:"doc,omitempty"`
	Fields      []BuilderField    `yaml:"fields"`
	Setters     []Setter          `yaml:"setters"`
	Build       *BuildMethod      `yaml:"build,omitempty"`
	Constructor *Constructor      `yaml:"constructor,omitempty"`
	Clone       *CloneMethod      `yaml:"clone,omitempty"`
	Stringer    bool              `yaml:"stringer,omitempty"`
	ErrorType   *ErrorType        `yaml:"error_type,omitempty"`
	Standalone  bool              `yaml:"standalone,omitempty"`
	Imports     map[string]string `yaml:"-"`
	Scope       map[string]bool   `yaml:"-"`
}

// Target is the struct the builder produces.
type Target struct {
	Name       string      `yaml:"name"`
	PkgName    string      `yaml:"package"`
	PkgPath    string      `yaml:"package_path,omitempty"`
	TypeParams []TypeParam `yaml:"type_params,omitempty"`
}

// BuilderField is one storage slot on the builder.
type BuilderField struct {
	Name         string         `yaml:"name"`
	PresenceName string         `yaml:"presence,omitempty"` // empty for plain storage
	Source       string         `yaml:"source"`             // target struct field
	Type         TypeExpr       `yaml:"type"`
	Storage      Storage        `yaml:"storage"`
	Collection   CollectionKind `yaml:"-"`
}

// Setter is one generated setter method.
type Setter struct {
	Name        string     `yaml:"name"`
	Field       string     `yaml:"field"` // builder storage name
	Kind        SetterKind `yaml:"kind"`
	Pattern     Pattern    `yaml:"pattern"`
	Into        bool       `yaml:"into,omitempty"`
	StripOption bool       `yaml:"strip_option,omitempty"`
	// ParamType is the value type accepted, after stripping and before
	// conversion wrapping. For map each-setters it is the map value type.
	ParamType TypeExpr `yaml:"param_type"`
	KeyType   TypeExpr `yaml:"key_type,omitempty"`
	Doc       []string `yaml:"doc,omitempty"`
}

// BuildMethod is the finalizing conversion.
type BuildMethod struct {
	Name           string        `yaml:"name"`
	Pattern        Pattern       `yaml:"pattern"`
	Initializers   []Initializer `yaml:"initializers"`
	ValidateBefore string        `yaml:"validate_before,omitempty"`
	ValidateAfter  string        `yaml:"validate_after,omitempty"`
	WholeDefault   string        `yaml:"whole_default,omitempty"`
	CustomError    *TypeRef      `yaml:"custom_error,omitempty"`
}

// NeedsWholeDefault reports whether any initializer reads the whole default.
func (b *BuildMethod) NeedsWholeDefault() bool {
	for _, in := range b.Initializers {
		if in.Fallback == FallbackWhole {
			return true
		}
	}
	return false
}

// Initializer fills one target field.
type Initializer struct {
	Target   string   `yaml:"target"`             // struct field
	Field    string   `yaml:"field,omitempty"`    // builder storage, empty when skipped
	Presence string   `yaml:"presence,omitempty"` // presence flag, empty for plain storage
	Type     TypeExpr `yaml:"type"`
	Fallback Fallback `yaml:"fallback"`
	Expr     string   `yaml:"expr,omitempty"` // FallbackExpr only
	// CloneCollection copies a slice or map out of a shared builder.
	CloneCollection CollectionKind `yaml:"-"`
}

// Constructor is the function returning an empty builder.
type Constructor struct {
	Name string `yaml:"name"`
}

// CloneMethod duplicates the builder, copying collection storage.
type CloneMethod struct {
	Name string `yaml:"name"`
}

// ErrorType is the error type generated next to the builder.
type ErrorType struct {
	Name string `yaml:"name"`
}

// TypeRef names a possibly package-qualified type.
type TypeRef struct {
	PkgPath string `yaml:"package_path,omitempty"`
	Name    string `yaml:"name"`
}

func (t TypeRef) String() string {
	if t.PkgPath == "" {
		return t.Name
	}
	return t.PkgPath + "." + t.Name
}

// ParseTypeRef parses "Name" or "import/path.Name".
func ParseTypeRef(s string) (TypeRef, error) {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		if !token.IsIdentifier(s) {
			return TypeRef{}, fmt.Errorf("%q is not a type name", s)
		}
		return TypeRef{Name: s}, nil
	}
	if slash := strings.LastIndex(s, "/"); slash > i {
		return TypeRef{}, fmt.Errorf("%q has no type name after the import path", s)
	}
	ref := TypeRef{PkgPath: s[:i], Name: s[i+1:]}
	if !token.IsIdentifier(ref.Name) {
		return TypeRef{}, fmt.Errorf("%q is not a type name", ref.Name)
	}
	if err := module.CheckImportPath(ref.PkgPath); err != nil {
		return TypeRef{}, err
	}
	return ref, nil
}

// Field returns the storage slot called name.
func (m *BuilderModel) Field(name string) (BuilderField, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return BuilderField{}, false
}
