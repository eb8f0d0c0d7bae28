// Package options is the typed model of builder configuration: raw
// attribute values, option sets with an explicit unset state, and the
// static table of recognized keys.
package options

import (
	"strings"

	"github.com/cmmoran/buildergen/internal/model"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindFlag   Kind = iota // bare key
	KindBool               // key = true|false
	KindString             // key = "literal"
	KindGroup              // key(item, ...)
	KindList               // normalized group of bare identifiers
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindGroup:
		return "group"
	case KindList:
		return "list"
	default:
		return "flag"
	}
}

// Value is a recursive attribute value: flag, bool, string, nested group
// or, after normalization, a list of identifiers.
type Value struct {
	Kind  Kind
	Bool  bool
	Str   string
	Items []Item   // KindGroup
	List  []string // KindList
	Pos   model.Pos
}

// Item is one `path [= value | (group)]` entry of an attribute group.
type Item struct {
	Path  []string
	Value Value
	Pos   model.Pos
}

// Key joins the item path with dots.
func (i Item) Key() string {
	return strings.Join(i.Path, ".")
}

// Equal compares two values ignoring positions.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Bool != o.Bool || v.Str != o.Str {
		return false
	}
	if len(v.List) != len(o.List) || len(v.Items) != len(o.Items) {
		return false
	}
	for i := range v.List {
		if v.List[i] != o.List[i] {
			return false
		}
	}
	for i := range v.Items {
		if v.Items[i].Key() != o.Items[i].Key() || !v.Items[i].Value.Equal(o.Items[i].Value) {
			return false
		}
	}
	return true
}

func Flag(pos model.Pos) Value            { return Value{Kind: KindFlag, Pos: pos} }
func String(s string, pos model.Pos) Value { return Value{Kind: KindString, Str: s, Pos: pos} }
func List(ids []string, pos model.Pos) Value {
	return Value{Kind: KindList, List: append([]string(nil), ids...), Pos: pos}
}
