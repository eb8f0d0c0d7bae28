package options

import (
	"maps"
	"slices"

	"github.com/cmmoran/buildergen/internal/model"
)

// State distinguishes an option that was never written from one that was
// explicitly switched off.
type State int

const (
	Unset State = iota
	Disabled
	Enabled
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "set"
	default:
		return "unset"
	}
}

// Option is the state of one dotted key plus its payload. Flags carry a
// KindFlag payload; valued options carry KindString or KindList.
type Option struct {
	State State
	Value Value
}

// IsSet reports whether the option holds an explicit value or flag.
func (o Option) IsSet() bool { return o.State == Enabled }

// Explicit reports whether the option was written at all.
func (o Option) Explicit() bool { return o.State != Unset }

// Str returns the string payload.
func (o Option) Str() string {
	if o.State != Enabled {
		return ""
	}
	return o.Value.Str
}

// Bool turns a flag option into a tri-state: nil when unset.
func (o Option) Bool() *bool {
	switch o.State {
	case Enabled:
		t := true
		return &t
	case Disabled:
		f := false
		return &f
	}
	return nil
}

func (o Option) Pos() model.Pos { return o.Value.Pos }

// Set maps dotted keys ("setter.into", "build_fn.name") to options. A
// missing key is Unset.
type Set struct {
	scope Scope
	opts  map[string]Option
}

// NewSet returns an empty set for scope.
func NewSet(scope Scope) *Set {
	return &Set{scope: scope, opts: make(map[string]Option)}
}

func (s *Set) Scope() Scope { return s.scope }

// Get returns the option stored under key, Unset when absent.
func (s *Set) Get(key string) Option {
	if s == nil {
		return Option{}
	}
	return s.opts[key]
}

// Lookup is Get with a presence report.
func (s *Set) Lookup(key string) (Option, bool) {
	if s == nil {
		return Option{}, false
	}
	o, ok := s.opts[key]
	return o, ok
}

// Put stores an option. It reports false when the key was already written.
func (s *Set) Put(key string, o Option) bool {
	if _, dup := s.opts[key]; dup {
		return false
	}
	s.opts[key] = o
	return true
}

// Keys returns the written keys in sorted order.
func (s *Set) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.opts))
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.opts)
}

// HasPrefix reports whether any key lives under prefix ("setter" matches
// "setter.into").
func (s *Set) HasPrefix(prefix string) bool {
	if s == nil {
		return false
	}
	for k := range s.opts {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix && k[len(prefix)] == '.' {
			return true
		}
	}
	return false
}

// Equal compares two sets ignoring source positions.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, k := range s.Keys() {
		a, b := s.opts[k], o.Get(k)
		if a.State != b.State || !a.Value.Equal(b.Value) {
			return false
		}
	}
	return true
}
