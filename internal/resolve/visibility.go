package resolve

import (
	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/options"
)

// Visibility is the resolved export state of a generated identifier.
type Visibility int

const (
	Inherit  Visibility = iota // not written at this scope
	Public                     // exported
	Private                    // unexported
	Conflict                   // public and private both requested
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Private:
		return "private"
	case Conflict:
		return "conflict"
	default:
		return "inherit"
	}
}

// Apply cases name for v. Conflict and Inherit leave it untouched.
func (v Visibility) Apply(name string) string {
	switch v {
	case Public:
		return model.Export(name)
	case Private:
		return model.Unexport(name)
	}
	return name
}

// Or returns v unless it is Inherit.
func (v Visibility) Or(fallback Visibility) Visibility {
	if v == Inherit {
		return fallback
	}
	return v
}

// VisibilityAt reads the public/private pair under prefix. `public = false`
// asks for private and `private = false` for public.
func VisibilityAt(set *options.Set, prefix string) Visibility {
	var pub, priv bool
	switch set.Get(prefix + "public").State {
	case options.Enabled:
		pub = true
	case options.Disabled:
		priv = true
	}
	switch set.Get(prefix + "private").State {
	case options.Enabled:
		priv = true
	case options.Disabled:
		pub = true
	}
	switch {
	case pub && priv:
		return Conflict
	case pub:
		return Public
	case priv:
		return Private
	}
	return Inherit
}

func visibilityOf(name string) Visibility {
	if model.IsExported(name) {
		return Public
	}
	return Private
}
