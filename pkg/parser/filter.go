package parser

import (
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SelectsFile reports whether the Go file at path is read. Relative paths
// are taken relative to InDir.
func (o *Options) SelectsFile(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(o.InDir, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	// never read our own output
	if strings.HasSuffix(rel, o.OutSuffix) || strings.HasSuffix(rel, strings.TrimSuffix(o.OutSuffix, ".go")+"_test.go") {
		return false
	}
	if !o.Tests && strings.HasSuffix(rel, "_test.go") {
		return false
	}
	if len(o.Include) > 0 && !matchAny(o.Include, rel) {
		return false
	}
	return !matchAny(o.Exclude, rel)
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// selectsType applies the type name and deprecation filters.
func (o *Options) selectsType(name string, doc []string) bool {
	if len(o.Types) > 0 && !containsFold(o.Types, name) {
		return false
	}
	if containsFold(o.ExcludeTypes, name) {
		return false
	}
	return !o.ExcludeDeprecated || !deprecated(doc)
}

func containsFold(names []string, name string) bool {
	return slices.ContainsFunc(names, func(n string) bool {
		return strings.EqualFold(n, name)
	})
}

func deprecated(doc []string) bool {
	for _, l := range doc {
		if strings.HasPrefix(l, "Deprecated:") || strings.HasPrefix(l, "deprecated:") {
			return true
		}
	}
	return false
}

// directive returns the attribute text of a `//<Directive>` comment line.
func (o *Options) directive(comment string) (string, bool) {
	text, ok := strings.CutPrefix(comment, "//")
	if !ok {
		return "", false
	}
	return strings.CutPrefix(text, o.Directive)
}

// tagAttr returns the value of the builder key in a raw struct tag literal
// and its byte offset inside the literal, or -1 when the offset cannot be
// mapped back to source (interpreted string literals with escapes).
func (o *Options) tagAttr(lit string) (string, int, bool) {
	raw, err := strconv.Unquote(lit)
	if err != nil {
		return "", 0, false
	}
	val, ok := reflect.StructTag(raw).Lookup(o.Tag)
	if !ok {
		return "", 0, false
	}
	off := -1
	if strings.HasPrefix(lit, "`") {
		if i := strings.Index(lit, o.Tag+`:"`); i >= 0 {
			off = i + len(o.Tag) + 2
		}
	}
	return val, off, true
}
