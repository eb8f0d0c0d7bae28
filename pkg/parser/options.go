package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var ErrBadOption = errors.New("invalid option")

// Options control package loading and struct selection.
//
// InDir             – directory packages are loaded from
// Patterns          – go/packages patterns, relative to InDir (default ./...)
// Include           – file globs (doublestar, relative to InDir); empty selects every file
// Exclude           – file globs to skip
// Types             – struct names to generate for (case‑insensitive); empty selects all annotated structs
// ExcludeTypes      – struct names to skip (case‑insensitive)
// ExcludeDeprecated – skip structs whose doc comment contains "Deprecated"
// Tests             – also read _test.go files
// Tag               – struct tag key carrying field attributes
// Directive         – comment prefix marking attribute directives, e.g. "builder:"
// OutSuffix         – generated file suffix; files ending in it are never parsed
// Manifest          – manifest file, relative to InDir
type Options struct {
	InDir             string   `json:"in_dir,omitempty" yaml:"in_dir,omitempty" toml:"in_dir,omitempty" mapstructure:"in_dir,omitempty"`
	Patterns          []string `json:"patterns,omitempty" yaml:"patterns,omitempty" toml:"patterns,omitempty" mapstructure:"patterns,omitempty"`
	Include           []string `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty" mapstructure:"include,omitempty"`
	Exclude           []string `json:"exclude,omitempty" yaml:"exclude,omitempty" toml:"exclude,omitempty" mapstructure:"exclude,omitempty"`
	Types             []string `json:"types,omitempty" yaml:"types,omitempty" toml:"types,omitempty" mapstructure:"types,omitempty"`
	ExcludeTypes      []string `json:"exclude_types,omitempty" yaml:"exclude_types,omitempty" toml:"exclude_types,omitempty" mapstructure:"exclude_types,omitempty"`
	ExcludeDeprecated bool     `json:"exclude_deprecated,omitempty" yaml:"exclude_deprecated,omitempty" toml:"exclude_deprecated,omitempty" mapstructure:"exclude_deprecated,omitempty"`
	Tests             bool     `json:"tests,omitempty" yaml:"tests,omitempty" toml:"tests,omitempty" mapstructure:"tests,omitempty"`
	Tag               string   `json:"tag,omitempty" yaml:"tag,omitempty" toml:"tag,omitempty" mapstructure:"tag,omitempty"`
	Directive         string   `json:"directive,omitempty" yaml:"directive,omitempty" toml:"directive,omitempty" mapstructure:"directive,omitempty"`
	OutSuffix         string   `json:"out_suffix,omitempty" yaml:"out_suffix,omitempty" toml:"out_suffix,omitempty" mapstructure:"out_suffix,omitempty"`
	Manifest          string   `json:"manifest,omitempty" yaml:"manifest,omitempty" toml:"manifest,omitempty" mapstructure:"manifest,omitempty"`
}

const (
	DefaultTag       = "builder"
	DefaultDirective = "builder:"
	DefaultOutSuffix = "_builder.go"
	DefaultManifest  = ".buildergen.yaml"
)

func NewOptions() *Options {
	return &Options{
		InDir:     ".",
		Patterns:  []string{"./..."},
		Tag:       DefaultTag,
		Directive: DefaultDirective,
		OutSuffix: DefaultOutSuffix,
		Manifest:  DefaultManifest,
	}
}

// Normalize fills defaults, makes InDir absolute and checks the globs.
func (o *Options) Normalize() error {
	if o.InDir == "" {
		o.InDir = "."
	}
	abs, err := filepath.Abs(o.InDir)
	if err != nil {
		return err
	}
	o.InDir = abs
	if len(o.Patterns) == 0 {
		o.Patterns = []string{"./..."}
	}
	if o.Tag == "" {
		o.Tag = DefaultTag
	}
	if o.Directive == "" {
		o.Directive = DefaultDirective
	}
	if !strings.HasSuffix(o.Directive, ":") {
		return fmt.Errorf("%w: directive %q must end with ':'", ErrBadOption, o.Directive)
	}
	if o.OutSuffix == "" {
		o.OutSuffix = DefaultOutSuffix
	}
	if !strings.HasSuffix(o.OutSuffix, ".go") {
		return fmt.Errorf("%w: output suffix %q must end with .go", ErrBadOption, o.OutSuffix)
	}
	if o.Manifest == "" {
		o.Manifest = DefaultManifest
	}
	for _, g := range append(append([]string{}, o.Include...), o.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("%w: bad glob %q", ErrBadOption, g)
		}
	}
	return nil
}

// functional option pattern ---------------------------------------------------

type Option func(*Options)

func WithInDir(d string) Option          { return func(o *Options) { o.InDir = d } }
func WithPatterns(p ...string) Option    { return func(o *Options) { o.Patterns = p } }
func WithInclude(globs ...string) Option { return func(o *Options) { o.Include = append(o.Include, globs...) } }
func WithExclude(globs ...string) Option { return func(o *Options) { o.Exclude = append(o.Exclude, globs...) } }
func WithTag(key string) Option          { return func(o *Options) { o.Tag = key } }
func WithDirective(d string) Option      { return func(o *Options) { o.Directive = d } }
func WithOutSuffix(s string) Option      { return func(o *Options) { o.OutSuffix = s } }
func WithManifest(f string) Option       { return func(o *Options) { o.Manifest = f } }
func WithTests() Option                  { return func(o *Options) { o.Tests = true } }
func WithExcludeDeprecated() Option      { return func(o *Options) { o.ExcludeDeprecated = true } }
func WithTypes(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.Types = append(o.Types, strings.TrimSpace(n))
		}
	}
}
func WithExcludeTypes(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.ExcludeTypes = append(o.ExcludeTypes, strings.TrimSpace(n))
		}
	}
}
