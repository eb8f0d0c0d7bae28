// Package attr parses `//builder:` directives and `builder:"..."` struct
// tags into option sets.
package attr

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/options"
)

var (
	ErrSyntax     = errors.New("syntax error")
	ErrUnknownKey = errors.New("unknown key")
	ErrShape      = errors.New("wrong value shape")
	ErrScope      = errors.New("key not allowed here")
	ErrDuplicate  = errors.New("duplicate key")
	ErrLiteral    = errors.New("unsupported value")
)

// ParseError reports an illegal attribute item.
type ParseError struct {
	Struct string
	Field  string // empty for struct-level attributes
	Pos    model.Pos
	Key    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Pos.String())
	sb.WriteString(": ")
	sb.WriteString(e.Struct)
	if e.Field != "" {
		sb.WriteString(".")
		sb.WriteString(e.Field)
	}
	if e.Key != "" {
		fmt.Fprintf(&sb, ": %q", e.Key)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Context names the declaration that owns the attributes being parsed.
type Context struct {
	Struct string
	Field  string
}

// Config holds the option sets of one struct, fields aligned with the
// descriptor's field order.
type Config struct {
	Struct *options.Set
	Fields []*options.Set
}

// ParseStruct parses the struct-level and every field-level attribute of
// desc. Errors of all groups are combined.
func ParseStruct(desc *model.StructDescriptor) (*Config, error) {
	cfg := &Config{Fields: make([]*options.Set, len(desc.Fields))}
	var errs error
	set, err := Parse(Context{Struct: desc.Name}, options.StructScope, desc.Attrs)
	errs = multierr.Append(errs, err)
	cfg.Struct = set
	for i, f := range desc.Fields {
		set, err := Parse(Context{Struct: desc.Name, Field: f.Name}, options.FieldScope, f.Attrs)
		errs = multierr.Append(errs, err)
		cfg.Fields[i] = set
	}
	if errs != nil {
		return nil, errs
	}
	return cfg, nil
}

// Parse folds attribute groups into one option set. The first illegal item
// of a group aborts that group; the other groups are still parsed.
func Parse(ctx Context, scope options.Scope, attrs []model.Attr) (*options.Set, error) {
	set := options.NewSet(scope)
	var errs error
	for _, a := range attrs {
		items, err := ParseGroup(a.Text, a.Pos)
		if err != nil {
			errs = multierr.Append(errs, withContext(err, ctx))
			continue
		}
		f := folder{set: set, scope: scope}
		for _, it := range items {
			if err := f.item("", options.Table, it); err != nil {
				errs = multierr.Append(errs, withContext(err, ctx))
				break
			}
		}
	}
	return set, errs
}

func withContext(err error, ctx Context) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Struct, pe.Field = ctx.Struct, ctx.Field
	}
	return err
}

type folder struct {
	set   *options.Set
	scope options.Scope
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// item expands a dotted path into nesting and stores the leaves:
// `a.b = v` is handled as `a(b = v)`.
func (f *folder) item(prefix string, level map[string]*options.Spec, it options.Item) error {
	head := it.Path[0]
	key := join(prefix, head)
	spec, ok := level[head]
	if !ok {
		return f.fail(it.Pos, key, ErrUnknownKey, "")
	}
	if len(it.Path) > 1 {
		if !spec.Accepts(options.ShapeGroup) {
			return f.fail(it.Pos, key, ErrShape, "expects "+spec.Shapes.String())
		}
		if err := f.record(key, spec, it.Pos); err != nil {
			return err
		}
		return f.item(key, spec.Children, options.Item{Path: it.Path[1:], Value: it.Value, Pos: it.Pos})
	}

	v := it.Value
	switch v.Kind {
	case options.KindFlag:
		if !spec.Accepts(options.ShapeFlag) {
			return f.fail(it.Pos, key, ErrShape, "expects "+spec.Shapes.String())
		}
		if spec.BareKey != "" {
			return f.put(spec.BareKey, spec.Children[strings.TrimPrefix(spec.BareKey, key+".")], options.Option{State: spec.BareState, Value: options.Flag(it.Pos)}, it.Pos)
		}
		return f.put(key, spec, options.Option{State: options.Enabled, Value: options.Flag(it.Pos)}, it.Pos)
	case options.KindBool:
		if !spec.Accepts(options.ShapeFlag) || len(spec.Children) > 0 {
			return f.fail(it.Pos, key, ErrShape, "expects "+spec.Shapes.String())
		}
		state := options.Disabled
		if v.Bool {
			state = options.Enabled
		}
		return f.put(key, spec, options.Option{State: state, Value: options.Flag(it.Pos)}, it.Pos)
	case options.KindString:
		if !spec.Accepts(options.ShapeString) {
			return f.fail(it.Pos, key, ErrShape, "expects "+spec.Shapes.String())
		}
		if spec.ShortField != "" {
			if err := f.record(key, spec, it.Pos); err != nil {
				return err
			}
			return f.item(key, spec.Children, options.Item{Path: []string{spec.ShortField}, Value: v, Pos: it.Pos})
		}
		if len(spec.Enum) > 0 && !slices.Contains(spec.Enum, v.Str) {
			return f.fail(it.Pos, key, ErrLiteral, fmt.Sprintf("%q not one of %s", v.Str, strings.Join(spec.Enum, ", ")))
		}
		return f.put(key, spec, options.Option{State: options.Enabled, Value: options.String(v.Str, it.Pos)}, it.Pos)
	case options.KindGroup:
		if spec.Accepts(options.ShapeList) {
			ids := make([]string, 0, len(v.Items))
			for _, sub := range v.Items {
				if len(sub.Path) != 1 || sub.Value.Kind != options.KindFlag {
					return f.fail(sub.Pos, key, ErrShape, "expects a list of identifiers")
				}
				ids = append(ids, sub.Path[0])
			}
			return f.put(key, spec, options.Option{State: options.Enabled, Value: options.List(ids, it.Pos)}, it.Pos)
		}
		if !spec.Accepts(options.ShapeGroup) {
			return f.fail(it.Pos, key, ErrShape, "expects "+spec.Shapes.String())
		}
		if err := f.record(key, spec, it.Pos); err != nil {
			return err
		}
		for _, sub := range v.Items {
			if err := f.item(key, spec.Children, sub); err != nil {
				return err
			}
		}
		return nil
	}
	return f.fail(it.Pos, key, ErrShape, "unexpected "+v.Kind.String())
}

// record marks a group key as present when the table asks for it.
func (f *folder) record(key string, spec *options.Spec, pos model.Pos) error {
	if !spec.Record {
		return nil
	}
	if spec.Scopes&f.scope == 0 {
		return f.fail(pos, key, ErrScope, f.scope.String()+" level")
	}
	f.set.Put(key, options.Option{State: options.Enabled, Value: options.Flag(pos)})
	return nil
}

func (f *folder) put(key string, spec *options.Spec, o options.Option, pos model.Pos) error {
	if spec != nil && spec.Scopes&f.scope == 0 {
		return f.fail(pos, key, ErrScope, f.scope.String()+" level")
	}
	if !f.set.Put(key, o) {
		return f.fail(pos, key, ErrDuplicate, "")
	}
	return nil
}

func (f *folder) fail(pos model.Pos, key string, err error, reason string) error {
	return &ParseError{Pos: pos, Key: key, Err: err, Reason: reason}
}
