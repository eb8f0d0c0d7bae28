package validate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/cmmoran/buildergen/internal/attr"
	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/resolve"
)

type fieldSpec struct {
	name, typ string
	attrs     []string
}

func describe(structAttrs []string, fields ...fieldSpec) *model.StructDescriptor {
	d := &model.StructDescriptor{Name: "Thing", PkgName: "app"}
	for _, a := range structAttrs {
		d.Attrs = append(d.Attrs, model.Attr{Text: a, Pos: model.Pos{File: "thing.go", Line: 1, Column: 1}})
	}
	for i, f := range fields {
		fd := model.FieldDescriptor{Name: f.name, Type: model.TypeExpr{Text: f.typ}, Pos: model.Pos{File: "thing.go", Line: 10 + i}}
		for _, a := range f.attrs {
			fd.Attrs = append(fd.Attrs, model.Attr{Text: a, Pos: model.Pos{File: "thing.go", Line: 10 + i, Column: 5}})
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}

func validateDesc(t *testing.T, d *model.StructDescriptor) error {
	t.Helper()
	cfg, err := attr.ParseStruct(d)
	require.NoError(t, err)
	r, err := resolve.Resolve(d, cfg.Struct, cfg.Fields)
	require.NoError(t, err)
	return Validate(r)
}

// codes flattens err into "field:code" entries.
func codes(t *testing.T, err error) []string {
	t.Helper()
	var out []string
	for _, e := range multierr.Errors(err) {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve), "unexpected error %v", e)
		out = append(out, ve.Field+":"+string(ve.Code))
	}
	return out
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		desc   *model.StructDescriptor
		params []model.TypeParam
		want   []string
	}{
		{
			name: "clean",
			desc: describe([]string{`pattern = "owned"`, `derive(Clone, String)`},
				fieldSpec{name: "Name", typ: "string", attrs: []string{`setter(into)`}},
				fieldSpec{name: "Tags", typ: "[]string", attrs: []string{`setter(each = "tag")`}},
				fieldSpec{name: "Limit", typ: "*int", attrs: []string{`setter(strip_option), default`}},
				fieldSpec{name: "Meta", typ: "map[string]string", attrs: []string{`setter(each(name = "meta_entry"))`}},
			),
		},
		{
			name: "struct visibility conflict is not repeated per field",
			desc: describe([]string{`public, private`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":visibility-conflict"},
		},
		{
			name: "field visibility conflict",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`public`, `private`}}),
			want: []string{"A:visibility-conflict"},
		},
		{
			name: "build fn visibility conflict",
			desc: describe([]string{`build_fn(public, private)`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":visibility-conflict"},
		},
		{
			name: "storage visibility conflict",
			desc: describe([]string{`field(public, private)`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":visibility-conflict"},
		},
		{
			name: "skipped build fn with name",
			desc: describe([]string{`build_fn(skip, name = "Make")`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":build-fn-skipped"},
		},
		{
			name: "skipped build fn with validate",
			desc: describe([]string{`build_fn(skip, validate = "check")`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":build-fn-skipped"},
		},
		{
			name: "skipped build fn suppresses error type checks",
			desc: describe([]string{`build_fn(skip, error = "bad path.E", public)`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":build-fn-skipped", ":build-fn-skipped"},
		},
		{
			name: "skipped setter without default",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip)`}}),
			want: []string{"A:missing-default"},
		},
		{
			name: "skipped setter with field default",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip), default = "3"`}}),
		},
		{
			name: "skipped setter with struct per-field default",
			desc: describe([]string{`default`}, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip)`}}),
		},
		{
			name: "skipped setter with whole default",
			desc: describe([]string{`default = "Thing{A: 1}"`}, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip)`}}),
		},
		{
			name: "skipped setter opting out of per-field default",
			desc: describe([]string{`default`}, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip), default = false`}}),
			want: []string{"A:missing-default"},
		},
		{
			name: "strip_option on value type",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(strip_option)`}}),
			want: []string{"A:strip-option-not-pointer"},
		},
		{
			name: "each on scalar",
			desc: describe(nil, fieldSpec{name: "Items", typ: "string", attrs: []string{`setter(each)`}}),
			want: []string{"Items:each-not-collection"},
		},
		{
			name: "each on array",
			desc: describe(nil, fieldSpec{name: "Items", typ: "[4]int", attrs: []string{`setter(each)`}}),
			want: []string{"Items:each-not-collection"},
		},
		{
			name:   "reserved type parameter",
			desc:   describe(nil, fieldSpec{name: "A", typ: "value"}),
			params: []model.TypeParam{{Name: "value", Constraint: model.TypeExpr{Text: "any"}}},
			want:   []string{":reserved-type-param"},
		},
		{
			name:   "free type parameter",
			desc:   describe(nil, fieldSpec{name: "A", typ: "T"}),
			params: []model.TypeParam{{Name: "T", Constraint: model.TypeExpr{Text: "any"}}},
		},
		{
			name: "whole default with field default",
			desc: describe([]string{`default = "defaultThing()"`},
				fieldSpec{name: "A", typ: "int", attrs: []string{`default = "1"`}},
				fieldSpec{name: "B", typ: "int"},
				fieldSpec{name: "C", typ: "int", attrs: []string{`default`}},
			),
			want: []string{"A:default-overlap", "C:default-overlap"},
		},
		{
			name: "per-field default with field default",
			desc: describe([]string{`default`},
				fieldSpec{name: "A", typ: "int", attrs: []string{`default = "1"`}},
				fieldSpec{name: "B", typ: "int"},
			),
		},
		{
			name: "custom and skip",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(custom, skip)`}}),
			want: []string{"A:skipped-setter"},
		},
		{
			name: "setter options on skipped setter",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip, into), default`}}),
			want: []string{"A:skipped-setter"},
		},
		{
			name: "invalid builder name",
			desc: describe([]string{`name = "my-builder"`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":invalid-identifier"},
		},
		{
			name: "invalid setter name",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(name = "set a")`}}),
			want: []string{"A:invalid-identifier"},
		},
		{
			name: "unknown derive",
			desc: describe([]string{`derive(Clone, Debug)`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":unknown-derive"},
		},
		{
			name: "invalid error path",
			desc: describe([]string{`build_fn(error = "bad path.E")`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":invalid-error-type"},
		},
		{
			name: "custom error in standalone mode",
			desc: describe([]string{`build_fn(error = "example.com/errs.BuildError"), standalone`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":invalid-error-type"},
		},
		{
			name: "invalid default expression",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`default = "1 +"`}}),
			want: []string{"A:invalid-expression"},
		},
		{
			name: "each name collides with setter",
			desc: describe(nil,
				fieldSpec{name: "Port", typ: "int"},
				fieldSpec{name: "Ports", typ: "[]int", attrs: []string{`setter(each)`}},
			),
			want: []string{"Ports:duplicate-name"},
		},
		{
			name: "public storage beside its own public setter",
			desc: describe(nil, fieldSpec{name: "Addr", typ: "string", attrs: []string{`field(public)`}}),
		},
		{
			name: "setter collides with another field's storage",
			desc: describe(nil,
				fieldSpec{name: "Addr", typ: "string", attrs: []string{`field(public), setter(name = "SetAddr")`}},
				fieldSpec{name: "Host", typ: "string", attrs: []string{`setter(name = "Addr")`}},
			),
			want: []string{"Host:duplicate-name"},
		},
		{
			name: "private setters on the struct",
			desc: describe([]string{`private`},
				fieldSpec{name: "A", typ: "int"},
				fieldSpec{name: "Tags", typ: "[]string", attrs: []string{`setter(each = "tag")`}},
			),
		},
		{
			name: "private setter on a field",
			desc: describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`private`}}, fieldSpec{name: "B", typ: "int"}),
		},
		{
			name: "private try setter",
			desc: describe([]string{`private, try_setter`}, fieldSpec{name: "A", typ: "int"}),
		},
		{
			name: "validate without a name",
			desc: describe([]string{`build_fn(validate(stage = "before"))`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":missing-setting"},
		},
		{
			name: "validate with a name",
			desc: describe([]string{`build_fn(validate(name = "check", stage = "before"))`}, fieldSpec{name: "A", typ: "int"}),
		},
		{
			name: "skipped constructor with name",
			desc: describe([]string{`constructor(name = "Make", skip)`}, fieldSpec{name: "A", typ: "int"}),
			want: []string{":constructor-skipped"},
		},
		{
			name: "skipped constructor",
			desc: describe([]string{`constructor(skip)`}, fieldSpec{name: "A", typ: "int"}),
		},
		{
			name: "independent errors are all reported",
			desc: describe([]string{`derive(Hash)`},
				fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip)`}},
				fieldSpec{name: "B", typ: "int", attrs: []string{`setter(strip_option)`}},
				fieldSpec{name: "Values", typ: "int", attrs: []string{`setter(each)`}},
			),
			want: []string{":unknown-derive", "A:missing-default", "B:strip-option-not-pointer", "Values:each-not-collection"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.desc.TypeParams = tt.params
			err := validateDesc(t, tt.desc)
			if len(tt.want) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if diff := cmp.Diff(tt.want, codes(t, err)); diff != "" {
				t.Fatalf("codes mismatch (-want +got):\n%s\n%v", diff, err)
			}
		})
	}
}

func TestValidationErrorNamesLocation(t *testing.T) {
	t.Parallel()
	err := validateDesc(t, describe(nil,
		fieldSpec{name: "Ok", typ: "int"},
		fieldSpec{name: "Required", typ: "int", attrs: []string{`setter(skip)`}},
	))
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Required", ve.Field)
	assert.Equal(t, MissingDefault, ve.Code)
	assert.Equal(t, "thing.go", ve.Pos.File)
	assert.Equal(t, 11, ve.Pos.Line)
	assert.Contains(t, ve.Error(), "Thing.Required")
}
