package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/cmmoran/buildergen/internal/attr"
	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/validate"
)

type fieldSpec struct {
	name, typ string
	attrs     []string
}

func describe(name string, structAttrs []string, fields ...fieldSpec) *model.StructDescriptor {
	d := &model.StructDescriptor{Name: name, PkgName: "app", PkgPath: "example.com/app", File: "app.go"}
	for i, a := range structAttrs {
		d.Attrs = append(d.Attrs, model.Attr{Text: a, Pos: model.Pos{File: "app.go", Line: i + 1, Column: 11}})
	}
	for i, f := range fields {
		fd := model.FieldDescriptor{Name: f.name, Type: model.TypeExpr{Text: f.typ}, Pos: model.Pos{File: "app.go", Line: 10 + i}}
		for _, a := range f.attrs {
			fd.Attrs = append(fd.Attrs, model.Attr{Text: a, Pos: fd.Pos})
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}

func validationErrors(t *testing.T, err error) []*validate.ValidationError {
	t.Helper()
	var out []*validate.ValidationError
	for _, e := range multierr.Errors(err) {
		var ve *validate.ValidationError
		require.True(t, errors.As(e, &ve), "unexpected error %v", e)
		out = append(out, ve)
	}
	return out
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	m, err := Generate(describe("Server", []string{`setter(into)`},
		fieldSpec{name: "Addr", typ: "string"},
		fieldSpec{name: "Port", typ: "int", attrs: []string{`default = "8080"`}},
		fieldSpec{name: "Handlers", typ: "[]string", attrs: []string{`setter(each(name = "handler"))`, `default`}},
	))
	require.NoError(t, err)
	assert.Equal(t, "ServerBuilder", m.Name)
	var names []string
	for _, s := range m.Setters {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Addr", "Port", "Handlers", "Handler"}, names)

	// the required field fails the build, the defaulted one does not
	ins := m.Build.Initializers
	assert.Equal(t, model.FallbackUninitialized, ins[0].Fallback)
	assert.Equal(t, model.FallbackExpr, ins[1].Fallback)
	assert.Equal(t, model.FallbackZero, ins[2].Fallback)
}

func TestGenerateRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		desc      *model.StructDescriptor
		wantField string
		wantCode  validate.Code
	}{
		{
			name:      "skipped setter without default",
			desc:      describe("Thing", nil, fieldSpec{name: "Secret", typ: "string", attrs: []string{`setter(skip)`}}),
			wantField: "Secret",
			wantCode:  validate.MissingDefault,
		},
		{
			name:     "public and private on the struct",
			desc:     describe("Thing", []string{`public, private`}, fieldSpec{name: "A", typ: "int"}),
			wantCode: validate.VisibilityConflict,
		},
		{
			name:      "public and private on a field",
			desc:      describe("Thing", nil, fieldSpec{name: "A", typ: "int", attrs: []string{`public`, `private`}}),
			wantField: "A",
			wantCode:  validate.VisibilityConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Generate(tt.desc)
			require.Error(t, err)
			errs := validationErrors(t, err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantCode, errs[0].Code)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestGeneratePrivateSetters(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		structAttrs []string
		attrs       []string
	}{
		{name: "struct", structAttrs: []string{`private`}},
		{name: "field", attrs: []string{`private`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := Generate(describe("Thing", tt.structAttrs, fieldSpec{name: "A", typ: "int", attrs: tt.attrs}))
			require.NoError(t, err)
			require.Len(t, m.Setters, 1)
			assert.Equal(t, "a", m.Setters[0].Name)
			assert.Equal(t, "aField", m.Setters[0].Field)
			assert.Equal(t, "aField", m.Fields[0].Name)
			assert.Equal(t, "aFieldSet", m.Fields[0].PresenceName)
		})
	}
}

func TestGenerateValidateNeedsName(t *testing.T) {
	t.Parallel()
	_, err := Generate(describe("Thing", []string{`build_fn(validate(stage = "before"))`}, fieldSpec{name: "A", typ: "int"}))
	errs := validationErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, validate.MissingSetting, errs[0].Code)
}

func TestGenerateTypeParams(t *testing.T) {
	t.Parallel()
	d := describe("Box", nil, fieldSpec{name: "V", typ: "T"})
	d.TypeParams = []model.TypeParam{{Name: "T", Constraint: model.TypeExpr{Text: "any"}}}
	m, err := Generate(d)
	require.NoError(t, err)
	assert.Equal(t, d.TypeParams, m.Target.TypeParams)

	d = describe("Box", nil, fieldSpec{name: "V", typ: "item"})
	d.TypeParams = []model.TypeParam{{Name: "item", Constraint: model.TypeExpr{Text: "any"}}}
	_, err = Generate(d)
	errs := validationErrors(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, validate.ReservedTypeParam, errs[0].Code)
	assert.Contains(t, errs[0].Error(), "item")
}

func TestGenerateSyntaxError(t *testing.T) {
	t.Parallel()
	_, err := Generate(describe("Thing", []string{`setter(into`}, fieldSpec{name: "A", typ: "int"}))
	var pe *attr.ParseError
	require.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, attr.ErrSyntax)
	assert.Equal(t, "Thing", pe.Struct)
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()
	d := describe("Thing", []string{`pattern = "owned"`, `derive(Clone, String)`},
		fieldSpec{name: "Tags", typ: "[]string", attrs: []string{`setter(each = "tag")`}},
		fieldSpec{name: "Limit", typ: "*int", attrs: []string{`setter(strip_option)`, `default`}},
	)
	first, err := Generate(d)
	require.NoError(t, err)
	second, err := Generate(d)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(first, second))
}

func TestGenerateAll(t *testing.T) {
	t.Parallel()
	var descs []*model.StructDescriptor
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		descs = append(descs, describe(name, nil, fieldSpec{name: "X", typ: "int"}))
	}
	models, err := GenerateAll(context.Background(), descs)
	require.NoError(t, err)
	require.Len(t, models, len(descs))
	for i, m := range models {
		assert.Equal(t, descs[i].Name+"Builder", m.Name)
	}
}

func TestGenerateAllCombinesErrors(t *testing.T) {
	t.Parallel()
	descs := []*model.StructDescriptor{
		describe("Good", nil, fieldSpec{name: "X", typ: "int"}),
		describe("Bad", nil, fieldSpec{name: "X", typ: "int", attrs: []string{`setter(skip)`}}),
		describe("Worse", []string{`public, private`}, fieldSpec{name: "X", typ: "int"}),
	}
	models, err := GenerateAll(context.Background(), descs)
	require.Error(t, err)
	assert.Nil(t, models)
	errs := validationErrors(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "Bad", errs[0].Struct)
	assert.Equal(t, "Worse", errs[1].Struct)
}

func TestGenerateAllCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GenerateAll(ctx, []*model.StructDescriptor{describe("A", nil, fieldSpec{name: "X", typ: "int"})})
	require.ErrorIs(t, err, context.Canceled)
}
