package synth

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmmoran/buildergen/internal/attr"
	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/resolve"
	"github.com/cmmoran/buildergen/internal/validate"
)

type fieldSpec struct {
	name, typ string
	attrs     []string
}

func describe(structAttrs []string, fields ...fieldSpec) *model.StructDescriptor {
	d := &model.StructDescriptor{Name: "Thing", PkgName: "app", PkgPath: "example.com/app"}
	for _, a := range structAttrs {
		d.Attrs = append(d.Attrs, model.Attr{Text: a})
	}
	for _, f := range fields {
		fd := model.FieldDescriptor{Name: f.name, Type: model.TypeExpr{Text: f.typ}, Doc: []string{f.name + " is documented."}}
		for _, a := range f.attrs {
			fd.Attrs = append(fd.Attrs, model.Attr{Text: a})
		}
		d.Fields = append(d.Fields, fd)
	}
	return d
}

func resolved(t *testing.T, d *model.StructDescriptor) *resolve.Resolved {
	t.Helper()
	cfg, err := attr.ParseStruct(d)
	require.NoError(t, err)
	r, err := resolve.Resolve(d, cfg.Struct, cfg.Fields)
	require.NoError(t, err)
	return r
}

func synthesize(t *testing.T, d *model.StructDescriptor) *model.BuilderModel {
	t.Helper()
	r := resolved(t, d)
	require.NoError(t, validate.Validate(r))
	m, err := Synthesize(d, r)
	require.NoError(t, err)
	return m
}

func setterNames(m *model.BuilderModel) []string {
	var out []string
	for _, s := range m.Setters {
		out = append(out, s.Name+":"+s.Kind.String())
	}
	return out
}

func TestSynthesizeRequiredAndDefaulted(t *testing.T) {
	t.Parallel()
	m := synthesize(t, describe(nil,
		fieldSpec{name: "A", typ: "int"},
		fieldSpec{name: "B", typ: "int", attrs: []string{`default = "7"`}},
		fieldSpec{name: "C", typ: "string", attrs: []string{`default`}},
	))
	assert.Equal(t, "ThingBuilder", m.Name)
	assert.Equal(t, "example.com/app", m.Target.PkgPath)
	want := []model.BuilderField{
		{Name: "a", PresenceName: "aSet", Source: "A", Type: model.TypeExpr{Text: "int"}, Storage: model.StorageTracked},
		{Name: "b", PresenceName: "bSet", Source: "B", Type: model.TypeExpr{Text: "int"}, Storage: model.StorageTracked},
		{Name: "c", Source: "C", Type: model.TypeExpr{Text: "string"}, Storage: model.StoragePlain},
	}
	require.Empty(t, cmp.Diff(want, m.Fields))

	require.NotNil(t, m.Build)
	ins := m.Build.Initializers
	require.Len(t, ins, 3)
	assert.Equal(t, model.FallbackUninitialized, ins[0].Fallback)
	assert.Equal(t, "aSet", ins[0].Presence)
	assert.Equal(t, model.FallbackExpr, ins[1].Fallback)
	assert.Equal(t, "7", ins[1].Expr)
	assert.Equal(t, model.FallbackZero, ins[2].Fallback)
	assert.Empty(t, ins[2].Presence)
	assert.Empty(t, m.Build.WholeDefault)
	require.NotNil(t, m.ErrorType)
	assert.Equal(t, "ThingBuilderError", m.ErrorType.Name)
	require.NotNil(t, m.Constructor)
	assert.Equal(t, "NewThingBuilder", m.Constructor.Name)
}

func TestSynthesizeOneSetterPerPlainField(t *testing.T) {
	t.Parallel()
	m := synthesize(t, describe(nil,
		fieldSpec{name: "A", typ: "int"},
		fieldSpec{name: "B", typ: "*string"},
		fieldSpec{name: "C", typ: "func() error"},
		fieldSpec{name: "D", typ: "[3]byte"},
	))
	assert.Equal(t, []string{"A:direct", "B:direct", "C:direct", "D:direct"}, setterNames(m))
	assert.Equal(t, []string{"A is documented."}, m.Setters[0].Doc)
}

func TestSynthesizeSetterShapes(t *testing.T) {
	t.Parallel()
	m := synthesize(t, describe([]string{`try_setter`},
		fieldSpec{name: "Name", typ: "string", attrs: []string{`setter(into)`}},
		fieldSpec{name: "Limit", typ: "*int", attrs: []string{`setter(strip_option), try_setter = false`}},
		fieldSpec{name: "Tags", typ: "[]string", attrs: []string{`setter(each(name = "tag", into)), try_setter = false`}},
		fieldSpec{name: "Meta", typ: "map[string]int", attrs: []string{`setter(each = "entry", custom), default`}},
		fieldSpec{name: "Hidden", typ: "int", attrs: []string{`setter(skip), default = "3"`}},
	))
	assert.Equal(t, []string{
		"Name:direct", "TryName:try",
		"Limit:direct",
		"Tags:direct", "Tag:each",
		"Entry:each",
	}, setterNames(m))

	byName := make(map[string]model.Setter)
	for _, s := range m.Setters {
		byName[s.Name] = s
	}
	assert.True(t, byName["Name"].Into)
	assert.False(t, byName["TryName"].Into)
	assert.Equal(t, "int", byName["Limit"].ParamType.Text)
	assert.True(t, byName["Limit"].StripOption)
	assert.Equal(t, "string", byName["Tag"].ParamType.Text)
	assert.True(t, byName["Tag"].Into)
	assert.Equal(t, "tags", byName["Tag"].Field)
	assert.Equal(t, "int", byName["Entry"].ParamType.Text)
	assert.Equal(t, "string", byName["Entry"].KeyType.Text)

	// skipped fields keep an initializer but no storage
	_, ok := m.Field("hidden")
	assert.False(t, ok)
	last := m.Build.Initializers[len(m.Build.Initializers)-1]
	assert.Equal(t, "Hidden", last.Target)
	assert.Empty(t, last.Field)
	assert.Equal(t, model.FallbackExpr, last.Fallback)

	meta, ok := m.Field("meta")
	require.True(t, ok)
	assert.Equal(t, model.MapCollection, meta.Collection)
	assert.Equal(t, model.StoragePlain, meta.Storage)
}

func TestSynthesizePatternDecisions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		attrs     []string
		wantClone bool
		wantCopy  model.CollectionKind
	}{
		{name: "mutable", attrs: nil, wantClone: true, wantCopy: model.SliceCollection},
		{name: "immutable", attrs: []string{`pattern = "immutable"`}, wantClone: true, wantCopy: model.SliceCollection},
		{name: "owned", attrs: []string{`pattern = "owned"`}, wantClone: false, wantCopy: model.NotCollection},
		{name: "owned with derive", attrs: []string{`pattern = "owned", derive(Clone)`}, wantClone: true, wantCopy: model.NotCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := synthesize(t, describe(tt.attrs, fieldSpec{name: "Items", typ: "[]int", attrs: []string{`setter(each)`}}))
			assert.Equal(t, tt.wantClone, m.Clone != nil)
			assert.Equal(t, tt.wantCopy, m.Build.Initializers[0].CloneCollection)
			for _, s := range m.Setters {
				assert.Equal(t, m.Pattern, s.Pattern)
			}
		})
	}
}

func TestSynthesizeWholeDefault(t *testing.T) {
	t.Parallel()
	m := synthesize(t, describe([]string{`default = "Thing{A: 1, B: 2}"`},
		fieldSpec{name: "A", typ: "int"},
		fieldSpec{name: "B", typ: "int", attrs: []string{`setter(skip)`}},
	))
	assert.Equal(t, "Thing{A: 1, B: 2}", m.Build.WholeDefault)
	assert.True(t, m.Build.NeedsWholeDefault())
	for _, in := range m.Build.Initializers {
		assert.Equal(t, model.FallbackWhole, in.Fallback, in.Target)
	}
	require.Len(t, m.Fields, 1)
	assert.Equal(t, model.StorageTracked, m.Fields[0].Storage)
}

func TestSynthesizeBuildMethodOptions(t *testing.T) {
	t.Parallel()
	m := synthesize(t, describe([]string{
		`build_fn(name = "Finish", validate(name = "checkThing", stage = "before"), error = "example.com/errs.BuildError")`,
		`constructor(skip), derive(String)`,
	}, fieldSpec{name: "A", typ: "int"}))
	assert.Equal(t, "Finish", m.Build.Name)
	assert.Equal(t, "checkThing", m.Build.ValidateBefore)
	assert.Empty(t, m.Build.ValidateAfter)
	require.NotNil(t, m.Build.CustomError)
	assert.Equal(t, model.TypeRef{PkgPath: "example.com/errs", Name: "BuildError"}, *m.Build.CustomError)
	assert.Nil(t, m.Constructor)
	assert.True(t, m.Stringer)

	m = synthesize(t, describe([]string{`build_fn(skip)`}, fieldSpec{name: "A", typ: "int"}))
	assert.Nil(t, m.Build)
	assert.Nil(t, m.ErrorType)
}

func TestSynthesizeRejectsUnvalidatedInput(t *testing.T) {
	t.Parallel()
	d := describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(strip_option)`}})
	_, err := Synthesize(d, resolved(t, d))
	var se *SynthesisError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "A", se.Field)

	d = describe(nil, fieldSpec{name: "A", typ: "int", attrs: []string{`setter(skip)`}})
	_, err = Synthesize(d, resolved(t, d))
	require.True(t, errors.As(err, &se))
}

func TestSynthesizeDeterministic(t *testing.T) {
	t.Parallel()
	d := describe([]string{`pattern = "immutable"`, `setter(prefix = "with")`},
		fieldSpec{name: "Tags", typ: "[]string", attrs: []string{`setter(each = "tag")`}},
		fieldSpec{name: "Limit", typ: "*int", attrs: []string{`setter(strip_option), default`}},
	)
	first := synthesize(t, d)
	second := synthesize(t, d)
	require.Empty(t, cmp.Diff(first, second))
	assert.Equal(t, "WithTags", first.Setters[0].Name)
}
