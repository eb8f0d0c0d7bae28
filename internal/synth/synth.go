// Package synth turns a validated resolution into the emission-ready
// builder model.
package synth

import (
	"fmt"

	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/resolve"
)

// SynthesisError reports a resolution that validation should have
// rejected. It signals a bug in the generator, not in user input.
type SynthesisError struct {
	Struct string
	Field  string
	Reason string
}

func (e *SynthesisError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("internal error synthesizing %s: %s", e.Struct, e.Reason)
	}
	return fmt.Sprintf("internal error synthesizing %s.%s: %s", e.Struct, e.Field, e.Reason)
}

// Synthesize builds the model for desc from its validated resolution.
func Synthesize(desc *model.StructDescriptor, r *resolve.Resolved) (*model.BuilderModel, error) {
	b := &r.Build
	m := &model.BuilderModel{
		Name: b.Name,
		Target: model.Target{
			Name:       desc.Name,
			PkgName:    desc.PkgName,
			PkgPath:    desc.PkgPath,
			TypeParams: desc.TypeParams,
		},
		Pattern:    b.Pattern,
		Doc:        []string{fmt.Sprintf("%s builds %s values.", b.Name, desc.Name)},
		Stringer:   b.HasDerive("String"),
		Standalone: b.Standalone,
		Imports:    desc.Imports,
		Scope:      desc.Scope,
	}
	if !b.Constructor.Skip {
		m.Constructor = &model.Constructor{Name: b.Constructor.Name}
	}
	if r.NeedsClone() {
		m.Clone = &model.CloneMethod{Name: "Clone"}
	}

	for i := range r.Fields {
		f := &r.Fields[i]
		if f.Skip {
			continue
		}
		field := model.BuilderField{
			Name:       f.StorageName,
			Source:     f.Name,
			Type:       f.Type,
			Storage:    model.StoragePlain,
			Collection: f.Type.Collection(),
		}
		if f.Tracked() {
			field.Storage = model.StorageTracked
			field.PresenceName = f.PresenceName()
		}
		m.Fields = append(m.Fields, field)

		setters, err := settersFor(b.Struct, f)
		if err != nil {
			return nil, err
		}
		m.Setters = append(m.Setters, setters...)
	}

	if !b.BuildFn.Skip {
		build, err := buildMethod(r)
		if err != nil {
			return nil, err
		}
		m.Build = build
		m.ErrorType = &model.ErrorType{Name: b.Name + "Error"}
	}
	return m, nil
}

func settersFor(structName string, f *resolve.Field) ([]model.Setter, error) {
	var out []model.Setter
	if f.SetterEnabled() {
		param := f.Type
		if f.StripOption {
			_, elem, ok := f.Type.Elem()
			if !ok || !f.Type.IsPointer() {
				return nil, &SynthesisError{Struct: structName, Field: f.Name, Reason: "strip_option on non-pointer " + f.Type.Text}
			}
			param = elem
		}
		direct := model.Setter{
			Name:        f.SetterName,
			Field:       f.StorageName,
			Kind:        model.SetterDirect,
			Pattern:     f.Pattern,
			Into:        f.Into,
			StripOption: f.StripOption,
			ParamType:   param,
			Doc:         f.Doc,
		}
		out = append(out, direct)
		if f.TrySetter {
			try := direct
			try.Name = f.TrySetterName()
			try.Kind = model.SetterTry
			try.Into = false
			try.Doc = []string{fmt.Sprintf("%s sets %s from a fallible conversion.", try.Name, f.Name)}
			out = append(out, try)
		}
	}
	if f.Each != nil {
		key, elem, ok := f.Type.Elem()
		kind := f.Type.Collection()
		if !ok || kind == model.NotCollection {
			return nil, &SynthesisError{Struct: structName, Field: f.Name, Reason: "each on non-collection " + f.Type.Text}
		}
		doc := fmt.Sprintf("%s appends one element to %s.", f.Each.Name, f.Name)
		if kind == model.MapCollection {
			doc = fmt.Sprintf("%s inserts one entry into %s.", f.Each.Name, f.Name)
		}
		out = append(out, model.Setter{
			Name:      f.Each.Name,
			Field:     f.StorageName,
			Kind:      model.SetterEach,
			Pattern:   f.Pattern,
			Into:      f.Each.Into,
			ParamType: elem,
			KeyType:   key,
			Doc:       []string{doc},
		})
	}
	return out, nil
}

func buildMethod(r *resolve.Resolved) (*model.BuildMethod, error) {
	b := &r.Build
	bm := &model.BuildMethod{
		Name:    b.BuildFn.Name,
		Pattern: b.Pattern,
	}
	switch b.BuildFn.Stage {
	case "before":
		bm.ValidateBefore = b.BuildFn.Validate
	default:
		bm.ValidateAfter = b.BuildFn.Validate
	}
	if b.BuildFn.Error != "" {
		ref, err := model.ParseTypeRef(b.BuildFn.Error)
		if err != nil {
			return nil, &SynthesisError{Struct: b.Struct, Reason: err.Error()}
		}
		bm.CustomError = &ref
	}
	whole := b.Default.Kind == resolve.WholeDefault

	for i := range r.Fields {
		f := &r.Fields[i]
		in := model.Initializer{Target: f.Name, Type: f.Type}
		if !f.Skip {
			in.Field = f.StorageName
			if f.Tracked() {
				in.Presence = f.PresenceName()
			}
			if b.Pattern.RequiresClone() {
				in.CloneCollection = f.Type.Collection()
			}
		}
		switch {
		case f.Default.Kind == resolve.ExprDefault:
			in.Fallback = model.FallbackExpr
			in.Expr = f.Default.Expr
		case f.Default.Kind == resolve.ZeroDefault:
			in.Fallback = model.FallbackZero
		case whole:
			in.Fallback = model.FallbackWhole
		case f.Skip:
			return nil, &SynthesisError{Struct: b.Struct, Field: f.Name, Reason: "skipped field without default"}
		default:
			in.Fallback = model.FallbackUninitialized
		}
		bm.Initializers = append(bm.Initializers, in)
	}
	if bm.NeedsWholeDefault() {
		bm.WholeDefault = b.Default.Expr
	}
	return bm, nil
}
