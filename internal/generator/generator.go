// Package generator runs the builder pipeline: attribute parsing,
// inheritance resolution, validation and synthesis.
package generator

import (
	"context"
	"log/slog"
	"runtime"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/cmmoran/buildergen/internal/attr"
	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/internal/resolve"
	"github.com/cmmoran/buildergen/internal/synth"
	"github.com/cmmoran/buildergen/internal/validate"
)

// Generate produces the builder model for one struct. It keeps no state
// between calls.
func Generate(desc *model.StructDescriptor) (*model.BuilderModel, error) {
	l := slog.With("struct", desc.Name, "file", desc.File)

	cfg, err := attr.ParseStruct(desc)
	if err != nil {
		return nil, err
	}
	r, err := resolve.Resolve(desc, cfg.Struct, cfg.Fields)
	if err != nil {
		return nil, err
	}
	l.Debug("resolved builder options", "builder", r.Build.Name, "pattern", r.Build.Pattern)

	if err = validate.Validate(r); err != nil {
		return nil, err
	}
	m, err := synth.Synthesize(desc, r)
	if err != nil {
		return nil, err
	}
	l.Debug("synthesized builder", "builder", m.Name, "fields", len(m.Fields), "setters", len(m.Setters))
	return m, nil
}

// GenerateAll runs Generate for every descriptor concurrently. Models come
// back in input order; the errors of all failing structs are combined.
func GenerateAll(ctx context.Context, descs []*model.StructDescriptor) ([]*model.BuilderModel, error) {
	models := make([]*model.BuilderModel, len(descs))
	errs := make([]error, len(descs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, desc := range descs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			models[i], errs[i] = Generate(desc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return models, nil
}
