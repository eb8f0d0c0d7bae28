package inspect

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cmmoran/buildergen/internal/generator"
	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/pkg/parser"
)

// Source is the inspection of one source file.
type Source struct {
	File     string                `yaml:"file"`
	Builders []*model.BuilderModel `yaml:"builders"`
}

// Collect parses the selected packages and synthesizes every builder model
// without rendering it.
func Collect(ctx context.Context, opts *parser.Options) ([]Source, error) {
	p, err := parser.NewWithOpts(opts)
	if err != nil {
		return nil, err
	}
	if err = p.Parse(ctx); err != nil {
		return nil, err
	}
	models, err := generator.GenerateAll(ctx, p.Structs)
	if err != nil {
		return nil, err
	}

	var out []Source
	for i, m := range models {
		file := p.Structs[i].File
		if rel, err := filepath.Rel(p.Opts.InDir, file); err == nil {
			file = filepath.ToSlash(rel)
		}
		if n := len(out); n > 0 && out[n-1].File == file {
			out[n-1].Builders = append(out[n-1].Builders, m)
			continue
		}
		out = append(out, Source{File: file, Builders: []*model.BuilderModel{m}})
	}
	return out, nil
}

// Run writes the builder models as YAML to w.
func Run(ctx context.Context, opts *parser.Options, w io.Writer) error {
	sources, err := Collect(ctx, opts)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(sources); err != nil {
		return fmt.Errorf("encode builders: %w", err)
	}
	return enc.Close()
}
