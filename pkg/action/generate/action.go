package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/cmmoran/buildergen/internal/emit"
	"github.com/cmmoran/buildergen/internal/generator"
	"github.com/cmmoran/buildergen/pkg/manifest"
	"github.com/cmmoran/buildergen/pkg/parser"
)

// File is one rendered output.
type File struct {
	Path     string
	Source   string
	Builders []string
	Content  []byte
}

// OutputPath is the generated file for the source file src. Builders for
// test files land in a test file themselves.
func OutputPath(opts *parser.Options, src string) string {
	if base, ok := strings.CutSuffix(src, "_test.go"); ok {
		return base + strings.TrimSuffix(opts.OutSuffix, ".go") + "_test.go"
	}
	return strings.TrimSuffix(src, ".go") + opts.OutSuffix
}

// Render parses the packages selected by opts and renders one output per
// source file declaring builders. Nothing is written.
func Render(ctx context.Context, opts *parser.Options) (*parser.Parser, []File, error) {
	p, err := parser.NewWithOpts(opts)
	if err != nil {
		return nil, nil, err
	}
	if err = p.Parse(ctx); err != nil {
		return nil, nil, err
	}
	models, err := generator.GenerateAll(ctx, p.Structs)
	if err != nil {
		return nil, nil, err
	}

	// structs are sorted by file, so each output is one contiguous run
	var files []File
	for i := 0; i < len(models); {
		src := p.Structs[i].File
		j := i + 1
		for j < len(models) && p.Structs[j].File == src {
			j++
		}
		var buf bytes.Buffer
		if err = emit.Write(&buf, models[i:j]...); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", src, err)
		}
		f := File{Path: OutputPath(&p.Opts, src), Source: src, Content: buf.Bytes()}
		for _, m := range models[i:j] {
			f.Builders = append(f.Builders, m.Name)
		}
		files = append(files, f)
		i = j
	}
	return p, files, nil
}

// Rel is path relative to the parser's input directory, slash separated.
func Rel(p *parser.Parser, path string) string {
	if rel, err := filepath.Rel(p.Opts.InDir, path); err == nil {
		path = rel
	}
	return filepath.ToSlash(path)
}

// ManifestPath is where the manifest of a run lives.
func ManifestPath(p *parser.Parser) string {
	return filepath.Join(p.Opts.InDir, p.Opts.Manifest)
}

// Stale returns the manifest entries of parsed sources that no longer
// produce builders. Type filters hide builders without removing them, so
// nothing is stale while one is set.
func Stale(p *parser.Parser, m *manifest.Manifest, files []File) []manifest.Entry {
	if len(p.Opts.Types) > 0 || len(p.Opts.ExcludeTypes) > 0 || p.Opts.ExcludeDeprecated {
		return nil
	}
	parsed := make(map[string]bool, len(p.Files))
	for _, f := range p.Files {
		parsed[Rel(p, f)] = true
	}
	current := make(map[string]bool, len(files))
	for _, f := range files {
		current[Rel(p, f.Path)] = true
	}
	var out []manifest.Entry
	for _, e := range m.Files {
		if parsed[e.Source] && !current[e.File] {
			out = append(out, e)
		}
	}
	return out
}

// Run renders and writes every output, records it in the manifest and
// removes outputs whose source no longer declares builders.
func Run(ctx context.Context, fs afero.Fs, opts *parser.Options) (*manifest.Manifest, error) {
	p, files, err := Render(ctx, opts)
	if err != nil {
		return nil, err
	}
	l := slog.With("dir", p.Opts.InDir)

	m, err := manifest.Load(fs, ManifestPath(p))
	if err != nil {
		return nil, err
	}
	m.Module = p.Module

	for _, e := range Stale(p, m, files) {
		err = fs.Remove(filepath.Join(p.Opts.InDir, filepath.FromSlash(e.File)))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove %s: %w", e.File, err)
		}
		m.Remove(e.File)
		l.With("file", e.File).Info("removed stale builders")
	}

	for _, f := range files {
		if err = afero.WriteFile(fs, f.Path, f.Content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Path, err)
		}
		rel := Rel(p, f.Path)
		m.Record(manifest.Entry{
			File:     rel,
			Source:   Rel(p, f.Source),
			Builders: slices.Clone(f.Builders),
			Digest:   manifest.Digest(f.Content),
		})
		l.With("file", rel, "builders", f.Builders).Info("wrote builders")
	}

	if err = m.Save(fs, ManifestPath(p)); err != nil {
		return nil, err
	}
	return m, nil
}
