package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/cmmoran/buildergen/pkg/action/generate"
	"github.com/cmmoran/buildergen/pkg/manifest"
	"github.com/cmmoran/buildergen/pkg/parser"
)

type Reason string

const (
	Missing  Reason = "missing"
	Modified Reason = "modified"
	Stale    Reason = "stale"
)

// Drift is a generated file that does not match what the sources produce
// now. Diff is set for modified files.
type Drift struct {
	File   string
	Reason Reason
	Diff   string
}

func (d Drift) String() string {
	return fmt.Sprintf("%s: %s", d.File, d.Reason)
}

// Check renders the builders in memory and compares them with the files
// on fs. Nothing is written.
func Check(ctx context.Context, fs afero.Fs, opts *parser.Options) ([]Drift, error) {
	p, files, err := generate.Render(ctx, opts)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(fs, generate.ManifestPath(p))
	if err != nil {
		return nil, err
	}

	var drift []Drift
	for _, f := range files {
		rel := generate.Rel(p, f.Path)
		current, err := afero.ReadFile(fs, f.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			drift = append(drift, Drift{File: rel, Reason: Missing})
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", rel, err)
		case manifest.Digest(current) != manifest.Digest(f.Content):
			drift = append(drift, Drift{File: rel, Reason: Modified, Diff: cmp.Diff(string(current), string(f.Content))})
		}
	}
	for _, e := range generate.Stale(p, m, files) {
		ok, err := afero.Exists(fs, filepath.Join(p.Opts.InDir, filepath.FromSlash(e.File)))
		if err != nil {
			return nil, err
		}
		if ok {
			drift = append(drift, Drift{File: e.File, Reason: Stale})
		}
	}
	return drift, nil
}
