package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/cmmoran/buildergen/pkg/action/generate"
	"github.com/cmmoran/buildergen/pkg/manifest"
	"github.com/cmmoran/buildergen/pkg/parser"
)

// Debounce is how long the watcher waits for more changes before it
// regenerates.
var Debounce = 250 * time.Millisecond

// Report receives the outcome of every generation run.
type Report func(*manifest.Manifest, error)

// Run generates once, then regenerates whenever a selected source file
// under opts.InDir changes, until ctx is done. Generation errors go to
// report and do not stop the watcher.
func Run(ctx context.Context, afs afero.Fs, opts *parser.Options, report Report) error {
	if err := opts.Normalize(); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err = addDirs(afs, w, opts.InDir); err != nil {
		return err
	}
	l := slog.With("dir", opts.InDir)

	run := func() {
		m, err := generate.Run(ctx, afs, opts)
		if err != nil {
			l.With("error", err).Warn("generation failed")
		}
		report(m, err)
	}
	run()

	timer := time.NewTimer(Debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors:
			l.With("error", err).Warn("watch error")
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := afs.Stat(ev.Name); err == nil && fi.IsDir() && watched(ev.Name) {
					if err = addDirs(afs, w, ev.Name); err != nil {
						l.With("error", err, "path", ev.Name).Warn("unable to watch directory")
					}
					continue
				}
			}
			if !relevant(opts, ev) {
				continue
			}
			l.With("path", ev.Name, "op", ev.Op.String()).Debug("source changed")
			timer.Reset(Debounce)
		case <-timer.C:
			run()
		}
	}
}

func relevant(opts *parser.Options, ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(ev.Name, ".go") && opts.SelectsFile(ev.Name)
}

// watched excludes directories the go tool ignores.
func watched(dir string) bool {
	switch base := filepath.Base(dir); {
	case base == "testdata", base == "vendor":
		return false
	default:
		return !strings.HasPrefix(base, ".") && !strings.HasPrefix(base, "_")
	}
}

func addDirs(afs afero.Fs, w *fsnotify.Watcher, root string) error {
	return afero.Walk(afs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && !watched(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
