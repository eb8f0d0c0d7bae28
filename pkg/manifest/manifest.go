package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Entry represents one generated file in the manifest.
type Entry struct {
	File     string   `yaml:"file" json:"file"`
	Source   string   `yaml:"source" json:"source"`
	Builders []string `yaml:"builders" json:"builders"`
	Digest   string   `yaml:"digest" json:"digest"`
}

// Manifest tracks the files written by the generator. Paths are slash
// separated and relative to the manifest's directory.
type Manifest struct {
	Module string  `yaml:"module,omitempty" json:"module,omitempty"`
	Files  []Entry `yaml:"files" json:"files"`
}

// Digest returns the content digest recorded for a generated file.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Load reads a manifest from the provided path. If the file does not exist,
// an empty manifest is returned.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}

// Save writes the manifest to the provided path, creating parent directories as needed.
func (m *Manifest) Save(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	slices.SortFunc(m.Files, func(a, b Entry) int { return strings.Compare(a.File, b.File) })
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Record adds e, replacing any entry for the same file.
func (m *Manifest) Record(e Entry) {
	for i := range m.Files {
		if m.Files[i].File == e.File {
			m.Files[i] = e
			return
		}
	}
	m.Files = append(m.Files, e)
}

// Find returns the entry for a generated file.
func (m *Manifest) Find(file string) (Entry, bool) {
	for _, e := range m.Files {
		if e.File == file {
			return e, true
		}
	}
	return Entry{}, false
}

// Remove drops the entry for file and reports whether there was one.
func (m *Manifest) Remove(file string) bool {
	n := len(m.Files)
	m.Files = slices.DeleteFunc(m.Files, func(e Entry) bool { return e.File == file })
	return len(m.Files) != n
}
