package inspect

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cmmoran/buildergen/internal/model"
	"github.com/cmmoran/buildergen/pkg/parser"
)

func options(t *testing.T, opts ...parser.Option) *parser.Options {
	t.Helper()
	o := parser.NewOptions()
	for _, opt := range append([]parser.Option{
		parser.WithInDir(filepath.Join("..", "..", "..", "testdata", "widgets")),
		parser.WithPatterns("."),
	}, opts...) {
		opt(o)
	}
	require.NoError(t, o.Normalize())
	return o
}

func TestCollect(t *testing.T) {
	t.Parallel()
	sources, err := Collect(context.Background(), options(t))
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "widgets.go", sources[0].File)

	var names []string
	for _, m := range sources[0].Builders {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"WidgetBuilder", "PairBuilder", "LegacyBuilder"}, names)

	w := sources[0].Builders[0]
	assert.Equal(t, model.PatternOwned, w.Pattern)
	assert.True(t, w.Stringer)
}

func TestRun(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), options(t, parser.WithTypes("Widget")), &buf))

	var got []struct {
		File     string `yaml:"file"`
		Builders []struct {
			Name    string `yaml:"name"`
			Pattern string `yaml:"pattern"`
			Setters []struct {
				Name string `yaml:"name"`
				Kind string `yaml:"kind"`
			} `yaml:"setters"`
		} `yaml:"builders"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].Builders, 1)
	b := got[0].Builders[0]
	assert.Equal(t, "WidgetBuilder", b.Name)
	assert.Equal(t, "owned", b.Pattern)

	var setters []string
	for _, s := range b.Setters {
		setters = append(setters, s.Name)
	}
	assert.Contains(t, setters, "Tag")
	assert.NotContains(t, setters, "retries")
}
