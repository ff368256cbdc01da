package builtin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

func TestNewFactory_Types(t *testing.T) {
	f := NewFactory(datasource.Options{})
	assert.Equal(t, []string{"dynamo", "graph", "json", "mongo", "nats", "pdf", "sqlite"}, f.Types())
}

func TestOpenAll_DefaultWorkspace(t *testing.T) {
	root := t.TempDir()
	sources := config.Sources{
		"docs": config.Tree{
			"_pre_init": map[string]any{"type": "json"},
			"init":      map[string]any{"location": filepath.Join(root, "docs")},
		},
		"graphs": config.Tree{
			"_pre_init":   map[string]any{"type": "graph"},
			"init":        map[string]any{"location": filepath.Join(root, "graphs")},
			"file_format": "graphml",
		},
		"rows": config.Tree{
			"_pre_init": map[string]any{"type": "sqlite"},
			"init":      map[string]any{"location": filepath.Join(root, "rows.db")},
		},
	}

	srcs, err := NewFactory(datasource.Options{}).OpenAll(sources)
	require.NoError(t, err)
	defer func() {
		for _, s := range srcs {
			s.Close()
		}
	}()

	docs, ok := srcs["docs"].(datasource.DocSource)
	require.True(t, ok)
	_, err = docs.CreateDoc(context.Background(), datasource.One(datasource.DocKey{Docset: "pep", Doc: "pep008"}), datasource.Record{"title": "Style Guide"})
	require.NoError(t, err)

	_, ok = srcs["graphs"].(datasource.GraphSource)
	assert.True(t, ok)
	_, ok = srcs["rows"].(datasource.RowSource)
	assert.True(t, ok)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := NewFactory(datasource.Options{}).Open("x", config.Tree{"_pre_init": map[string]any{"type": "arango"}})
	assert.True(t, errors.Is(err, datasource.ErrUnknownSourceType))
}
