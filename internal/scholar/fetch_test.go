package scholar

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/datasource/jsonds"
)

// fakeAPI serves a fixed citation graph.
type fakeAPI struct {
	cites map[string][]string
	calls map[string]int
}

func (f *fakeAPI) GetPaper(_ context.Context, id string) (*Paper, error) {
	f.calls[id]++
	if _, ok := f.cites[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &Paper{PaperID: id, Title: "Paper " + id}, nil
}

func (f *fakeAPI) GetReferences(_ context.Context, id string, limit int) ([]Paper, error) {
	var out []Paper
	for _, c := range f.cites[id] {
		out = append(out, Paper{PaperID: c})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newFetcher(t *testing.T, depth int) (*Fetcher, *fakeAPI, *jsonds.Store) {
	t.Helper()
	docs, err := jsonds.New("docs", t.TempDir(), datasource.Options{})
	require.NoError(t, err)
	api := &fakeAPI{
		cites: map[string][]string{
			"a": {"b", "c"},
			"b": {"c", "gone"},
			"c": {"d"},
			"d": {},
		},
		calls: map[string]int{},
	}
	return &Fetcher{API: api, Docs: docs, Docset: "papers", Depth: depth}, api, docs
}

func TestFetch_Depth(t *testing.T) {
	f, _, docs := newFetcher(t, 1)
	stats, err := f.Fetch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, FetchStats{Fetched: 3}, stats)

	assert.Equal(t, []string{"a", "b", "c"}, docs.Names("papers"))
	got, err := docs.ReadDoc(context.Background(), datasource.One(datasource.DocKey{Docset: "papers", Doc: "a"}))
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c"}, got[datasource.DocKey{Docset: "papers", Doc: "a"}]["references"])
}

func TestFetch_MissingPapersAreCounted(t *testing.T) {
	f, _, _ := newFetcher(t, 5)
	stats, err := f.Fetch(context.Background(), []string{"a", "nope"})
	require.NoError(t, err)
	assert.Equal(t, FetchStats{Fetched: 4, Missing: 2}, stats)
}

func TestFetch_UsesStoredPapers(t *testing.T) {
	f, api, _ := newFetcher(t, 2)
	ctx := context.Background()
	_, err := f.Fetch(ctx, []string{"a"})
	require.NoError(t, err)

	stats, err := f.Fetch(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, FetchStats{Cached: 4, Missing: 1}, stats)
	assert.Equal(t, 1, api.calls["a"])

	f.Refresh = true
	_, err = f.Fetch(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls["a"])
}

func TestFetch_MaxReferences(t *testing.T) {
	f, _, docs := newFetcher(t, 1)
	f.MaxReferences = 1
	_, err := f.Fetch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, docs.Names("papers"))
}
