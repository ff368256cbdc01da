package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecShapes(t *testing.T) {
	one := One(DocKey{"a", "b"})
	entries, err := one.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Nil(t, entries[0].Condition)

	keys := []DocKey{{"a", "1"}, {"a", "2"}}
	many := Many(keys...)
	keys[0] = DocKey{"changed", "x"}
	assert.Equal(t, DocKey{"a", "1"}, many.Keys()[0], "Many must copy its input")

	where := Where(map[DocKey]Condition{
		{"b", "1"}: {"x": 1},
		{"a", "1"}: {"y": 2},
	})
	entries, err = where.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DocKey{"a", "1"}, entries[0].Key)
	assert.Equal(t, Condition{"y": 2}, entries[0].Condition)
}

func TestZeroSpec(t *testing.T) {
	var s Spec[RowKey]
	_, err := s.Entries()
	assert.True(t, errors.Is(err, ErrInvalidKeySpecification))
	assert.Equal(t, "invalid[]", s.String())
}

func TestIsWildcard(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"@*", true},
		{"@*suffix", true},
		{"@", false},
		{"x@*", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsWildcard(tt.token); got != tt.want {
			t.Errorf("IsWildcard(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestKeyStrings(t *testing.T) {
	assert.Equal(t, "pep/pep008", DocKey{"pep", "pep008"}.String())
	assert.Equal(t, "g/(A,B)", Edge("g", "A", "B").String())

	data, err := json.Marshal(map[DocKey]int{{"pep", "pep008"}: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pep/pep008": 1}`, string(data))
}

func TestRecordCloneAndMerge(t *testing.T) {
	r := Record{"title": "Style Guide", "meta": map[string]any{"year": 2001}}
	c := r.Clone()
	c["meta"].(map[string]any)["year"] = 1999
	assert.Equal(t, 2001, r["meta"].(map[string]any)["year"])

	r.Merge(Record{"author": "van Rossum", "title": "PEP 8"})
	assert.Equal(t, Record{
		"title":  "PEP 8",
		"author": "van Rossum",
		"meta":   map[string]any{"year": 2001},
	}, r)
}

func TestGraphSpecBuild(t *testing.T) {
	spec := GraphSpec{
		Directed:  true,
		Attrs:     map[string]any{"name": "cites"},
		Nodes:     map[string]Record{"A": {"title": "a"}},
		Edges:     []EdgeSpec{{Node1: "A", Node2: "B", Attrs: Record{"count": 2}}},
		NodeAttrs: Record{"type": "paper"},
		EdgeAttrs: Record{"count": 1},
	}
	g := spec.Build()

	assert.True(t, g.Directed())
	a, _ := g.Node("A")
	assert.Equal(t, map[string]any{"title": "a", "type": "paper"}, a)
	b, _ := g.Node("B")
	assert.Equal(t, map[string]any{"type": "paper"}, b)
	e, _ := g.EdgeAttrs("A", "B")
	assert.Equal(t, map[string]any{"count": 2}, e)
	assert.Equal(t, "cites", g.Attrs()["name"])
}

func TestSpecOfRoundTrip(t *testing.T) {
	g := GraphSpec{
		Attrs: map[string]any{"network": "author"},
		Nodes: map[string]Record{"a": {"name": "Ann"}},
		Edges: []EdgeSpec{{Node1: "b", Node2: "a", Attrs: Record{"count": 1}}},
	}.Build()

	s := SpecOf(g)
	assert.False(t, s.Directed)
	assert.Equal(t, Record{"name": "Ann"}, s.Nodes["a"])
	assert.Equal(t, []EdgeSpec{{Node1: "a", Node2: "b", Attrs: Record{"count": 1}}}, s.Edges)

	again := s.Build()
	assert.Equal(t, g.Nodes(), again.Nodes())
	assert.Equal(t, g.Edges(), again.Edges())
	assert.Equal(t, "author", again.Attrs()["network"])
}

func TestNotes(t *testing.T) {
	AddNote(context.Background(), "dropped")

	var n Notes
	ctx := WithNotes(context.Background(), &n)
	AddNote(ctx, "first")
	AddNote(ctx, "second")
	assert.Equal(t, []string{"first", "second"}, n.List())
}

func TestUnsupportedAndUnavailable(t *testing.T) {
	err := Unsupported("pdf", "CreateDoc")
	assert.True(t, errors.Is(err, ErrUnsupportedOperation))
	assert.Contains(t, err.Error(), "CreateDoc")

	cause := context.DeadlineExceeded
	err = Unavailable("mongo", cause)
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "mongo")
}
