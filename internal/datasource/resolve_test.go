package datasource

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapKeyspace is a Keyspace over partition -> sorted names.
type mapKeyspace map[string][]string

func (m mapKeyspace) Partitions() []string { return sortedKeys(m) }
func (m mapKeyspace) Names(p string) []string {
	return m[p]
}

type singleKeyspace struct{ mapKeyspace }

func (s singleKeyspace) Partition() string { return "only" }

func TestResolveDocs_Literal(t *testing.T) {
	ks := mapKeyspace{"pep": {"pep008"}}
	keys, err := ResolveDocs(One(DocKey{"pep", "pep008"}), ks)
	require.NoError(t, err)
	assert.Equal(t, []DocKey{{"pep", "pep008"}}, keys)
}

func TestResolveDocs_NonexistentLiteralIsNotAnError(t *testing.T) {
	ks := mapKeyspace{}
	keys, err := ResolveDocs(One(DocKey{"nope", "missing"}), ks)
	require.NoError(t, err)
	assert.Equal(t, []DocKey{{"nope", "missing"}}, keys)
}

func TestResolveDocs_WildcardCompleteness(t *testing.T) {
	ks := mapKeyspace{
		"a": {"1", "2", "3"},
		"b": {"1", "2", "3"},
	}
	keys, err := ResolveDocs(One(DocKey{Wildcard, Wildcard}), ks)
	require.NoError(t, err)
	assert.Len(t, keys, 6)
	assert.Equal(t, DocKey{"a", "1"}, keys[0])
	assert.Equal(t, DocKey{"b", "3"}, keys[5])
}

func TestResolveDocs_WildcardPrefixToken(t *testing.T) {
	ks := mapKeyspace{"a": {"x", "y"}}
	keys, err := ResolveDocs(One(DocKey{"a", "@*anything"}), ks)
	require.NoError(t, err)
	assert.Equal(t, []DocKey{{"a", "x"}, {"a", "y"}}, keys)
}

func TestResolveDocs_WildcardNameInMissingPartition(t *testing.T) {
	keys, err := ResolveDocs(One(DocKey{"ghost", Wildcard}), mapKeyspace{"a": {"x"}})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestResolveDocs_Deduplicates(t *testing.T) {
	ks := mapKeyspace{"a": {"x", "y"}}
	keys, err := ResolveDocs(Many(DocKey{"a", "y"}, DocKey{"a", Wildcard}, DocKey{"a", "y"}), ks)
	require.NoError(t, err)
	assert.Equal(t, []DocKey{{"a", "y"}, {"a", "x"}}, keys)
}

func TestResolveDocs_Deterministic(t *testing.T) {
	ks := mapKeyspace{"a": {"1", "2"}, "b": {"1"}, "c": {"9"}}
	spec := Where(map[DocKey]Condition{
		{"c", Wildcard}: nil,
		{Wildcard, "1"}: {"year": 2020},
	})
	first, err := ResolveDocs(spec, ks)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := ResolveDocs(spec, ks)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestResolve_ZeroSpecIsInvalid(t *testing.T) {
	var spec Spec[DocKey]
	_, err := ResolveDocs(spec, mapKeyspace{})
	assert.True(t, errors.Is(err, ErrInvalidKeySpecification))

	_, _, err = ResolveEdges(Spec[EdgeKey]{}, fakeEdgeSpace{})
	assert.True(t, errors.Is(err, ErrInvalidKeySpecification))
}

func TestResolve_EmptyManyIsValid(t *testing.T) {
	keys, err := ResolveRows(Many[RowKey](), mapKeyspace{"t": {"r"}})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestResolveRows_SinglePartitionWildcard(t *testing.T) {
	ks := singleKeyspace{mapKeyspace{"only": {"r1", "r2"}, "other": {"r3"}}}
	keys, err := ResolveRows(One(RowKey{Wildcard, Wildcard}), ks)
	require.NoError(t, err)
	assert.Equal(t, []RowKey{{"only", "r1"}, {"only", "r2"}}, keys)
}

func TestResolveGraphs(t *testing.T) {
	ks := mapKeyspace{"g1": nil, "g2": nil}
	keys, err := ResolveGraphs(Many[GraphKey]("g2", Wildcard, "g3"), ks)
	require.NoError(t, err)
	assert.Equal(t, []GraphKey{"g2", "g1", "g3"}, keys)
}

func TestResolveNodes(t *testing.T) {
	ks := mapKeyspace{"g": {"A", "B"}}
	keys, err := ResolveNodes(One(NodeKey{"g", Wildcard}), ks)
	require.NoError(t, err)
	assert.Equal(t, []NodeKey{{"g", "A"}, {"g", "B"}}, keys)
}

// fakeView is an EdgeView over a fixed edge list.
type fakeView struct {
	directed bool
	edges    []EdgePair
}

func (v fakeView) Directed() bool { return v.directed }
func (v fakeView) HasNode(n string) bool {
	for _, e := range v.edges {
		if e.Node1 == n || e.Node2 == n {
			return true
		}
	}
	return false
}
func (v fakeView) Edges() []EdgePair { return v.edges }
func (v fakeView) InEdges(n string) []EdgePair {
	var out []EdgePair
	for _, e := range v.edges {
		if e.Node2 == n {
			out = append(out, e)
		}
	}
	return out
}
func (v fakeView) OutEdges(n string) []EdgePair {
	var out []EdgePair
	for _, e := range v.edges {
		if e.Node1 == n {
			out = append(out, e)
		}
	}
	return out
}
func (v fakeView) IncidentEdges(n string) []EdgePair {
	var out []EdgePair
	for _, e := range v.edges {
		switch {
		case e.Node1 == n:
			out = append(out, e)
		case e.Node2 == n:
			out = append(out, EdgePair{n, e.Node1})
		}
	}
	return out
}

type fakeEdgeSpace map[string]fakeView

func (f fakeEdgeSpace) Partitions() []string { return sortedKeys(f) }
func (f fakeEdgeSpace) View(g string) (EdgeView, bool) {
	v, ok := f[g]
	return v, ok
}

func TestResolveEdges_DirectedAsymmetry(t *testing.T) {
	es := fakeEdgeSpace{"g": {directed: true, edges: []EdgePair{{"A", "B"}}}}

	keys, notes, err := ResolveEdges(One(Edge("g", Wildcard, "B")), es)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{Edge("g", "A", "B")}, keys)
	assert.Empty(t, notes)

	keys, _, err = ResolveEdges(One(Edge("g", "B", Wildcard)), es)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestResolveEdges_UndirectedFallsBackWithNote(t *testing.T) {
	es := fakeEdgeSpace{"g": {directed: false, edges: []EdgePair{{"A", "B"}, {"B", "C"}}}}

	keys, notes, err := ResolveEdges(One(Edge("g", Wildcard, "B")), es)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{Edge("g", "A", "B"), Edge("g", "B", "C")}, keys)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "undirected")
}

func TestResolveEdges_UndirectedKeysAreCanonical(t *testing.T) {
	es := fakeEdgeSpace{"g": {directed: false, edges: []EdgePair{{"A", "B"}}}}

	keys, _, err := ResolveEdges(Many(Edge("g", "B", Wildcard), Edge("g", Wildcard, Wildcard), Edge("g", "B", "A")), es)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{Edge("g", "A", "B")}, keys)

	directed := fakeEdgeSpace{"g": {directed: true, edges: []EdgePair{{"B", "A"}}}}
	keys, _, err = ResolveEdges(One(Edge("g", "B", "A")), directed)
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{Edge("g", "B", "A")}, keys)
}

func TestResolveEdges_BothWildcards(t *testing.T) {
	es := fakeEdgeSpace{
		"g1": {directed: true, edges: []EdgePair{{"A", "B"}, {"B", "C"}}},
		"g2": {directed: true, edges: []EdgePair{{"X", "Y"}}},
	}
	keys, _, err := ResolveEdges(One(Edge(Wildcard, Wildcard, Wildcard)), es)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestResolveEdges_LiteralNeedsNoGraph(t *testing.T) {
	keys, _, err := ResolveEdges(One(Edge("missing", "A", "B")), fakeEdgeSpace{})
	require.NoError(t, err)
	assert.Equal(t, []EdgeKey{Edge("missing", "A", "B")}, keys)
}

func TestResolveEdges_UnknownEndpointSkipped(t *testing.T) {
	es := fakeEdgeSpace{"g": {directed: true, edges: []EdgePair{{"A", "B"}}}}
	keys, notes, err := ResolveEdges(Many(Edge("g", Wildcard, "Z"), Edge("nope", "A", Wildcard)), es)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Empty(t, notes)
}
