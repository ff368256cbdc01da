package datasource

import (
	"context"

	"github.com/matsen/bibnet/internal/graph"
)

// Source is implemented by every backing store.
//
// Writes addressed to several keys are applied one key at a time and are not
// rolled back: when a write fails part way, the returned key slice lists the
// keys that were already applied alongside the error.
type Source interface {
	// Kind returns the configured type name ("json", "graph", "sqlite", ...).
	Kind() string
	// Query runs a backend-native query. Stores without one return ErrUnsupportedOperation.
	Query(ctx context.Context, query string, args ...any) ([]Record, error)
	Close() error
}

// DocSource stores open records grouped in docsets.
type DocSource interface {
	Source
	// CreateDoc writes value under every resolved key, replacing existing documents.
	CreateDoc(ctx context.Context, spec Spec[DocKey], value Record) ([]DocKey, error)
	// ReadDoc returns the documents that exist among the resolved keys.
	ReadDoc(ctx context.Context, spec Spec[DocKey]) (map[DocKey]Record, error)
	// UpdateDoc merges value into every resolved document, creating absent ones.
	UpdateDoc(ctx context.Context, spec Spec[DocKey], value Record) ([]DocKey, error)
	// DeleteDoc removes the resolved documents and returns how many existed.
	DeleteDoc(ctx context.Context, spec Spec[DocKey]) (int, error)
}

// RowSource stores records grouped in tables.
type RowSource interface {
	Source
	CreateRow(ctx context.Context, spec Spec[RowKey], value Record) ([]RowKey, error)
	ReadRow(ctx context.Context, spec Spec[RowKey]) (map[RowKey]Record, error)
	UpdateRow(ctx context.Context, spec Spec[RowKey], value Record) ([]RowKey, error)
	DeleteRow(ctx context.Context, spec Spec[RowKey]) (int, error)
}

// GraphSource stores named graphs and addresses their nodes and edges.
// Reads return copies; mutating a returned graph or record does not touch
// the store.
type GraphSource interface {
	Source

	CreateGraph(ctx context.Context, spec Spec[GraphKey], value GraphSpec) ([]GraphKey, error)
	ReadGraph(ctx context.Context, spec Spec[GraphKey]) (map[GraphKey]*graph.Graph, error)
	UpdateGraph(ctx context.Context, spec Spec[GraphKey], value GraphSpec) ([]GraphKey, error)
	DeleteGraph(ctx context.Context, spec Spec[GraphKey]) (int, error)

	CreateNode(ctx context.Context, spec Spec[NodeKey], value Record) ([]NodeKey, error)
	ReadNode(ctx context.Context, spec Spec[NodeKey]) (map[NodeKey]Record, error)
	UpdateNode(ctx context.Context, spec Spec[NodeKey], value Record) ([]NodeKey, error)
	DeleteNode(ctx context.Context, spec Spec[NodeKey]) (int, error)

	CreateEdge(ctx context.Context, spec Spec[EdgeKey], value Record) ([]EdgeKey, error)
	ReadEdge(ctx context.Context, spec Spec[EdgeKey]) (map[EdgeKey]Record, error)
	UpdateEdge(ctx context.Context, spec Spec[EdgeKey], value Record) ([]EdgeKey, error)
	DeleteEdge(ctx context.Context, spec Spec[EdgeKey]) (int, error)
}

// Lifecycle is implemented by file-backed stores.
type Lifecycle interface {
	// Flush writes every dirty partition to disk.
	Flush() error
	// Reload flushes, then rereads every partition from disk.
	Reload() error
	// Clear empties every partition and flushes, removing the files.
	Clear() error
}

// GraphSpec describes a graph to create or merge into an existing one.
type GraphSpec struct {
	Directed bool           `json:"directed" yaml:"directed"`
	Attrs    map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	// Nodes maps node names to their attributes.
	Nodes map[string]Record `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges []EdgeSpec        `json:"edges,omitempty" yaml:"edges,omitempty"`
	// NodeAttrs and EdgeAttrs are applied before each node's or edge's own attributes.
	NodeAttrs Record `json:"node_attrs,omitempty" yaml:"node_attrs,omitempty"`
	EdgeAttrs Record `json:"edge_attrs,omitempty" yaml:"edge_attrs,omitempty"`
}

// EdgeSpec is one edge of a GraphSpec.
type EdgeSpec struct {
	Node1 string `json:"node1" yaml:"node1"`
	Node2 string `json:"node2" yaml:"node2"`
	Attrs Record `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Build creates a new graph from the spec.
func (s GraphSpec) Build() *graph.Graph {
	g := graph.New(s.Directed)
	s.MergeInto(g)
	return g
}

// MergeInto adds the spec's attributes, nodes and edges to g. Directedness of
// g is left alone.
func (s GraphSpec) MergeInto(g *graph.Graph) {
	for k, v := range s.Attrs {
		g.Attrs()[k] = cloneValue(v)
	}
	for _, name := range sortedKeys(s.Nodes) {
		g.AddNode(name, withDefaults(s.NodeAttrs, s.Nodes[name]))
	}
	for _, e := range s.Edges {
		for _, n := range []string{e.Node1, e.Node2} {
			if !g.HasNode(n) {
				g.AddNode(n, withDefaults(s.NodeAttrs, nil))
			}
		}
		g.AddEdge(e.Node1, e.Node2, withDefaults(s.EdgeAttrs, e.Attrs))
	}
}

func withDefaults(defaults, own Record) map[string]any {
	out := defaults.Clone()
	if out == nil {
		out = Record{}
	}
	out.Merge(own)
	return out
}

// SpecOf describes g as a GraphSpec, the inverse of Build.
func SpecOf(g *graph.Graph) GraphSpec {
	s := GraphSpec{
		Directed: g.Directed(),
		Attrs:    Record(g.Attrs()).Clone(),
		Nodes:    make(map[string]Record, g.NumNodes()),
	}
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		s.Nodes[n] = Record(attrs).Clone()
	}
	for _, e := range g.Edges() {
		attrs, _ := g.EdgeAttrs(e.From, e.To)
		s.Edges = append(s.Edges, EdgeSpec{Node1: e.From, Node2: e.To, Attrs: Record(attrs).Clone()})
	}
	return s
}
