// Package graphds is a graph store that keeps each named graph in one file.
// The file format is fixed per store by the file_format setting.
package graphds

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/datasource/filestore"
	"github.com/matsen/bibnet/internal/graph"
)

// Type is the configuration type name.
const Type = "graph"

func validFormat(v any) bool {
	s, ok := v.(string)
	return ok && slices.Contains(graph.Formats(), graph.Format(s))
}

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"location": config.Required(config.IsType(config.KindString)),
	}),
	"file_format": config.WithDefault(string(graph.DefaultFormat), config.IsType(config.KindString), config.Satisfies(validFormat)),
}

type fileCodec struct {
	graph.Codec
}

// Empty graphs are still graphs; only deletion removes a file.
func (fileCodec) Empty(*graph.Graph) bool { return false }

// Store is a file-backed GraphSource.
type Store struct {
	name   string
	format graph.Format
	files  *filestore.Store[*graph.Graph]
	opts   datasource.Options
	log    *slog.Logger
}

var (
	_ datasource.GraphSource = (*Store)(nil)
	_ datasource.Lifecycle   = (*Store)(nil)
)

// Open is the factory opener.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	return New(name, cfg.String("", "init", "location"), graph.Format(cfg.String("", "file_format")), opts)
}

// New opens the store rooted at location. An empty format selects the default.
func New(name, location string, format graph.Format, opts datasource.Options) (*Store, error) {
	if format == "" {
		format = graph.DefaultFormat
	}
	codec, err := graph.CodecFor(format)
	if err != nil {
		return nil, err
	}
	log := opts.Log().With("source", name)
	files, err := filestore.Open[*graph.Graph](location, fileCodec{codec}, log)
	if err != nil {
		return nil, fmt.Errorf("opening graph store: %w", err)
	}
	return &Store{name: name, format: format, files: files, opts: opts, log: log}, nil
}

func (s *Store) Kind() string { return Type }

// Format returns the file format chosen at construction.
func (s *Store) Format() graph.Format { return s.format }

// Dir returns the directory holding the graph files.
func (s *Store) Dir() string { return s.files.Dir() }

// Partitions lists the graph names.
func (s *Store) Partitions() []string { return s.files.Partitions() }

// Names lists the nodes of a graph.
func (s *Store) Names(name string) []string {
	g, ok := s.files.Get(name)
	if !ok {
		return nil
	}
	return g.Nodes()
}

// View exposes the edge structure of a graph to the resolver.
func (s *Store) View(name string) (datasource.EdgeView, bool) {
	g, ok := s.files.Get(name)
	if !ok {
		return nil, false
	}
	return edgeView{g}, true
}

type edgeView struct{ g *graph.Graph }

func (v edgeView) Directed() bool { return v.g.Directed() }
func (v edgeView) HasNode(n string) bool { return v.g.HasNode(n) }
func (v edgeView) Edges() []datasource.EdgePair { return pairs(v.g.Edges()) }
func (v edgeView) InEdges(n string) []datasource.EdgePair { return pairs(v.g.InEdges(n)) }
func (v edgeView) OutEdges(n string) []datasource.EdgePair { return pairs(v.g.OutEdges(n)) }
func (v edgeView) IncidentEdges(n string) []datasource.EdgePair {
	return pairs(v.g.IncidentEdges(n))
}

func pairs(edges []graph.Edge) []datasource.EdgePair {
	out := make([]datasource.EdgePair, len(edges))
	for i, e := range edges {
		out[i] = datasource.EdgePair{Node1: e.From, Node2: e.To}
	}
	return out
}

// Graphs

func (s *Store) CreateGraph(ctx context.Context, spec datasource.Spec[datasource.GraphKey], value datasource.GraphSpec) ([]datasource.GraphKey, error) {
	keys, err := datasource.ResolveGraphs(spec, s)
	for _, k := range keys {
		s.files.Put(string(k), value.Build())
	}
	s.opts.Metrics.Observe(s.name, "graph", "create", len(keys), err)
	return keys, err
}

func (s *Store) ReadGraph(ctx context.Context, spec datasource.Spec[datasource.GraphKey]) (map[datasource.GraphKey]*graph.Graph, error) {
	keys, err := datasource.ResolveGraphs(spec, s)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "graph", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.GraphKey]*graph.Graph)
	for _, k := range keys {
		if g, ok := s.files.Get(string(k)); ok {
			out[k] = g.Clone()
		}
	}
	s.opts.Metrics.Observe(s.name, "graph", "read", len(out), nil)
	return out, nil
}

func (s *Store) UpdateGraph(ctx context.Context, spec datasource.Spec[datasource.GraphKey], value datasource.GraphSpec) ([]datasource.GraphKey, error) {
	keys, err := datasource.ResolveGraphs(spec, s)
	for _, k := range keys {
		if g, ok := s.files.Get(string(k)); ok {
			value.MergeInto(g)
			s.files.MarkDirty(string(k))
			continue
		}
		s.files.Put(string(k), value.Build())
	}
	s.opts.Metrics.Observe(s.name, "graph", "update", len(keys), err)
	return keys, err
}

func (s *Store) DeleteGraph(ctx context.Context, spec datasource.Spec[datasource.GraphKey]) (int, error) {
	keys, err := datasource.ResolveGraphs(spec, s)
	n := 0
	for _, k := range keys {
		if s.files.Delete(string(k)) {
			n++
		}
	}
	s.opts.Metrics.Observe(s.name, "graph", "delete", n, err)
	return n, err
}

// Nodes

func (s *Store) CreateNode(ctx context.Context, spec datasource.Spec[datasource.NodeKey], value datasource.Record) ([]datasource.NodeKey, error) {
	keys, err := datasource.ResolveNodes(spec, s)
	var applied []datasource.NodeKey
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			err = fmt.Errorf("creating node %s: %w", k, datasource.ErrGraphNotFound)
			break
		}
		if attrs, exists := g.Node(k.Node); exists {
			clear(attrs)
		}
		g.AddNode(k.Node, value.Clone())
		s.files.MarkDirty(k.Graph)
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "node", "create", len(applied), err)
	return applied, err
}

func (s *Store) ReadNode(ctx context.Context, spec datasource.Spec[datasource.NodeKey]) (map[datasource.NodeKey]datasource.Record, error) {
	keys, err := datasource.ResolveNodes(spec, s)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "node", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.NodeKey]datasource.Record)
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			continue
		}
		if attrs, ok := g.Node(k.Node); ok {
			out[k] = datasource.Record(attrs).Clone()
		}
	}
	s.opts.Metrics.Observe(s.name, "node", "read", len(out), nil)
	return out, nil
}

// UpdateNode merges value into each node, adding absent nodes. Keys in
// graphs that do not exist are skipped.
func (s *Store) UpdateNode(ctx context.Context, spec datasource.Spec[datasource.NodeKey], value datasource.Record) ([]datasource.NodeKey, error) {
	keys, err := datasource.ResolveNodes(spec, s)
	var applied []datasource.NodeKey
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			continue
		}
		g.AddNode(k.Node, value.Clone())
		s.files.MarkDirty(k.Graph)
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "node", "update", len(applied), err)
	return applied, err
}

func (s *Store) DeleteNode(ctx context.Context, spec datasource.Spec[datasource.NodeKey]) (int, error) {
	keys, err := datasource.ResolveNodes(spec, s)
	n := 0
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			continue
		}
		if g.RemoveNode(k.Node) {
			s.files.MarkDirty(k.Graph)
			n++
		}
	}
	s.opts.Metrics.Observe(s.name, "node", "delete", n, err)
	return n, err
}

// Edges

func (s *Store) resolveEdges(ctx context.Context, spec datasource.Spec[datasource.EdgeKey]) ([]datasource.EdgeKey, error) {
	keys, notes, err := datasource.ResolveEdges(spec, s)
	for _, note := range notes {
		s.log.Warn(note)
		datasource.AddNote(ctx, note)
	}
	return keys, err
}

func (s *Store) CreateEdge(ctx context.Context, spec datasource.Spec[datasource.EdgeKey], value datasource.Record) ([]datasource.EdgeKey, error) {
	keys, err := s.resolveEdges(ctx, spec)
	var applied []datasource.EdgeKey
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			err = fmt.Errorf("creating edge %s: %w", k, datasource.ErrGraphNotFound)
			break
		}
		if attrs, exists := g.EdgeAttrs(k.Edge.Node1, k.Edge.Node2); exists {
			clear(attrs)
		}
		g.AddEdge(k.Edge.Node1, k.Edge.Node2, value.Clone())
		s.files.MarkDirty(k.Graph)
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "edge", "create", len(applied), err)
	return applied, err
}

func (s *Store) ReadEdge(ctx context.Context, spec datasource.Spec[datasource.EdgeKey]) (map[datasource.EdgeKey]datasource.Record, error) {
	keys, err := s.resolveEdges(ctx, spec)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "edge", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.EdgeKey]datasource.Record)
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			continue
		}
		if attrs, ok := g.EdgeAttrs(k.Edge.Node1, k.Edge.Node2); ok {
			out[k] = datasource.Record(attrs).Clone()
		}
	}
	s.opts.Metrics.Observe(s.name, "edge", "read", len(out), nil)
	return out, nil
}

// UpdateEdge merges value into each edge, adding absent edges and their
// endpoints. Keys in graphs that do not exist are skipped.
func (s *Store) UpdateEdge(ctx context.Context, spec datasource.Spec[datasource.EdgeKey], value datasource.Record) ([]datasource.EdgeKey, error) {
	keys, err := s.resolveEdges(ctx, spec)
	var applied []datasource.EdgeKey
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			continue
		}
		g.AddEdge(k.Edge.Node1, k.Edge.Node2, value.Clone())
		s.files.MarkDirty(k.Graph)
		applied = append(applied, k)
	}
	s.opts.Metrics.Observe(s.name, "edge", "update", len(applied), err)
	return applied, err
}

func (s *Store) DeleteEdge(ctx context.Context, spec datasource.Spec[datasource.EdgeKey]) (int, error) {
	keys, err := s.resolveEdges(ctx, spec)
	n := 0
	for _, k := range keys {
		g, ok := s.files.Get(k.Graph)
		if !ok {
			continue
		}
		if g.RemoveEdge(k.Edge.Node1, k.Edge.Node2) {
			s.files.MarkDirty(k.Graph)
			n++
		}
	}
	s.opts.Metrics.Observe(s.name, "edge", "delete", n, err)
	return n, err
}

// Query is not supported by file stores.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	return nil, datasource.Unsupported(Type, "Query")
}

// State reports whether unflushed changes exist.
func (s *Store) State() filestore.State { return s.files.State() }

func (s *Store) Flush() error {
	s.opts.Metrics.ObserveFlush(s.name)
	return s.files.Flush()
}

func (s *Store) Reload() error {
	s.opts.Metrics.ObserveFlush(s.name)
	return s.files.Reload()
}

func (s *Store) Clear() error {
	s.opts.Metrics.ObserveFlush(s.name)
	return s.files.Clear()
}

// Close flushes pending changes.
func (s *Store) Close() error {
	return s.Flush()
}
