package viz

import (
	"sort"
	"strings"

	"github.com/matsen/bibnet/internal/graph"
)

// Options selects extra node data and trims large graphs.
type Options struct {
	// Scores, when set, sizes nodes (e.g. PageRank).
	Scores map[string]float64
	// Communities, when set, colors nodes by community id.
	Communities map[string]int
	// MaxNodes keeps only the highest-degree nodes; 0 keeps all.
	MaxNodes int
}

var prefixes = map[string]string{
	"paper_":  NodeTypePaper,
	"author_": NodeTypeAuthor,
	"word_":   NodeTypeWord,
}

// FromGraph converts g into GraphData. Node and edge order follows the
// graph's sorted order.
func FromGraph(g *graph.Graph, opts Options) *GraphData {
	keep := keepNodes(g, opts.MaxNodes)

	data := &GraphData{Directed: g.Directed(), Nodes: []Node{}, Edges: []Edge{}}
	for _, name := range g.Nodes() {
		if !keep[name] {
			continue
		}
		attrs, _ := g.Node(name)
		n := newNode(name, attrs, g.Degree(name))
		if s, ok := opts.Scores[name]; ok {
			n.Score = &s
		}
		if c, ok := opts.Communities[name]; ok {
			n.Community = &c
		}
		data.Nodes = append(data.Nodes, n)
	}

	for _, e := range g.Edges() {
		if !keep[e.From] || !keep[e.To] {
			continue
		}
		attrs, _ := g.EdgeAttrs(e.From, e.To)
		rel, _ := attrs["relation"].(string)
		data.Edges = append(data.Edges, Edge{
			Source:   e.From,
			Target:   e.To,
			Relation: rel,
			Count:    toInt(attrs["count"]),
		})
	}
	return data
}

func keepNodes(g *graph.Graph, max int) map[string]bool {
	nodes := g.Nodes()
	if max > 0 && len(nodes) > max {
		sort.SliceStable(nodes, func(i, j int) bool {
			return g.Degree(nodes[i]) > g.Degree(nodes[j])
		})
		nodes = nodes[:max]
	}
	keep := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		keep[n] = true
	}
	return keep
}

// newNode builds a node from its stored attributes. The label is the
// first of name, word or title, falling back to the name without its
// type prefix.
func newNode(name string, attrs map[string]any, degree int) Node {
	n := Node{ID: name, Type: nodeType(name, attrs), Degree: degree}
	n.Title, _ = attrs["title"].(string)
	n.Year = toInt(attrs["year"])

	for _, key := range []string{"name", "word", "title"} {
		if s, ok := attrs[key].(string); ok && s != "" {
			n.Label = s
			break
		}
	}
	if n.Label == "" {
		n.Label = trimPrefix(name)
	}
	return n
}

func nodeType(name string, attrs map[string]any) string {
	if t, ok := attrs["type"].(string); ok && t != "" {
		return t
	}
	for p, t := range prefixes {
		if strings.HasPrefix(name, p) {
			return t
		}
	}
	return NodeTypeOther
}

func trimPrefix(name string) string {
	for p := range prefixes {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
