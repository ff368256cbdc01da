// Package analysis computes centrality, communities and summary statistics
// over stored graphs.
package analysis

import (
	"errors"
	"math"
	"sort"

	"github.com/matsen/bibnet/internal/graph"
)

// ErrNotConverged is returned when an iterative measure runs out of iterations.
var ErrNotConverged = errors.New("did not converge")

// Summary describes the size and shape of a graph.
type Summary struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	Directed      bool    `json:"directed"`
	Density       float64 `json:"density"`
	AverageDegree float64 `json:"average_degree"`
}

// Summarize returns the Summary of g.
func Summarize(g *graph.Graph) Summary {
	s := Summary{Nodes: g.NumNodes(), Edges: g.NumEdges(), Directed: g.Directed(), Density: Density(g)}
	if s.Nodes > 0 {
		s.AverageDegree = 2 * float64(s.Edges) / float64(s.Nodes)
	}
	return s
}

// Density is the fraction of possible edges present: m/(n(n-1)) for
// directed graphs and 2m/(n(n-1)) for undirected ones. Graphs with fewer
// than two nodes have density 0.
func Density(g *graph.Graph) float64 {
	n := float64(g.NumNodes())
	if n < 2 {
		return 0
	}
	m := float64(g.NumEdges())
	if g.Directed() {
		return m / (n * (n - 1))
	}
	return 2 * m / (n * (n - 1))
}

// Weight returns the numeric edge attribute attr of u-v, or 1 when attr is
// empty or the edge does not carry a number there.
func Weight(g *graph.Graph, u, v, attr string) float64 {
	if attr == "" {
		return 1
	}
	attrs, ok := g.EdgeAttrs(u, v)
	if !ok {
		return 1
	}
	switch w := attrs[attr].(type) {
	case int:
		return float64(w)
	case int64:
		return float64(w)
	case float64:
		return w
	}
	return 1
}

// Direction selects which edges a degree measure counts.
type Direction int

const (
	Both Direction = iota
	In
	Out
)

// Degree returns degree centrality. Unweighted degrees are divided by n-1;
// weighted degrees by the total edge weight. On undirected graphs every
// direction counts all incident edges.
func Degree(g *graph.Graph, dir Direction, weight string) map[string]float64 {
	out := make(map[string]float64, g.NumNodes())
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return out
	}

	scale := 0.0
	if weight != "" {
		total := 0.0
		for _, e := range g.Edges() {
			total += Weight(g, e.From, e.To, weight)
		}
		if total > 0 {
			scale = 1 / total
		}
	} else if len(nodes) > 1 {
		scale = 1 / float64(len(nodes)-1)
	}

	for _, n := range nodes {
		d := 0.0
		if !g.Directed() || dir != In {
			for _, e := range g.OutEdges(n) {
				d += Weight(g, e.From, e.To, weight)
			}
		}
		if g.Directed() && dir != Out {
			for _, e := range g.InEdges(n) {
				d += Weight(g, e.From, e.To, weight)
			}
		}
		if !g.Directed() && g.HasEdge(n, n) {
			d += Weight(g, n, n, weight)
		}
		out[n] = d * scale
	}
	return out
}

// PageRankOptions tunes PageRank.
type PageRankOptions struct {
	Damping   float64 // default 0.85
	MaxIter   int     // default 100
	Tolerance float64 // default 1e-6, per node
	Weight    string  // edge attribute used as weight; empty for unweighted
}

func (o PageRankOptions) withDefaults() PageRankOptions {
	if o.Damping == 0 {
		o.Damping = 0.85
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 100
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	return o
}

// PageRank ranks nodes by the stationary distribution of a random walk that
// follows out-edges with probability Damping and jumps uniformly otherwise.
// Rank of dangling nodes is spread uniformly. Undirected edges are walked
// both ways. Scores sum to 1.
func PageRank(g *graph.Graph, opts PageRankOptions) (map[string]float64, error) {
	opts = opts.withDefaults()
	nodes := g.Nodes()
	n := float64(len(nodes))
	if n == 0 {
		return map[string]float64{}, nil
	}

	outWeight := make(map[string]float64, len(nodes))
	for _, u := range nodes {
		for _, v := range g.Successors(u) {
			outWeight[u] += Weight(g, u, v, opts.Weight)
		}
	}

	x := make(map[string]float64, len(nodes))
	for _, u := range nodes {
		x[u] = 1 / n
	}
	for iter := 0; iter < opts.MaxIter; iter++ {
		last := x
		x = make(map[string]float64, len(nodes))

		dangling := 0.0
		for _, u := range nodes {
			if outWeight[u] == 0 {
				dangling += last[u]
			}
		}
		base := (1-opts.Damping)/n + opts.Damping*dangling/n
		for _, u := range nodes {
			x[u] += base
			if outWeight[u] == 0 {
				continue
			}
			for _, v := range g.Successors(u) {
				x[v] += opts.Damping * last[u] * Weight(g, u, v, opts.Weight) / outWeight[u]
			}
		}

		diff := 0.0
		for _, u := range nodes {
			diff += math.Abs(x[u] - last[u])
		}
		if diff < n*opts.Tolerance {
			return x, nil
		}
	}
	return x, ErrNotConverged
}

// Score is one node's value in a ranking.
type Score struct {
	Node  string  `json:"node"`
	Value float64 `json:"value"`
}

// Top returns the k highest scores, ties ordered by node name. k <= 0
// returns every score.
func Top(scores map[string]float64, k int) []Score {
	out := make([]Score, 0, len(scores))
	for n, v := range scores {
		out = append(out, Score{Node: n, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Node < out[j].Node
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
