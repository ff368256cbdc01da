// Package graph provides the in-memory attributed graph used by the graph
// store and the analysis code, and its file codecs.
package graph

import "sort"

// Edge is an endpoint pair. On directed graphs From is the source.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a simple (no parallel edges) attributed graph with string node names.
// Undirected edges share one attribute map between both adjacency entries.
type Graph struct {
	directed bool
	attrs    map[string]any
	nodes    map[string]map[string]any
	succ     map[string]map[string]map[string]any
	pred     map[string]map[string]map[string]any // nil when undirected
}

// New returns an empty graph.
func New(directed bool) *Graph {
	g := &Graph{
		directed: directed,
		attrs:    map[string]any{},
		nodes:    map[string]map[string]any{},
		succ:     map[string]map[string]map[string]any{},
	}
	if directed {
		g.pred = map[string]map[string]map[string]any{}
	}
	return g
}

// Directed reports whether edges have a direction.
func (g *Graph) Directed() bool { return g.directed }

// Attrs returns the live graph-level attribute map.
func (g *Graph) Attrs() map[string]any { return g.attrs }

// AddNode adds n if absent and merges attrs into its attributes.
func (g *Graph) AddNode(n string, attrs map[string]any) {
	na, ok := g.nodes[n]
	if !ok {
		na = map[string]any{}
		g.nodes[n] = na
		g.succ[n] = map[string]map[string]any{}
		if g.directed {
			g.pred[n] = map[string]map[string]any{}
		}
	}
	for k, v := range attrs {
		na[k] = v
	}
}

// HasNode reports whether n is in the graph.
func (g *Graph) HasNode(n string) bool {
	_, ok := g.nodes[n]
	return ok
}

// Node returns the live attribute map of n.
func (g *Graph) Node(n string) (map[string]any, bool) {
	na, ok := g.nodes[n]
	return na, ok
}

// RemoveNode removes n and every edge touching it.
func (g *Graph) RemoveNode(n string) bool {
	if !g.HasNode(n) {
		return false
	}
	for v := range g.succ[n] {
		if g.directed {
			delete(g.pred[v], n)
		} else {
			delete(g.succ[v], n)
		}
	}
	if g.directed {
		for u := range g.pred[n] {
			delete(g.succ[u], n)
		}
		delete(g.pred, n)
	}
	delete(g.succ, n)
	delete(g.nodes, n)
	return true
}

// Nodes returns node names in sorted order.
func (g *Graph) Nodes() []string {
	return sortedNames(g.nodes)
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// AddEdge adds u-v (creating missing endpoints) and merges attrs into the edge.
func (g *Graph) AddEdge(u, v string, attrs map[string]any) {
	g.AddNode(u, nil)
	g.AddNode(v, nil)

	ea, ok := g.succ[u][v]
	if !ok {
		ea = map[string]any{}
		g.succ[u][v] = ea
		if g.directed {
			g.pred[v][u] = ea
		} else {
			g.succ[v][u] = ea
		}
	}
	for k, val := range attrs {
		ea[k] = val
	}
}

// HasEdge reports whether u-v exists.
func (g *Graph) HasEdge(u, v string) bool {
	_, ok := g.succ[u][v]
	return ok
}

// EdgeAttrs returns the live attribute map of u-v.
func (g *Graph) EdgeAttrs(u, v string) (map[string]any, bool) {
	ea, ok := g.succ[u][v]
	return ea, ok
}

// RemoveEdge removes u-v.
func (g *Graph) RemoveEdge(u, v string) bool {
	if !g.HasEdge(u, v) {
		return false
	}
	delete(g.succ[u], v)
	if g.directed {
		delete(g.pred[v], u)
	} else {
		delete(g.succ[v], u)
	}
	return true
}

// Edges returns every edge once, ordered by endpoints. Undirected edges are
// reported with the smaller name first.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, u := range g.Nodes() {
		for _, v := range sortedNames(g.succ[u]) {
			if !g.directed && v < u {
				continue
			}
			out = append(out, Edge{From: u, To: v})
		}
	}
	return out
}

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int {
	n := 0
	for u, adj := range g.succ {
		for v := range adj {
			if g.directed || u <= v {
				n++
			}
		}
	}
	return n
}

// Successors returns the out-neighbors of n (all neighbors when undirected).
func (g *Graph) Successors(n string) []string {
	return sortedNames(g.succ[n])
}

// Predecessors returns the in-neighbors of n (all neighbors when undirected).
func (g *Graph) Predecessors(n string) []string {
	if !g.directed {
		return g.Successors(n)
	}
	return sortedNames(g.pred[n])
}

// Neighbors returns every node adjacent to n in either direction.
func (g *Graph) Neighbors(n string) []string {
	if !g.directed {
		return g.Successors(n)
	}
	set := map[string]struct{}{}
	for v := range g.succ[n] {
		set[v] = struct{}{}
	}
	for u := range g.pred[n] {
		set[u] = struct{}{}
	}
	return sortedNames(set)
}

// OutEdges returns edges leaving n.
func (g *Graph) OutEdges(n string) []Edge {
	var out []Edge
	for _, v := range g.Successors(n) {
		out = append(out, Edge{From: n, To: v})
	}
	return out
}

// InEdges returns edges entering n.
func (g *Graph) InEdges(n string) []Edge {
	var out []Edge
	for _, u := range g.Predecessors(n) {
		out = append(out, Edge{From: u, To: n})
	}
	return out
}

// IncidentEdges returns every edge touching n, with n as From on undirected graphs.
func (g *Graph) IncidentEdges(n string) []Edge {
	if !g.directed {
		return g.OutEdges(n)
	}
	out := g.OutEdges(n)
	for _, e := range g.InEdges(n) {
		if e.From != n {
			out = append(out, e)
		}
	}
	return out
}

// Degree returns the number of edges touching n. A self-loop counts twice.
func (g *Graph) Degree(n string) int {
	if !g.directed {
		d := len(g.succ[n])
		if _, loop := g.succ[n][n]; loop {
			d++
		}
		return d
	}
	return len(g.succ[n]) + len(g.pred[n])
}

// InDegree returns the number of edges entering n.
func (g *Graph) InDegree(n string) int {
	if !g.directed {
		return g.Degree(n)
	}
	return len(g.pred[n])
}

// OutDegree returns the number of edges leaving n.
func (g *Graph) OutDegree(n string) int {
	if !g.directed {
		return g.Degree(n)
	}
	return len(g.succ[n])
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := New(g.directed)
	for k, v := range g.attrs {
		c.attrs[k] = cloneValue(v)
	}
	for _, n := range g.Nodes() {
		c.AddNode(n, cloneAttrs(g.nodes[n]))
	}
	for _, e := range g.Edges() {
		ea, _ := g.EdgeAttrs(e.From, e.To)
		c.AddEdge(e.From, e.To, cloneAttrs(ea))
	}
	return c
}

func cloneAttrs(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAttrs(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
