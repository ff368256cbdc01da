package datasource

import "fmt"

// Keyspace is the live set of partitions and names a resolver expands
// wildcards against. Both methods return names in a stable order.
type Keyspace interface {
	Partitions() []string
	// Names returns the entity names of a partition; nil if it does not exist.
	Names(partition string) []string
}

// SinglePartition is implemented by key spaces that cannot enumerate
// partitions because they only have one. A wildcard partition token
// degenerates to that partition.
type SinglePartition interface {
	Partition() string
}

// orderedSet accumulates keys, dropping repeats and keeping first-seen order.
type orderedSet[K comparable] struct {
	seen map[K]struct{}
	list []K
}

func newOrderedSet[K comparable]() *orderedSet[K] {
	return &orderedSet[K]{seen: make(map[K]struct{})}
}

func (s *orderedSet[K]) add(k K) {
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.list = append(s.list, k)
}

func partitionsFor(token string, ks Keyspace) []string {
	if !IsWildcard(token) {
		return []string{token}
	}
	if single, ok := ks.(SinglePartition); ok {
		return []string{single.Partition()}
	}
	return ks.Partitions()
}

// resolvePairs is the shared two-level expansion used by docs, rows and nodes.
func resolvePairs[K Key](spec Spec[K], ks Keyspace, split func(K) (string, string), join func(string, string) K) ([]K, error) {
	entries, err := spec.Entries()
	if err != nil {
		return nil, err
	}

	out := newOrderedSet[K]()
	for _, e := range entries {
		partToken, nameToken := split(e.Key)
		for _, part := range partitionsFor(partToken, ks) {
			if !IsWildcard(nameToken) {
				out.add(join(part, nameToken))
				continue
			}
			for _, name := range ks.Names(part) {
				out.add(join(part, name))
			}
		}
	}
	return out.list, nil
}

// ResolveDocs expands a document key spec into concrete keys.
func ResolveDocs(spec Spec[DocKey], ks Keyspace) ([]DocKey, error) {
	return resolvePairs(spec, ks,
		func(k DocKey) (string, string) { return k.Docset, k.Doc },
		func(p, n string) DocKey { return DocKey{Docset: p, Doc: n} })
}

// ResolveRows expands a row key spec into concrete keys.
func ResolveRows(spec Spec[RowKey], ks Keyspace) ([]RowKey, error) {
	return resolvePairs(spec, ks,
		func(k RowKey) (string, string) { return k.Table, k.Row },
		func(p, n string) RowKey { return RowKey{Table: p, Row: n} })
}

// ResolveNodes expands a node key spec into concrete keys.
func ResolveNodes(spec Spec[NodeKey], ks Keyspace) ([]NodeKey, error) {
	return resolvePairs(spec, ks,
		func(k NodeKey) (string, string) { return k.Graph, k.Node },
		func(p, n string) NodeKey { return NodeKey{Graph: p, Node: n} })
}

// ResolveGraphs expands a graph key spec into concrete graph names.
func ResolveGraphs(spec Spec[GraphKey], ks Keyspace) ([]GraphKey, error) {
	entries, err := spec.Entries()
	if err != nil {
		return nil, err
	}

	out := newOrderedSet[GraphKey]()
	for _, e := range entries {
		for _, g := range partitionsFor(string(e.Key), ks) {
			out.add(GraphKey(g))
		}
	}
	return out.list, nil
}

// EdgeView is the read-only edge structure of one graph.
type EdgeView interface {
	Directed() bool
	HasNode(node string) bool
	Edges() []EdgePair
	InEdges(node string) []EdgePair
	OutEdges(node string) []EdgePair
	IncidentEdges(node string) []EdgePair
}

// EdgeSpace is the key space of a graph store.
type EdgeSpace interface {
	Partitions() []string
	View(graph string) (EdgeView, bool)
}

// ResolveEdges expands an edge key spec. A one-sided wildcard selects the
// in-edges (node1 wildcard) or out-edges (node2 wildcard) of the literal
// endpoint on a directed graph, and every incident edge on an undirected one;
// the undirected fallback is reported in the returned notes.
func ResolveEdges(spec Spec[EdgeKey], es EdgeSpace) ([]EdgeKey, []string, error) {
	entries, err := spec.Entries()
	if err != nil {
		return nil, nil, err
	}

	var notes []string
	out := newOrderedSet[EdgeKey]()
	for _, e := range entries {
		n1, n2 := e.Key.Edge.Node1, e.Key.Edge.Node2
		w1, w2 := IsWildcard(n1), IsWildcard(n2)

		var graphs []string
		if IsWildcard(e.Key.Graph) {
			graphs = es.Partitions()
		} else {
			graphs = []string{e.Key.Graph}
		}

		for _, g := range graphs {
			view, ok := es.View(g)
			if !w1 && !w2 {
				key := Edge(g, n1, n2)
				if ok && !view.Directed() {
					key.Edge = canonical(key.Edge)
				}
				out.add(key)
				continue
			}
			if !ok {
				continue
			}

			var pairs []EdgePair
			switch {
			case w1 && w2:
				pairs = view.Edges()
			case w1:
				if !view.HasNode(n2) {
					continue
				}
				if view.Directed() {
					pairs = view.InEdges(n2)
				} else {
					notes = append(notes, undirectedNote(g, "in", n2))
					pairs = view.IncidentEdges(n2)
				}
			default:
				if !view.HasNode(n1) {
					continue
				}
				if view.Directed() {
					pairs = view.OutEdges(n1)
				} else {
					notes = append(notes, undirectedNote(g, "out", n1))
					pairs = view.IncidentEdges(n1)
				}
			}

			for _, p := range pairs {
				if !view.Directed() {
					p = canonical(p)
				}
				out.add(EdgeKey{Graph: g, Edge: p})
			}
		}
	}
	return out.list, notes, nil
}

// canonical orders an undirected pair smaller name first, as Edges does.
func canonical(p EdgePair) EdgePair {
	if p.Node2 < p.Node1 {
		return EdgePair{Node1: p.Node2, Node2: p.Node1}
	}
	return p
}

func undirectedNote(graph, dir, node string) string {
	return fmt.Sprintf("graph %q is undirected: %s-edges of %q are not meaningful, returning all incident edges", graph, dir, node)
}
