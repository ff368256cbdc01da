package graph

import (
	"fmt"
	"io"

	"gopkg.in/mgo.v2/bson"
)

type bsonSnapshot struct {
	Directed bool       `bson:"directed"`
	Attrs    bson.M     `bson:"attrs,omitempty"`
	Nodes    []bsonNode `bson:"nodes"`
	Edges    []bsonEdge `bson:"edges"`
}

type bsonNode struct {
	Name  string `bson:"name"`
	Attrs bson.M `bson:"attrs,omitempty"`
}

type bsonEdge struct {
	From  string `bson:"from"`
	To    string `bson:"to"`
	Attrs bson.M `bson:"attrs,omitempty"`
}

// bsonCodec stores a whole graph as one binary BSON document.
type bsonCodec struct{}

func (bsonCodec) Ext() string { return "bin" }

func (bsonCodec) Encode(w io.Writer, g *Graph) error {
	snap := bsonSnapshot{
		Directed: g.Directed(),
		Attrs:    bson.M(g.Attrs()),
		Nodes:    make([]bsonNode, 0, g.NumNodes()),
	}
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		snap.Nodes = append(snap.Nodes, bsonNode{Name: n, Attrs: bson.M(attrs)})
	}
	for _, e := range g.Edges() {
		attrs, _ := g.EdgeAttrs(e.From, e.To)
		snap.Edges = append(snap.Edges, bsonEdge{From: e.From, To: e.To, Attrs: bson.M(attrs)})
	}

	data, err := bson.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding graph snapshot: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func (bsonCodec) Decode(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading graph snapshot: %w", err)
	}

	var snap bsonSnapshot
	if err := bson.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding graph snapshot: %w", err)
	}

	g := New(snap.Directed)
	for k, v := range snap.Attrs {
		g.Attrs()[k] = fromBSON(v)
	}
	for _, n := range snap.Nodes {
		g.AddNode(n.Name, fromBSONMap(n.Attrs))
	}
	for _, e := range snap.Edges {
		g.AddEdge(e.From, e.To, fromBSONMap(e.Attrs))
	}
	return g, nil
}

// fromBSONMap turns decoded bson.M values back into plain maps so graphs
// read from any format compare equal.
func fromBSONMap(m bson.M) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromBSON(v)
	}
	return out
}

func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSONMap(t)
	case map[string]any:
		return fromBSONMap(bson.M(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	default:
		return v
	}
}
