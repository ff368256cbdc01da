package graph

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

type xmlGraphML struct {
	XMLName xml.Name `xml:"graphml"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`
	Keys    []xmlKey `xml:"key"`
	Graph   xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type xmlGraph struct {
	EdgeDefault string    `xml:"edgedefault,attr"`
	Data        []xmlData `xml:"data"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	ID   string    `xml:"id,attr"`
	Data []xmlData `xml:"data"`
}

type xmlEdge struct {
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []xmlData `xml:"data"`
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// graphMLCodec writes GraphML with one typed <key> per attribute name.
// Scalars keep their type (boolean, long, double, string); nested values
// are stored as JSON text and read back as strings.
type graphMLCodec struct{}

func (graphMLCodec) Ext() string { return "graphml" }

// keyTable assigns key ids per domain ("graph", "node", "edge").
type keyTable struct {
	prefix string
	domain string
	types  map[string]string
	ids    map[string]string
}

func newKeyTable(prefix, domain string) *keyTable {
	return &keyTable{prefix: prefix, domain: domain, types: map[string]string{}}
}

func (t *keyTable) observe(attrs map[string]any) {
	for k, v := range attrs {
		typ := graphMLType(v)
		if prev, ok := t.types[k]; ok && prev != typ {
			typ = "string"
		}
		t.types[k] = typ
	}
}

func (t *keyTable) keys() []xmlKey {
	names := sortedNames(t.types)
	t.ids = make(map[string]string, len(names))
	out := make([]xmlKey, len(names))
	for i, name := range names {
		id := t.prefix + strconv.Itoa(i)
		t.ids[name] = id
		out[i] = xmlKey{ID: id, For: t.domain, Name: name, Type: t.types[name]}
	}
	return out
}

func (t *keyTable) data(attrs map[string]any) ([]xmlData, error) {
	var out []xmlData
	for _, name := range sortedNames(attrs) {
		text, err := graphMLText(attrs[name], t.types[name])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out = append(out, xmlData{Key: t.ids[name], Value: text})
	}
	return out, nil
}

func (graphMLCodec) Encode(w io.Writer, g *Graph) error {
	gk := newKeyTable("g", "graph")
	nk := newKeyTable("n", "node")
	ek := newKeyTable("e", "edge")

	gk.observe(g.Attrs())
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		nk.observe(attrs)
	}
	edges := g.Edges()
	for _, e := range edges {
		attrs, _ := g.EdgeAttrs(e.From, e.To)
		ek.observe(attrs)
	}

	doc := xmlGraphML{XMLNS: graphMLNamespace}
	doc.Keys = append(doc.Keys, gk.keys()...)
	doc.Keys = append(doc.Keys, nk.keys()...)
	doc.Keys = append(doc.Keys, ek.keys()...)

	doc.Graph.EdgeDefault = "undirected"
	if g.Directed() {
		doc.Graph.EdgeDefault = "directed"
	}

	var err error
	if doc.Graph.Data, err = gk.data(g.Attrs()); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		data, err := nk.data(attrs)
		if err != nil {
			return fmt.Errorf("encoding node %q: %w", n, err)
		}
		doc.Graph.Nodes = append(doc.Graph.Nodes, xmlNode{ID: n, Data: data})
	}
	for _, e := range edges {
		attrs, _ := g.EdgeAttrs(e.From, e.To)
		data, err := ek.data(attrs)
		if err != nil {
			return fmt.Errorf("encoding edge (%s, %s): %w", e.From, e.To, err)
		}
		doc.Graph.Edges = append(doc.Graph.Edges, xmlEdge{Source: e.From, Target: e.To, Data: data})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("writing graphml: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func (graphMLCodec) Decode(r io.Reader) (*Graph, error) {
	var doc xmlGraphML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing graphml: %w", err)
	}

	keys := make(map[string]xmlKey, len(doc.Keys))
	for _, k := range doc.Keys {
		keys[k.ID] = k
	}
	attrsOf := func(data []xmlData) (map[string]any, error) {
		if len(data) == 0 {
			return nil, nil
		}
		out := make(map[string]any, len(data))
		for _, d := range data {
			k, ok := keys[d.Key]
			if !ok {
				return nil, fmt.Errorf("undeclared key %q", d.Key)
			}
			name := k.Name
			if name == "" {
				name = k.ID
			}
			v, err := parseGraphMLValue(d.Value, k.Type)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", name, err)
			}
			out[name] = v
		}
		return out, nil
	}

	g := New(doc.Graph.EdgeDefault == "directed")
	attrs, err := attrsOf(doc.Graph.Data)
	if err != nil {
		return nil, fmt.Errorf("graph data: %w", err)
	}
	for k, v := range attrs {
		g.Attrs()[k] = v
	}
	for _, n := range doc.Graph.Nodes {
		attrs, err := attrsOf(n.Data)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		g.AddNode(n.ID, attrs)
	}
	for _, e := range doc.Graph.Edges {
		attrs, err := attrsOf(e.Data)
		if err != nil {
			return nil, fmt.Errorf("edge (%s, %s): %w", e.Source, e.Target, err)
		}
		g.AddEdge(e.Source, e.Target, attrs)
	}
	return g, nil
}

func graphMLType(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return "long"
	case float32, float64:
		return "double"
	}
	return "string"
}

func graphMLText(v any, typ string) (string, error) {
	if typ == "string" {
		switch t := v.(type) {
		case string:
			return t, nil
		case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, float32, float64:
			return fmt.Sprint(t), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return fmt.Sprint(v), nil
}

func parseGraphMLValue(text, typ string) (any, error) {
	switch typ {
	case "boolean":
		return strconv.ParseBool(text)
	case "int", "long":
		n, err := strconv.ParseInt(text, 10, 64)
		return int(n), err
	case "float", "double":
		return strconv.ParseFloat(text, 64)
	}
	return text, nil
}
