package graph

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func sampleGraph(directed bool) *Graph {
	g := New(directed)
	g.Attrs()["name"] = "citations"
	g.AddNode("paper_1", map[string]any{"title": "Style Guide", "year": 2001.0})
	g.AddNode("paper 2", map[string]any{"title": "Quoted name"})
	g.AddNode("isolated", nil)
	g.AddEdge("paper_1", "paper 2", map[string]any{"weight": 2.5, "type": "cites"})
	g.AddEdge("paper 2", "paper_3", nil)
	return g
}

func assertSameGraph(t *testing.T, got, want *Graph) {
	t.Helper()
	if got.Directed() != want.Directed() {
		t.Fatalf("Directed() = %v, want %v", got.Directed(), want.Directed())
	}
	if !reflect.DeepEqual(got.Nodes(), want.Nodes()) {
		t.Fatalf("Nodes() = %v, want %v", got.Nodes(), want.Nodes())
	}
	if !reflect.DeepEqual(got.Edges(), want.Edges()) {
		t.Fatalf("Edges() = %v, want %v", got.Edges(), want.Edges())
	}
	if !reflect.DeepEqual(got.Attrs(), want.Attrs()) {
		t.Errorf("Attrs() = %v, want %v", got.Attrs(), want.Attrs())
	}
	for _, n := range want.Nodes() {
		ga, _ := got.Node(n)
		wa, _ := want.Node(n)
		if !reflect.DeepEqual(ga, wa) {
			t.Errorf("node %q attrs = %v, want %v", n, ga, wa)
		}
	}
	for _, e := range want.Edges() {
		ga, _ := got.EdgeAttrs(e.From, e.To)
		wa, _ := want.EdgeAttrs(e.From, e.To)
		if !reflect.DeepEqual(ga, wa) {
			t.Errorf("edge %v attrs = %v, want %v", e, ga, wa)
		}
	}
}

func roundTrip(t *testing.T, format Format, g *Graph) *Graph {
	t.Helper()
	codec, err := CodecFor(format)
	if err != nil {
		t.Fatalf("CodecFor(%s): %v", format, err)
	}
	var buf bytes.Buffer
	if err := codec.Encode(&buf, g); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := codec.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestRoundTrip_LosslessFormats(t *testing.T) {
	for _, format := range []Format{FormatEdgeList, FormatGraphML, FormatBSON} {
		for _, directed := range []bool{true, false} {
			t.Run(string(format), func(t *testing.T) {
				g := sampleGraph(directed)
				assertSameGraph(t, roundTrip(t, format, g), g)
			})
		}
	}
}

func TestRoundTrip_WeightedEdgeListKeepsWeightOnly(t *testing.T) {
	g := sampleGraph(true)
	out := roundTrip(t, FormatWeightedEdgeList, g)

	if !reflect.DeepEqual(out.Edges(), g.Edges()) {
		t.Fatalf("Edges() = %v, want %v", out.Edges(), g.Edges())
	}
	attrs, _ := out.EdgeAttrs("paper_1", "paper 2")
	if want := map[string]any{"weight": 2.5}; !reflect.DeepEqual(attrs, want) {
		t.Errorf("weighted edge attrs = %v, want %v", attrs, want)
	}
	attrs, _ = out.EdgeAttrs("paper 2", "paper_3")
	if attrs["weight"] != 1.0 {
		t.Errorf("default weight = %v, want 1", attrs["weight"])
	}
}

func TestRoundTrip_NamesWithLineBreaks(t *testing.T) {
	for _, format := range []Format{FormatEdgeList, FormatWeightedEdgeList, FormatGraphML, FormatBSON} {
		t.Run(string(format), func(t *testing.T) {
			g := New(true)
			g.AddEdge("line1\nline2", "B", nil)
			g.AddEdge("cr\rname", "tab\tname", nil)

			out := roundTrip(t, format, g)
			if !reflect.DeepEqual(out.Edges(), g.Edges()) {
				t.Errorf("Edges() = %q, want %q", out.Edges(), g.Edges())
			}
		})
	}
}

func TestQuoteName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"paper_1", "paper_1"},
		{"", `""`},
		{"a b", `"a b"`},
		{"a\nb", `"a\nb"`},
		{"a\rb", `"a\rb"`},
		{`back\slash`, `"back\\slash"`},
	}
	for _, tt := range tests {
		if got := quoteName(tt.name); got != tt.want {
			t.Errorf("quoteName(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestGraphML_IntegerAndBoolTypes(t *testing.T) {
	g := New(false)
	g.AddNode("a", map[string]any{"count": 3, "seen": true, "tags": []any{"x", "y"}})

	out := roundTrip(t, FormatGraphML, g)
	attrs, _ := out.Node("a")
	if attrs["count"] != 3 {
		t.Errorf("count = %#v, want int 3", attrs["count"])
	}
	if attrs["seen"] != true {
		t.Errorf("seen = %#v, want true", attrs["seen"])
	}
	if attrs["tags"] != `["x","y"]` {
		t.Errorf("tags = %#v, want JSON text", attrs["tags"])
	}
}

func TestEdgeListDecode_PlainFile(t *testing.T) {
	input := "# a comment\nA B\nB C {\"count\": 2}\n\n"
	codec, _ := CodecFor(FormatEdgeList)

	g, err := codec.Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if g.Directed() {
		t.Error("headerless edge list should be undirected")
	}
	if !g.HasEdge("C", "B") {
		t.Error("edge B-C missing")
	}
	attrs, _ := g.EdgeAttrs("B", "C")
	if attrs["count"] != 2.0 {
		t.Errorf("count = %v, want 2", attrs["count"])
	}
}

func TestEdgeListDecode_Errors(t *testing.T) {
	codec, _ := CodecFor(FormatEdgeList)
	tests := []struct {
		name  string
		input string
	}{
		{"single name", "A\n"},
		{"bad attrs", "A B {not json}\n"},
		{"bad directed header", "# directed: maybe\n"},
		{"late header", "A B\n# directed: true\n"},
		{"unterminated quote", "\"A B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decode(strings.NewReader(tt.input)); err == nil {
				t.Errorf("Decode(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestCodecFor_Unknown(t *testing.T) {
	if _, err := CodecFor("pickle"); err == nil {
		t.Error("CodecFor(pickle) succeeded, want error")
	}
}

func TestCodecExtensions(t *testing.T) {
	want := map[Format]string{
		FormatEdgeList:         "txt",
		FormatWeightedEdgeList: "txt",
		FormatGraphML:          "graphml",
		FormatBSON:             "bin",
	}
	for format, ext := range want {
		codec, err := CodecFor(format)
		if err != nil {
			t.Fatalf("CodecFor(%s): %v", format, err)
		}
		if codec.Ext() != ext {
			t.Errorf("%s Ext() = %q, want %q", format, codec.Ext(), ext)
		}
	}
}
