package viz

import (
	"strings"
	"testing"

	"github.com/matsen/bibnet/internal/graph"
)

func sample() *graph.Graph {
	g := graph.New(true)
	g.AddNode("paper_p1", map[string]any{"type": "paper", "title": "Bayesian phylogenetics", "year": 2018})
	g.AddNode("author_a1", map[string]any{"type": "author", "name": "Marc Suchard"})
	g.AddNode("word_trees", nil)
	g.AddNode("misc", nil)
	g.AddEdge("paper_p1", "paper_p2", map[string]any{"relation": "cite", "count": 2.0})
	g.AddEdge("paper_p1", "author_a1", map[string]any{"relation": "paper_author", "order": 1})
	return g
}

func TestFromGraph_Nodes(t *testing.T) {
	data := FromGraph(sample(), Options{})

	tests := []struct {
		id        string
		wantType  string
		wantLabel string
	}{
		{"paper_p1", NodeTypePaper, "Bayesian phylogenetics"},
		{"paper_p2", NodeTypePaper, "p2"},
		{"author_a1", NodeTypeAuthor, "Marc Suchard"},
		{"word_trees", NodeTypeWord, "trees"},
		{"misc", NodeTypeOther, "misc"},
	}
	byID := map[string]Node{}
	for _, n := range data.Nodes {
		byID[n.ID] = n
	}
	if len(byID) != len(tests) {
		t.Fatalf("got %d nodes, want %d", len(byID), len(tests))
	}
	for _, tt := range tests {
		n := byID[tt.id]
		if n.Type != tt.wantType {
			t.Errorf("%s: Type = %q, want %q", tt.id, n.Type, tt.wantType)
		}
		if n.Label != tt.wantLabel {
			t.Errorf("%s: Label = %q, want %q", tt.id, n.Label, tt.wantLabel)
		}
	}
	if byID["paper_p1"].Year != 2018 || byID["paper_p1"].Degree != 2 {
		t.Errorf("paper_p1 = %+v", byID["paper_p1"])
	}
}

func TestFromGraph_Edges(t *testing.T) {
	data := FromGraph(sample(), Options{})
	if !data.Directed {
		t.Error("Directed = false, want true")
	}
	if len(data.Edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(data.Edges))
	}
	for _, e := range data.Edges {
		if e.Target == "paper_p2" && (e.Relation != "cite" || e.Count != 2) {
			t.Errorf("cite edge = %+v", e)
		}
	}
}

func TestFromGraph_ScoresAndCommunities(t *testing.T) {
	data := FromGraph(sample(), Options{
		Scores:      map[string]float64{"paper_p1": 0.5},
		Communities: map[string]int{"paper_p1": 3},
	})
	for _, n := range data.Nodes {
		if n.ID == "paper_p1" {
			if n.Score == nil || *n.Score != 0.5 || n.Community == nil || *n.Community != 3 {
				t.Errorf("paper_p1 = %+v", n)
			}
		} else if n.Score != nil || n.Community != nil {
			t.Errorf("%s has score or community set", n.ID)
		}
	}
}

func TestFromGraph_MaxNodes(t *testing.T) {
	data := FromGraph(sample(), Options{MaxNodes: 2})
	if len(data.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(data.Nodes))
	}
	if data.Nodes[0].ID != "author_a1" || data.Nodes[1].ID != "paper_p1" {
		t.Errorf("kept %v", data.Nodes)
	}
	// Only edges between kept nodes survive.
	if len(data.Edges) != 1 || data.Edges[0].Target != "author_a1" {
		t.Errorf("edges = %+v", data.Edges)
	}
}

func TestToCytoscapeJSON(t *testing.T) {
	js, err := FromGraph(sample(), Options{}).ToCytoscapeJSON()
	if err != nil {
		t.Fatalf("ToCytoscapeJSON() error = %v", err)
	}
	for _, want := range []string{`"nodes":[`, `"edges":[`, `"id":"paper_p1-paper_p2-1"`, `"relation":"cite"`} {
		if !strings.Contains(js, want) {
			t.Errorf("JSON missing %s: %s", want, js)
		}
	}
}

func TestGenerateHTML(t *testing.T) {
	html, err := GenerateHTML(FromGraph(sample(), Options{}), HTMLOptions{Layout: "circle", Title: "citations"})
	if err != nil {
		t.Fatalf("GenerateHTML() error = %v", err)
	}
	for _, want := range []string{"<title>citations</title>", cytoscapeCDN, `const layout = "circle"`, `const arrow = "triangle"`} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestGenerateHTML_Undirected(t *testing.T) {
	g := graph.New(false)
	g.AddEdge("a", "b", nil)
	html, err := GenerateHTML(FromGraph(g, Options{}), DefaultOptions())
	if err != nil {
		t.Fatalf("GenerateHTML() error = %v", err)
	}
	if !strings.Contains(html, `const arrow = "none"`) || !strings.Contains(html, `const layout = "cose"`) {
		t.Error("undirected graph should render without arrows using cose")
	}
}

func TestGenerateHTML_Empty(t *testing.T) {
	html, err := GenerateHTML(FromGraph(graph.New(false), Options{}), HTMLOptions{})
	if err != nil {
		t.Fatalf("GenerateHTML() error = %v", err)
	}
	if !strings.Contains(html, "No graph data") {
		t.Error("empty graph should render the empty state")
	}
}

func TestGenerateHTML_Errors(t *testing.T) {
	if _, err := GenerateHTML(nil, DefaultOptions()); err == nil {
		t.Error("nil graph: error = nil")
	}
	if _, err := GenerateHTML(FromGraph(sample(), Options{}), HTMLOptions{Layout: "spiral"}); err == nil {
		t.Error("invalid layout: error = nil")
	}
}
