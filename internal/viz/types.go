// Package viz renders stored graphs as self-contained Cytoscape.js HTML pages.
package viz

// Node types, taken from the node's "type" attribute or its name prefix.
const (
	NodeTypePaper  = "paper"
	NodeTypeAuthor = "author"
	NodeTypeWord   = "word"
	NodeTypeOther  = "node"
)

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Directed bool   `json:"directed"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
}

// Node is one graph node with the fields shown in tooltips.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`

	Title string `json:"title,omitempty"`
	Year  int    `json:"year,omitempty"`

	Degree    int      `json:"degree"`
	Score     *float64 `json:"score,omitempty"`
	Community *int     `json:"community,omitempty"`
}

// Edge is one graph edge.
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation,omitempty"`
	Count    int    `json:"count"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
