package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineCapacity is the maximum buffer size for one edge-list line.
const maxLineCapacity = 1024 * 1024

const (
	headerDirected = "# directed:"
	headerGraph    = "# graph:"
	headerNode     = "# node:"
)

// edgeListCodec writes one "u v attrs" line per edge. Directedness, graph
// attributes and nodes (including isolated ones) go in "#" header lines so a
// graph survives a round trip. The weighted variant writes "u v weight" and
// keeps only the weight attribute of edges.
type edgeListCodec struct {
	weighted bool
}

func (c edgeListCodec) Ext() string { return "txt" }

func (c edgeListCodec) Encode(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %t\n", headerDirected, g.Directed())
	if len(g.Attrs()) > 0 {
		data, err := json.Marshal(g.Attrs())
		if err != nil {
			return fmt.Errorf("encoding graph attributes: %w", err)
		}
		fmt.Fprintf(bw, "%s %s\n", headerGraph, data)
	}

	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		data, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("encoding node %q: %w", n, err)
		}
		fmt.Fprintf(bw, "%s %s %s\n", headerNode, quoteName(n), data)
	}

	for _, e := range g.Edges() {
		attrs, _ := g.EdgeAttrs(e.From, e.To)
		if c.weighted {
			fmt.Fprintf(bw, "%s %s %s\n", quoteName(e.From), quoteName(e.To), strconv.FormatFloat(weightOf(attrs), 'g', -1, 64))
			continue
		}
		data, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("encoding edge (%s, %s): %w", e.From, e.To, err)
		}
		fmt.Fprintf(bw, "%s %s %s\n", quoteName(e.From), quoteName(e.To), data)
	}

	return bw.Flush()
}

func (c edgeListCodec) Decode(r io.Reader) (*Graph, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxLineCapacity)
	scanner.Buffer(buf, maxLineCapacity)

	var g *Graph
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, headerDirected):
			if g != nil {
				return nil, fmt.Errorf("line %d: directed header after graph content", lineNum)
			}
			directed, err := strconv.ParseBool(strings.TrimSpace(strings.TrimPrefix(line, headerDirected)))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			g = New(directed)
			continue
		case g == nil:
			// files without a header are read as undirected
			g = New(false)
		}

		switch {
		case strings.HasPrefix(line, headerGraph):
			attrs, err := decodeAttrs(strings.TrimPrefix(line, headerGraph))
			if err != nil {
				return nil, fmt.Errorf("line %d: graph attributes: %w", lineNum, err)
			}
			for k, v := range attrs {
				g.Attrs()[k] = v
			}
		case strings.HasPrefix(line, headerNode):
			name, rest, err := nextName(strings.TrimPrefix(line, headerNode))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			attrs, err := decodeAttrs(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: node %q: %w", lineNum, name, err)
			}
			g.AddNode(name, attrs)
		case strings.HasPrefix(line, "#"):
			// comment
		default:
			if err := c.decodeEdge(g, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading edge list: %w", err)
	}

	if g == nil {
		g = New(false)
	}
	return g, nil
}

func (c edgeListCodec) decodeEdge(g *Graph, line string) error {
	u, rest, err := nextName(line)
	if err != nil {
		return err
	}
	v, rest, err := nextName(rest)
	if err != nil {
		return err
	}

	if c.weighted {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			g.AddEdge(u, v, nil)
			return nil
		}
		w, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return fmt.Errorf("edge (%s, %s): weight: %w", u, v, err)
		}
		g.AddEdge(u, v, map[string]any{"weight": w})
		return nil
	}

	attrs, err := decodeAttrs(rest)
	if err != nil {
		return fmt.Errorf("edge (%s, %s): %w", u, v, err)
	}
	g.AddEdge(u, v, attrs)
	return nil
}

func decodeAttrs(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func weightOf(attrs map[string]any) float64 {
	switch w := attrs["weight"].(type) {
	case float64:
		return w
	case float32:
		return float64(w)
	case int:
		return float64(w)
	case int64:
		return float64(w)
	case int32:
		return float64(w)
	}
	return 1
}

// quoteName quotes names that would not survive whitespace splitting or
// that need escapes, such as line breaks.
func quoteName(name string) string {
	quoted := strconv.Quote(name)
	if name == "" || strings.ContainsAny(name, " \t\"#{") || quoted != `"`+name+`"` {
		return quoted
	}
	return name
}

// nextName reads one possibly quoted name from the front of s.
func nextName(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", "", fmt.Errorf("missing node name")
	}
	if s[0] == '"' {
		quoted, err := strconv.QuotedPrefix(s)
		if err != nil {
			return "", "", fmt.Errorf("bad quoted name: %w", err)
		}
		name, err := strconv.Unquote(quoted)
		if err != nil {
			return "", "", err
		}
		return name, s[len(quoted):], nil
	}
	end := strings.IndexAny(s, " \t")
	if end < 0 {
		return s, "", nil
	}
	return s[:end], s[end:], nil
}
