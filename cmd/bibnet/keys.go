package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matsen/bibnet/internal/datasource"
)

// splitKey splits s on "/" into exactly n non-empty parts. The last part
// keeps any further slashes.
func splitKey(s string, n int, form string) ([]string, error) {
	parts := strings.SplitN(s, "/", n)
	if len(parts) != n {
		return nil, fmt.Errorf("%w: %q, want %s", datasource.ErrInvalidKeySpecification, s, form)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q has an empty part, want %s", datasource.ErrInvalidKeySpecification, s, form)
		}
	}
	return parts, nil
}

func parseDocKey(s string) (datasource.DocKey, error) {
	p, err := splitKey(s, 2, "docset/doc")
	if err != nil {
		return datasource.DocKey{}, err
	}
	return datasource.DocKey{Docset: p[0], Doc: p[1]}, nil
}

func parseRowKey(s string) (datasource.RowKey, error) {
	p, err := splitKey(s, 2, "table/row")
	if err != nil {
		return datasource.RowKey{}, err
	}
	return datasource.RowKey{Table: p[0], Row: p[1]}, nil
}

func parseGraphKey(s string) (datasource.GraphKey, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty graph name", datasource.ErrInvalidKeySpecification)
	}
	return datasource.GraphKey(s), nil
}

func parseNodeKey(s string) (datasource.NodeKey, error) {
	p, err := splitKey(s, 2, "graph/node")
	if err != nil {
		return datasource.NodeKey{}, err
	}
	return datasource.NodeKey{Graph: p[0], Node: p[1]}, nil
}

func parseEdgeKey(s string) (datasource.EdgeKey, error) {
	p, err := splitKey(s, 3, "graph/node1/node2")
	if err != nil {
		return datasource.EdgeKey{}, err
	}
	return datasource.Edge(p[0], p[1], p[2]), nil
}

// parseSpec turns key arguments into a spec: One for a single argument,
// Many otherwise.
func parseSpec[K datasource.Key](args []string, parse func(string) (K, error)) (datasource.Spec[K], error) {
	keys := make([]K, 0, len(args))
	for _, a := range args {
		k, err := parse(a)
		if err != nil {
			return datasource.Spec[K]{}, err
		}
		keys = append(keys, k)
	}
	if len(keys) == 1 {
		return datasource.One(keys[0]), nil
	}
	return datasource.Many(keys...), nil
}

// readValue decodes a YAML or JSON value from --value or --file into out.
// With neither set out is left alone.
func readValue(value, file string, out any) error {
	if value != "" && file != "" {
		return fmt.Errorf("use either --value or --file, not both")
	}
	data := []byte(value)
	if file != "" {
		var err error
		if data, err = os.ReadFile(file); err != nil {
			return fmt.Errorf("reading value: %w", err)
		}
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing value: %w", err)
	}
	return nil
}
