// Package datasource defines the keyed create/read/update/delete contract shared
// by every backing store, and the key algebra used to address entities in them.
package datasource

import (
	"fmt"

	"github.com/matsen/bibnet/internal/config"
)

// Wildcard matches every value in the key position it occupies.
const Wildcard = config.Wildcard

// IsWildcard reports whether a key token is a wildcard: "@*" itself or any
// token beginning with it.
func IsWildcard(token string) bool {
	return config.IsWildcard(token)
}

// Key is implemented by every concrete key type.
type Key interface {
	comparable
	String() string
}

// DocKey addresses a document inside a docset.
type DocKey struct {
	Docset string `json:"docset"`
	Doc    string `json:"doc"`
}

func (k DocKey) String() string { return k.Docset + "/" + k.Doc }

// MarshalText lets DocKey be used as a JSON object key.
func (k DocKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// RowKey addresses a row inside a table.
type RowKey struct {
	Table string `json:"table"`
	Row   string `json:"row"`
}

func (k RowKey) String() string { return k.Table + "/" + k.Row }

// MarshalText lets RowKey be used as a JSON object key.
func (k RowKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// GraphKey names a whole graph.
type GraphKey string

func (k GraphKey) String() string { return string(k) }

// NodeKey addresses a node inside a graph.
type NodeKey struct {
	Graph string `json:"graph"`
	Node  string `json:"node"`
}

func (k NodeKey) String() string { return k.Graph + "/" + k.Node }

// MarshalText lets NodeKey be used as a JSON object key.
func (k NodeKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// EdgePair is the endpoint pair of an edge. On directed graphs Node1 is the source.
type EdgePair struct {
	Node1 string `json:"node1"`
	Node2 string `json:"node2"`
}

// EdgeKey addresses an edge inside a graph by its endpoints.
type EdgeKey struct {
	Graph string   `json:"graph"`
	Edge  EdgePair `json:"edge"`
}

func (k EdgeKey) String() string {
	return fmt.Sprintf("%s/(%s,%s)", k.Graph, k.Edge.Node1, k.Edge.Node2)
}

// MarshalText lets EdgeKey be used as a JSON object key.
func (k EdgeKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Edge is shorthand for building an EdgeKey.
func Edge(graph, node1, node2 string) EdgeKey {
	return EdgeKey{Graph: graph, Edge: EdgePair{Node1: node1, Node2: node2}}
}
