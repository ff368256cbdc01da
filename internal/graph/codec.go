package graph

import (
	"fmt"
	"io"
)

// Format names a graph file serialization.
type Format string

const (
	FormatEdgeList         Format = "edge-list"
	FormatWeightedEdgeList Format = "weighted-edge-list"
	FormatGraphML          Format = "graphml"
	FormatBSON             Format = "bson"
)

// DefaultFormat is used when a store does not configure one.
const DefaultFormat = FormatEdgeList

// Codec reads and writes one graph per file.
type Codec interface {
	Ext() string
	Encode(w io.Writer, g *Graph) error
	Decode(r io.Reader) (*Graph, error)
}

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatEdgeList, FormatWeightedEdgeList, FormatGraphML, FormatBSON}
}

// CodecFor returns the codec for format.
func CodecFor(format Format) (Codec, error) {
	switch format {
	case FormatEdgeList:
		return edgeListCodec{}, nil
	case FormatWeightedEdgeList:
		return edgeListCodec{weighted: true}, nil
	case FormatGraphML:
		return graphMLCodec{}, nil
	case FormatBSON:
		return bsonCodec{}, nil
	}
	return nil, fmt.Errorf("unknown graph file format %q (valid: %v)", format, Formats())
}
