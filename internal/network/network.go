// Package network builds bibliometric networks from the papers in a
// document source and stores them in a graph source.
//
// Node names carry a type prefix (paper_, author_, word_). Nodes are inserted
// only when absent; relation edges keep a count that every new occurrence
// increments.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/reference"
)

// Node name prefixes.
const (
	PaperPrefix  = "paper_"
	AuthorPrefix = "author_"
	WordPrefix   = "word_"
)

// Edge relation names.
const (
	RelCite        = "cite"
	RelCo          = "co"
	RelCoCite      = "co_cite"
	RelPaperAuthor = "paper_author"
	RelPaperWord   = "paper_word"
)

// Kind selects the network to build.
type Kind string

const (
	KindPaper       Kind = "paper"
	KindAuthor      Kind = "author"
	KindTerm        Kind = "term"
	KindPaperAuthor Kind = "paper-author"
	KindPaperTerm   Kind = "paper-term"
)

// Kinds lists every network kind.
func Kinds() []Kind {
	return []Kind{KindPaper, KindAuthor, KindTerm, KindPaperAuthor, KindPaperTerm}
}

// Directed reports whether networks of kind k are directed.
func (k Kind) Directed() bool {
	switch k {
	case KindPaper, KindPaperAuthor, KindPaperTerm:
		return true
	}
	return false
}

// Builder reads papers from Docs and writes networks to Graphs.
type Builder struct {
	Docs   datasource.DocSource
	Graphs datasource.GraphSource
	Docset string
	Logger *slog.Logger
}

// Stats summarizes one build.
type Stats struct {
	Papers int `json:"papers"`
	Nodes  int `json:"nodes_added"`
	Edges  int `json:"edge_updates"`
}

func (b *Builder) log() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Build constructs the kind network in graph name, creating the graph when
// it does not exist. Running it twice over the same papers doubles counts.
func (b *Builder) Build(ctx context.Context, kind Kind, name string) (Stats, error) {
	if !slices.Contains(Kinds(), kind) {
		return Stats{}, fmt.Errorf("unknown network kind %q", kind)
	}
	refs, err := b.papers(ctx)
	if err != nil {
		return Stats{}, err
	}
	if err := b.ensureGraph(ctx, name, kind); err != nil {
		return Stats{}, err
	}

	w := &writer{g: b.Graphs, graph: name, stats: Stats{Papers: len(refs)}}
	switch kind {
	case KindPaper:
		err = w.papers(ctx, refs)
	case KindAuthor:
		err = w.authors(ctx, refs)
	case KindTerm:
		err = w.terms(ctx, refs)
	case KindPaperAuthor:
		err = w.paperAuthors(ctx, refs)
	case KindPaperTerm:
		err = w.paperTerms(ctx, refs)
	}
	if err != nil {
		return w.stats, fmt.Errorf("building %s network %q: %w", kind, name, err)
	}
	b.log().Info("built network", "kind", kind, "graph", name, "papers", w.stats.Papers, "nodes_added", w.stats.Nodes, "edge_updates", w.stats.Edges)
	return w.stats, nil
}

// papers reads every document of the docset, ordered by document name.
func (b *Builder) papers(ctx context.Context) ([]reference.Reference, error) {
	docs, err := b.Docs.ReadDoc(ctx, datasource.One(datasource.DocKey{Docset: b.Docset, Doc: datasource.Wildcard}))
	if err != nil {
		return nil, fmt.Errorf("reading docset %s: %w", b.Docset, err)
	}
	keys := make([]datasource.DocKey, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Doc < keys[j].Doc })

	refs := make([]reference.Reference, 0, len(keys))
	for _, k := range keys {
		ref, err := reference.FromRecord(docs[k])
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", k, err)
		}
		if ref.ID == "" {
			ref.ID = k.Doc
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (b *Builder) ensureGraph(ctx context.Context, name string, kind Kind) error {
	key := datasource.GraphKey(name)
	got, err := b.Graphs.ReadGraph(ctx, datasource.One(key))
	if err != nil {
		return err
	}
	if g, ok := got[key]; ok {
		if g.Directed() != kind.Directed() {
			return fmt.Errorf("graph %q exists with directed=%t, %s networks need directed=%t", name, g.Directed(), kind, kind.Directed())
		}
		return nil
	}
	_, err = b.Graphs.CreateGraph(ctx, datasource.One(key), datasource.GraphSpec{
		Directed: kind.Directed(),
		Attrs:    map[string]any{"network": string(kind)},
	})
	return err
}
