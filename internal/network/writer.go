package network

import (
	"context"
	"sort"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/reference"
)

// writer applies node and edge writes to one graph and counts them.
type writer struct {
	g     datasource.GraphSource
	graph string
	stats Stats
}

// node inserts name with attrs unless it already exists.
func (w *writer) node(ctx context.Context, name string, attrs datasource.Record) error {
	key := datasource.NodeKey{Graph: w.graph, Node: name}
	got, err := w.g.ReadNode(ctx, datasource.One(key))
	if err != nil {
		return err
	}
	if _, ok := got[key]; ok {
		return nil
	}
	if _, err := w.g.CreateNode(ctx, datasource.One(key), attrs); err != nil {
		return err
	}
	w.stats.Nodes++
	return nil
}

// bump records one more occurrence of relation on u-v: count and, when
// counter is set, that counter go up by one.
func (w *writer) bump(ctx context.Context, u, v, relation, counter string) error {
	key := datasource.Edge(w.graph, u, v)
	got, err := w.g.ReadEdge(ctx, datasource.One(key))
	if err != nil {
		return err
	}
	// undirected keys come back in canonical order
	var old datasource.Record
	for _, rec := range got {
		old = rec
	}

	value := datasource.Record{
		"count":    asInt(old["count"]) + 1,
		"relation": mergeRelation(asString(old["relation"]), relation),
	}
	if counter != "" {
		value[counter] = asInt(old[counter]) + 1
	}
	return w.set(ctx, u, v, value)
}

func (w *writer) set(ctx context.Context, u, v string, value datasource.Record) error {
	if _, err := w.g.UpdateEdge(ctx, datasource.One(datasource.Edge(w.graph, u, v)), value); err != nil {
		return err
	}
	w.stats.Edges++
	return nil
}

func mergeRelation(old, rel string) string {
	switch {
	case old == "" || old == rel:
		return rel
	case old == RelCoCite:
		return old
	case old == RelCo && rel == RelCite, old == RelCite && rel == RelCo:
		return RelCoCite
	}
	return rel
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func paperAttrs(ref reference.Reference) datasource.Record {
	return datasource.Record{
		"type":  "paper",
		"title": ref.Title,
		"doi":   ref.DOI,
		"year":  ref.Published.Year,
	}
}

func authorAttrs(a reference.Author) datasource.Record {
	return datasource.Record{"type": "author", "name": a.Name()}
}

func wordAttrs(word string) datasource.Record {
	return datasource.Record{"type": "word", "word": word}
}

// papers builds the citation network: paper_a -> paper_b when a cites b.
func (w *writer) papers(ctx context.Context, refs []reference.Reference) error {
	for _, ref := range refs {
		if err := w.node(ctx, PaperPrefix+ref.ID, paperAttrs(ref)); err != nil {
			return err
		}
	}
	for _, ref := range refs {
		for _, cited := range ref.References {
			if err := w.node(ctx, PaperPrefix+cited, datasource.Record{"type": "paper"}); err != nil {
				return err
			}
			if err := w.bump(ctx, PaperPrefix+ref.ID, PaperPrefix+cited, RelCite, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// authors builds the co-authorship and author citation network. Citations
// are counted only toward cited papers present in the docset, since only
// their authors are known.
func (w *writer) authors(ctx context.Context, refs []reference.Reference) error {
	byID := make(map[string]reference.Reference, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
		for _, a := range ref.Authors {
			if err := w.node(ctx, AuthorPrefix+a.Key(), authorAttrs(a)); err != nil {
				return err
			}
		}
	}

	for _, ref := range refs {
		for i := 0; i < len(ref.Authors); i++ {
			for j := i + 1; j < len(ref.Authors); j++ {
				u, v := ref.Authors[i].Key(), ref.Authors[j].Key()
				if u == v {
					continue
				}
				if err := w.bump(ctx, AuthorPrefix+u, AuthorPrefix+v, RelCo, "co_count"); err != nil {
					return err
				}
			}
		}
	}

	for _, ref := range refs {
		for _, id := range ref.References {
			cited, ok := byID[id]
			if !ok {
				continue
			}
			for _, a := range ref.Authors {
				for _, c := range cited.Authors {
					if a.Key() == c.Key() {
						continue
					}
					if err := w.bump(ctx, AuthorPrefix+a.Key(), AuthorPrefix+c.Key(), RelCite, "cite_count"); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// terms builds the term co-occurrence network over sentences of each
// paper's title and abstract.
func (w *writer) terms(ctx context.Context, refs []reference.Reference) error {
	for _, ref := range refs {
		for _, sentence := range Sentences(ref.Text()) {
			for _, t := range sentence {
				if err := w.node(ctx, WordPrefix+t, wordAttrs(t)); err != nil {
					return err
				}
			}
			for i := 0; i < len(sentence); i++ {
				for j := i + 1; j < len(sentence); j++ {
					if err := w.bump(ctx, WordPrefix+sentence[i], WordPrefix+sentence[j], RelCo, ""); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// paperAuthors links each paper to its authors with their 1-based order.
func (w *writer) paperAuthors(ctx context.Context, refs []reference.Reference) error {
	for _, ref := range refs {
		if err := w.node(ctx, PaperPrefix+ref.ID, paperAttrs(ref)); err != nil {
			return err
		}
		for i, a := range ref.Authors {
			if err := w.node(ctx, AuthorPrefix+a.Key(), authorAttrs(a)); err != nil {
				return err
			}
			if err := w.set(ctx, PaperPrefix+ref.ID, AuthorPrefix+a.Key(), datasource.Record{"relation": RelPaperAuthor, "order": i + 1}); err != nil {
				return err
			}
		}
	}
	return nil
}

// paperTerms links each paper to the terms of its text with their frequency.
func (w *writer) paperTerms(ctx context.Context, refs []reference.Reference) error {
	for _, ref := range refs {
		if err := w.node(ctx, PaperPrefix+ref.ID, paperAttrs(ref)); err != nil {
			return err
		}
		freq := Frequencies(ref.Text())
		words := make([]string, 0, len(freq))
		for t := range freq {
			words = append(words, t)
		}
		sort.Strings(words)
		for _, t := range words {
			if err := w.node(ctx, WordPrefix+t, wordAttrs(t)); err != nil {
				return err
			}
			if err := w.set(ctx, PaperPrefix+ref.ID, WordPrefix+t, datasource.Record{"relation": RelPaperWord, "frequency": freq[t]}); err != nil {
				return err
			}
		}
	}
	return nil
}
