package scholar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/reference"
)

// Importer turns documents read from a PDF source into references. With an
// API, papers whose DOI Semantic Scholar knows are replaced by the full
// record, references included.
type Importer struct {
	API    PaperAPI // nil disables DOI lookups
	Docs   datasource.DocSource
	Docset string
	Logger *slog.Logger
}

// ImportStats summarizes an Import.
type ImportStats struct {
	Imported int `json:"imported"`
	Resolved int `json:"resolved"`
}

func (im *Importer) log() *slog.Logger {
	if im.Logger == nil {
		return slog.Default()
	}
	return im.Logger
}

// Import reads the documents spec resolves to in pdfs and stores one
// reference per document, named by its id.
func (im *Importer) Import(ctx context.Context, pdfs datasource.DocSource, spec datasource.Spec[datasource.DocKey]) (ImportStats, error) {
	var stats ImportStats
	got, err := pdfs.ReadDoc(ctx, spec)
	if err != nil {
		return stats, err
	}
	keys := make([]datasource.DocKey, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		ref := FromPDF(k.Doc, got[k])
		if im.API != nil && ref.DOI != "" {
			resolved, ok, err := im.resolve(ctx, ref)
			if err != nil {
				return stats, err
			}
			if ok {
				ref = resolved
				stats.Resolved++
			}
		}
		rec, err := ref.ToRecord()
		if err != nil {
			return stats, err
		}
		if _, err := im.Docs.CreateDoc(ctx, datasource.One(datasource.DocKey{Docset: im.Docset, Doc: ref.ID}), rec); err != nil {
			return stats, fmt.Errorf("storing %s: %w", ref.ID, err)
		}
		stats.Imported++
		im.log().Debug("imported pdf", "doc", k.String(), "id", ref.ID)
	}
	return stats, nil
}

func (im *Importer) resolve(ctx context.Context, ref reference.Reference) (reference.Reference, bool, error) {
	paper, err := im.API.GetPaper(ctx, "DOI:"+ref.DOI)
	if IsNotFound(err) {
		im.log().Warn("doi not found", "doi", ref.DOI)
		return ref, false, nil
	}
	if err != nil {
		return ref, false, err
	}
	refs, err := im.API.GetReferences(ctx, paper.PaperID, 0)
	if err != nil {
		return ref, false, fmt.Errorf("fetching references of %s: %w", paper.PaperID, err)
	}
	cited := make([]string, 0, len(refs))
	for _, r := range refs {
		cited = append(cited, r.PaperID)
	}
	out := ToReference(*paper, cited)
	out.Source = ref.Source
	return out, true, nil
}

// FromPDF builds a reference from a PDF source record. The document name
// is the id.
func FromPDF(name string, rec datasource.Record) reference.Reference {
	str := func(k string) string {
		s, _ := rec[k].(string)
		return s
	}
	return reference.Reference{
		ID:     name,
		DOI:    NormalizeDOI(str("doi")),
		Title:  str("title"),
		Source: reference.ImportSource{Type: "pdf", ID: str("path")},
	}
}
