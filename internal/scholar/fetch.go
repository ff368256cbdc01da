package scholar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/reference"
)

// PaperAPI is the part of Client the fetcher needs.
type PaperAPI interface {
	GetPaper(ctx context.Context, id string) (*Paper, error)
	GetReferences(ctx context.Context, id string, limit int) ([]Paper, error)
}

var _ PaperAPI = (*Client)(nil)

// Fetcher walks the reference graph from seed papers and stores every
// paper it visits as a document.
type Fetcher struct {
	API    PaperAPI
	Docs   datasource.DocSource
	Docset string
	// Depth is how many reference hops to follow from the seeds.
	Depth int
	// MaxReferences caps the references fetched per paper; 0 means all.
	MaxReferences int
	// Refresh refetches papers already present in the docset.
	Refresh bool
	Logger  *slog.Logger
}

// FetchStats summarizes a Fetch.
type FetchStats struct {
	Fetched int `json:"fetched"`
	Cached  int `json:"cached"`
	Missing int `json:"missing"`
}

func (f *Fetcher) log() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

type queued struct {
	id    string
	depth int
}

// Fetch stores the seeds and, breadth first, the papers they cite up to
// Depth hops. Papers the API does not know are counted and skipped.
func (f *Fetcher) Fetch(ctx context.Context, seeds []string) (FetchStats, error) {
	var stats FetchStats
	seen := map[string]bool{}
	queue := make([]queued, 0, len(seeds))
	for _, s := range seeds {
		queue = append(queue, queued{id: s})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if seen[item.id] {
			continue
		}
		seen[item.id] = true

		ref, cached, err := f.visit(ctx, item.id)
		if IsNotFound(err) {
			f.log().Warn("paper not found", "id", item.id)
			stats.Missing++
			continue
		}
		if err != nil {
			return stats, err
		}
		seen[ref.ID] = true
		if cached {
			stats.Cached++
		} else {
			stats.Fetched++
		}

		if item.depth >= f.Depth {
			continue
		}
		for _, cited := range ref.References {
			if !seen[cited] {
				queue = append(queue, queued{id: cited, depth: item.depth + 1})
			}
		}
	}
	return stats, nil
}

// visit returns the stored reference for id, fetching it when absent or
// when Refresh is set.
func (f *Fetcher) visit(ctx context.Context, id string) (reference.Reference, bool, error) {
	if !f.Refresh {
		key := datasource.DocKey{Docset: f.Docset, Doc: id}
		got, err := f.Docs.ReadDoc(ctx, datasource.One(key))
		if err != nil {
			return reference.Reference{}, false, err
		}
		if rec, ok := got[key]; ok {
			ref, err := reference.FromRecord(rec)
			return ref, true, err
		}
	}

	paper, err := f.API.GetPaper(ctx, id)
	if err != nil {
		return reference.Reference{}, false, err
	}
	refs, err := f.API.GetReferences(ctx, paper.PaperID, f.MaxReferences)
	if err != nil {
		return reference.Reference{}, false, fmt.Errorf("fetching references of %s: %w", paper.PaperID, err)
	}
	cited := make([]string, 0, len(refs))
	for _, r := range refs {
		cited = append(cited, r.PaperID)
	}

	ref := ToReference(*paper, cited)
	rec, err := ref.ToRecord()
	if err != nil {
		return ref, false, err
	}
	if _, err := f.Docs.CreateDoc(ctx, datasource.One(datasource.DocKey{Docset: f.Docset, Doc: ref.ID}), rec); err != nil {
		return ref, false, fmt.Errorf("storing %s: %w", ref.ID, err)
	}
	f.log().Debug("fetched paper", "id", ref.ID, "references", len(cited))
	return ref, false, nil
}
