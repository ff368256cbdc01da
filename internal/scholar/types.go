// Package scholar is a client for the Semantic Scholar Academic Graph API
// and the fetcher that stores its papers in a document source.
package scholar

// Paper is a paper from the Graph API.
type Paper struct {
	PaperID        string      `json:"paperId"`
	ExternalIDs    ExternalIDs `json:"externalIds,omitempty"`
	Title          string      `json:"title"`
	Abstract       string      `json:"abstract,omitempty"`
	Authors        []Author    `json:"authors,omitempty"`
	Year           int         `json:"year,omitempty"`
	Venue          string      `json:"venue,omitempty"`
	PubDate        string      `json:"publicationDate,omitempty"` // YYYY-MM-DD
	CitationCount  int         `json:"citationCount,omitempty"`
	ReferenceCount int         `json:"referenceCount,omitempty"`
	Fields         []string    `json:"fieldsOfStudy,omitempty"`
}

// ExternalIDs holds the identifiers other services know a paper by.
type ExternalIDs struct {
	DOI      string `json:"DOI,omitempty"`
	ArXiv    string `json:"ArXiv,omitempty"`
	PubMed   string `json:"PubMed,omitempty"`
	CorpusID int    `json:"CorpusId,omitempty"`
}

// Author is a paper author.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// PaperIdentifier is a parsed paper identifier.
type PaperIdentifier struct {
	Type  string // DOI, ARXIV, PMID, PMCID, CorpusId, URL, MAG, ACL, S2
	Value string
}

// String returns the API form of the identifier.
func (p PaperIdentifier) String() string {
	if p.Type == "S2" {
		return p.Value
	}
	return p.Type + ":" + p.Value
}

type citation struct {
	CitingPaper *Paper `json:"citingPaper,omitempty"`
	CitedPaper  *Paper `json:"citedPaper,omitempty"`
}

type citationPage struct {
	Offset int        `json:"offset"`
	Next   int        `json:"next,omitempty"`
	Data   []citation `json:"data"`
}

// SearchResponse is one page of paper search results.
type SearchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Next   int     `json:"next,omitempty"`
	Data   []Paper `json:"data"`
}
