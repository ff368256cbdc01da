// Package reference defines the paper record stored in document sources.
package reference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matsen/bibnet/internal/datasource"
)

// Reference is an academic paper as kept in a docset.
type Reference struct {
	// Identity
	ID      string `json:"id"`  // Semantic Scholar paper id
	DOI     string `json:"doi"` // Digital Object Identifier
	CiteKey string `json:"citekey,omitempty"`

	// Metadata
	Title    string   `json:"title"`
	Authors  []Author `json:"authors"`
	Abstract string   `json:"abstract,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Fields   []string `json:"fields,omitempty"`

	Published PublicationDate `json:"published"`

	// References lists the ids of the papers this one cites.
	References []string `json:"references,omitempty"`

	Source ImportSource `json:"source"`

	// External identifiers
	PMID    string `json:"pmid,omitempty"`
	ArXivID string `json:"arxiv_id,omitempty"`
}

// Author is a paper author.
type Author struct {
	ID    string `json:"id,omitempty"` // Semantic Scholar author id
	First string `json:"first"`
	Last  string `json:"last"`
	ORCID string `json:"orcid,omitempty"`
}

// Name returns "First Last".
func (a Author) Name() string {
	return strings.TrimSpace(a.First + " " + a.Last)
}

// Key identifies the author in networks: the id when known, else the name.
func (a Author) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return a.Name()
}

// PublicationDate has an optional month and day.
type PublicationDate struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"` // 1-12, 0 if unknown
	Day   int `json:"day,omitempty"`   // 1-31, 0 if unknown
}

// ImportSource tracks where a reference came from.
type ImportSource struct {
	Type string `json:"type"` // s2, pdf, manual
	ID   string `json:"id"`
}

// Text returns the title and abstract joined, the input to term networks.
func (r Reference) Text() string {
	if r.Abstract == "" {
		return r.Title
	}
	return r.Title + "\n" + r.Abstract
}

// ToRecord converts r to the generic record stored by document sources.
func (r Reference) ToRecord() (datasource.Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding reference %s: %w", r.ID, err)
	}
	var rec datasource.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("encoding reference %s: %w", r.ID, err)
	}
	return rec, nil
}

// FromRecord decodes a stored record. Unknown fields are ignored.
func FromRecord(rec datasource.Record) (Reference, error) {
	var r Reference
	data, err := json.Marshal(rec)
	if err != nil {
		return r, fmt.Errorf("decoding reference: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decoding reference: %w", err)
	}
	return r, nil
}
