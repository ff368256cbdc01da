package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/bibnet/internal/reference"
)

var beast = reference.Reference{
	ID:      "s2abc",
	CiteKey: "Suchard2018-ba",
	DOI:     "10.1093/ve/vey016",
	Title:   "Bayesian phylogenetic & phylodynamic data_integration",
	Authors: []reference.Author{
		{First: "Marc A", Last: "Suchard"},
		{Last: "Consortium"},
	},
	Venue:     "Virus Evolution",
	Published: reference.PublicationDate{Year: 2018, Month: 6},
}

func TestBibTeX(t *testing.T) {
	got := BibTeX(beast)
	for _, want := range []string{
		"@article{Suchard2018-ba,\n",
		"  author = {Suchard, Marc A and Consortium},\n",
		`  title = {Bayesian phylogenetic \& phylodynamic data\_integration},` + "\n",
		"  journal = {Virus Evolution},\n",
		"  year = {2018},\n",
		"  month = {6},\n",
		"  doi = {10.1093/ve/vey016},\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BibTeX missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "abstract") {
		t.Errorf("empty abstract should be omitted:\n%s", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("entry not closed:\n%s", got)
	}
}

func TestBibTeX_KeyFallsBackToID(t *testing.T) {
	got := BibTeX(reference.Reference{ID: "p1", Title: "T"})
	if !strings.HasPrefix(got, "@article{p1,\n") {
		t.Errorf("BibTeX = %q", got)
	}
	if strings.Contains(got, "year") {
		t.Errorf("unknown year should be omitted: %q", got)
	}
}

func TestEntryType(t *testing.T) {
	tests := []struct {
		venue string
		want  string
	}{
		{"Nature", "article"},
		{"arXiv", "article"},
		{"Proceedings of ICML", "inproceedings"},
		{"NeurIPS Workshop on Bio", "inproceedings"},
		{"", "article"},
	}
	for _, tt := range tests {
		if got := entryType(tt.venue); got != tt.want {
			t.Errorf("entryType(%q) = %q, want %q", tt.venue, got, tt.want)
		}
	}

	got := BibTeX(reference.Reference{ID: "x", Venue: "Symposium on Phylogenetics"})
	if !strings.Contains(got, "booktitle = {Symposium on Phylogenetics}") {
		t.Errorf("inproceedings should use booktitle:\n%s", got)
	}
}

func TestWrite_SkipsIndexed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	existing := "@article{Old2001,\n  doi = {10.1093/VE/VEY016},\n}\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}
	idx, err := ReadIndex(path)
	if err != nil {
		t.Fatalf("ReadIndex error = %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1", idx.Len())
	}

	var buf bytes.Buffer
	refs := []reference.Reference{beast, {ID: "p2", Title: "Other"}, {ID: "p2", Title: "Dup"}}
	n, err := Write(&buf, refs, idx)
	if err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if n != 1 {
		t.Errorf("Write wrote %d entries, want 1", n)
	}
	if got := buf.String(); !strings.HasPrefix(got, "\n@article{p2,") || strings.Contains(got, "Dup") {
		t.Errorf("Write output = %q", got)
	}
}

func TestReadIndex_MissingFile(t *testing.T) {
	idx, err := ReadIndex(filepath.Join(t.TempDir(), "none.bib"))
	if err != nil {
		t.Fatalf("ReadIndex error = %v", err)
	}
	if idx.Len() != 0 || idx.Has("x", "") {
		t.Error("expected empty index")
	}
}
