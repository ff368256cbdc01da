// Package export writes stored papers as BibTeX.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/matsen/bibnet/internal/reference"
	"github.com/matsen/bibnet/internal/scholar"
)

var latex = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

// Key is the citation key of ref: its cite key when set, else its id.
func Key(ref reference.Reference) string {
	if ref.CiteKey != "" {
		return ref.CiteKey
	}
	return ref.ID
}

// BibTeX renders one entry. Optional fields are left out when empty.
func BibTeX(ref reference.Reference) string {
	kind := entryType(ref.Venue)
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", kind, Key(ref))
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
		}
	}

	field("author", authors(ref.Authors))
	field("title", latex.Replace(ref.Title))
	if kind == "inproceedings" {
		field("booktitle", latex.Replace(ref.Venue))
	} else {
		field("journal", latex.Replace(ref.Venue))
	}
	if ref.Published.Year > 0 {
		field("year", fmt.Sprint(ref.Published.Year))
	}
	if ref.Published.Month > 0 {
		field("month", fmt.Sprint(ref.Published.Month))
	}
	field("doi", ref.DOI)
	field("abstract", latex.Replace(ref.Abstract))
	b.WriteString("}\n")
	return b.String()
}

func entryType(venue string) string {
	v := strings.ToLower(venue)
	for _, s := range []string{"proceedings", "conference", "workshop", "symposium"} {
		if strings.Contains(v, s) {
			return "inproceedings"
		}
	}
	return "article"
}

// authors formats "Last, First and Last, First".
func authors(list []reference.Author) string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.First == "" {
			out = append(out, a.Last)
			continue
		}
		out = append(out, a.Last+", "+a.First)
	}
	return strings.Join(out, " and ")
}

// Write writes refs as BibTeX entries separated by blank lines, skipping
// those idx already holds. It returns how many were written.
func Write(w io.Writer, refs []reference.Reference, idx *Index) (int, error) {
	n := 0
	for _, ref := range refs {
		if idx.Has(Key(ref), ref.DOI) {
			continue
		}
		if n > 0 || idx.Len() > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return n, err
			}
		}
		if _, err := io.WriteString(w, BibTeX(ref)); err != nil {
			return n, err
		}
		idx.add(Key(ref), ref.DOI)
		n++
	}
	return n, nil
}

// Index records the keys and DOIs of existing entries.
type Index struct {
	keys map[string]bool
	dois map[string]bool
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{keys: map[string]bool{}, dois: map[string]bool{}}
}

func (idx *Index) add(key, doi string) {
	idx.keys[key] = true
	if doi != "" {
		idx.dois[scholar.NormalizeDOI(doi)] = true
	}
}

// Has matches by DOI when one is given, then by key.
func (idx *Index) Has(key, doi string) bool {
	if doi != "" && idx.dois[scholar.NormalizeDOI(doi)] {
		return true
	}
	return idx.keys[key]
}

// Len is the number of indexed entries.
func (idx *Index) Len() int { return len(idx.keys) }

var (
	entryStart = regexp.MustCompile(`@\w+\{([^,]+),`)
	doiField   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// ReadIndex indexes the .bib file at path. A missing file gives an empty index.
func ReadIndex(path string) (*Index, error) {
	idx := NewIndex()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var key string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if m := entryStart.FindStringSubmatch(line); m != nil {
			key = strings.TrimSpace(m[1])
			idx.add(key, "")
		}
		if m := doiField.FindStringSubmatch(line); m != nil && key != "" {
			idx.add(key, m[1])
		}
	}
	return idx, sc.Err()
}
