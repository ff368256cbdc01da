package scholar

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/matsen/bibnet/internal/reference"
)

// Suffixes kept with the last name.
var nameSuffixes = map[string]bool{
	"jr":   true,
	"jr.":  true,
	"sr":   true,
	"sr.":  true,
	"ii":   true,
	"iii":  true,
	"iv":   true,
	"phd":  true,
	"ph.d": true,
	"md":   true,
	"m.d":  true,
}

// ToReference converts an API paper and the ids it cites to a Reference.
func ToReference(paper Paper, cited []string) reference.Reference {
	ref := reference.Reference{
		ID:         paper.PaperID,
		DOI:        NormalizeDOI(paper.ExternalIDs.DOI),
		Title:      paper.Title,
		Abstract:   paper.Abstract,
		Venue:      paper.Venue,
		Fields:     paper.Fields,
		Authors:    mapAuthors(paper.Authors),
		Published:  parsePublicationDate(paper.Year, paper.PubDate),
		References: cited,
		Source:     reference.ImportSource{Type: "s2", ID: paper.PaperID},
		PMID:       paper.ExternalIDs.PubMed,
		ArXivID:    paper.ExternalIDs.ArXiv,
	}
	ref.CiteKey = citeKey(ref)
	return ref
}

func mapAuthors(authors []Author) []reference.Author {
	out := make([]reference.Author, 0, len(authors))
	for _, a := range authors {
		first, last := splitAuthorName(a.Name)
		out = append(out, reference.Author{ID: a.AuthorID, First: first, Last: last})
	}
	return out
}

// splitAuthorName splits a full name into first and last name.
// Multi-part surnames (van der Waals) split at the last word.
func splitAuthorName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}

	if nameSuffixes[strings.ToLower(parts[len(parts)-1])] && len(parts) > 2 {
		last = parts[len(parts)-2] + " " + parts[len(parts)-1]
		first = strings.Join(parts[:len(parts)-2], " ")
		return first, last
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

// parsePublicationDate prefers the YYYY-MM-DD date over the bare year.
func parsePublicationDate(year int, date string) reference.PublicationDate {
	pub := reference.PublicationDate{Year: year}
	if date == "" {
		return pub
	}
	parts := strings.Split(date, "-")
	if y, err := strconv.Atoi(parts[0]); err == nil {
		pub.Year = y
	}
	if len(parts) >= 2 {
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 1 && m <= 12 {
			pub.Month = m
		}
	}
	if len(parts) >= 3 {
		if d, err := strconv.Atoi(parts[2]); err == nil && d >= 1 && d <= 31 {
			pub.Day = d
		}
	}
	return pub
}

// citeKey builds LastName + Year + two title letters, e.g. "Zhang2018-vi".
// Not unique.
func citeKey(ref reference.Reference) string {
	lastName := "Unknown"
	if len(ref.Authors) > 0 {
		lastName = sanitize(ref.Authors[0].Last)
	}
	year := ref.Published.Year
	if year == 0 {
		year = 9999
	}
	return fmt.Sprintf("%s%d-%s", lastName, year, titleSuffix(ref.Title))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var titleStopWords = map[string]bool{"a": true, "an": true, "the": true, "of": true, "and": true, "in": true, "on": true, "for": true, "to": true, "with": true}

func titleSuffix(title string) string {
	var b strings.Builder
	for _, word := range strings.Fields(strings.ToLower(title)) {
		if titleStopWords[word] {
			continue
		}
		b.WriteByte(word[0])
		if b.Len() >= 2 {
			break
		}
	}
	for b.Len() < 2 {
		b.WriteByte('x')
	}
	return b.String()
}
