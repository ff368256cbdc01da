// Package pdf extracts text and bibliographic hints from PDF files.
package pdf

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiPages is how many leading pages are searched for a DOI.
const doiPages = 3

// 10.NNNN/suffix
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Document is the extracted content of one PDF.
type Document struct {
	Text  string
	DOI   string
	Title string
	Pages int
}

// Read extracts up to maxPages pages of the file at path; maxPages <= 0 reads all.
func Read(path string, maxPages int) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return extract(r, maxPages), nil
}

// ReadFrom extracts from an in-memory PDF.
func ReadFrom(r io.ReaderAt, size int64, maxPages int) (Document, error) {
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return Document{}, fmt.Errorf("parsing pdf: %w", err)
	}
	return extract(pr, maxPages), nil
}

func extract(r *pdf.Reader, maxPages int) Document {
	doc := Document{Pages: r.NumPage()}
	if maxPages <= 0 || maxPages > doc.Pages {
		maxPages = doc.Pages
	}

	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i == 1 {
			doc.Title = FindTitle(text)
		}
		if doc.DOI == "" && i <= doiPages {
			doc.DOI = FindDOI(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	doc.Text = b.String()
	return doc
}

// FindDOI returns the first plausible DOI in text, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// FindTitle guesses a title: the first substantial line that is not a
// running header.
func FindTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line
		}
	}
	return ""
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
