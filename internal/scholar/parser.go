package scholar

import (
	"regexp"
	"strings"
)

var identifierPrefixes = []string{
	"DOI:",
	"ARXIV:",
	"PMID:",
	"PMCID:",
	"CorpusId:",
	"URL:",
	"MAG:",
	"ACL:",
}

// 40 hex characters.
var s2IDPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

var bareDOIPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// ParsePaperID parses a paper identifier. Prefixed forms (DOI:, ARXIV:,
// PMID:, ...) keep their prefix type; a bare DOI or doi.org URL is a DOI;
// anything else is taken as a Semantic Scholar paper id.
func ParsePaperID(id string) PaperIdentifier {
	id = strings.TrimSpace(id)
	for _, prefix := range identifierPrefixes {
		if strings.HasPrefix(strings.ToUpper(id), strings.ToUpper(prefix)) {
			return PaperIdentifier{Type: strings.TrimSuffix(prefix, ":"), Value: id[len(prefix):]}
		}
	}
	if doi := NormalizeDOI(id); bareDOIPattern.MatchString(doi) {
		return PaperIdentifier{Type: "DOI", Value: doi}
	}
	return PaperIdentifier{Type: "S2", Value: id}
}

// IsS2ID reports whether id is a raw 40-character paper id.
func IsS2ID(id string) bool {
	return s2IDPattern.MatchString(id)
}

// NormalizeDOI strips URL and DOI: prefixes and lowercases.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "DOI:", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return strings.ToLower(doi)
}
