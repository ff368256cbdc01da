package network

import (
	"strings"
	"unicode"
)

// MinTermLength is the shortest token kept as a term.
const MinTermLength = 3

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		about above after again against all also among and any are because been before being below
		between both but can could did does doing down during each few for from further had has have
		having here how however into its itself just more most much not now off once only other our
		out over own same should since some such than that the their them then there these they this
		those through thus too under until upon very was were what when where which while who whom
		why will with within without would yet you your we our using used use based show shows shown
		paper study results result method methods new two one may also et al`) {
		stopwords[w] = true
	}
}

// Tokenize lowercases text and returns its terms in order: runs of letters,
// digits and inner hyphens, without stopwords, numbers or short tokens.
func Tokenize(text string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		tok = strings.Trim(tok, "-")
		if len([]rune(tok)) < MinTermLength || stopwords[tok] || isNumber(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// Sentences splits text on sentence punctuation and line breaks and returns
// the distinct terms of each non-empty sentence, in first-seen order.
func Sentences(text string) [][]string {
	var out [][]string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	}) {
		seen := map[string]bool{}
		var terms []string
		for _, t := range Tokenize(s) {
			if !seen[t] {
				seen[t] = true
				terms = append(terms, t)
			}
		}
		if len(terms) > 0 {
			out = append(out, terms)
		}
	}
	return out
}

// Frequencies counts the terms of text.
func Frequencies(text string) map[string]int {
	freq := map[string]int{}
	for _, t := range Tokenize(text) {
		freq[t]++
	}
	return freq
}
