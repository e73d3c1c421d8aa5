// Package keyphrase extracts ranked keyphrases from sanitized vacancy text:
// tokens are reduced to base forms, candidate n-grams are scored against the
// full text with an embedding model, and the top-N phrases are returned as a
// comma-joined list.
package keyphrase

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Lemmatize lowercases text, splits it into word tokens and reduces each to
// its base form with the Russian snowball stemmer, rejoining with single
// spaces. Tokens the stemmer cannot handle pass through unchanged.
func Lemmatize(text string) string {
	tokens := tokenize(text)
	for i, tok := range tokens {
		stemmed, err := snowball.Stem(tok, "russian", false)
		if err == nil && stemmed != "" {
			tokens[i] = stemmed
		}
	}
	return strings.Join(tokens, " ")
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
