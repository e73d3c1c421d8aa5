// Package sanitize cleans free-text snippet fields coming from the listing API.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// Clean converts an HTML or HTML-encoded string to plain text: it unescapes
// entities (the listing API wraps matched terms in <highlighttext> and
// sometimes double-encodes), strips all tags, then collapses runs of
// whitespace to single spaces and trims the ends.
func Clean(content string) string {
	unescaped := html.UnescapeString(content)
	plain := tagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

// CleanPtr applies Clean to a nullable field. Nil passes through unchanged.
func CleanPtr(content *string) *string {
	if content == nil {
		return nil
	}
	cleaned := Clean(*content)
	return &cleaned
}
