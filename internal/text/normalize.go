// Package text provides text normalization applied before speech synthesis.
//
// Providers differ in how they handle typographic punctuation and stray
// control characters; normalizing up front keeps the dispatched text
// identical regardless of which provider ends up serving the request.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

const whitespaceRegexPattern = `\s+`

// Normalizer normalizes request text for synthesis.
type Normalizer struct {
	whitespaceRegex *regexp.Regexp
}

// NewNormalizer creates a Normalizer with its patterns precompiled.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		whitespaceRegex: regexp.MustCompile(whitespaceRegexPattern),
	}
}

// Normalize returns text ready for dispatch: typographic dashes and ellipses
// replaced with ASCII forms, control characters stripped, and all runs of
// whitespace collapsed to single spaces.
func (n *Normalizer) Normalize(input string) string {
	replacer := strings.NewReplacer(
		emDash, ", ",
		enDash, "-",
		figureDash, "-",
		ellipsisChar, ellipsis,
	)
	normalized := replacer.Replace(input)

	normalized = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}

		return r
	}, normalized)

	normalized = n.whitespaceRegex.ReplaceAllString(normalized, " ")

	return strings.TrimSpace(normalized)
}
