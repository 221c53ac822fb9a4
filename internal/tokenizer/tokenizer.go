// Package tokenizer implements the single tokenization contract shared by
// the batch indexer and the query engine. Any deviation between the two
// call sites silently breaks recall, so this is a leaf package with no
// dependents flowing the other way.
package tokenizer

import (
	"regexp"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// termPattern matches maximal runs of lowercase letters, digits, and
// apostrophes. Everything else is a separator and is discarded.
var termPattern = regexp.MustCompile(`[a-z0-9']+`)

// Tokenize lowercases text using ASCII case mapping, extracts maximal runs
// over [a-z0-9'], and Porter-stems each run. It is a pure, deterministic,
// total function: empty input yields an empty, non-nil slice, and the
// output never contains empty strings.
func Tokenize(text string) []string {
	lower := toLowerASCII(text)
	runs := termPattern.FindAllString(lower, -1)
	tokens := make([]string, 0, len(runs))
	for _, run := range runs {
		stemmed := porterstemmer.StemString(run)
		if stemmed != "" {
			tokens = append(tokens, stemmed)
		}
	}
	return tokens
}

// TermFrequencies collapses a token sequence into counts per distinct term.
func TermFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}

// toLowerASCII lowercases only ASCII letters, matching the spec's
// requirement to use ASCII case mapping rather than Unicode-aware casing.
func toLowerASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}
