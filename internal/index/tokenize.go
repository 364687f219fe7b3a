// Package index maintains the inverted word and tag indexes over the record
// store and answers lexical and TF-IDF queries against them.
package index

import (
	"strings"
	"unicode"
)

// isWordRune reports whether r belongs inside a token. Letters cover the CJK
// ranges, so multilingual content indexes without special casing.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// Tokenize splits text into lower-cased word tokens. Non-word characters act
// as separators and single-rune tokens are dropped.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			tok := b.String()
			if len([]rune(tok)) > 1 {
				tokens = append(tokens, tok)
			}
			b.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		if isWordRune(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}
