package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// punctuation is the ASCII punctuation set stripped from token boundaries.
// The apostrophe is deliberately absent so contractions survive.
const punctuation = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize canonicalizes a token for matching: the token is lower-cased and
// whitespace and punctuation other than the apostrophe are stripped from both
// ends in a single pass. Interior characters are never touched.
//
//	Normalize("crime?!")  == "crime"
//	Normalize("HELLO!!!") == "hello"
//	Normalize("it's")     == "it's"
func Normalize(token string) string {
	return strings.TrimFunc(strings.ToLower(token), isBoundary)
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || isBoundaryPunct(r)
}

func isBoundaryPunct(r rune) bool {
	return r < utf8.RuneSelf && strings.ContainsRune(punctuation, r)
}

// NormalizeAll normalizes each token, preserving order and length
func NormalizeAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = Normalize(tok)
	}
	return out
}
