package skills

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Normalizer turns raw text into an ordered sequence of canonical tokens.
type Normalizer interface {
	Normalize(text string) []string
}

// NormalizerFunc adapts a plain function to Normalizer.
type NormalizerFunc func(text string) []string

func (f NormalizerFunc) Normalize(text string) []string { return f(text) }

// "+" and "#" are part of the alphabet so c++ and c# survive as single tokens.
var tokenPattern = regexp.MustCompile(`[a-z0-9+#]+`)

// RegexNormalizer lowercases text and keeps the maximal runs of [a-z0-9+#].
// Text that is not valid UTF-8 normalizes to no tokens.
type RegexNormalizer struct{}

func (RegexNormalizer) Normalize(text string) []string {
	if !utf8.ValidString(text) {
		return nil
	}
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
