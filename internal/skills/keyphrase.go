package skills

import (
	"sort"
	"strings"
)

// KeyphraseExtractor picks candidate phrases out of a normalized token sequence.
type KeyphraseExtractor interface {
	Keyphrases(tokens []string) []string
}

// KeyphraseFunc adapts a plain function to KeyphraseExtractor.
type KeyphraseFunc func(tokens []string) []string

func (f KeyphraseFunc) Keyphrases(tokens []string) []string { return f(tokens) }

// NGramExtractor emits every contiguous n-gram of 1..MaxN tokens, deduplicated,
// in order of first appearance.
type NGramExtractor struct {
	MaxN int
}

func (g NGramExtractor) Keyphrases(tokens []string) []string {
	maxN := g.MaxN
	if maxN < 1 {
		maxN = 1
	}
	var out []string
	seen := make(map[string]struct{})
	for i := range tokens {
		for n := 1; n <= maxN && i+n <= len(tokens); n++ {
			p := strings.Join(tokens[i:i+n], " ")
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// FrequencyExtractor ranks unigrams and bigrams without stop words by how often
// they occur and keeps the TopK most frequent. TopK <= 0 keeps all of them.
type FrequencyExtractor struct {
	TopK int
}

func (f FrequencyExtractor) Keyphrases(tokens []string) []string {
	counts := make(map[string]int)
	for i, tok := range tokens {
		if isStopWord(tok) {
			continue
		}
		counts[tok]++
		if i+1 < len(tokens) && !isStopWord(tokens[i+1]) {
			counts[tok+" "+tokens[i+1]]++
		}
	}

	out := make([]string, 0, len(counts))
	for p := range counts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	if f.TopK > 0 && len(out) > f.TopK {
		out = out[:f.TopK]
	}
	return out
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {},
	"of": {}, "on": {}, "or": {}, "our": {}, "that": {}, "the": {}, "their": {},
	"this": {}, "to": {}, "we": {}, "will": {}, "with": {}, "you": {}, "your": {},
	"who": {}, "can": {}, "must": {}, "should": {}, "plus": {}, "experience": {},
	"years": {}, "strong": {}, "ability": {}, "work": {}, "team": {},
}

func isStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}
