package skills

import "sort"

// SkillSet is an unordered set of canonical skills.
type SkillSet map[string]struct{}

// NewSkillSet builds a set from the given skills.
func NewSkillSet(skills ...string) SkillSet {
	s := make(SkillSet, len(skills))
	for _, skill := range skills {
		s[skill] = struct{}{}
	}
	return s
}

func (s SkillSet) Add(skill string) { s[skill] = struct{}{} }

func (s SkillSet) Has(skill string) bool {
	_, ok := s[skill]
	return ok
}

func (s SkillSet) Len() int { return len(s) }

// Sorted returns the members in lexical order, never nil.
func (s SkillSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for skill := range s {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}

// Extractor finds taxonomy skills in token sequences.
type Extractor struct {
	tax  *Taxonomy
	norm Normalizer
}

// NewExtractor binds an extractor to a taxonomy. A nil normalizer selects RegexNormalizer.
func NewExtractor(tax *Taxonomy, norm Normalizer) *Extractor {
	if norm == nil {
		norm = RegexNormalizer{}
	}
	return &Extractor{tax: tax, norm: norm}
}

// ExtractText normalizes text and extracts its skills.
func (e *Extractor) ExtractText(text string) SkillSet {
	return e.Extract(e.norm.Normalize(text))
}

// Extract returns every taxonomy skill present in tokens. Multi-word skills must
// appear as a contiguous phrase. Ambiguous short skills additionally need a context
// word ("language", "programming") directly before or after the match.
func (e *Extractor) Extract(tokens []string) SkillSet {
	found := make(SkillSet)
	if len(tokens) == 0 {
		return found
	}

	fixed := make([]string, len(tokens))
	for i, tok := range tokens {
		if right, ok := e.tax.misspellings[tok]; ok {
			tok = right
		}
		fixed[i] = tok
	}

	for i, tok := range fixed {
		for _, p := range e.tax.index[tok] {
			if !hasPhraseAt(fixed, i, p.tokens) {
				continue
			}
			if e.tax.IsAmbiguous(p.skill) && !e.inContext(fixed, i, len(p.tokens)) {
				continue
			}
			found.Add(p.skill)
		}
	}
	return found
}

func hasPhraseAt(tokens []string, at int, phrase []string) bool {
	if at+len(phrase) > len(tokens) {
		return false
	}
	for j, want := range phrase {
		if tokens[at+j] != want {
			return false
		}
	}
	return true
}

func (e *Extractor) inContext(tokens []string, at, n int) bool {
	if at > 0 {
		if _, ok := e.tax.contextWords[tokens[at-1]]; ok {
			return true
		}
	}
	if end := at + n; end < len(tokens) {
		if _, ok := e.tax.contextWords[tokens[end]]; ok {
			return true
		}
	}
	return false
}
