package skills

import "strings"

// Expander maps descriptive job-description phrases to the canonical skills they imply.
type Expander struct {
	synonyms map[string][]string
}

func NewExpander(tax *Taxonomy) *Expander {
	return &Expander{synonyms: tax.synonyms}
}

// Expand returns phrases followed by every canonical skill any phrase maps to,
// duplicates removed, first occurrence kept. Lookup is on the lowercased,
// trimmed phrase; unmapped phrases pass through unchanged.
func (x *Expander) Expand(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, p := range phrases {
		add(p)
	}
	for _, skill := range x.Implied(phrases) {
		add(skill)
	}
	return out
}

// Implied returns only the canonical skills contributed by synonym entries,
// in the order they are first implied.
func (x *Expander) Implied(phrases []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range phrases {
		for _, skill := range x.synonyms[strings.ToLower(strings.TrimSpace(p))] {
			if _, ok := seen[skill]; ok {
				continue
			}
			seen[skill] = struct{}{}
			out = append(out, skill)
		}
	}
	return out
}
