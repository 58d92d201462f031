package skills

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Category partitions the skill vocabulary. Every skill belongs to exactly one.
type Category string

const (
	Technical   Category = "technical"
	Soft        Category = "soft"
	Operational Category = "operational"
)

// Categories lists the categories in reporting order.
var Categories = []Category{Technical, Soft, Operational}

// ErrInvalidTaxonomy is wrapped by every taxonomy validation failure.
var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

//go:embed default_taxonomy.yaml
var defaultTaxonomyYAML []byte

// Document is the on-disk shape of a taxonomy.
type Document struct {
	Categories   map[Category][]string `yaml:"categories" json:"categories"`
	Ambiguous    []string              `yaml:"ambiguous" json:"ambiguous"`
	ContextWords []string              `yaml:"context_words" json:"context_words"`
	Classes      map[string][]string   `yaml:"classes" json:"classes"`
	Synonyms     map[string][]string   `yaml:"synonyms" json:"synonyms"`
	Misspellings map[string]string     `yaml:"misspellings" json:"misspellings"`
	// Aliases map alternative surface phrases ("next js") to a canonical skill.
	Aliases map[string]string `yaml:"aliases" json:"aliases"`
}

type skillInfo struct {
	category Category
	class    string
	tokens   []string
}

type phrase struct {
	skill  string
	tokens []string
}

// Taxonomy is the compiled, read-only skill vocabulary. It is safe for
// concurrent use because nothing mutates it after Compile returns.
type Taxonomy struct {
	skills        map[string]skillInfo
	index         map[string][]phrase
	synonyms      map[string][]string
	misspellings  map[string]string
	aliases       map[string]string
	ambiguous     map[string]struct{}
	contextWords  map[string]struct{}
	maxSynonymLen int
}

var loadDefault = sync.OnceValues(func() (*Taxonomy, error) {
	return ParseTaxonomy(defaultTaxonomyYAML)
})

// DefaultTaxonomy returns the built-in vocabulary.
func DefaultTaxonomy() *Taxonomy {
	tax, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("built-in taxonomy is broken: %v", err))
	}
	return tax
}

// LoadTaxonomyFile reads and compiles a YAML taxonomy document.
func LoadTaxonomyFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file %s: %w", path, err)
	}
	tax, err := ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy file %s: %w", path, err)
	}
	return tax, nil
}

// ParseTaxonomy decodes a YAML document and compiles it. Unknown keys are rejected.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTaxonomy, err)
	}
	return Compile(doc)
}

// Compile validates doc and builds the lookup structures used by the extractor,
// expander, scorer and recommender.
func Compile(doc Document) (*Taxonomy, error) {
	norm := RegexNormalizer{}
	t := &Taxonomy{
		skills:       make(map[string]skillInfo),
		index:        make(map[string][]phrase),
		synonyms:     make(map[string][]string),
		misspellings: make(map[string]string),
		aliases:      make(map[string]string),
		ambiguous:    make(map[string]struct{}),
		contextWords: make(map[string]struct{}),
	}

	for cat, list := range doc.Categories {
		if !validCategory(cat) {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidTaxonomy, cat)
		}
		for _, raw := range list {
			skill := canonical(raw)
			if skill == "" {
				continue
			}
			if prev, dup := t.skills[skill]; dup {
				return nil, fmt.Errorf("%w: skill %q listed in both %s and %s", ErrInvalidTaxonomy, skill, prev.category, cat)
			}
			tokens := norm.Normalize(skill)
			if len(tokens) == 0 {
				return nil, fmt.Errorf("%w: skill %q has no matchable tokens", ErrInvalidTaxonomy, skill)
			}
			t.skills[skill] = skillInfo{category: cat, tokens: tokens}
			t.index[tokens[0]] = append(t.index[tokens[0]], phrase{skill: skill, tokens: tokens})
		}
	}
	if len(t.skills) == 0 {
		return nil, fmt.Errorf("%w: no skills defined", ErrInvalidTaxonomy)
	}

	for alias, target := range doc.Aliases {
		skill := canonical(target)
		if _, ok := t.skills[skill]; !ok {
			return nil, fmt.Errorf("%w: alias %q points to unknown skill %q", ErrInvalidTaxonomy, alias, skill)
		}
		tokens := norm.Normalize(alias)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("%w: alias %q has no matchable tokens", ErrInvalidTaxonomy, alias)
		}
		key := strings.Join(tokens, " ")
		if _, clash := t.skills[key]; clash {
			return nil, fmt.Errorf("%w: alias %q shadows skill %q", ErrInvalidTaxonomy, alias, key)
		}
		t.aliases[key] = skill
		t.index[tokens[0]] = append(t.index[tokens[0]], phrase{skill: skill, tokens: tokens})
	}

	// Longer phrases first so index scans are stable regardless of map order.
	for first, phrases := range t.index {
		sort.Slice(phrases, func(i, j int) bool {
			if len(phrases[i].tokens) != len(phrases[j].tokens) {
				return len(phrases[i].tokens) > len(phrases[j].tokens)
			}
			return phrases[i].skill < phrases[j].skill
		})
		t.index[first] = phrases
	}

	for _, raw := range doc.Ambiguous {
		skill := canonical(raw)
		if _, ok := t.skills[skill]; !ok {
			return nil, fmt.Errorf("%w: ambiguous entry %q is not a known skill", ErrInvalidTaxonomy, skill)
		}
		t.ambiguous[skill] = struct{}{}
	}
	for _, w := range doc.ContextWords {
		if w = canonical(w); w != "" {
			t.contextWords[w] = struct{}{}
		}
	}

	for class, list := range doc.Classes {
		class = canonical(class)
		for _, raw := range list {
			skill := canonical(raw)
			info, ok := t.skills[skill]
			if !ok {
				return nil, fmt.Errorf("%w: class %q references unknown skill %q", ErrInvalidTaxonomy, class, skill)
			}
			if info.class != "" && info.class != class {
				return nil, fmt.Errorf("%w: skill %q is in classes %q and %q", ErrInvalidTaxonomy, skill, info.class, class)
			}
			info.class = class
			t.skills[skill] = info
		}
	}

	for key, targets := range doc.Synonyms {
		k := strings.Join(norm.Normalize(key), " ")
		if k == "" {
			return nil, fmt.Errorf("%w: synonym key %q has no matchable tokens", ErrInvalidTaxonomy, key)
		}
		mapped := make([]string, 0, len(targets))
		for _, raw := range targets {
			skill := canonical(raw)
			if _, ok := t.skills[skill]; !ok {
				return nil, fmt.Errorf("%w: synonym %q maps to unknown skill %q", ErrInvalidTaxonomy, key, skill)
			}
			mapped = append(mapped, skill)
		}
		t.synonyms[k] = mapped
		if n := strings.Count(k, " ") + 1; n > t.maxSynonymLen {
			t.maxSynonymLen = n
		}
	}

	for wrong, right := range doc.Misspellings {
		wrong, right = canonical(wrong), canonical(right)
		if _, ok := t.skills[right]; !ok {
			return nil, fmt.Errorf("%w: misspelling %q corrects to unknown skill %q", ErrInvalidTaxonomy, wrong, right)
		}
		if wrong == right {
			continue
		}
		wrongTokens := norm.Normalize(wrong)
		if len(wrongTokens) != 1 || len(t.skills[right].tokens) != 1 {
			return nil, fmt.Errorf("%w: misspelling %q must be a single token correcting to a single-token skill", ErrInvalidTaxonomy, wrong)
		}
		t.misspellings[wrongTokens[0]] = t.skills[right].tokens[0]
	}

	return t, nil
}

func validCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Len reports the number of canonical skills.
func (t *Taxonomy) Len() int { return len(t.skills) }

// Contains reports whether skill is part of the vocabulary.
func (t *Taxonomy) Contains(skill string) bool {
	_, ok := t.skills[skill]
	return ok
}

// CategoryOf returns the category of skill.
func (t *Taxonomy) CategoryOf(skill string) (Category, bool) {
	info, ok := t.skills[skill]
	return info.category, ok
}

// ClassOf returns the recommendation class of skill, or "" if it has none.
func (t *Taxonomy) ClassOf(skill string) string {
	return t.skills[skill].class
}

// Skills returns the sorted skills of one category.
func (t *Taxonomy) Skills(c Category) []string {
	var out []string
	for skill, info := range t.skills {
		if info.category == c {
			out = append(out, skill)
		}
	}
	sort.Strings(out)
	return out
}

// IsAmbiguous reports whether skill needs an adjacent context word to count.
func (t *Taxonomy) IsAmbiguous(skill string) bool {
	_, ok := t.ambiguous[skill]
	return ok
}

// MaxSynonymWords is the word count of the longest synonym key.
func (t *Taxonomy) MaxSynonymWords() int { return t.maxSynonymLen }

// Document rebuilds a sorted, serializable view of the compiled taxonomy.
func (t *Taxonomy) Document() Document {
	doc := Document{
		Categories:   make(map[Category][]string, len(Categories)),
		Classes:      make(map[string][]string),
		Synonyms:     make(map[string][]string, len(t.synonyms)),
		Misspellings: make(map[string]string, len(t.misspellings)),
		Aliases:      make(map[string]string, len(t.aliases)),
	}
	for _, c := range Categories {
		doc.Categories[c] = t.Skills(c)
	}
	for skill, info := range t.skills {
		if info.class != "" {
			doc.Classes[info.class] = append(doc.Classes[info.class], skill)
		}
	}
	for class := range doc.Classes {
		sort.Strings(doc.Classes[class])
	}
	for k, v := range t.synonyms {
		doc.Synonyms[k] = append([]string(nil), v...)
	}
	for k, v := range t.misspellings {
		doc.Misspellings[k] = v
	}
	for k, v := range t.aliases {
		doc.Aliases[k] = v
	}
	doc.Ambiguous = sortedKeys(t.ambiguous)
	doc.ContextWords = sortedKeys(t.contextWords)
	return doc
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
