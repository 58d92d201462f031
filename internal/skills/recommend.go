package skills

import (
	"fmt"
	"sort"
	"strings"
)

// RecommendationKind groups suggestions; a skill appears at most once per kind.
type RecommendationKind string

const (
	KindMissingSkill RecommendationKind = "missing_skill"
	KindEvidenceGap  RecommendationKind = "evidence_gap"
)

// Recommendation is one actionable suggestion.
type Recommendation struct {
	Kind  RecommendationKind `json:"kind"`
	Skill string             `json:"skill"`
	Text  string             `json:"text"`
}

// Evidence holds the skills found in the sections that back up a resume's claims.
type Evidence struct {
	Skills     SkillSet
	Projects   SkillSet
	Experience SkillSet
}

type suggestionRule struct {
	name     string
	applies  func(tax *Taxonomy, skill string) bool
	template string
}

func classIs(class string) func(*Taxonomy, string) bool {
	return func(tax *Taxonomy, skill string) bool { return tax.ClassOf(skill) == class }
}

func categoryIs(c Category) func(*Taxonomy, string) bool {
	return func(tax *Taxonomy, skill string) bool {
		got, ok := tax.CategoryOf(skill)
		return ok && got == c
	}
}

// First matching rule wins; the last rule matches everything.
var suggestionRules = []suggestionRule{
	{"database", classIs("database"), "Add a project that uses %s with real queries and joins, and describe the data model."},
	{"containerization", classIs("containerization"), "Add a deployment section showing how you containerized and shipped a service with %s."},
	{"cloud", classIs("cloud"), "Deploy one of your projects on %s and describe the infrastructure you set up."},
	{"cicd", classIs("cicd"), "Add an experience bullet about a build or release pipeline you ran with %s."},
	{"soft", categoryIs(Soft), "Demonstrate %s through an experience bullet with a concrete, measurable outcome."},
	{"default", func(*Taxonomy, string) bool { return true }, "Add %s through a hands-on project or a certification."},
}

// Recommender turns skill gaps into suggestions.
type Recommender struct {
	tax *Taxonomy
}

func NewRecommender(tax *Taxonomy) *Recommender {
	return &Recommender{tax: tax}
}

// Recommend emits one suggestion per missing skill, sorted by skill, followed by
// an evidence nudge for every skill claimed in the skills section that is absent
// from the projects or the experience section. The result is empty, never nil,
// when there is nothing to suggest.
func (r *Recommender) Recommend(missing []string, ev Evidence) []Recommendation {
	out := []Recommendation{}

	seen := make(map[string]struct{}, len(missing))
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	for _, skill := range sorted {
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, Recommendation{Kind: KindMissingSkill, Skill: skill, Text: r.suggest(skill)})
	}

	for _, skill := range ev.Skills.Sorted() {
		var lacking []string
		if !ev.Projects.Has(skill) {
			lacking = append(lacking, string(SectionProjects))
		}
		if !ev.Experience.Has(skill) {
			lacking = append(lacking, string(SectionExperience))
		}
		if len(lacking) == 0 {
			continue
		}
		out = append(out, Recommendation{
			Kind:  KindEvidenceGap,
			Skill: skill,
			Text: fmt.Sprintf("You list %s under skills; back it up with concrete evidence in your %s section.",
				skill, strings.Join(lacking, " and ")),
		})
	}
	return out
}

func (r *Recommender) suggest(skill string) string {
	for _, rule := range suggestionRules {
		if rule.applies(r.tax, skill) {
			return fmt.Sprintf(rule.template, skill)
		}
	}
	return ""
}
