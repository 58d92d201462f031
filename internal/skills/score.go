package skills

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Verdicts produced by the scorer.
const (
	VerdictStrong         = "strong fit"
	VerdictModerate       = "moderate fit"
	VerdictWeak           = "weak fit"
	VerdictNoRequirements = "no requirements detected"
)

const (
	strongThreshold   = 80.0
	moderateThreshold = 50.0
	verdictMaxMissing = 5
)

// Weights are the relative importance of each category in the overall score.
type Weights struct {
	Technical   float64 `json:"technical" yaml:"technical" mapstructure:"technical"`
	Soft        float64 `json:"soft" yaml:"soft" mapstructure:"soft"`
	Operational float64 `json:"operational" yaml:"operational" mapstructure:"operational"`
}

// DefaultWeights returns technical=60, soft=40, operational=20.
func DefaultWeights() Weights {
	return Weights{Technical: 60, Soft: 40, Operational: 20}
}

// For returns the weight of c.
func (w Weights) For(c Category) float64 {
	switch c {
	case Technical:
		return w.Technical
	case Soft:
		return w.Soft
	case Operational:
		return w.Operational
	}
	return 0
}

// CategoryScore is the match breakdown for one category. A category is active
// only when the job description asks for at least one of its skills.
type CategoryScore struct {
	Category Category `json:"category"`
	Active   bool     `json:"active"`
	Weight   float64  `json:"weight"`
	Percent  float64  `json:"percent"`
	Matched  []string `json:"matched"`
	Missing  []string `json:"missing"`
}

// Score aggregates the category scores.
type Score struct {
	Categories []CategoryScore `json:"categories"`
	Overall    float64         `json:"overall"`
	Verdict    string          `json:"verdict"`
	Matched    []string        `json:"matched"`
	Missing    []string        `json:"missing"`
}

// Category returns the breakdown for c.
func (s Score) Category(c Category) CategoryScore {
	for _, cs := range s.Categories {
		if cs.Category == c {
			return cs
		}
	}
	return CategoryScore{Category: c, Matched: []string{}, Missing: []string{}}
}

// Summary renders a single line such as "technical 66.67% | soft n/a | operational n/a".
func (s Score) Summary() string {
	parts := make([]string, 0, len(s.Categories))
	for _, cs := range s.Categories {
		if cs.Active {
			parts = append(parts, fmt.Sprintf("%s %.2f%%", cs.Category, cs.Percent))
		} else {
			parts = append(parts, fmt.Sprintf("%s n/a", cs.Category))
		}
	}
	return strings.Join(parts, " | ")
}

// Scorer compares resume skills to job-description skills per category.
type Scorer struct {
	tax *Taxonomy
}

func NewScorer(tax *Taxonomy) *Scorer {
	return &Scorer{tax: tax}
}

// Score computes the per-category percentages and the weighted overall score.
// The overall score averages only active categories, with their weights
// renormalized; it is 0 when no category is active. Non-positive weights
// count as 0. Skills outside the taxonomy are ignored.
func (s *Scorer) Score(resume, jd SkillSet, w Weights) Score {
	byCat := make(map[Category]SkillSet, len(Categories))
	for _, c := range Categories {
		byCat[c] = make(SkillSet)
	}
	for skill := range jd {
		if c, ok := s.tax.CategoryOf(skill); ok {
			byCat[c].Add(skill)
		}
	}

	out := Score{
		Categories: make([]CategoryScore, 0, len(Categories)),
		Matched:    []string{},
		Missing:    []string{},
	}
	var weighted, totalWeight float64
	for _, c := range Categories {
		cs := CategoryScore{Category: c, Weight: w.For(c), Matched: []string{}, Missing: []string{}}
		required := byCat[c]
		for _, skill := range required.Sorted() {
			if resume.Has(skill) {
				cs.Matched = append(cs.Matched, skill)
			} else {
				cs.Missing = append(cs.Missing, skill)
			}
		}
		if required.Len() > 0 {
			cs.Active = true
			pct := 100 * float64(len(cs.Matched)) / float64(required.Len())
			cs.Percent = round2(pct)
			if weight := math.Max(cs.Weight, 0); weight > 0 {
				weighted += pct * weight
				totalWeight += weight
			}
		}
		out.Matched = append(out.Matched, cs.Matched...)
		out.Missing = append(out.Missing, cs.Missing...)
		out.Categories = append(out.Categories, cs)
	}
	sort.Strings(out.Matched)
	sort.Strings(out.Missing)

	if totalWeight > 0 {
		out.Overall = clamp(round2(weighted/totalWeight), 0, 100)
	}
	out.Verdict = verdict(out)
	return out
}

func verdict(s Score) string {
	anyActive := false
	for _, cs := range s.Categories {
		anyActive = anyActive || cs.Active
	}
	if !anyActive {
		return VerdictNoRequirements
	}

	missingTech := s.Category(Technical).Missing
	switch {
	case s.Overall >= strongThreshold && len(missingTech) == 0:
		return VerdictStrong
	case s.Overall >= moderateThreshold:
		return VerdictModerate
	case len(missingTech) > 0:
		if len(missingTech) > verdictMaxMissing {
			missingTech = missingTech[:verdictMaxMissing]
		}
		return fmt.Sprintf("%s (missing: %s)", VerdictWeak, strings.Join(missingTech, ", "))
	default:
		return VerdictWeak
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
