package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorerScore(t *testing.T) {
	scorer := NewScorer(DefaultTaxonomy())

	tests := []struct {
		name        string
		resume      SkillSet
		jd          SkillSet
		weights     Weights
		wantOverall float64
		wantVerdict string
		wantActive  map[Category]bool
	}{
		{
			name:        "partial technical match",
			resume:      NewSkillSet("python", "sql"),
			jd:          NewSkillSet("python", "sql", "docker"),
			weights:     DefaultWeights(),
			wantOverall: 66.67,
			wantVerdict: VerdictModerate,
			wantActive:  map[Category]bool{Technical: true},
		},
		{
			name:        "soft only with empty resume",
			resume:      NewSkillSet(),
			jd:          NewSkillSet("communication"),
			weights:     DefaultWeights(),
			wantOverall: 0,
			wantVerdict: VerdictWeak,
			wantActive:  map[Category]bool{Soft: true},
		},
		{
			name:        "empty job description",
			resume:      NewSkillSet("python"),
			jd:          NewSkillSet(),
			weights:     DefaultWeights(),
			wantOverall: 0,
			wantVerdict: VerdictNoRequirements,
			wantActive:  map[Category]bool{},
		},
		{
			name:        "full coverage",
			resume:      NewSkillSet("python", "aws", "leadership", "go"),
			jd:          NewSkillSet("python", "aws", "leadership"),
			weights:     DefaultWeights(),
			wantOverall: 100,
			wantVerdict: VerdictStrong,
			wantActive:  map[Category]bool{Technical: true, Soft: true, Operational: true},
		},
		{
			name:        "high score with missing technical skill",
			resume:      NewSkillSet("python", "sql", "java", "rust"),
			jd:          NewSkillSet("python", "sql", "java", "rust", "scala"),
			weights:     DefaultWeights(),
			wantOverall: 80,
			wantVerdict: VerdictModerate,
			wantActive:  map[Category]bool{Technical: true},
		},
		{
			name:        "weighted average over active categories",
			resume:      NewSkillSet("python", "communication"),
			jd:          NewSkillSet("python", "sql", "communication"),
			weights:     DefaultWeights(),
			wantOverall: 70,
			wantVerdict: VerdictModerate,
			wantActive:  map[Category]bool{Technical: true, Soft: true},
		},
		{
			name:        "weak fit names first five missing technical skills",
			resume:      NewSkillSet(),
			jd:          NewSkillSet("scala", "rust", "java", "go", "c", "python", "kotlin"),
			weights:     DefaultWeights(),
			wantOverall: 0,
			wantVerdict: "weak fit (missing: c, go, java, kotlin, python)",
			wantActive:  map[Category]bool{Technical: true},
		},
		{
			name:        "unknown skills ignored",
			resume:      NewSkillSet("cobol"),
			jd:          NewSkillSet("cobol", "fortran"),
			weights:     DefaultWeights(),
			wantOverall: 0,
			wantVerdict: VerdictNoRequirements,
			wantActive:  map[Category]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.resume, tt.jd, tt.weights)

			assert.Equal(t, tt.wantOverall, got.Overall)
			assert.Equal(t, tt.wantVerdict, got.Verdict)
			require.Len(t, got.Categories, 3)
			for _, cs := range got.Categories {
				assert.Equal(t, tt.wantActive[cs.Category], cs.Active, "category %s", cs.Category)
				assert.GreaterOrEqual(t, cs.Percent, 0.0)
				assert.LessOrEqual(t, cs.Percent, 100.0)
				for _, skill := range cs.Matched {
					assert.True(t, tt.resume.Has(skill))
					assert.True(t, tt.jd.Has(skill))
				}
			}
			assert.GreaterOrEqual(t, got.Overall, 0.0)
			assert.LessOrEqual(t, got.Overall, 100.0)
		})
	}
}

func TestScorerPartialTechnicalMatchDetail(t *testing.T) {
	got := NewScorer(DefaultTaxonomy()).Score(
		NewSkillSet("python", "sql"),
		NewSkillSet("python", "sql", "docker"),
		DefaultWeights(),
	)

	tech := got.Category(Technical)
	assert.Equal(t, 66.67, tech.Percent)
	assert.Equal(t, []string{"python", "sql"}, tech.Matched)
	assert.Equal(t, []string{"docker"}, tech.Missing)
	assert.Equal(t, []string{"python", "sql"}, got.Matched)
	assert.Equal(t, []string{"docker"}, got.Missing)
	assert.Equal(t, "technical 66.67% | soft n/a | operational n/a", got.Summary())
}

func TestScorerInactiveCategoryWeightHasNoEffect(t *testing.T) {
	scorer := NewScorer(DefaultTaxonomy())
	resume := NewSkillSet("python", "teamwork")
	jd := NewSkillSet("python", "sql", "teamwork", "leadership")

	base := scorer.Score(resume, jd, Weights{Technical: 60, Soft: 40, Operational: 20})
	for _, op := range []float64{1, 20, 500} {
		got := scorer.Score(resume, jd, Weights{Technical: 60, Soft: 40, Operational: op})
		assert.Equal(t, base.Overall, got.Overall)
		assert.False(t, got.Category(Operational).Active)
	}
}

func TestScorerSoftOnlyWithEmptyResume(t *testing.T) {
	got := NewScorer(DefaultTaxonomy()).Score(NewSkillSet(), NewSkillSet("communication"), DefaultWeights())

	soft := got.Category(Soft)
	assert.True(t, soft.Active)
	assert.Equal(t, 0.0, soft.Percent)
	assert.Equal(t, []string{"communication"}, soft.Missing)
	assert.Empty(t, soft.Matched)
	assert.False(t, got.Category(Technical).Active)
	assert.False(t, got.Category(Operational).Active)
}
