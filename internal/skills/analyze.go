package skills

// Result is the full structured outcome of one resume/job-description analysis.
type Result struct {
	Categories      []CategoryScore          `json:"categories"`
	Overall         float64                  `json:"overall"`
	Verdict         string                   `json:"verdict"`
	Summary         string                   `json:"summary"`
	Matched         []string                 `json:"matched"`
	Missing         []string                 `json:"missing"`
	Recommendations []Recommendation         `json:"recommendations"`
	ResumeSkills    []string                 `json:"resume_skills"`
	JobSkills       []string                 `json:"job_skills"`
	Sections        Sections                 `json:"sections"`
	SectionSkills   map[SectionName][]string `json:"section_skills"`
}

// Analyzer runs the matching pipeline against one taxonomy. It holds no
// per-request state, so a single Analyzer serves concurrent callers.
type Analyzer struct {
	tax         *Taxonomy
	norm        Normalizer
	keyphrases  KeyphraseExtractor
	extractor   *Extractor
	expander    *Expander
	scorer      *Scorer
	recommender *Recommender
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithNormalizer swaps the tokenizer. Replacements must keep tokens such as
// "c++" and "c#" intact.
func WithNormalizer(n Normalizer) Option {
	return func(a *Analyzer) {
		if n != nil {
			a.norm = n
		}
	}
}

// WithKeyphraseExtractor swaps the job-description keyphrase strategy.
func WithKeyphraseExtractor(k KeyphraseExtractor) Option {
	return func(a *Analyzer) {
		if k != nil {
			a.keyphrases = k
		}
	}
}

func NewAnalyzer(tax *Taxonomy, opts ...Option) *Analyzer {
	a := &Analyzer{
		tax:        tax,
		norm:       RegexNormalizer{},
		keyphrases: NGramExtractor{MaxN: tax.MaxSynonymWords()},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.extractor = NewExtractor(tax, a.norm)
	a.expander = NewExpander(tax)
	a.scorer = NewScorer(tax)
	a.recommender = NewRecommender(tax)
	return a
}

// Taxonomy returns the vocabulary the analyzer matches against.
func (a *Analyzer) Taxonomy() *Taxonomy { return a.tax }

// Analyze compares resume against jd. It never fails: malformed or empty text
// simply produces empty skill sets, and an empty job description yields no
// active categories.
func (a *Analyzer) Analyze(resume, jd string, w Weights) Result {
	sections := Segment(resume)
	resumeSkills := a.extractor.ExtractText(resume)

	perSection := make(map[SectionName]SkillSet, len(SectionNames))
	sectionSkills := make(map[SectionName][]string, len(SectionNames))
	for _, name := range SectionNames {
		perSection[name] = a.extractor.ExtractText(sections[name])
		sectionSkills[name] = perSection[name].Sorted()
	}

	jdTokens := a.norm.Normalize(jd)
	jdSkills := a.extractor.Extract(jdTokens)
	for _, skill := range a.expander.Implied(a.keyphrases.Keyphrases(jdTokens)) {
		if a.tax.Contains(skill) {
			jdSkills.Add(skill)
		}
	}

	score := a.scorer.Score(resumeSkills, jdSkills, w)
	recs := a.recommender.Recommend(score.Missing, Evidence{
		Skills:     perSection[SectionSkills],
		Projects:   perSection[SectionProjects],
		Experience: perSection[SectionExperience],
	})

	return Result{
		Categories:      score.Categories,
		Overall:         score.Overall,
		Verdict:         score.Verdict,
		Summary:         score.Summary(),
		Matched:         score.Matched,
		Missing:         score.Missing,
		Recommendations: recs,
		ResumeSkills:    resumeSkills.Sorted(),
		JobSkills:       jdSkills.Sorted(),
		Sections:        sections,
		SectionSkills:   sectionSkills,
	}
}
