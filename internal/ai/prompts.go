package ai

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"resumatch/internal/config"
	"resumatch/internal/types"
)

// resumeExcerptLimit caps how much resume text is sent to the model.
const resumeExcerptLimit = 4000

// SystemPrompt is shared by both insight kinds.
const SystemPrompt = `You are an applicant tracking system (ATS) specialist and resume reviewer.
Base every statement on the material you are given. Do not invent experience,
employers or credentials. Keep answers short, concrete and easy to act on.`

// DefaultResumeQualityTemplate builds the JD-independent quality report.
const DefaultResumeQualityTemplate = `Review the following resume on its own, without a target job.

-----
{{ excerpt .Resume }}
-----

Return a short report with:
- ATS friendly? Answer yes or no and give the reason.
- Missing key sections (skills, projects, experience, education, and so on).
- The improvements that are essential before uploading this resume.
- The suggestions that are nice to have and can be skipped.`

// DefaultFitBoosterTemplate builds the job-specific advice.
const DefaultFitBoosterTemplate = `Compare a candidate's resume against the job description below and say
whether the resume is likely to be shortlisted. Keep the answer medium-short.

Job description:
-----
{{ .JobDescription }}
-----

Matched skills: {{ list .Matched }}
Missing skills: {{ list .Missing }}
Match score: {{ printf "%.1f" .Overall }}% ({{ .Verdict }})

Give practical guidance:
1) Strengths that already align with the role.
2) The missing skills worth addressing first, and how to show them honestly.
3) Should the candidate apply now or update the resume first?
4) Selection probability (low, medium or high), realistic and justified.`

var promptFuncs = template.FuncMap{
	"excerpt": func(s string) string {
		runes := []rune(s)
		if len(runes) > resumeExcerptLimit {
			return string(runes[:resumeExcerptLimit])
		}
		return s
	},
	"list": func(items []string) string {
		if len(items) == 0 {
			return "None"
		}
		return strings.Join(items, ", ")
	},
}

// Prompts holds the parsed user prompt templates.
type Prompts struct {
	resumeQuality *template.Template
	fitBooster    *template.Template
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		resumeQuality: template.Must(parsePrompt("resume_quality", DefaultResumeQualityTemplate)),
		fitBooster:    template.Must(parsePrompt("fit_booster", DefaultFitBoosterTemplate)),
	}
}

// LoadPrompts parses the defaults and replaces any template whose override
// file is configured.
func LoadPrompts(files config.PromptFiles) (*Prompts, error) {
	prompts := DefaultPrompts()

	if files.ResumeQualityFile != "" {
		tmpl, err := loadPromptFile("resume_quality", files.ResumeQualityFile)
		if err != nil {
			return nil, err
		}
		prompts.resumeQuality = tmpl
	}
	if files.FitBoosterFile != "" {
		tmpl, err := loadPromptFile("fit_booster", files.FitBoosterFile)
		if err != nil {
			return nil, err
		}
		prompts.fitBooster = tmpl
	}
	return prompts, nil
}

func loadPromptFile(name, path string) (*template.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s prompt: %w", name, err)
	}
	tmpl, err := parsePrompt(name, string(content))
	if err != nil {
		return nil, fmt.Errorf("invalid %s prompt in %s: %w", name, path, err)
	}
	return tmpl, nil
}

func parsePrompt(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(promptFuncs).Option("missingkey=error").Parse(text)
}

// ResumeQuality renders the resume quality prompt.
func (p *Prompts) ResumeQuality(resume string) (string, error) {
	return render(p.resumeQuality, struct{ Resume string }{resume})
}

// FitBooster renders the fit booster prompt.
func (p *Prompts) FitBooster(brief types.FitBrief) (string, error) {
	return render(p.fitBooster, brief)
}

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
