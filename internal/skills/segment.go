package skills

import (
	"strings"
	"unicode/utf8"
)

// SectionName identifies one of the fixed resume sections.
type SectionName string

const (
	SectionSkills     SectionName = "skills"
	SectionProjects   SectionName = "projects"
	SectionExperience SectionName = "experience"
	SectionEducation  SectionName = "education"
)

// SectionNames lists every section in heading priority order.
var SectionNames = []SectionName{SectionSkills, SectionProjects, SectionExperience, SectionEducation}

// Sections maps every section name to its body text. All four keys are always present.
type Sections map[SectionName]string

const maxHeadingWords = 5

type headingRule struct {
	section  SectionName
	keywords []string
}

// Evaluated in order; the first rule whose keyword appears in a heading wins.
var headingRules = []headingRule{
	{SectionSkills, []string{"skill", "competenc", "technologies", "tech stack", "toolkit"}},
	{SectionProjects, []string{"project", "portfolio"}},
	{SectionExperience, []string{"experience", "work history", "employment", "career history", "internship"}},
	{SectionEducation, []string{"education", "academic", "qualification", "certification"}},
}

// Segment splits resume text into sections by heading detection. Lines before
// the first heading are dropped. When no section receives any text the whole
// resume is filed under experience.
func Segment(text string) Sections {
	bodies := make(map[SectionName]*strings.Builder, len(SectionNames))
	for _, name := range SectionNames {
		bodies[name] = &strings.Builder{}
	}

	var current SectionName
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if section, ok := classifyHeading(line); ok {
			current = section
			continue
		}
		if current == "" {
			continue
		}
		bodies[current].WriteString(line)
		bodies[current].WriteByte(' ')
	}

	out := make(Sections, len(SectionNames))
	empty := true
	for _, name := range SectionNames {
		out[name] = strings.TrimSpace(bodies[name].String())
		if out[name] != "" {
			empty = false
		}
	}
	if empty {
		out[SectionExperience] = strings.TrimSpace(text)
	}
	return out
}

// classifyHeading reports whether line is a section heading: a non-bullet line of
// at most five words that contains a section keyword. Any short line mentioning a
// keyword qualifies, so "Led capstone project" opens the projects section.
func classifyHeading(line string) (SectionName, bool) {
	if isBullet(line) {
		return "", false
	}

	label := strings.ToLower(strings.Trim(line, " \t#*=_-|•:"))
	if label == "" || len(strings.Fields(label)) > maxHeadingWords {
		return "", false
	}

	for _, rule := range headingRules {
		for _, kw := range rule.keywords {
			if strings.Contains(label, kw) {
				return rule.section, true
			}
		}
	}
	return "", false
}

func isBullet(line string) bool {
	r, size := utf8.DecodeRuneInString(line)
	switch r {
	case '•', '·', '▪', '●', '◦', '➤':
		return true
	case '-', '*', '+':
		next, _ := utf8.DecodeRuneInString(line[size:])
		return next == ' ' || next == '\t'
	}
	return false
}

// Text returns the body of one section.
func (s Sections) Text(name SectionName) string { return s[name] }
