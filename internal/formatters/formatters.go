package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumatch/internal/skills"
	"resumatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Options tune the human-readable formatters.
type Options struct {
	// ShowSections appends the segmented resume sections and their skills.
	ShowSections bool
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry(opts Options) *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisReport", &ReportTextFormatter{Options: opts})
	registry.RegisterFormatter("markdown", "AnalysisReport", &ReportMarkdownFormatter{Options: opts})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisReport, *types.AnalysisReport:
		return "AnalysisReport"
	default:
		return "any"
	}
}

func asReport(data any) (*types.AnalysisReport, error) {
	switch r := data.(type) {
	case types.AnalysisReport:
		return &r, nil
	case *types.AnalysisReport:
		if r == nil {
			return nil, fmt.Errorf("nil AnalysisReport")
		}
		return r, nil
	}
	return nil, fmt.Errorf("expected AnalysisReport, got %T", data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

const congratulations = "No gaps found. Your resume covers every skill the job description asks for."

// ReportTextFormatter renders a report as plain text
type ReportTextFormatter struct {
	Options Options
}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}
	result := report.Result

	var output strings.Builder
	output.WriteString("=== MATCH RESULT ===\n")
	fmt.Fprintf(&output, "Overall: %.2f%% (%s)\n", result.Overall, result.Verdict)
	fmt.Fprintf(&output, "Breakdown: %s\n\n", result.Summary)

	output.WriteString("=== CATEGORIES ===\n")
	for _, cs := range result.Categories {
		if !cs.Active {
			fmt.Fprintf(&output, "%-12s n/a\n", cs.Category)
			continue
		}
		fmt.Fprintf(&output, "%-12s %6.2f%%  weight %g  matched %d/%d\n",
			cs.Category, cs.Percent, cs.Weight, len(cs.Matched), len(cs.Matched)+len(cs.Missing))
	}
	output.WriteString("\n")

	fmt.Fprintf(&output, "Matched: %s\n", joinOrNone(result.Matched))
	fmt.Fprintf(&output, "Missing: %s\n\n", joinOrNone(result.Missing))

	output.WriteString("=== RECOMMENDATIONS ===\n")
	if len(result.Recommendations) == 0 {
		output.WriteString(congratulations + "\n")
	}
	for _, rec := range result.Recommendations {
		fmt.Fprintf(&output, "- %s\n", rec.Text)
	}

	if f.Options.ShowSections {
		output.WriteString("\n=== SECTIONS ===\n")
		for _, name := range skills.SectionNames {
			fmt.Fprintf(&output, "[%s] skills: %s\n", name, joinOrNone(result.SectionSkills[name]))
			if text := strings.TrimSpace(result.Sections[name]); text != "" {
				output.WriteString(text)
				output.WriteString("\n")
			}
		}
	}

	if report.Insights != nil {
		output.WriteString("\n=== RESUME QUALITY ===\n")
		output.WriteString(report.Insights.ResumeQuality.Text)
		output.WriteString("\n\n=== FIT BOOSTER ===\n")
		output.WriteString(report.Insights.FitBooster.Text)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string {
	return "AnalysisReport"
}

// ReportMarkdownFormatter renders a report as markdown
type ReportMarkdownFormatter struct {
	Options Options
}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, err := asReport(data)
	if err != nil {
		return "", err
	}
	result := report.Result

	var output strings.Builder
	output.WriteString("# Resume Match Report\n\n")
	fmt.Fprintf(&output, "**Overall:** %.2f%% (%s)\n\n", result.Overall, result.Verdict)
	fmt.Fprintf(&output, "%s\n\n", result.Summary)

	output.WriteString("## Categories\n\n")
	output.WriteString("| Category | Score | Weight | Matched | Missing |\n")
	output.WriteString("|---|---|---|---|---|\n")
	for _, cs := range result.Categories {
		score := "n/a"
		if cs.Active {
			score = fmt.Sprintf("%.2f%%", cs.Percent)
		}
		fmt.Fprintf(&output, "| %s | %s | %g | %s | %s |\n",
			cs.Category, score, cs.Weight, joinOrDash(cs.Matched), joinOrDash(cs.Missing))
	}
	output.WriteString("\n")

	output.WriteString("## Skills\n\n")
	fmt.Fprintf(&output, "- **Matched:** %s\n", joinOrNone(result.Matched))
	fmt.Fprintf(&output, "- **Missing:** %s\n\n", joinOrNone(result.Missing))

	output.WriteString("## Recommendations\n\n")
	if len(result.Recommendations) == 0 {
		output.WriteString(congratulations + "\n")
	}
	for _, rec := range result.Recommendations {
		fmt.Fprintf(&output, "- %s\n", rec.Text)
	}

	if f.Options.ShowSections {
		output.WriteString("\n## Sections\n")
		for _, name := range skills.SectionNames {
			fmt.Fprintf(&output, "\n### %s\n\n", titleCase(string(name)))
			fmt.Fprintf(&output, "Skills: %s\n", joinOrNone(result.SectionSkills[name]))
			if text := strings.TrimSpace(result.Sections[name]); text != "" {
				fmt.Fprintf(&output, "\n```\n%s\n```\n", text)
			}
		}
	}

	if report.Insights != nil {
		output.WriteString("\n## Resume Quality\n\n")
		output.WriteString(report.Insights.ResumeQuality.Text)
		output.WriteString("\n\n## Fit Booster\n\n")
		output.WriteString(report.Insights.FitBooster.Text)
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string {
	return "AnalysisReport"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
