package cli

import (
	"fmt"

	"resumatch/internal/common"
	"resumatch/internal/document"
	"resumatch/internal/errors"
	"resumatch/internal/formatters"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume-file> <job-description-file|->",
	Short: "Score a resume against a job description",
	Long: `Analyze a resume against a job description. Both documents may be plain
text, markdown, HTML, PDF or DOCX; pass - to read one of them from stdin.

The report includes:
- A score per skill category and the weighted overall score
- A verdict and a one-line summary
- Matched and missing skills
- Recommendations for missing skills and weakly supported claims
- Optional AI insights (--insights) when a model is configured`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig common.CommandConfig

	analyzeWeights  string
	analyzeInsights bool
	analyzeSections bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().StringVar(&analyzeWeights, "weights", "", "Category weights, e.g. technical=60,soft=40,operational=20 (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeInsights, "insights", false, "Add AI insights (requires insight.enabled)")
	analyzeCmd.Flags().BoolVar(&analyzeSections, "sections", false, "Include the detected resume sections in text and markdown output")

	// Add completion for format flag
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.NewFormatterRegistry(formatters.Options{}).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	resumeFile, jdFile := args[0], args[1]
	if resumeFile == common.StdinName && jdFile == common.StdinName {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"only one document can be read from stdin", nil)
	}

	weights, err := common.ParseWeights(analyzeWeights, cfg.Analysis.Weights)
	if err != nil {
		return err
	}

	runner, insights, err := newRunner(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := insights.Close(); err != nil {
			logger.LogError(err, "Failed to close insight service")
		}
	}()
	if analyzeInsights && !runner.InsightsEnabled() {
		logger.Warn("Insights requested but no model is configured; placeholders will be shown")
	}

	files := common.NewFileProcessor(document.New(), cfg.App.MaxFileSize, cmd.InOrStdin(), logger)
	resume, err := files.ReadDocument(ctx, resumeFile)
	if err != nil {
		return err
	}
	jd, err := files.ReadDocument(ctx, jdFile)
	if err != nil {
		return err
	}

	logger.Info("Starting analysis",
		"resume_chars", len(resume),
		"job_chars", len(jd),
		"output_format", analyzeConfig.OutputFormat,
		"insights", analyzeInsights)

	report, err := runner.Run(ctx, types.AnalysisRequest{
		Resume:         resume,
		JobDescription: jd,
		Weights:        &weights,
		Insights:       analyzeInsights,
		Source:         "cli",
	})
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}

	registry := formatters.NewFormatterRegistry(formatters.Options{ShowSections: analyzeSections})
	output := common.NewOutputHandler(registry, cmd.OutOrStdout(), logger)
	if err := output.HandleOutput(report, analyzeConfig); err != nil {
		return err
	}
	logger.Info("Analysis completed successfully", "overall", report.Result.Overall, "verdict", report.Result.Verdict)
	return nil
}
