package common

import (
	"context"
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/google/uuid"
)

// Runner executes analysis requests for every surface: CLI, API, worker and
// MCP tool.
type Runner struct {
	analyzer *skills.Analyzer
	weights  skills.Weights
	insights *ai.Service
	metrics  *observability.Metrics
	logger   *errors.Logger
	now      func() time.Time
}

// NewRunner wires the matcher with optional insights. defaults are used when a
// request carries no weights.
func NewRunner(analyzer *skills.Analyzer, defaults skills.Weights, insights *ai.Service, metrics *observability.Metrics, logger *errors.Logger) *Runner {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Runner{
		analyzer: analyzer,
		weights:  defaults,
		insights: insights,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyzer returns the underlying matcher.
func (r *Runner) Analyzer() *skills.Analyzer { return r.analyzer }

// DefaultWeights returns the weights used when a request carries none.
func (r *Runner) DefaultWeights() skills.Weights { return r.weights }

// InsightsEnabled reports whether a language model is configured.
func (r *Runner) InsightsEnabled() bool { return r.insights.Enabled() }

// Run validates req, scores it and, when asked, attaches insights. Insight
// failures never fail the run.
func (r *Runner) Run(ctx context.Context, req types.AnalysisRequest) (*types.AnalysisReport, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	weights := r.weights
	if req.Weights != nil {
		weights = *req.Weights
	}
	source := req.Source
	if source == "" {
		source = "unknown"
	}

	start := time.Now()
	result := r.analyzer.Analyze(req.Resume, req.JobDescription, weights)
	r.metrics.RecordAnalysis(ctx, source, result.Verdict, result.Overall, time.Since(start))

	report := &types.AnalysisReport{
		ID:        uuid.NewString(),
		CreatedAt: r.now().UTC(),
		Weights:   weights,
		Result:    result,
	}
	r.logger.Debug("Analysis completed",
		"id", report.ID,
		"source", source,
		"overall", result.Overall,
		"verdict", result.Verdict,
		"matched", len(result.Matched),
		"missing", len(result.Missing))

	if req.Insights {
		insights := r.insights.Generate(ctx, req.Resume, types.FitBrief{
			JobDescription: req.JobDescription,
			Matched:        result.Matched,
			Missing:        result.Missing,
			Overall:        result.Overall,
			Verdict:        result.Verdict,
		})
		report.Insights = &insights
	}
	return report, nil
}
