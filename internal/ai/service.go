package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resumatch/internal/config"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/types"

	"golang.org/x/sync/errgroup"
)

// Service runs insight generation next to an analysis. It never fails: every
// problem is reported inside the returned insights.
type Service struct {
	generator InsightGenerator
	timeout   time.Duration
	logger    *appErrors.Logger
	metrics   *observability.Metrics
}

// NewService wraps generator. A nil generator yields a disabled service.
func NewService(generator InsightGenerator, timeout time.Duration, logger *appErrors.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = appErrors.Discard()
	}
	return &Service{
		generator: generator,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// NewServiceFromConfig builds the provider named in cfg.
func NewServiceFromConfig(ctx context.Context, cfg config.InsightConfig, logger *appErrors.Logger, metrics *observability.Metrics) (*Service, error) {
	if logger == nil {
		logger = appErrors.Discard()
	}
	if !cfg.Enabled {
		return NewService(nil, cfg.Timeout, logger, metrics), nil
	}

	logger.Debug("Initializing insight service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	var (
		generator InsightGenerator
		err       error
	)
	switch cfg.Provider {
	case "gemini":
		generator, err = NewGeminiProvider(ctx, cfg, logger)
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported insight provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}
	return NewService(generator, cfg.Timeout, logger, metrics), nil
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.generator != nil
}

// Generate produces both insights concurrently.
func (s *Service) Generate(ctx context.Context, resume string, brief types.FitBrief) types.Insights {
	if !s.Enabled() {
		return types.Insights{
			ResumeQuality: disabledInsight(types.InsightResumeQuality),
			FitBooster:    disabledInsight(types.InsightFitBooster),
		}
	}

	var (
		out types.Insights
		g   errgroup.Group
	)
	g.Go(func() error {
		out.ResumeQuality = s.run(ctx, types.InsightResumeQuality, func(ctx context.Context) (string, *TokenUsage, error) {
			return s.generator.ResumeQuality(ctx, resume)
		})
		return nil
	})
	g.Go(func() error {
		out.FitBooster = s.run(ctx, types.InsightFitBooster, func(ctx context.Context) (string, *TokenUsage, error) {
			return s.generator.FitBooster(ctx, brief)
		})
		return nil
	})
	_ = g.Wait()
	return out
}

func (s *Service) run(ctx context.Context, kind types.InsightKind, call func(context.Context) (string, *TokenUsage, error)) types.Insight {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, usage, err := call(ctx)
	elapsed := time.Since(start)

	var in, out int64
	if usage != nil {
		in, out = usage.InputTokens, usage.OutputTokens
	}

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		s.metrics.RecordInsight(ctx, string(kind), outcome, elapsed, in, out)
		s.logger.LogError(err, "Insight generation failed", "kind", kind, "outcome", outcome)
		return fallbackInsight(kind, outcome, err)
	}

	s.metrics.RecordInsight(ctx, string(kind), "ok", elapsed, in, out)
	return types.Insight{Kind: kind, Text: text}
}

// ModelInfo reports the generator's model, or nil when disabled.
func (s *Service) ModelInfo(ctx context.Context) *ModelInfo {
	if !s.Enabled() {
		return nil
	}
	return s.generator.ModelInfo(ctx)
}

// Close releases the generator.
func (s *Service) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.generator.Close()
}

func label(kind types.InsightKind) string {
	if kind == types.InsightFitBooster {
		return "Fit booster"
	}
	return "Resume quality"
}

func disabledInsight(kind types.InsightKind) types.Insight {
	return types.Insight{
		Kind:     kind,
		Text:     label(kind) + " insight unavailable: insights are disabled.",
		Fallback: true,
		Error:    appErrors.ErrCodeInsightDisabled,
	}
}

func fallbackInsight(kind types.InsightKind, outcome string, err error) types.Insight {
	code := appErrors.ErrCodeInsightFailed
	reason := "the insight provider returned an error"
	if outcome == "timeout" {
		code = appErrors.ErrCodeInsightTimeout
		reason = "the insight provider timed out"
	}
	return types.Insight{
		Kind:     kind,
		Text:     fmt.Sprintf("%s insight unavailable: %s.", label(kind), reason),
		Fallback: true,
		Error:    fmt.Sprintf("%s: %v", code, err),
	}
}
