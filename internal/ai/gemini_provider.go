package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"resumatch/internal/config"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// modelsAPI is the part of genai.Models the provider uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiProvider implements InsightGenerator for Google Gemini
type GeminiProvider struct {
	models         modelsAPI
	config         config.InsightConfig
	prompts        *Prompts
	circuitBreaker *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker   *CircuitBreaker[*genai.Model]
	backoffBase    time.Duration
	logger         *appErrors.Logger
}

var _ InsightGenerator = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client for the configured model.
func NewGeminiProvider(ctx context.Context, cfg config.InsightConfig, logger *appErrors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, appErrors.NewInsightError(appErrors.ErrCodeInsightFailed,
			"Failed to create Gemini client", err)
	}

	prompts, err := LoadPrompts(cfg.Prompts)
	if err != nil {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig, "Failed to load insight prompts", err)
	}
	return newGeminiProvider(client.Models, cfg, prompts, logger), nil
}

func newGeminiProvider(models modelsAPI, cfg config.InsightConfig, prompts *Prompts, logger *appErrors.Logger) *GeminiProvider {
	if logger == nil {
		logger = appErrors.Discard()
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	// Model lookups are less critical, so they trip later.
	modelCB := cfg.CircuitBreaker
	modelCB.MinRequests = max(modelCB.MinRequests, 5)
	modelCB.FailureThreshold = math.Max(modelCB.FailureThreshold, 0.8)

	return &GeminiProvider{
		models:         models,
		config:         cfg,
		prompts:        prompts,
		circuitBreaker: NewCircuitBreaker[*genai.GenerateContentResponse]("insight-generate", cfg.CircuitBreaker, logger),
		modelBreaker:   NewCircuitBreaker[*genai.Model]("insight-model", modelCB, logger),
		backoffBase:    time.Second,
		logger:         logger,
	}
}

// ModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// ResumeQuality asks for a general ATS report on the resume.
func (g *GeminiProvider) ResumeQuality(ctx context.Context, resume string) (string, *TokenUsage, error) {
	prompt, err := g.prompts.ResumeQuality(resume)
	if err != nil {
		return "", nil, appErrors.NewInsightError(appErrors.ErrCodeInsightFailed, "Failed to build prompt", err)
	}
	return g.generate(ctx, string(types.InsightResumeQuality), prompt,
		attribute.Int("input.resume_length", len(resume)))
}

// FitBooster asks for advice specific to the job description.
func (g *GeminiProvider) FitBooster(ctx context.Context, brief types.FitBrief) (string, *TokenUsage, error) {
	prompt, err := g.prompts.FitBooster(brief)
	if err != nil {
		return "", nil, appErrors.NewInsightError(appErrors.ErrCodeInsightFailed, "Failed to build prompt", err)
	}
	return g.generate(ctx, string(types.InsightFitBooster), prompt,
		attribute.Int("input.job_length", len(brief.JobDescription)),
		attribute.Int("input.missing_count", len(brief.Missing)),
		attribute.Float64("input.overall", brief.Overall))
}

// generate runs one prompt with tracing, the circuit breaker and retries.
func (g *GeminiProvider) generate(ctx context.Context, operation, prompt string, spanAttributes ...attribute.KeyValue) (string, *TokenUsage, error) {
	tracer := otel.Tracer("resumatch.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	genaiConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
	}
	if g.config.Temperature > 0 {
		temperature := g.config.Temperature
		genaiConfig.Temperature = &temperature
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operation, func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, appErrors.NewInsightError(appErrors.ErrCodeInsightFailed,
			"Failed to generate content for "+operation, err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, appErrors.NewInsightError(appErrors.ErrCodeInsightFailed,
			"Empty response for "+operation, nil)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return text, tokenUsage, nil
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", g.config.MaxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"max_retries", g.config.MaxRetries)
	return nil, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// backoff doubles per attempt, adds up to 10% jitter and caps at 30s.
func (g *GeminiProvider) backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * g.backoffBase
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// Stats returns circuit breaker statistics
func (g *GeminiProvider) Stats() map[string]any {
	return map[string]any{
		"generate":        g.circuitBreaker.Stats(),
		"model":           g.modelBreaker.Stats(),
		"overall_healthy": g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements InsightGenerator. The genai client holds no open streams.
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
