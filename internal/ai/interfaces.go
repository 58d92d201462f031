package ai

import (
	"context"

	"resumatch/internal/types"
)

// InsightGenerator produces the narrative reports that accompany a match
// result. Callers may ignore the token usage.
type InsightGenerator interface {
	ResumeQuality(ctx context.Context, resume string) (string, *TokenUsage, error)
	FitBooster(ctx context.Context, brief types.FitBrief) (string, *TokenUsage, error)
	ModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
