package common

import (
	"context"
	"testing"
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/errors"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(insights *ai.Service) *Runner {
	r := NewRunner(skills.NewAnalyzer(skills.DefaultTaxonomy()), skills.DefaultWeights(), insights, nil, nil)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)) }
	return r
}

func TestRunnerRun(t *testing.T) {
	r := newTestRunner(nil)

	report, err := r.Run(context.Background(), types.AnalysisRequest{
		Resume:         "Skills\nPython, SQL, leadership",
		JobDescription: "Looking for Python and Docker plus leadership",
		Source:         "cli",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 2, 4, 5, 0, time.UTC), report.CreatedAt)
	assert.Equal(t, skills.DefaultWeights(), report.Weights)
	assert.Equal(t, []string{"docker"}, report.Result.Missing)
	assert.Nil(t, report.Insights)
}

func TestRunnerUsesRequestWeights(t *testing.T) {
	r := newTestRunner(nil)
	w := skills.Weights{Technical: 3, Soft: 1, Operational: 1}

	report, err := r.Run(context.Background(), types.AnalysisRequest{
		Resume:         "Python",
		JobDescription: "Python and leadership",
		Weights:        &w,
	})
	require.NoError(t, err)
	assert.Equal(t, w, report.Weights)
	assert.Equal(t, 75.0, report.Result.Overall)
}

func TestRunnerRejectsInvalidRequests(t *testing.T) {
	r := newTestRunner(nil)

	_, err := r.Run(context.Background(), types.AnalysisRequest{Resume: "Python", JobDescription: "   "})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeEmptyJobDescription, appErr.Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, types.AnalysisRequest{Resume: "Python", JobDescription: "Python"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerAttachesFallbackInsightsWhenDisabled(t *testing.T) {
	r := newTestRunner(ai.NewService(nil, time.Second, nil, nil))
	assert.False(t, r.InsightsEnabled())

	report, err := r.Run(context.Background(), types.AnalysisRequest{
		Resume:         "Python",
		JobDescription: "Python",
		Insights:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, report.Insights)
	assert.True(t, report.Insights.ResumeQuality.Fallback)
	assert.Equal(t, errors.ErrCodeInsightDisabled, report.Insights.FitBooster.Error)
}
