package common

import (
	"math"
	"testing"

	"resumatch/internal/errors"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectedError    string
	}{
		{name: "json", format: "json", supportedFormats: supported},
		{name: "markdown", format: "markdown", supportedFormats: supported},
		{
			name:             "xml",
			format:           "xml",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json text markdown]",
		},
		{
			name:             "case sensitive",
			format:           "JSON",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json text markdown]",
		},
		{
			name:             "empty format",
			format:           "",
			supportedFormats: supported,
			expectedError:    "unsupported output format ''. Supported formats: [json text markdown]",
		},
		{name: "no restrictions", format: "xml", supportedFormats: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func TestParseWeights(t *testing.T) {
	base := skills.DefaultWeights()
	tests := []struct {
		name    string
		spec    string
		want    skills.Weights
		wantErr string
	}{
		{name: "empty keeps base", spec: "", want: base},
		{name: "full", spec: "technical=70,soft=20,operational=10", want: skills.Weights{Technical: 70, Soft: 20, Operational: 10}},
		{name: "partial with spaces", spec: " Soft = 5 ", want: skills.Weights{Technical: 60, Soft: 5, Operational: 20}},
		{name: "fractional", spec: "operational=0.5", want: skills.Weights{Technical: 60, Soft: 40, Operational: 0.5}},
		{name: "missing equals", spec: "technical", wantErr: `expected category=value, got "technical"`},
		{name: "not a number", spec: "soft=lots", wantErr: "weight for soft is not a number"},
		{name: "unknown category", spec: "devops=10", wantErr: `unknown category "devops"`},
		{name: "negative", spec: "soft=-1", wantErr: "weight for soft must be a positive number"},
		{name: "zero", spec: "operational=0", wantErr: "weight for operational must be a positive number"},
		{name: "all zero", spec: "technical=0,soft=0,operational=0", wantErr: "weight for technical must be a positive number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeights(tt.spec, base)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				appErr, ok := errors.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, errors.ErrCodeInvalidWeights, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights skills.Weights
		wantErr string
	}{
		{name: "defaults", weights: skills.DefaultWeights()},
		{name: "small fractions", weights: skills.Weights{Technical: 0.1, Soft: 0.1, Operational: 0.1}},
		{name: "single category", weights: skills.Weights{Technical: 60}, wantErr: "weight for soft must be a positive number"},
		{name: "zero operational", weights: skills.Weights{Technical: 60, Soft: 40}, wantErr: "weight for operational"},
		{name: "negative", weights: skills.Weights{Technical: 60, Soft: -40, Operational: 20}, wantErr: "weight for soft"},
		{name: "NaN", weights: skills.Weights{Technical: math.NaN(), Soft: 1, Operational: 1}, wantErr: "weight for technical"},
		{name: "infinite", weights: skills.Weights{Technical: 1, Soft: math.Inf(1), Operational: 1}, wantErr: "weight for soft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWeights(tt.weights)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	bad := skills.Weights{}
	tests := []struct {
		name     string
		req      types.AnalysisRequest
		wantCode string
	}{
		{name: "valid", req: types.AnalysisRequest{Resume: "Go", JobDescription: "Go"}},
		{name: "blank job description", req: types.AnalysisRequest{Resume: "Go", JobDescription: " \n\t"}, wantCode: errors.ErrCodeEmptyJobDescription},
		{name: "missing resume", req: types.AnalysisRequest{JobDescription: "Go"}, wantCode: errors.ErrCodeInvalidRequest},
		{name: "zero weights", req: types.AnalysisRequest{Resume: "Go", JobDescription: "Go", Weights: &bad}, wantCode: errors.ErrCodeInvalidWeights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestDescribeValidationNamesFields(t *testing.T) {
	err := ValidateRequest(types.AnalysisRequest{JobDescription: "Go"})
	assert.ErrorContains(t, err, "invalid request: Resume (required)")
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}

func TestValidateJob(t *testing.T) {
	tests := []struct {
		name     string
		job      types.Job
		wantCode string
		wantMsg  string
	}{
		{name: "inline resume", job: types.Job{ID: "1", ResumeText: "Python", JobDescription: "Python"}},
		{name: "object resume", job: types.Job{ID: "1", ResumeKey: "cv.pdf", JobDescription: "Python"}},
		{name: "missing id", job: types.Job{ResumeText: "Python", JobDescription: "Python"}, wantCode: errors.ErrCodeInvalidRequest, wantMsg: "invalid job: ID (required)"},
		{name: "no resume", job: types.Job{ID: "1", JobDescription: "Python"}, wantCode: errors.ErrCodeInvalidRequest, wantMsg: "ResumeKey (required_without)"},
		{name: "both resumes", job: types.Job{ID: "1", ResumeKey: "cv.pdf", ResumeText: "Python", JobDescription: "Python"}, wantCode: errors.ErrCodeInvalidRequest, wantMsg: "ResumeKey (excluded_with)"},
		{name: "blank job description", job: types.Job{ID: "1", ResumeText: "Python", JobDescription: "  "}, wantCode: errors.ErrCodeEmptyJobDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJob(tt.job)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Contains(t, appErr.Message, tt.wantMsg)
		})
	}
}
