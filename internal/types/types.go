package types

import (
	"time"

	"resumatch/internal/skills"
)

// AnalysisRequest is the transport-neutral input shared by every surface.
type AnalysisRequest struct {
	Resume         string          `json:"resume" validate:"required"`
	JobDescription string          `json:"job_description" validate:"required"`
	Weights        *skills.Weights `json:"weights,omitempty"`
	Insights       bool            `json:"insights,omitempty"`
	// Source names the surface that produced the request ("cli", "api", ...).
	Source string `json:"-"`
}

// InsightKind identifies one of the generated narrative reports.
type InsightKind string

const (
	InsightResumeQuality InsightKind = "resume_quality"
	InsightFitBooster    InsightKind = "fit_booster"
)

// Insight is narrative advice produced by a language model. Fallback is set
// when the text is a placeholder because generation was skipped or failed.
type Insight struct {
	Kind     InsightKind `json:"kind"`
	Text     string      `json:"text"`
	Fallback bool        `json:"fallback"`
	Error    string      `json:"error,omitempty"`
}

// Insights groups the two narrative reports.
type Insights struct {
	ResumeQuality Insight `json:"resume_quality"`
	FitBooster    Insight `json:"fit_booster"`
}

// FitBrief is what the fit booster prompt is built from.
type FitBrief struct {
	JobDescription string
	Matched        []string
	Missing        []string
	Overall        float64
	Verdict        string
}

// AnalysisReport is the complete response for one analysis.
type AnalysisReport struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Weights   skills.Weights `json:"weights"`
	Result    skills.Result  `json:"result"`
	Insights  *Insights      `json:"insights,omitempty"`
}

// JobStatus is the lifecycle state of a queued analysis.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is a queued analysis. Exactly one of ResumeKey and ResumeText is set.
type Job struct {
	ID                string          `json:"id" validate:"required"`
	ResumeKey         string          `json:"resume_key,omitempty" validate:"required_without=ResumeText,excluded_with=ResumeText"`
	ResumeText        string          `json:"resume_text,omitempty"`
	ResumeContentType string          `json:"resume_content_type,omitempty"`
	JobDescription    string          `json:"job_description" validate:"required"`
	Weights           *skills.Weights `json:"weights,omitempty"`
	Insights          bool            `json:"insights,omitempty"`
}

// JobEvent is published for every status change of a Job.
type JobEvent struct {
	JobID     string          `json:"job_id"`
	Status    JobStatus       `json:"status"`
	Error     string          `json:"error,omitempty"`
	Report    *AnalysisReport `json:"report,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
