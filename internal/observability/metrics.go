package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds all custom metrics for resumatch. A nil *Metrics records
// nothing.
type Metrics struct {
	// Matching core
	AnalysesTotal    metric.Int64Counter
	AnalysisDuration metric.Float64Histogram
	OverallScore     metric.Float64Histogram

	// Insight generation
	InsightRequests metric.Int64Counter
	InsightDuration metric.Float64Histogram
	InsightTokens   metric.Int64Counter

	// Inputs and background work
	DocumentFailures metric.Int64Counter
	WorkerJobs       metric.Int64Counter

	// Server
	RateLimitHits metric.Int64Counter
	CertReloads   metric.Int64Counter
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AnalysesTotal, err = meter.Int64Counter(
		"resumatch_analyses_total",
		metric.WithDescription("Completed analyses by surface and verdict"),
	); err != nil {
		return nil, err
	}
	if m.AnalysisDuration, err = meter.Float64Histogram(
		"resumatch_analysis_duration_seconds",
		metric.WithDescription("Time spent in the matching pipeline"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.OverallScore, err = meter.Float64Histogram(
		"resumatch_overall_score",
		metric.WithDescription("Distribution of overall match percentages"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	); err != nil {
		return nil, err
	}
	if m.InsightRequests, err = meter.Int64Counter(
		"resumatch_insight_requests_total",
		metric.WithDescription("Insight generations by kind and outcome"),
	); err != nil {
		return nil, err
	}
	if m.InsightDuration, err = meter.Float64Histogram(
		"resumatch_insight_duration_seconds",
		metric.WithDescription("Time spent waiting for the language model"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.InsightTokens, err = meter.Int64Counter(
		"resumatch_insight_tokens_total",
		metric.WithDescription("Tokens consumed by insight generation"),
	); err != nil {
		return nil, err
	}
	if m.DocumentFailures, err = meter.Int64Counter(
		"resumatch_document_failures_total",
		metric.WithDescription("Documents that could not be turned into text"),
	); err != nil {
		return nil, err
	}
	if m.WorkerJobs, err = meter.Int64Counter(
		"resumatch_worker_jobs_total",
		metric.WithDescription("Queued analyses by final status"),
	); err != nil {
		return nil, err
	}
	if m.RateLimitHits, err = meter.Int64Counter(
		"resumatch_rate_limit_hits_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	); err != nil {
		return nil, err
	}
	if m.CertReloads, err = meter.Int64Counter(
		"resumatch_cert_reloads_total",
		metric.WithDescription("TLS certificate reload attempts"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// NoopMetrics returns instruments that discard every measurement.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("resumatch"))
	return m
}

// RecordAnalysis records one completed analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, surface, verdict string, overall float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("surface", surface))
	m.AnalysesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("surface", surface),
		attribute.String("verdict", verdictLabel(verdict)),
	))
	m.AnalysisDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.OverallScore.Record(ctx, overall, attrs)
}

// verdictLabel keeps label cardinality bounded; weak verdicts carry skill names.
func verdictLabel(verdict string) string {
	for _, label := range []string{"strong", "moderate", "weak"} {
		if strings.HasPrefix(verdict, label) {
			return label
		}
	}
	return "none"
}

// RecordInsight records one insight generation attempt.
func (m *Metrics) RecordInsight(ctx context.Context, kind, outcome string, elapsed time.Duration, inputTokens, outputTokens int64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("kind", kind), attribute.String("outcome", outcome)}
	m.InsightRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.InsightDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	if inputTokens > 0 {
		m.InsightTokens.Add(ctx, inputTokens, metric.WithAttributes(attribute.String("kind", kind), attribute.String("direction", "input")))
	}
	if outputTokens > 0 {
		m.InsightTokens.Add(ctx, outputTokens, metric.WithAttributes(attribute.String("kind", kind), attribute.String("direction", "output")))
	}
}

// RecordDocumentFailure counts a document that could not be extracted.
func (m *Metrics) RecordDocumentFailure(ctx context.Context, surface, code string) {
	if m == nil {
		return
	}
	m.DocumentFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("surface", surface),
		attribute.String("code", code),
	))
}

// RecordWorkerJob counts a queued job reaching status.
func (m *Metrics) RecordWorkerJob(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.WorkerJobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordRateLimitHit counts a rejected request.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limitedBy string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limited_by", limitedBy)))
}

// RecordCertReload counts a certificate reload.
func (m *Metrics) RecordCertReload(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CertReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
