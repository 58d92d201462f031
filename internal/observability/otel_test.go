package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resumatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAnalysis(ctx, "api", "weak fit (missing: docker)", 33.3, 20*time.Millisecond)
	m.RecordAnalysis(ctx, "cli", "strong fit", 91, time.Millisecond)
	m.RecordInsight(ctx, "fit_booster", "ok", time.Second, 120, 80)
	m.RecordDocumentFailure(ctx, "api", "DOCUMENT_CORRUPT")
	m.RecordWorkerJob(ctx, "completed")
	m.RecordRateLimitHit(ctx, "ip")
	m.RecordCertReload(ctx, true)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["resumatch_analyses_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumatch_insight_requests_total"]))
	assert.Equal(t, int64(200), sumOf(t, got["resumatch_insight_tokens_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumatch_document_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumatch_worker_jobs_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumatch_rate_limit_hits_total"]))
	assert.Equal(t, int64(1), sumOf(t, got["resumatch_cert_reloads_total"]))

	hist, ok := got["resumatch_overall_score"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)
}

func TestVerdictLabel(t *testing.T) {
	assert.Equal(t, "weak", verdictLabel("weak fit (missing: go, java)"))
	assert.Equal(t, "strong", verdictLabel("strong fit"))
	assert.Equal(t, "moderate", verdictLabel("moderate fit"))
	assert.Equal(t, "none", verdictLabel("no requirements detected"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAnalysis(context.Background(), "cli", "strong fit", 90, time.Second)
		m.RecordInsight(context.Background(), "resume_quality", "error", time.Second, 0, 0)
		m.RecordWorkerJob(context.Background(), "failed")
	})
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "resumatch"})
	require.NoError(t, err)

	assert.NotNil(t, om.GetMetrics())
	assert.Nil(t, om.MetricsHandler())
	_, span := om.Tracer("x").Start(context.Background(), "span")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, om.HTTPMiddleware()(next))
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestPrometheusHandlerServesRecordedMetrics(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{
		ServiceName:    "resumatch",
		Enabled:        true,
		MetricsEnabled: true,
		Prometheus:     PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	om.GetMetrics().RecordWorkerJob(context.Background(), "completed")

	rec := httptest.NewRecorder()
	om.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resumatch_worker_jobs_total")
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{Observability: config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "resumatch",
		Tracing:     config.TracingConfig{Enabled: true},
		Prometheus:  config.PrometheusConfig{Enabled: true, Endpoint: "/m", Port: "9999"},
	}}

	got := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "1.2.3", got.ServiceVersion)
	assert.True(t, got.TracingEnabled)
	assert.Equal(t, "/m", got.Prometheus.Endpoint)

	assert.Equal(t, "resumatch", GetObservabilityConfig(nil, "dev").ServiceName)
}
