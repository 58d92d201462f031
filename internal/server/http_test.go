package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resumatch/internal/ai"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testResume = "Skills\nPython, SQL, leadership"
	testJD     = "Looking for Python and Docker plus leadership"
)

func newTestServer(t *testing.T, cfg config.ServerConfig, insights *ai.Service) *Server {
	t.Helper()
	if cfg.MaxRequestSize == 0 {
		cfg.MaxRequestSize = 1 << 20
	}
	runner := common.NewRunner(skills.NewAnalyzer(skills.DefaultTaxonomy()), skills.DefaultWeights(), insights, nil, nil)
	s, err := NewServer(cfg, Options{Version: "test", Runner: runner, Insights: insights}, nil)
	require.NoError(t, err)
	t.Cleanup(s.cleanup)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAnalyzeHandler(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, nil).Handler()

	rec := postJSON(t, h, "/analyze", types.AnalysisRequest{Resume: testResume, JobDescription: testJD}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var report types.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, []string{"docker"}, report.Result.Missing)
	assert.Equal(t, skills.DefaultWeights(), report.Weights)
	assert.Nil(t, report.Insights)
}

func TestAnalyzeHandlerWithInsightsDisabled(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, nil).Handler()

	rec := postJSON(t, h, "/analyze", types.AnalysisRequest{Resume: testResume, JobDescription: testJD, Insights: true}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report types.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.NotNil(t, report.Insights)
	assert.True(t, report.Insights.ResumeQuality.Fallback)
	assert.True(t, report.Insights.FitBooster.Fallback)
}

func TestAnalyzeHandlerErrors(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{MaxRequestSize: 256}, nil).Handler()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{"empty job description", "application/json", `{"resume":"Python","job_description":"  "}`, http.StatusBadRequest, "EMPTY_JOB_DESCRIPTION"},
		{"missing resume", "application/json", `{"job_description":"Python"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"negative weight", "application/json", `{"resume":"Python","job_description":"Python","weights":{"technical":-1}}`, http.StatusBadRequest, "INVALID_WEIGHTS"},
		{"malformed json", "application/json", `{"resume":`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"wrong content type", "text/plain", `resume`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"body too large", "application/json", `{"resume":"` + strings.Repeat("a", 512) + `","job_description":"Python"}`, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			req.Header.Set(RequestIDHeader, "req-123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, "req-123", resp.RequestID)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{APIKeys: []string{"secret-key-123", ""}}, nil).Handler()
	body := types.AnalysisRequest{Resume: testResume, JobDescription: testJD}

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret-key-123"}, http.StatusOK},
		{"bearer token", map[string]string{"Authorization": "Bearer secret-key-123"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/analyze", body, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
			}
		})
	}

	t.Run("health is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, config.ServerConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true},
	}, nil)
	h := s.Handler()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/taxonomy", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
}

func newUpload(t *testing.T, files map[string][2]string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, file := range files {
		part, err := mw.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, nil).Handler()

	t.Run("resume file and job description field", func(t *testing.T) {
		req := newUpload(t,
			map[string][2]string{"resume": {"cv.txt", testResume}},
			map[string]string{"job_description": testJD, "weights": "technical=1,soft=2,operational=3"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report types.AnalysisReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, skills.Weights{Technical: 1, Soft: 2, Operational: 3}, report.Weights)
		assert.Equal(t, []string{"docker"}, report.Result.Missing)
	})

	t.Run("job description file", func(t *testing.T) {
		req := newUpload(t, map[string][2]string{
			"resume":  {"cv.md", testResume},
			"jd_file": {"jd.html", "<html><body><p>Python and Docker</p></body></html>"},
		}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("unsupported resume type", func(t *testing.T) {
		req := newUpload(t,
			map[string][2]string{"resume": {"cv.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"}},
			map[string]string{"job_description": testJD})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "DOCUMENT_UNSUPPORTED", decodeError(t, rec).Code)
	})

	t.Run("missing resume", func(t *testing.T) {
		req := newUpload(t, nil, map[string]string{"job_description": testJD})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, rec).Code)
	})

	t.Run("bad insights flag", func(t *testing.T) {
		req := newUpload(t,
			map[string][2]string{"resume": {"cv.txt", testResume}},
			map[string]string{"job_description": testJD, "insights": "maybe"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaxonomyAndStatsHandlers(t *testing.T) {
	h := newTestServer(t, config.ServerConfig{}, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/taxonomy", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc skills.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc.Categories[skills.Technical], "python")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "test", stats["version"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
	assert.Greater(t, stats["taxonomy"].(map[string]any)["skills"], 0.0)
}

type fakeGenerator struct {
	available bool
}

func (f fakeGenerator) ResumeQuality(context.Context, string) (string, *ai.TokenUsage, error) {
	return "Tighten the summary.", nil, nil
}

func (f fakeGenerator) FitBooster(context.Context, types.FitBrief) (string, *ai.TokenUsage, error) {
	return "Mention Docker.", nil, nil
}

func (f fakeGenerator) ModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake", Available: f.available}
}

func (f fakeGenerator) Close() error { return nil }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		insights   *ai.Service
		wantStatus int
		want       string
	}{
		{"insights disabled", nil, http.StatusOK, "healthy"},
		{"model available", ai.NewService(fakeGenerator{available: true}, time.Second, nil, nil), http.StatusOK, "healthy"},
		{"model unavailable", ai.NewService(fakeGenerator{available: false}, time.Second, nil, nil), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, config.ServerConfig{}, tt.insights).Handler()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
		})
	}
}

func TestAnalyzeHandlerWithInsights(t *testing.T) {
	svc := ai.NewService(fakeGenerator{available: true}, time.Second, nil, nil)
	h := newTestServer(t, config.ServerConfig{}, svc).Handler()

	rec := postJSON(t, h, "/analyze", types.AnalysisRequest{Resume: testResume, JobDescription: testJD, Insights: true}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report types.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.NotNil(t, report.Insights)
	assert.Equal(t, "Tighten the summary.", report.Insights.ResumeQuality.Text)
	assert.Equal(t, "Mention Docker.", report.Insights.FitBooster.Text)
	assert.False(t, report.Insights.FitBooster.Fallback)
}
