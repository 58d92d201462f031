package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"resumatch/internal/common"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const healthCheckTimeout = 5 * time.Second

// analyzeHandler scores a JSON encoded AnalysisRequest.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("resumatch.api").Start(r.Context(), "api.analyze")
	defer span.End()

	var req types.AnalysisRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		s.writeAppError(w, r, err)
		return
	}
	req.Source = "api"

	s.runAnalysis(ctx, w, r, req)
}

// uploadHandler scores a multipart upload. The resume arrives as the
// "resume" file; the job description as the "job_description" field or the
// "jd_file" file.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.om.Tracer("resumatch.api").Start(r.Context(), "api.analyze_upload")
	defer span.End()

	req, err := s.parseUpload(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid upload")
		if appErr, ok := appErrors.AsAppError(err); ok && appErr.Type == appErrors.ErrorTypeDocument {
			s.metrics.RecordDocumentFailure(ctx, "api", appErr.Code)
		}
		s.writeAppError(w, r, err)
		return
	}
	req.Source = "api"

	s.runAnalysis(ctx, w, r, req)
}

func (s *Server) runAnalysis(ctx context.Context, w http.ResponseWriter, r *http.Request, req types.AnalysisRequest) {
	span := trace.SpanFromContext(ctx)
	report, err := s.runner.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("analysis.id", report.ID),
		attribute.Float64("analysis.overall", report.Result.Overall),
		attribute.Int("analysis.missing", len(report.Result.Missing)),
		attribute.Bool("analysis.insights", report.Insights != nil),
	)
	s.logger.Info("Analysis served",
		"id", report.ID,
		"request_id", requestID(ctx),
		"overall", report.Result.Overall)

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) parseUpload(ctx context.Context, r *http.Request) (types.AnalysisRequest, error) {
	var req types.AnalysisRequest
	if err := r.ParseMultipartForm(s.maxDocumentSize); err != nil {
		return req, bodyError(err, "invalid multipart form")
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	resume, err := s.readFormDocument(ctx, r, "resume")
	if err != nil {
		return req, err
	}
	if resume == "" {
		return req, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"resume file is required", nil)
	}
	req.Resume = resume

	req.JobDescription = r.FormValue("job_description")
	if req.JobDescription == "" {
		if req.JobDescription, err = s.readFormDocument(ctx, r, "jd_file"); err != nil {
			return req, err
		}
	}

	if spec := r.FormValue("weights"); spec != "" {
		weights, err := common.ParseWeights(spec, s.runner.DefaultWeights())
		if err != nil {
			return req, err
		}
		req.Weights = &weights
	}

	if value := r.FormValue("insights"); value != "" {
		if req.Insights, err = strconv.ParseBool(value); err != nil {
			return req, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
				"insights must be a boolean", err)
		}
	}
	return req, nil
}

// readFormDocument extracts the text of an uploaded file. A missing file
// yields an empty string.
func (s *Server) readFormDocument(ctx context.Context, r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid %s upload", field), err)
	}
	defer func() { _ = file.Close() }()

	data, readErr := readUpload(file, s.maxDocumentSize)
	if readErr != nil {
		return "", readErr.WithContext("field", field)
	}
	return s.extractor.Extract(ctx, header.Filename, header.Header.Get("Content-Type"), data)
}

func readUpload(file multipart.File, limit int64) ([]byte, *appErrors.AppError) {
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, appErrors.NewValidationError(appErrors.ErrCodeFileNotReadable, "failed to read upload", err)
	}
	if int64(len(data)) > limit {
		return nil, appErrors.NewDocumentError(appErrors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("document exceeds %d bytes", limit), nil)
	}
	return data, nil
}

// taxonomyHandler returns the active skill vocabulary.
func (s *Server) taxonomyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Analyzer().Taxonomy().Document())
}

// healthHandler reports liveness plus the state of the insight model and
// the TLS certificate.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumatch",
		"version": s.version,
	}
	healthy := true

	insights := map[string]any{"enabled": s.insights.Enabled()}
	if s.insights.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if info := s.insights.ModelInfo(ctx); info != nil {
			insights["model"] = info
			healthy = healthy && info.Available
		}
	}
	response["insights"] = insights

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth checks the health of TLS certificates
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certManager == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.certManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	const (
		criticalThreshold = 24 * time.Hour
		warningThreshold  = 7 * 24 * time.Hour
	)

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= criticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= warningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	certStatus["auto_reload"] = s.certManager.Watching()
	stats := s.certManager.Stats()
	certStatus["reloads"] = map[string]any{
		"success":      stats.ReloadSuccessCount,
		"failure":      stats.ReloadFailureCount,
		"last_reload":  stats.LastReloadTime,
		"last_success": stats.LastReloadSuccess,
		"last_error":   stats.LastReloadError,
	}

	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumatch",
		"version": s.version,
		"server": map[string]any{
			"max_request_size_bytes":  s.config.MaxRequestSize,
			"max_document_size_bytes": s.maxDocumentSize,
			"authentication":          len(s.apiKeys) > 0,
			"tls_mode":                s.tlsMode(),
		},
		"taxonomy": map[string]any{
			"skills": s.runner.Analyzer().Taxonomy().Len(),
		},
		"insights_enabled": s.insights.Enabled(),
	}

	if s.rateLimiter != nil {
		stats := s.rateLimiter.GetStats()
		stats["enabled"] = true
		stats["by_ip"] = s.config.RateLimit.ByIP
		stats["by_api_key"] = s.config.RateLimit.ByAPIKey
		response["rate_limiting"] = stats
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON body into v.
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyError(err, "failed to read request body")
	}

	if err := json.Unmarshal(body, v); err != nil {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidFormat, "failed to parse JSON", err)
	}
	return nil
}

// bodyError maps body read failures, turning size limit hits into 413s.
func bodyError(err error, message string) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return appErrors.NewDocumentError(appErrors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), nil)
	}
	return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, message, err)
}

// writeAppError picks the status from err's type. Unknown errors are 500s.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := appErrors.AsAppError(err)
	if !ok {
		s.logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "request_id", requestID(r.Context()))
		s.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "request_id", requestID(r.Context()))
	} else {
		s.logger.Debug("Request rejected", "endpoint", r.URL.Path, "code", appErr.Code, "error", appErr.Message)
	}
	s.writeError(w, r, status, appErr.Code, appErr.Message)
}

// writeError writes a standardized error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already sent; an encode failure can only be dropped.
	_ = json.NewEncoder(w).Encode(v)
}
