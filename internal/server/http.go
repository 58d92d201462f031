package server

import (
	"resumatch/internal/ai"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/document"
	appErrors "resumatch/internal/errors"
	"resumatch/internal/observability"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Server serves the matcher over HTTP.
type Server struct {
	config  config.ServerConfig
	version string

	runner          *common.Runner
	extractor       document.Extractor
	insights        *ai.Service
	maxDocumentSize int64

	// API Authentication
	apiKeys map[string]bool

	rateLimiter *LimiterManager
	certManager *CertificateManager

	om      *observability.ObservabilityManager
	metrics *observability.Metrics
	logger  *appErrors.Logger
}

// Options carries the collaborators a Server needs beyond its config.
type Options struct {
	Version         string
	Runner          *common.Runner
	Extractor       document.Extractor
	Insights        *ai.Service
	Observability   *observability.ObservabilityManager
	MaxDocumentSize int64
}

// NewServer creates a Server. A nil Observability manager means a disabled one.
func NewServer(cfg config.ServerConfig, opts Options, logger *appErrors.Logger) (*Server, error) {
	if logger == nil {
		logger = appErrors.Discard()
	}
	om := opts.Observability
	if om == nil {
		var err error
		if om, err = observability.NewObservabilityManager(observability.ObservabilityConfig{}); err != nil {
			return nil, err
		}
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = document.New()
	}
	maxDocumentSize := opts.MaxDocumentSize
	if maxDocumentSize <= 0 {
		maxDocumentSize = cfg.MaxRequestSize
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeys := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeys[key] = true
		}
	}

	var rateLimiter *LimiterManager
	if cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		config:          cfg,
		version:         opts.Version,
		runner:          opts.Runner,
		extractor:       extractor,
		insights:        opts.Insights,
		maxDocumentSize: maxDocumentSize,
		apiKeys:         apiKeys,
		rateLimiter:     rateLimiter,
		om:              om,
		metrics:         om.GetMetrics(),
		logger:          logger,
	}, nil
}
