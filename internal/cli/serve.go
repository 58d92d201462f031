package cli

import (
	"fmt"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/document"
	"resumatch/internal/server"

	"github.com/spf13/cobra"
)

// shutdownGrace bounds telemetry flushing on exit.
const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server that exposes the resume matcher as a REST API.

Available endpoints:
- POST /analyze: Score a resume against a job description (JSON)
- POST /analyze/upload: Same, with the resume uploaded as a file (multipart)
- GET /taxonomy: The active skill taxonomy
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info
- GET /metrics: Prometheus metrics, when observability is enabled

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded server config.
func applyServeFlags(cmd *cobra.Command, cfg config.ServerConfig) config.ServerConfig {
	override := func(flagName string, target *string) {
		if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
			*target = f.Value.String()
		}
	}
	override("port", &cfg.Port)
	override("host", &cfg.Host)
	override("tls-mode", &cfg.TLS.Mode)
	override("cert-file", &cfg.TLS.CertFile)
	override("key-file", &cfg.TLS.KeyFile)
	override("ca-file", &cfg.TLS.CAFile)
	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	serverCfg := applyServeFlags(cmd, cfg.Server)

	// Validate TLS configuration after applying overrides
	tempConfig := &config.Config{Server: serverCfg}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, shutdown := startObservability(cfg, logger)
	defer shutdown()

	runner, insights, err := newRunner(ctx, cfg, om.GetMetrics(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := insights.Close(); err != nil {
			logger.LogError(err, "Failed to close insight service")
		}
	}()

	srv, err := server.NewServer(serverCfg, server.Options{
		Version:         Version,
		Runner:          runner,
		Extractor:       document.New(),
		Insights:        insights,
		Observability:   om,
		MaxDocumentSize: cfg.App.MaxFileSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
