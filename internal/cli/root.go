package cli

import (
	"context"
	"fmt"
	"io"

	"resumatch/internal/ai"
	"resumatch/internal/common"
	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/observability"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "resumatch",
	Short: "Score how well a resume matches a job description",
	Long: `Resumatch extracts skills from a resume and a job description, scores
the fit per skill category (technical, soft, operational) and recommends how
to close the gaps. The same analysis is available as a CLI command, an HTTP
API, a queue worker and an MCP tool.`,
	SilenceUsage: true,
}

// Execute runs the command line with cfg and logger available to every
// subcommand.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	return rootCmd.ExecuteContext(withDependencies(ctx, cfg, logger))
}

// withDependencies attaches the config and logger to the context, making
// them available to all subcommands.
func withDependencies(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// ConfigFileFromArgs returns the value of --config in args. main needs it
// before cobra parses the command line, because configuration is loaded
// first.
func ConfigFileFromArgs(args []string) string {
	fs := pflag.NewFlagSet("resumatch", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	configFile := fs.String("config", "", "")
	_ = fs.Parse(args)
	return *configFile
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// newRunner builds the analysis pipeline and the optional insight service.
// Callers close the returned service.
func newRunner(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *errors.Logger) (*common.Runner, *ai.Service, error) {
	analyzer, err := cfg.NewAnalyzer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	insights, err := ai.NewServiceFromConfig(ctx, cfg.Insight, logger, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create insight service: %w", err)
	}
	return common.NewRunner(analyzer, cfg.Analysis.Weights, insights, metrics, logger), insights, nil
}

// startObservability creates the telemetry manager for long-running commands.
func startObservability(cfg *config.Config, logger *errors.Logger) (*observability.ObservabilityManager, func()) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version))
	if err != nil {
		logger.LogError(err, "Failed to initialize observability, continuing without telemetry")
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{})
	}
	return om, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./config.yaml, $HOME/.config/resumatch/config.yaml, /etc/resumatch/config.yaml)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(taxonomyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
