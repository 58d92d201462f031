package cli

import (
	"resumatch/internal/mcptool"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the resume_fit tool over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the read-only
tool resume_fit. Its input is {resume, job_description, weights?} and its
output is the scored match. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := getConfigFromContext(ctx)
		logger := getLoggerFromContext(ctx)

		runner, insights, err := newRunner(ctx, cfg, nil, logger)
		if err != nil {
			return err
		}
		defer func() { _ = insights.Close() }()

		logger.Info("Serving MCP over stdio", "tool", mcptool.ToolName)
		return mcptool.Serve(ctx, mcptool.NewServer(runner, Version, logger))
	},
}
