package cli

import (
	"fmt"

	"resumatch/internal/document"
	"resumatch/internal/worker"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume analysis jobs from the message queue",
	Long: `Start a pool of consumers on the configured AMQP queue. Each job names a
resume (inline text or an object key in the S3 bucket) and a job description.
Status events (processing, completed, failed) and the final report are
published to the event exchange with routing key analysis.<job id>.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var workerConcurrency int

func init() {
	workerCmd.Flags().IntVarP(&workerConcurrency, "concurrency", "c", 0, "Number of concurrent consumers (default from config)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	wc := cfg.Worker
	if workerConcurrency > 0 {
		wc.Concurrency = workerConcurrency
	}

	om, shutdown := startObservability(cfg, logger)
	defer shutdown()
	metrics := om.GetMetrics()

	runner, insights, err := newRunner(ctx, cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := insights.Close(); err != nil {
			logger.LogError(err, "Failed to close insight service")
		}
	}()

	var fetcher worker.ObjectFetcher
	if wc.S3.Bucket != "" {
		s3Fetcher, err := worker.NewS3Fetcher(ctx, wc.S3, wc.DownloadRetries, cfg.App.MaxFileSize, logger)
		if err != nil {
			return err
		}
		fetcher = s3Fetcher
	} else {
		logger.Warn("No S3 bucket configured; only jobs with inline resume text can be processed")
	}

	broker, err := worker.DialAMQP(wc, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.LogError(err, "Failed to close broker connection")
		}
	}()

	w, err := worker.New(worker.Options{
		Broker:          broker,
		Fetcher:         fetcher,
		Extractor:       document.New(),
		Runner:          runner,
		Concurrency:     wc.Concurrency,
		JobTimeout:      wc.JobTimeout,
		MaxDocumentSize: cfg.App.MaxFileSize,
		Metrics:         metrics,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	logger.Info("Starting worker",
		"queue", wc.Queue,
		"exchange", wc.Exchange,
		"concurrency", wc.Concurrency,
		"prefetch", wc.Prefetch,
		"s3_bucket", wc.S3.Bucket)
	return w.Run(ctx)
}
