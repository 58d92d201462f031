// Package worker runs analyses for jobs taken from a message queue and
// publishes their progress back to the broker.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"resumatch/internal/common"
	"resumatch/internal/document"
	"resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/types"

	"github.com/streadway/amqp"
)

// Broker is the queue side of the worker.
type Broker interface {
	// Consume starts delivering jobs. Deliveries must be acknowledged.
	Consume(ctx context.Context) (<-chan amqp.Delivery, error)
	// Publish sends body to the event exchange under routingKey.
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Object is a stored resume.
type Object struct {
	Data        []byte
	ContentType string
}

// ObjectFetcher loads resumes referenced by key.
type ObjectFetcher interface {
	Fetch(ctx context.Context, key string) (*Object, error)
}

// Options configures a Worker.
type Options struct {
	Broker    Broker
	Fetcher   ObjectFetcher
	Extractor document.Extractor
	Runner    *common.Runner

	Concurrency     int
	JobTimeout      time.Duration
	MaxDocumentSize int64

	Metrics *observability.Metrics
	Logger  *errors.Logger
}

// Worker consumes jobs with a fixed pool of goroutines.
type Worker struct {
	broker    Broker
	fetcher   ObjectFetcher
	extractor document.Extractor
	runner    *common.Runner

	concurrency     int
	jobTimeout      time.Duration
	maxDocumentSize int64

	metrics *observability.Metrics
	logger  *errors.Logger
	now     func() time.Time
}

// New validates opts and returns a worker. Fetcher may be nil when every job
// carries its resume inline.
func New(opts Options) (*Worker, error) {
	if opts.Broker == nil {
		return nil, fmt.Errorf("worker requires a broker")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("worker requires a runner")
	}
	if opts.Extractor == nil {
		opts.Extractor = document.New()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = errors.Discard()
	}

	return &Worker{
		broker:          opts.Broker,
		fetcher:         opts.Fetcher,
		extractor:       opts.Extractor,
		runner:          opts.Runner,
		concurrency:     opts.Concurrency,
		jobTimeout:      opts.JobTimeout,
		maxDocumentSize: opts.MaxDocumentSize,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		now:             time.Now,
	}, nil
}

// Run consumes until ctx is cancelled. It returns an error when the broker
// stops delivering while ctx is still live.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.broker.Consume(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("Worker started", "concurrency", w.concurrency)

	var (
		wg     sync.WaitGroup
		closed sync.Once
		lost   bool
	)
	for range w.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						closed.Do(func() { lost = ctx.Err() == nil })
						return
					}
					w.handle(ctx, d)
				}
			}
		}()
	}
	wg.Wait()

	if lost {
		return errors.NewQueueError(errors.ErrCodeQueueUnavailable, "delivery channel closed", nil)
	}
	w.logger.Info("Worker stopped")
	return nil
}

// handle processes one delivery. Every job ends in exactly one terminal
// event and one ack, except when shutdown interrupts it: then the delivery
// goes back on the queue.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job types.Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.reject(ctx, d, job.ID, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"job is not valid JSON", err))
		return
	}
	if err := common.ValidateJob(job); err != nil {
		w.reject(ctx, d, job.ID, err)
		return
	}

	logger := w.logger.With("job_id", job.ID)
	w.publish(ctx, types.JobEvent{JobID: job.ID, Status: types.JobProcessing})

	report, err := w.process(ctx, job)
	if err != nil && ctx.Err() != nil {
		logger.Warn("Job interrupted by shutdown, requeueing")
		if nackErr := d.Nack(false, true); nackErr != nil {
			logger.LogError(nackErr, "Failed to requeue job")
		}
		return
	}
	if err != nil {
		logger.LogError(err, "Job failed")
		w.metrics.RecordWorkerJob(ctx, string(types.JobFailed))
		w.publish(ctx, types.JobEvent{JobID: job.ID, Status: types.JobFailed, Error: err.Error()})
		w.ack(d, logger)
		return
	}

	logger.Info("Job completed", "overall", report.Result.Overall, "verdict", report.Result.Verdict)
	w.metrics.RecordWorkerJob(ctx, string(types.JobCompleted))
	w.publish(ctx, types.JobEvent{JobID: job.ID, Status: types.JobCompleted, Report: report})
	w.ack(d, logger)
}

// reject publishes a failed event for a message that cannot become a job and
// drops it from the queue.
func (w *Worker) reject(ctx context.Context, d amqp.Delivery, id string, err error) {
	w.logger.LogError(err, "Rejecting malformed job", "job_id", id)
	w.metrics.RecordWorkerJob(ctx, "rejected")
	w.publish(ctx, types.JobEvent{JobID: id, Status: types.JobFailed, Error: err.Error()})
	w.ack(d, w.logger)
}

func (w *Worker) ack(d amqp.Delivery, logger *errors.Logger) {
	if err := d.Ack(false); err != nil {
		logger.LogError(err, "Failed to ack delivery")
	}
}

func (w *Worker) process(ctx context.Context, job types.Job) (*types.AnalysisReport, error) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	resume, err := w.resumeText(jobCtx, job)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Type == errors.ErrorTypeDocument {
			w.metrics.RecordDocumentFailure(ctx, "worker", appErr.Code)
		}
		return nil, err
	}

	return w.runner.Run(jobCtx, types.AnalysisRequest{
		Resume:         resume,
		JobDescription: job.JobDescription,
		Weights:        job.Weights,
		Insights:       job.Insights,
		Source:         "worker",
	})
}

// resumeText returns the inline resume or fetches and decodes the stored one.
func (w *Worker) resumeText(ctx context.Context, job types.Job) (string, error) {
	if job.ResumeKey == "" {
		return document.Sanitize(job.ResumeText), nil
	}
	if w.fetcher == nil {
		return "", errors.NewStorageError(errors.ErrCodeObjectFetchFailed,
			"no object store configured", nil).WithContext("key", job.ResumeKey)
	}

	obj, err := w.fetcher.Fetch(ctx, job.ResumeKey)
	if err != nil {
		return "", err
	}
	if w.maxDocumentSize > 0 && int64(len(obj.Data)) > w.maxDocumentSize {
		return "", errors.NewDocumentError(errors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("resume exceeds %d bytes", w.maxDocumentSize), nil).
			WithContext("key", job.ResumeKey)
	}

	contentType := job.ResumeContentType
	if contentType == "" {
		contentType = obj.ContentType
	}
	return w.extractor.Extract(ctx, job.ResumeKey, contentType, obj.Data)
}

// publish sends event on analysis.<job id>. Events for messages without an
// id go to analysis.unknown.
func (w *Worker) publish(ctx context.Context, event types.JobEvent) {
	event.Timestamp = w.now().UTC()
	body, err := json.Marshal(event)
	if err != nil {
		w.logger.LogError(err, "Failed to encode job event", "job_id", event.JobID)
		return
	}
	if err := w.broker.Publish(ctx, RoutingKey(event.JobID), body); err != nil {
		w.logger.LogError(err, "Failed to publish job event",
			"job_id", event.JobID,
			"status", event.Status)
	}
}

// RoutingKey is the topic a job's events are published under.
func RoutingKey(jobID string) string {
	if jobID == "" {
		jobID = "unknown"
	}
	return "analysis." + jobID
}
