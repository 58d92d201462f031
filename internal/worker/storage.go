package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// retryBackoff is the base delay between download attempts.
var retryBackoff = 500 * time.Millisecond

// S3API is the part of the S3 client the fetcher uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads resumes from an S3-compatible bucket.
type S3Fetcher struct {
	client   S3API
	bucket   string
	attempts int
	maxSize  int64
	logger   *errors.Logger
}

// NewS3Fetcher builds a client for cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Fetcher(ctx context.Context, cfg config.S3Config, retries int, maxSize int64, logger *errors.Logger) (*S3Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "worker.s3.bucket is not set", nil)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Fetcher(client, cfg.Bucket, retries, maxSize, logger), nil
}

func newS3Fetcher(client S3API, bucket string, retries int, maxSize int64, logger *errors.Logger) *S3Fetcher {
	if logger == nil {
		logger = errors.Discard()
	}
	return &S3Fetcher{
		client:   client,
		bucket:   bucket,
		attempts: retries + 1,
		maxSize:  maxSize,
		logger:   logger,
	}
}

// Fetch downloads key. Missing objects and oversized objects fail at once;
// other errors are retried with a linear backoff.
func (f *S3Fetcher) Fetch(ctx context.Context, key string) (*Object, error) {
	obj, err := retry(ctx, f.attempts, func(attempt int) (*Object, error) {
		obj, err := f.get(ctx, key)
		if err != nil && !isPermanent(err) {
			f.logger.Warn("Resume download failed", "key", key, "attempt", attempt, "error", err)
		}
		return obj, err
	})
	if err == nil {
		return obj, nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return nil, appErr
	}
	return nil, errors.NewStorageError(errors.ErrCodeObjectFetchFailed,
		fmt.Sprintf("failed to download %s", key), err).WithContext("bucket", f.bucket)
}

func (f *S3Fetcher) get(ctx context.Context, key string) (*Object, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if stderrors.As(err, &missing) {
			return nil, permanent(errors.NewStorageError(errors.ErrCodeObjectFetchFailed,
				fmt.Sprintf("object %s does not exist", key), err).WithContext("bucket", f.bucket))
		}
		return nil, err
	}
	defer out.Body.Close()

	r := io.Reader(out.Body)
	if f.maxSize > 0 {
		r = io.LimitReader(out.Body, f.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, permanent(errors.NewDocumentError(errors.ErrCodeDocumentTooLarge,
			fmt.Sprintf("resume exceeds %d bytes", f.maxSize), nil).WithContext("key", key))
	}
	return &Object{Data: data, ContentType: aws.ToString(out.ContentType)}, nil
}

// permanentError stops retry.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

func permanent(err error) error { return &permanentError{err: err} }

func isPermanent(err error) bool {
	var p *permanentError
	return stderrors.As(err, &p)
}

// retry calls fn up to attempts times, sleeping base*attempt between calls.
func retry[T any](ctx context.Context, attempts int, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		var v T
		if v, err = fn(i); err == nil {
			return v, nil
		}
		if isPermanent(err) || i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(i)):
		}
	}
	return zero, err
}
