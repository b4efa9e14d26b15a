package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/logging"
)

type (
	// Usage is the number of objects and bytes stored in a bucket.
	Usage struct {
		Files int64
		Bytes int64
	}

	// BackoffFactory returns a new instance of backoff policy.
	BackoffFactory func() backoff.BackOff

	// Option configures a Scanner.
	Option func(s *Scanner)

	// Scanner walks whole buckets. A listing that fails with a retryable
	// error is restarted from the beginning.
	Scanner struct {
		client         Client
		logger         *zap.Logger
		maxAttempts    int
		backoffFactory BackoffFactory
	}
)

// Retry policy defaults. DefaultMaxAttempts bounds the listings per bucket.
const (
	DefaultMaxAttempts         = 4
	defaultInitialInterval     = 500 * time.Millisecond
	defaultRandomizationFactor = 0.5
	defaultMultiplier          = 2
	defaultMaxInterval         = 30 * time.Second
	defaultMaxElapsedTime      = 10 * time.Minute
)

// NewScanner returns a Scanner using client.
func NewScanner(client Client, logger *zap.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		client:         client,
		logger:         logging.WithPackage(logger),
		maxAttempts:    DefaultMaxAttempts,
		backoffFactory: func() backoff.BackOff { return DefaultBackoff() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithMaxAttempts bounds the listing attempts per bucket. Values below one
// are ignored.
func WithMaxAttempts(maxAttempts int) Option {
	return func(s *Scanner) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
	}
}

// WithBackoffFactory replaces the retry policy, mainly for tests.
func WithBackoffFactory(factory BackoffFactory) Option {
	return func(s *Scanner) {
		s.backoffFactory = factory
	}
}

// DefaultBackoff creates an exponential backoff policy.
func DefaultBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultInitialInterval
	b.RandomizationFactor = defaultRandomizationFactor
	b.Multiplier = defaultMultiplier
	b.MaxInterval = defaultMaxInterval
	b.MaxElapsedTime = defaultMaxElapsedTime
	return b
}

// ScanBucket returns the number of objects and total bytes in bucket,
// listing recursively. Directory marker keys (ending in "/") are not
// counted.
func (s *Scanner) ScanBucket(ctx context.Context, bucket string) (Usage, error) {
	var usage Usage
	attempts := 0

	operation := func() error {
		attempts++
		usage = Usage{}

		err := s.client.ListObjectsV2PagesWithContext(ctx, &awss3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
		}, func(page *awss3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				if strings.HasSuffix(aws.StringValue(obj.Key), "/") {
					continue
				}
				usage.Files++
				usage.Bytes += aws.Int64Value(obj.Size)
			}
			return true
		})
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(s.backoffFactory(), uint64(s.maxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		s.logger.Warn(
			"retrying bucket listing",
			zap.String("bucket", bucket),
			zap.Int("attempts", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	start := time.Now()
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return Usage{}, fmt.Errorf("list bucket %s: %w", bucket, err)
	}

	s.logger.Debug(
		"scanned bucket",
		zap.String("bucket", bucket),
		zap.Int64("files", usage.Files),
		zap.Int64("bytes", usage.Bytes),
		zap.Duration("duration", time.Since(start)),
	)
	return usage, nil
}

// IsRetryable reports whether a listing error is worth another attempt:
// throttling, server-side failures and transport errors are; missing
// buckets, denied access and cancellation are not.
func IsRetryable(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case request.CanceledErrorCode, awss3.ErrCodeNoSuchBucket, "AccessDenied":
		return false
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		if code := reqErr.StatusCode(); code >= 500 || code == 429 {
			return true
		}
	}
	return request.IsErrorRetryable(err) || request.IsErrorThrottle(err)
}
