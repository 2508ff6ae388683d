package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
)

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries uint64
	// InitialInterval is the first backoff delay
	InitialInterval time.Duration
	// MaxInterval caps a single backoff delay
	MaxInterval time.Duration
	// Multiplier grows the delay between attempts
	Multiplier float64
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		RetryIf:         DefaultRetryIf,
	}
}

// DefaultRetryIf retries typed errors by their type, never retries
// cancellation, and retries anything unknown.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	return true
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		bo.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		bo.MaxInterval = c.MaxInterval
	}
	if c.Multiplier > 0 {
		bo.Multiplier = c.Multiplier
	}
	bo.MaxElapsedTime = 0
	bo.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts
// MaxRetries, or ctx is done.
func Do(ctx context.Context, cfg Config, operation string, op func() error) error {
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if !retryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		log.WarnWithFields("Operation failed, retrying", map[string]interface{}{
			"operation":       operation,
			"attempt":         attempt,
			"error":           err.Error(),
			"next_attempt_in": next.Round(time.Millisecond).String(),
		})
	}

	err := backoff.RetryNotify(wrapped, cfg.backOff(ctx), notify)
	if err != nil && attempt > 1 {
		log.ErrorWithFields("Operation failed after retries", map[string]interface{}{
			"operation": operation,
			"attempts":  attempt,
			"error":     err.Error(),
		})
	}
	return err
}

// DoWithResult is Do for operations that return a value
func DoWithResult[T any](ctx context.Context, cfg Config, operation string, op func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, operation, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}
