package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
)

func fastConfig(retries uint64) Config {
	return Config{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		Logger:          logger.NewNopLogger(),
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"wrapped canceled", errors.Join(errors.New("fetch"), context.Canceled), false},
		{"network", errs.FromStatus(0, "reset"), true},
		{"rate limit", errs.FromStatus(429, "slow down"), true},
		{"server", errs.FromStatus(503, "unavailable"), true},
		{"auth", errs.FromStatus(401, "bad token"), false},
		{"not found", errs.FromStatus(404, "gone"), false},
		{"plain", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultRetryIf(tt.err))
		})
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), "test", func() error {
		attempts++
		if attempts < 3 {
			return errs.FromStatus(502, "bad gateway")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), "test", func() error {
		attempts++
		return errs.FromStatus(401, "unauthorized")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
}

func TestDoExhaustsRetries(t *testing.T) {
	log := logger.NewTestLogger()
	cfg := fastConfig(2)
	cfg.Logger = log

	attempts := 0
	err := Do(context.Background(), cfg, "flaky", func() error {
		attempts++
		return errs.FromStatus(500, "internal")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 2)
	assert.True(t, log.HasMessage("Operation failed after retries"))
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, fastConfig(10), "test", func() error {
		attempts++
		cancel()
		return errs.FromStatus(503, "unavailable")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoCustomRetryIf(t *testing.T) {
	cfg := fastConfig(5)
	cfg.RetryIf = func(error) bool { return false }

	attempts := 0
	err := Do(context.Background(), cfg, "test", func() error {
		attempts++
		return errors.New("anything")
	})

	assert.EqualError(t, err, "anything")
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), fastConfig(3), "test", func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", errs.Network(errors.New("connection reset"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, attempts)
}
