package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for throttling outgoing requests
type Limiter interface {
	// Wait blocks until the limiter allows another request or ctx is done
	Wait(ctx context.Context) error
}

// NewDownloadLimiter returns a token bucket allowing perSecond media
// fetches with the given burst. A non-positive rate disables throttling.
func NewDownloadLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

var _ Limiter = (*rate.Limiter)(nil)
