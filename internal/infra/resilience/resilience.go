// Package resilience provides the fault-isolation patterns used against
// upstreams: a circuit breaker per upstream and the per-request fan-out limit.
// No retries: failed calls surface immediately.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds resilience parameters.
type Config struct {
	// MaxConcurrency caps the concurrent backend calls of a single page load.
	MaxConcurrency int
}

// FanOutLimit is the errgroup limit for one request's fan-out; never below 1.
func (c Config) FanOutLimit() int {
	if c.MaxConcurrency < 1 {
		return 1
	}
	return c.MaxConcurrency
}

// NewCircuitBreaker creates a breaker that trips on transport failures.
// Upstream HTTP error statuses are relayed, not counted as failures.
func NewCircuitBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// the caller walked away; says nothing about the upstream
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
