package panel

import "time"

// Fetch outcome labels reported to Metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeTimeout      = "timeout"
	OutcomeCancelled    = "cancelled"
	OutcomeError        = "error"
)

// Metrics defines the interface for tracking quota fetch operations.
type Metrics interface {
	// RecordFetch records a completed upstream fetch and its classified outcome.
	RecordFetch(outcome string, duration time.Duration)

	// RecordCacheHit records a quota cache hit.
	RecordCacheHit()

	// RecordCacheMiss records a quota cache miss.
	RecordCacheMiss()

	// RecordInflightJoin records a caller attaching to an in-progress fetch.
	RecordInflightJoin()

	// RecordGateWait records time spent waiting for a concurrency gate slot.
	RecordGateWait(duration time.Duration)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordFetch(outcome string, duration time.Duration) {}
func (n *NoopMetrics) RecordCacheHit()                                    {}
func (n *NoopMetrics) RecordCacheMiss()                                   {}
func (n *NoopMetrics) RecordInflightJoin()                                {}
func (n *NoopMetrics) RecordGateWait(duration time.Duration)              {}
