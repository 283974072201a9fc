package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Fetch limits. The timeout covers the whole operation, gate wait included.
const (
	DefaultMaxConcurrentFetches = 4
	DefaultFetchTimeout         = 20 * time.Second
)

// Operator-facing error messages. The exact wording is part of the contract.
const (
	msgUnauthorized = "credential invalid or unauthorized, cannot fetch quota"
	msgRateLimited  = "rate limited, retry later"
	msgTimeout      = "request timed out, cannot fetch quota"
	msgCancelled    = "request was cancelled"
	msgPrefixOther  = "cannot fetch quota: "
)

// FetcherConfig holds Fetcher configuration
type FetcherConfig struct {
	// Client is the upstream quota client (required)
	Client QuotaClient

	// Cache is the quota result cache (default: NewQuotaCache with defaults)
	Cache *QuotaCache

	// MaxConcurrent bounds simultaneous upstream calls across all accounts
	// (default: 4)
	MaxConcurrent int64

	// FetchTimeout is the overall deadline per fetch, from request start and
	// inclusive of gate wait (default: 20s)
	FetchTimeout time.Duration

	// Logger is optional (default: NoopLogger)
	Logger Logger

	// Metrics is optional (default: NoopMetrics)
	Metrics Metrics

	// Clock is the time source (default: SystemClock)
	Clock TimeSource
}

// inflightFetch is the shared future joiners wait on. The done channel is
// closed exactly once, after result is set and the cache is written.
type inflightFetch struct {
	done   chan struct{}
	result *QuotaResult
}

// Fetcher orchestrates "get quota for account X": cache check, in-flight
// de-duplication, gate admission, upstream call, classification, cache write.
type Fetcher struct {
	client  QuotaClient
	cache   *QuotaCache
	gate    *semaphore.Weighted
	timeout time.Duration
	logger  Logger
	metrics Metrics
	clock   TimeSource

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// NewFetcher creates a quota fetcher with the given configuration
func NewFetcher(config FetcherConfig) (*Fetcher, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("quota client is required")
	}
	if config.Cache == nil {
		config.Cache = NewQuotaCache(CacheConfig{})
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrentFetches
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	if config.Logger == nil {
		config.Logger = &NoopLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	return &Fetcher{
		client:   config.Client,
		cache:    config.Cache,
		gate:     semaphore.NewWeighted(config.MaxConcurrent),
		timeout:  config.FetchTimeout,
		logger:   config.Logger,
		metrics:  config.Metrics,
		clock:    config.Clock,
		inflight: make(map[string]*inflightFetch),
	}, nil
}

// Cache exposes the underlying cache, e.g. for invalidation on account changes
func (f *Fetcher) Cache() *QuotaCache { return f.cache }

// Invalidate drops the cached result for accountID so the next Fetch goes
// upstream. Used when an account is disabled or removed.
func (f *Fetcher) Invalidate(accountID string) {
	f.cache.Invalidate(accountID)
}

// Fetch returns the quota for accountID, serving from cache when possible and
// joining an in-progress fetch for the same account instead of issuing a
// second upstream call.
func (f *Fetcher) Fetch(ctx context.Context, accountID string) (*QuotaResult, error) {
	return f.fetch(ctx, accountID, false)
}

// Refresh behaves like Fetch but bypasses the cache check. It still joins an
// in-progress fetch and writes the cache on completion.
func (f *Fetcher) Refresh(ctx context.Context, accountID string) (*QuotaResult, error) {
	return f.fetch(ctx, accountID, true)
}

func (f *Fetcher) fetch(ctx context.Context, accountID string, force bool) (*QuotaResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}

	if !force {
		if res, ok := f.cache.Get(accountID); ok {
			f.metrics.RecordCacheHit()
			return res, nil
		}
		f.metrics.RecordCacheMiss()
	}

	f.mu.Lock()
	if in, ok := f.inflight[accountID]; ok {
		f.mu.Unlock()
		f.metrics.RecordInflightJoin()
		return f.await(ctx, accountID, in)
	}
	in := &inflightFetch{done: make(chan struct{})}
	f.inflight[accountID] = in
	f.mu.Unlock()

	go f.run(ctx, accountID, in)
	return f.await(ctx, accountID, in)
}

// await waits for the shared fetch. A caller abandoning its own request gets
// a non-cached cancelled result; the shared fetch keeps running for everyone
// else.
func (f *Fetcher) await(ctx context.Context, accountID string, in *inflightFetch) (*QuotaResult, error) {
	select {
	case <-in.done:
		return in.result.Clone(), nil
	case <-ctx.Done():
		return &QuotaResult{
			AccountID: accountID,
			Kind:      KindError,
			Message:   msgCancelled,
			FetchedAt: f.clock.Now(),
		}, nil
	}
}

// run executes the upstream fetch on a context detached from the initiating
// caller, so one impatient caller cannot cancel a fetch others are awaiting.
// Marker, cache and completion signal are settled in order: marker removed,
// cache written, joiners released.
func (f *Fetcher) run(parent context.Context, accountID string, in *inflightFetch) {
	result := &QuotaResult{
		AccountID: accountID,
		Kind:      KindError,
		Message:   msgPrefixOther + "internal error",
		FetchedAt: f.clock.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("quota fetch panicked",
				Field{Key: "account_id", Value: accountID},
				Field{Key: "panic", Value: r})
		}
		f.mu.Lock()
		delete(f.inflight, accountID)
		f.mu.Unlock()
		f.cache.Put(result)
		in.result = result
		close(in.done)
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), f.timeout)
	defer cancel()

	result = f.fetchUpstream(ctx, accountID)
}

// fetchUpstream acquires a gate slot, calls the upstream client and
// classifies the outcome. The slot is released unconditionally.
func (f *Fetcher) fetchUpstream(ctx context.Context, accountID string) *QuotaResult {
	waitStart := time.Now()
	if err := f.gate.Acquire(ctx, 1); err != nil {
		f.metrics.RecordGateWait(time.Since(waitStart))
		f.metrics.RecordFetch(OutcomeTimeout, time.Since(waitStart))
		f.logger.Warn("gate admission timed out",
			Field{Key: "account_id", Value: accountID})
		return &QuotaResult{
			AccountID: accountID,
			Kind:      KindError,
			Message:   msgTimeout,
			FetchedAt: f.clock.Now(),
		}
	}
	defer f.gate.Release(1)
	f.metrics.RecordGateWait(time.Since(waitStart))

	callStart := time.Now()
	payload, err := f.client.FetchQuota(ctx, accountID)
	duration := time.Since(callStart)
	if err != nil {
		outcome, message := classifyFetchError(err)
		f.metrics.RecordFetch(outcome, duration)
		f.logger.Warn("quota fetch failed",
			Field{Key: "account_id", Value: accountID},
			Field{Key: "outcome", Value: outcome},
			Field{Key: "error", Value: err.Error()})
		return &QuotaResult{
			AccountID: accountID,
			Kind:      KindError,
			Message:   message,
			FetchedAt: f.clock.Now(),
		}
	}

	f.metrics.RecordFetch(OutcomeSuccess, duration)
	f.logger.Debug("quota fetch succeeded",
		Field{Key: "account_id", Value: accountID},
		Field{Key: "duration", Value: duration})
	now := f.clock.Now()
	var models map[string]ModelQuota
	if payload != nil {
		models = payload.Models
	}
	return &QuotaResult{
		AccountID: accountID,
		Kind:      KindSuccess,
		Quota: &AccountQuota{
			AccountID: accountID,
			Groups:    GroupModels(models),
			FetchedAt: now,
		},
		FetchedAt: now,
	}
}

// classifyFetchError maps an upstream failure to a metrics outcome and the
// operator-facing message
func classifyFetchError(err error) (outcome, message string) {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		switch upstream.StatusCode {
		case 401:
			return OutcomeUnauthorized, msgUnauthorized
		case 429:
			return OutcomeRateLimited, msgRateLimited
		default:
			if upstream.Message != "" {
				return OutcomeError, msgPrefixOther + upstream.Message
			}
			return OutcomeError, msgPrefixOther + upstream.Error()
		}
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout, msgTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled, msgCancelled
	default:
		return OutcomeError, msgPrefixOther + err.Error()
	}
}
