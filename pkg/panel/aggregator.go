package panel

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Aggregator fans one Fetcher call out per account for "refresh all" style
// operations. Warm cache entries return instantly and never consume a gate
// slot, so total time is bounded by the slowest cold fetch.
type Aggregator struct {
	fetcher  *Fetcher
	accounts AccountStore
	logger   Logger
}

// AggregatorConfig holds Aggregator configuration
type AggregatorConfig struct {
	// Fetcher issues the per-account fetches (required)
	Fetcher *Fetcher

	// Accounts is used by FetchEnabled to enumerate accounts (optional)
	Accounts AccountStore

	// Logger is optional (default: NoopLogger)
	Logger Logger
}

// NewAggregator creates an aggregator with the given configuration
func NewAggregator(config AggregatorConfig) (*Aggregator, error) {
	if config.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if config.Logger == nil {
		config.Logger = &NoopLogger{}
	}
	return &Aggregator{
		fetcher:  config.Fetcher,
		accounts: config.Accounts,
		logger:   config.Logger,
	}, nil
}

// FetchAll fetches quota for every listed account concurrently and returns
// the results keyed by account id. Duplicate and blank ids are skipped.
func (a *Aggregator) FetchAll(ctx context.Context, accountIDs []string) map[string]*QuotaResult {
	seen := make(map[string]struct{}, len(accountIDs))
	ids := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	results := make(map[string]*QuotaResult, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := a.fetcher.Fetch(ctx, id)
			if err != nil {
				res = &QuotaResult{
					AccountID: id,
					Kind:      KindError,
					Message:   msgPrefixOther + err.Error(),
				}
			}
			mu.Lock()
			results[id] = res
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return results
}

// FetchEnabled fetches quota for every enabled account in the store
func (a *Aggregator) FetchEnabled(ctx context.Context) (map[string]*QuotaResult, error) {
	if a.accounts == nil {
		return nil, fmt.Errorf("account store is not configured")
	}
	accounts, err := a.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	ids := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		if acct.Enabled {
			ids = append(ids, acct.ID)
		}
	}
	a.logger.Debug("refreshing quota for enabled accounts",
		Field{Key: "count", Value: len(ids)})
	return a.FetchAll(ctx, ids), nil
}
