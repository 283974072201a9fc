// Package redis provides a Redis implementation of the panel.AccountStore
// interface, for deployments where the panel runs on more than one node.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ant2api/panelkit/pkg/panel"
)

// Store implements panel.AccountStore using Redis
type Store struct {
	client redis.UniversalClient
	config Config
}

// Config holds Redis store configuration
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "panelkit:")
	KeyPrefix string

	// AccountTTL is the TTL for account keys (0 = no expiration)
	AccountTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "panelkit:",
		AccountTTL: 0,
	}
}

// New creates a new Redis account store
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "panelkit:"
	}
	return &Store{client: client, config: config}, nil
}

func (s *Store) accountKey(id string) string {
	return s.config.KeyPrefix + "account:" + id
}

func (s *Store) indexKey() string {
	return s.config.KeyPrefix + "accounts"
}

// Save implements panel.AccountStore
func (s *Store) Save(ctx context.Context, account *panel.AccountSummary) error {
	if account == nil || strings.TrimSpace(account.ID) == "" {
		return fmt.Errorf("invalid account")
	}
	acct := *account
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	acct.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.accountKey(acct.ID), data, s.config.AccountTTL)
	pipe.SAdd(ctx, s.indexKey(), acct.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// Get implements panel.AccountStore
func (s *Store) Get(ctx context.Context, id string) (*panel.AccountSummary, error) {
	data, err := s.client.Get(ctx, s.accountKey(id)).Bytes()
	if err == redis.Nil {
		return nil, panel.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	var acct panel.AccountSummary
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &acct, nil
}

// List implements panel.AccountStore, ordered by creation time then id
func (s *Store) List(ctx context.Context) ([]panel.AccountSummary, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	out := make([]panel.AccountSummary, 0, len(ids))
	for _, id := range ids {
		acct, err := s.Get(ctx, id)
		if err == panel.ErrAccountNotFound {
			// Index entry outlived its account key (e.g. TTL expiry); drop it.
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *acct)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete implements panel.AccountStore
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.accountKey(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	return del.Val() > 0, nil
}

// SetEnabled implements panel.AccountStore using an optimistic transaction so
// concurrent updates to the same account never interleave.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) (*panel.AccountSummary, error) {
	key := s.accountKey(id)
	var updated panel.AccountSummary

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return panel.ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		var acct panel.AccountSummary
		if err := json.Unmarshal(data, &acct); err != nil {
			return fmt.Errorf("unmarshal account: %w", err)
		}
		acct.Enabled = enabled
		acct.UpdatedAt = time.Now().UTC()
		next, err := json.Marshal(&acct)
		if err != nil {
			return fmt.Errorf("marshal account: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.config.AccountTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = acct
		return nil
	}

	// Retry a few times on WATCH conflicts.
	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return &updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("set enabled: too many conflicts")
}
