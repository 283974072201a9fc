package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ant2api/panelkit/pkg/panel"
)

// setupTestRedis creates a Redis client for testing
// Requires Redis running on localhost:6379
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use DB 15 for testing
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		client  redis.UniversalClient
		config  Config
		wantErr bool
	}{
		{
			name:    "nil client",
			client:  nil,
			config:  DefaultConfig(),
			wantErr: true,
		},
		{
			name:    "valid client",
			client:  redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "empty prefix gets default",
			client:  redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
			config:  Config{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(tt.client, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "panelkit:", store.config.KeyPrefix)
		})
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Get(ctx, "acct-1")
	assert.ErrorIs(t, err, panel.ErrAccountNotFound)

	acct := &panel.AccountSummary{
		ID:           "acct-1",
		Email:        "dev@example.com",
		ProjectID:    "proj-1",
		AccessToken:  "at",
		RefreshToken: "rt",
		Enabled:      true,
	}
	require.NoError(t, store.Save(ctx, acct))

	got, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, acct.Email, got.Email)
	assert.Equal(t, acct.ProjectID, got.ProjectID)
	assert.True(t, got.Enabled)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_SaveInvalid(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, store.Save(ctx, nil))
	assert.Error(t, store.Save(ctx, &panel.AccountSummary{ID: "   "}))
}

func TestStore_List(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "b", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "a", CreatedAt: base}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestStore_ListPrunesStaleIndexEntries(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "kept"}))
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "orphan"}))

	// Simulate the account key expiring out from under the index.
	require.NoError(t, client.Del(ctx, store.accountKey("orphan")).Err())

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].ID)

	members, err := client.SMembers(ctx, store.indexKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, members)
}

func TestStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "acct-1"}))

	removed, err := store.Delete(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.Get(ctx, "acct-1")
	assert.ErrorIs(t, err, panel.ErrAccountNotFound)
}

func TestStore_SetEnabled(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "acct-1", Enabled: true}))

	updated, err := store.SetEnabled(ctx, "acct-1", false)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)

	got, err := store.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	_, err = store.SetEnabled(ctx, "missing", true)
	assert.ErrorIs(t, err, panel.ErrAccountNotFound)
}

func TestStore_AccountTTL(t *testing.T) {
	client := setupTestRedis(t)
	store, err := New(client, Config{AccountTTL: time.Hour})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &panel.AccountSummary{ID: "acct-1"}))

	ttl, err := client.TTL(ctx, store.accountKey("acct-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
