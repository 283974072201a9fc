// Package memory provides an in-memory implementation of the panel.AccountStore
// interface. This implementation is primarily intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ant2api/panelkit/pkg/panel"
)

// Store implements panel.AccountStore using an in-memory map
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*panel.AccountSummary
}

// New creates a new in-memory account store
func New() *Store {
	return &Store{
		accounts: make(map[string]*panel.AccountSummary),
	}
}

// Save implements panel.AccountStore
func (s *Store) Save(ctx context.Context, account *panel.AccountSummary) error {
	if account == nil || strings.TrimSpace(account.ID) == "" {
		return fmt.Errorf("invalid account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutations
	acctCopy := *account
	if acctCopy.CreatedAt.IsZero() {
		acctCopy.CreatedAt = time.Now().UTC()
	}
	acctCopy.UpdatedAt = time.Now().UTC()
	s.accounts[account.ID] = &acctCopy
	return nil
}

// Get implements panel.AccountStore
func (s *Store) Get(ctx context.Context, id string) (*panel.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, panel.ErrAccountNotFound
	}
	acctCopy := *acct
	return &acctCopy, nil
}

// List implements panel.AccountStore, ordered by creation time then id
func (s *Store) List(ctx context.Context) ([]panel.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]panel.AccountSummary, 0, len(s.accounts))
	for _, acct := range s.accounts {
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
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	return true, nil
}

// SetEnabled implements panel.AccountStore
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) (*panel.AccountSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, panel.ErrAccountNotFound
	}
	acct.Enabled = enabled
	acct.UpdatedAt = time.Now().UTC()
	acctCopy := *acct
	return &acctCopy, nil
}
