package panel

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStateTTL is how long an issued OAuth state stays valid
const DefaultStateTTL = 10 * time.Minute

type stateEntry struct {
	redirectURI string
	expiresAt   time.Time
}

// StateStore issues and consumes single-use, time-boxed OAuth state tokens.
// Consuming a token removes it atomically: under concurrent attempts exactly
// one succeeds. Expired tokens behave as absent whether or not they have been
// swept.
type StateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
	ttl    time.Duration
	clock  TimeSource
}

// StateStoreConfig holds StateStore configuration
type StateStoreConfig struct {
	// TTL is the state lifetime (default: 10m)
	TTL time.Duration

	// Clock is the time source (default: SystemClock)
	Clock TimeSource
}

// NewStateStore creates a state store with the given configuration
func NewStateStore(config StateStoreConfig) *StateStore {
	if config.TTL <= 0 {
		config.TTL = DefaultStateTTL
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	return &StateStore{
		states: make(map[string]stateEntry),
		ttl:    config.TTL,
		clock:  config.Clock,
	}
}

// Issue generates a fresh random state token bound to redirectURI and stores
// it with the configured expiry. Expired entries are swept opportunistically.
func (s *StateStore) Issue(redirectURI string) string {
	token := newStateToken()
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.states[token] = stateEntry{
		redirectURI: redirectURI,
		expiresAt:   now.Add(s.ttl),
	}
	return token
}

// Consume validates and removes the state in one step, returning the bound
// redirect URI. A second call with the same token fails as if the token never
// existed.
func (s *StateStore) Consume(token string) (redirectURI string, ok bool) {
	if token == "" {
		return "", false
	}
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	entry, found := s.states[token]
	if !found {
		return "", false
	}
	delete(s.states, token)
	if !now.Before(entry.expiresAt) {
		return "", false
	}
	return entry.redirectURI, true
}

// Len returns the number of stored states, expired or not
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *StateStore) sweepLocked(now time.Time) {
	for token, entry := range s.states {
		if !now.Before(entry.expiresAt) {
			delete(s.states, token)
		}
	}
}

// newStateToken returns 32 random bytes as unpadded base64url. Two UUIDs
// supply the randomness so no extra dependency is needed.
func newStateToken() string {
	var buf [32]byte
	a := uuid.New()
	b := uuid.New()
	copy(buf[:16], a[:])
	copy(buf[16:], b[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}
