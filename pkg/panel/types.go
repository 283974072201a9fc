package panel

import (
	"context"
	"fmt"
	"time"
)

// ResultKind classifies the outcome of a quota fetch
type ResultKind string

const (
	// KindSuccess indicates the fetch returned usable quota data
	KindSuccess ResultKind = "success"
	// KindError indicates the fetch failed; Message carries the operator-facing text
	KindError ResultKind = "error"
)

// ModelQuota holds the quota fields reported by the upstream for a single model
type ModelQuota struct {
	// RemainingFraction is the remaining quota in [0, 1], nil if the upstream omitted it
	RemainingFraction *float64

	// ResetTime is the upstream-reported reset timestamp, empty if not reported
	ResetTime string
}

// QuotaPayload is the raw per-model quota data returned by the upstream client
type QuotaPayload struct {
	// Models maps model name to its reported quota
	Models map[string]ModelQuota
}

// QuotaGroup is a display bucket of models sharing a quota pool
type QuotaGroup struct {
	Name              string   `json:"groupName"`
	RemainingFraction *float64 `json:"remainingFraction,omitempty"`
	ResetTime         string   `json:"resetTime,omitempty"`
	Models            []string `json:"modelList,omitempty"`
}

// AccountQuota is the grouped quota state of a single account
type AccountQuota struct {
	AccountID string       `json:"accountId"`
	Groups    []QuotaGroup `json:"groups"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// QuotaResult is the classified outcome of one logical quota fetch.
// Exactly one of Quota (KindSuccess) or Message (KindError) is meaningful.
type QuotaResult struct {
	AccountID string        `json:"accountId"`
	Kind      ResultKind    `json:"kind"`
	Quota     *AccountQuota `json:"quota,omitempty"`
	Message   string        `json:"message,omitempty"`
	Cached    bool          `json:"cached"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// Clone returns a deep copy so cached results cannot be mutated by callers
func (r *QuotaResult) Clone() *QuotaResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Quota != nil {
		q := *r.Quota
		q.Groups = make([]QuotaGroup, len(r.Quota.Groups))
		for i, g := range r.Quota.Groups {
			q.Groups[i] = g
			if g.RemainingFraction != nil {
				f := *g.RemainingFraction
				q.Groups[i].RemainingFraction = &f
			}
			q.Groups[i].Models = append([]string(nil), g.Models...)
		}
		out.Quota = &q
	}
	return &out
}

// AccountSummary is a stored upstream credential the gateway can use
type AccountSummary struct {
	ID           string    `json:"id"`
	Email        string    `json:"email,omitempty"`
	ProjectID    string    `json:"projectId,omitempty"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TokenSet is the credential material returned by a token exchange
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
	Scope        string
}

// QuotaClient fetches usage/quota data for one account from the upstream vendor.
// Implementations must honor ctx cancellation and deadlines.
type QuotaClient interface {
	FetchQuota(ctx context.Context, accountID string) (*QuotaPayload, error)
}

// TokenExchanger swaps an authorization code for credentials
type TokenExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (*TokenSet, error)
}

// ProjectResolver discovers the project identifier bound to a token set.
// Returns ErrProjectNotFound when no project can be determined.
type ProjectResolver interface {
	ResolveProjectID(ctx context.Context, tokens *TokenSet) (string, error)
}

// EmailLookup resolves the account email for a token set. Optional collaborator;
// failures are logged, not surfaced.
type EmailLookup interface {
	Email(ctx context.Context, tokens *TokenSet) (string, error)
}

// AccountStore persists account credentials. The on-disk format is the
// implementation's concern; panelkit ships memory and redis adapters.
type AccountStore interface {
	// Save inserts or replaces an account by ID
	Save(ctx context.Context, account *AccountSummary) error

	// Get returns the account or ErrAccountNotFound
	Get(ctx context.Context, id string) (*AccountSummary, error)

	// List returns all accounts ordered by creation time
	List(ctx context.Context) ([]AccountSummary, error)

	// Delete removes an account, reporting whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// SetEnabled flips the enabled flag and returns the updated account,
	// or ErrAccountNotFound
	SetEnabled(ctx context.Context, id string, enabled bool) (*AccountSummary, error)
}

// SettingsEditor persists runtime settings as key/value text.
// panelkit ships a .env implementation in settings/dotenv.
type SettingsEditor interface {
	WriteOrUpdate(key, value string) error
	ReadAll() (map[string]string, error)
}

// TimeSource abstracts the clock so TTL and expiry behavior is testable
// without sleeping.
type TimeSource interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a TimeSource backed by time.Now
func SystemClock() TimeSource { return systemClock{} }

// UpstreamError is an HTTP-status-bearing failure from the upstream vendor
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("upstream error (HTTP %d): %s", e.StatusCode, e.Message)
}
