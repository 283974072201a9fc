package panel

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DefaultAuthEndpoint is the authorization endpoint embedded in Begin URLs
const DefaultAuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"

// OAuthScopes are requested on every authorization
var OAuthScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// SessionManagerConfig holds SessionManager configuration
type SessionManagerConfig struct {
	// States issues and consumes single-use state tokens (default: new store)
	States *StateStore

	// Exchanger swaps authorization codes for credentials (required)
	Exchanger TokenExchanger

	// Projects resolves the project id for new credentials (required)
	Projects ProjectResolver

	// Emails resolves the account email, best effort (optional)
	Emails EmailLookup

	// Accounts persists onboarded accounts (required)
	Accounts AccountStore

	// Settings supplies the redirect port and project-id policy, read live
	// (required)
	Settings *SettingsStore

	// ClientID is the OAuth client identifier placed in authorization URLs
	ClientID string

	// AuthEndpoint overrides the authorization endpoint (default: Google)
	AuthEndpoint string

	// Logger is optional (default: NoopLogger)
	Logger Logger

	// Clock is the time source (default: SystemClock)
	Clock TimeSource
}

// Validate checks that the configuration is complete
func (c *SessionManagerConfig) Validate() error {
	if c.Exchanger == nil {
		return fmt.Errorf("token exchanger is required")
	}
	if c.Projects == nil {
		return fmt.Errorf("project resolver is required")
	}
	if c.Accounts == nil {
		return fmt.Errorf("account store is required")
	}
	if c.Settings == nil {
		return fmt.Errorf("settings store is required")
	}
	return nil
}

// SessionManager drives OAuth onboarding: Begin issues an authorization URL
// bound to a single-use state, Complete turns the pasted callback into a
// persisted account.
type SessionManager struct {
	states       *StateStore
	exchanger    TokenExchanger
	projects     ProjectResolver
	emails       EmailLookup
	accounts     AccountStore
	settings     *SettingsStore
	clientID     string
	authEndpoint string
	logger       Logger
	clock        TimeSource
}

// NewSessionManager creates a session manager with the given configuration
func NewSessionManager(config SessionManagerConfig) (*SessionManager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.States == nil {
		config.States = NewStateStore(StateStoreConfig{Clock: config.Clock})
	}
	if config.AuthEndpoint == "" {
		config.AuthEndpoint = DefaultAuthEndpoint
	}
	if config.Logger == nil {
		config.Logger = &NoopLogger{}
	}
	if config.Clock == nil {
		config.Clock = SystemClock()
	}
	return &SessionManager{
		states:       config.States,
		exchanger:    config.Exchanger,
		projects:     config.Projects,
		emails:       config.Emails,
		accounts:     config.Accounts,
		settings:     config.Settings,
		clientID:     config.ClientID,
		authEndpoint: config.AuthEndpoint,
		logger:       config.Logger,
		clock:        config.Clock,
	}, nil
}

// Begin issues a fresh state and returns the authorization URL embedding it
// together with the local redirect target.
func (m *SessionManager) Begin() (authURL, state string, err error) {
	redirectURI := m.redirectURI()
	state = m.states.Issue(redirectURI)

	query := url.Values{}
	query.Set("access_type", "offline")
	query.Set("client_id", m.clientID)
	query.Set("prompt", "consent")
	query.Set("redirect_uri", redirectURI)
	query.Set("response_type", "code")
	query.Set("scope", strings.Join(OAuthScopes, " "))
	query.Set("state", state)

	u, err := url.Parse(m.authEndpoint)
	if err != nil {
		return "", "", fmt.Errorf("parse auth endpoint: %w", err)
	}
	u.RawQuery = query.Encode()
	return u.String(), state, nil
}

// CompleteOptions adjusts a single Complete call
type CompleteOptions struct {
	// ProjectID skips automatic resolution when set
	ProjectID string
}

// Complete parses the pasted callback, consumes the state, exchanges the code
// and persists the resulting account. The project-id fallback policy is read
// live from the settings store.
func (m *SessionManager) Complete(ctx context.Context, rawCallback string, opts CompleteOptions) (*AccountSummary, error) {
	code, state, err := ParseCallback(rawCallback)
	if err != nil {
		return nil, err
	}

	redirectURI, ok := m.states.Consume(state)
	if !ok {
		return nil, ErrStateInvalid
	}

	tokens, err := m.exchanger.Exchange(ctx, code, redirectURI)
	if err != nil {
		m.logger.Warn("token exchange failed", Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	email := m.lookupEmail(ctx, tokens)
	projectID, err := m.resolveProjectID(ctx, tokens, opts.ProjectID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	account := &AccountSummary{
		ID:           newAccountID(),
		Email:        email,
		ProjectID:    projectID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.accounts.Save(ctx, account); err != nil {
		m.logger.Error("saving onboarded account failed",
			Field{Key: "email", Value: email},
			Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	m.logger.Info("account onboarded",
		Field{Key: "account_id", Value: account.ID},
		Field{Key: "email", Value: email})
	return account, nil
}

func (m *SessionManager) redirectURI() string {
	return fmt.Sprintf("http://localhost:%d/oauth-callback", m.settings.Get().Port)
}

func (m *SessionManager) lookupEmail(ctx context.Context, tokens *TokenSet) string {
	if m.emails == nil {
		return ""
	}
	email, err := m.emails.Email(ctx, tokens)
	if err != nil {
		m.logger.Warn("email lookup failed", Field{Key: "error", Value: err.Error()})
		return ""
	}
	return strings.TrimSpace(email)
}

func (m *SessionManager) resolveProjectID(ctx context.Context, tokens *TokenSet, override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}
	projectID, err := m.projects.ResolveProjectID(ctx, tokens)
	if err == nil {
		if projectID = strings.TrimSpace(projectID); projectID != "" {
			return projectID, nil
		}
	} else {
		m.logger.Warn("project id resolution failed", Field{Key: "error", Value: err.Error()})
	}

	// Policy check, read live so a settings change applies immediately.
	if !m.settings.Get().AllowRandomProjectID {
		return "", ErrProjectIDUnresolvable
	}
	projectID = randomProjectID()
	m.logger.Info("using generated project id", Field{Key: "project_id", Value: projectID})
	return projectID, nil
}

func newAccountID() string {
	return uuid.NewString()
}

// randomProjectID builds an adjective-noun-suffix identifier in the style the
// vendor console generates.
func randomProjectID() string {
	adjectives := []string{
		"useful", "bright", "swift", "calm", "bold",
		"happy", "clever", "gentle", "quick", "brave",
	}
	nouns := []string{
		"fuze", "wave", "spark", "flow", "core",
		"beam", "star", "wind", "leaf", "cloud",
	}
	id := uuid.New()
	adj := adjectives[int(id[0])%len(adjectives)]
	noun := nouns[int(id[1])%len(nouns)]
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = charset[int(id[2+i])%len(charset)]
	}
	return fmt.Sprintf("%s-%s-%s", adj, noun, suffix)
}
