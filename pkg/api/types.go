package api

import "github.com/ant2api/panelkit/pkg/panel"

// QuotaResponse is the wire form of a single account's quota result
type QuotaResponse struct {
	AccountID string             `json:"accountId"`
	Kind      panel.ResultKind   `json:"kind"`
	Groups    []panel.QuotaGroup `json:"groups,omitempty"`
	Message   string             `json:"message,omitempty"`
	Cached    bool               `json:"cached"`
	FetchedAt string             `json:"fetchedAt,omitempty"`
}

// AggregateResponse maps account id to its quota result
type AggregateResponse struct {
	Results map[string]QuotaResponse `json:"results"`
}

// AccountResponse is the wire form of a stored account. Token material is
// never exposed to the browser.
type AccountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"createdAt"`
}

// OAuthBeginResponse carries the freshly issued authorization URL
type OAuthBeginResponse struct {
	URL   string `json:"url,omitempty"`
	State string `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

// OAuthCompleteRequest is the operator-pasted callback plus optional overrides
type OAuthCompleteRequest struct {
	URL       string `json:"url"`
	ProjectID string `json:"customProjectId,omitempty"`
}

// SettingsPayload is the editable subset of runtime settings
type SettingsPayload struct {
	Password             string `json:"password"`
	UserAgent            string `json:"userAgent"`
	MediaResolution      string `json:"mediaResolution"`
	LogLevel             string `json:"logLevel"`
	APIKey               string `json:"apiKey"`
	AllowRandomProjectID bool   `json:"allowRandomProjectId"`
}

// StatusResponse is the generic success/error envelope
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
