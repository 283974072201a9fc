// Package api exposes the panel's backend operations as net/http handlers
// returning JSON values. Routing, authentication and page rendering stay with
// the host application; see middleware/http and middleware/gin for the
// password check.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ant2api/panelkit/pkg/panel"
)

// Handler provides HTTP endpoints over the panel core
type Handler struct {
	config Config
}

// GetQuota serves quota for one account: GET ?id=...&force=true|false
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var (
		res *panel.QuotaResult
		err error
	)
	if force {
		res, err = h.config.Fetcher.Refresh(r.Context(), id)
	} else {
		res, err = h.config.Fetcher.Fetch(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toQuotaResponse(res))
}

// RefreshAll fetches quota for every enabled account
func (h *Handler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.config.Aggregator.FetchEnabled(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := AggregateResponse{Results: make(map[string]QuotaResponse, len(results))}
	for id, res := range results {
		out.Results[id] = toQuotaResponse(res)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ListAccounts returns all stored accounts without token material
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.config.Accounts.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]AccountResponse, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, toAccountResponse(&acct))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// SetAccountEnabled flips an account's enabled flag: POST {"id":..., "enabled":...}
func (h *Handler) SetAccountEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, StatusResponse{Error: "invalid request body"})
		return
	}
	acct, err := h.config.Accounts.SetEnabled(r.Context(), req.ID, req.Enabled)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !req.Enabled {
		// A disabled account's quota is no longer interesting; drop it so a
		// re-enable fetches fresh data.
		h.config.Fetcher.Invalidate(req.ID)
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

// DeleteAccount removes an account: POST/DELETE ?id=...
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	existed, err := h.config.Accounts.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !existed {
		h.writeJSON(w, http.StatusNotFound, StatusResponse{Error: "account not found"})
		return
	}
	h.config.Fetcher.Invalidate(id)
	h.writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// OAuthBegin issues an authorization URL with a fresh state
func (h *Handler) OAuthBegin(w http.ResponseWriter, r *http.Request) {
	url, state, err := h.config.Sessions.Begin()
	if err != nil {
		h.config.Logger.Error("issuing authorization url failed",
			panel.Field{Key: "error", Value: err.Error()})
		h.writeJSON(w, http.StatusInternalServerError, OAuthBeginResponse{Error: "failed to build authorization url"})
		return
	}
	h.writeJSON(w, http.StatusOK, OAuthBeginResponse{URL: url, State: state})
}

// OAuthComplete turns a pasted callback URL into a stored account
func (h *Handler) OAuthComplete(w http.ResponseWriter, r *http.Request) {
	var req OAuthCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, StatusResponse{Error: "invalid request body"})
		return
	}
	acct, err := h.config.Sessions.Complete(r.Context(), req.URL, panel.CompleteOptions{
		ProjectID: req.ProjectID,
	})
	if err != nil {
		h.writeJSON(w, oauthStatus(err), StatusResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

// GetSettings returns the current runtime settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s := h.config.Settings.Get()
	h.writeJSON(w, http.StatusOK, SettingsPayload{
		Password:             s.Password,
		UserAgent:            s.UserAgent,
		MediaResolution:      string(s.MediaResolution),
		LogLevel:             string(s.LogLevel),
		APIKey:               s.APIKey,
		AllowRandomProjectID: s.AllowRandomProjectID,
	})
}

// SaveSettings validates and applies new runtime settings; they take effect
// immediately for all requests
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, StatusResponse{Error: "invalid request body"})
		return
	}
	err := h.config.Settings.Replace(panel.Settings{
		Password:             req.Password,
		UserAgent:            req.UserAgent,
		MediaResolution:      panel.MediaResolution(req.MediaResolution),
		LogLevel:             panel.LogLevel(req.LogLevel),
		APIKey:               req.APIKey,
		AllowRandomProjectID: req.AllowRandomProjectID,
	})
	if err != nil {
		var verr *panel.ValidationError
		status := http.StatusInternalServerError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		}
		h.writeJSON(w, status, StatusResponse{Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.config.Logger.Error("encoding response failed",
			panel.Field{Key: "error", Value: err.Error()})
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, panel.ErrInvalidAccountID):
		status = http.StatusBadRequest
	case errors.Is(err, panel.ErrAccountNotFound):
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, StatusResponse{Error: err.Error()})
}

// oauthStatus maps session errors to HTTP statuses. All of them are normal
// operator-facing outcomes, not server faults.
func oauthStatus(err error) int {
	switch {
	case errors.Is(err, panel.ErrEmptyInput),
		errors.Is(err, panel.ErrMissingCode),
		errors.Is(err, panel.ErrMissingState):
		return http.StatusBadRequest
	case errors.Is(err, panel.ErrStateInvalid):
		return http.StatusConflict
	case errors.Is(err, panel.ErrExchangeFailed),
		errors.Is(err, panel.ErrProjectIDUnresolvable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toQuotaResponse(res *panel.QuotaResult) QuotaResponse {
	out := QuotaResponse{
		AccountID: res.AccountID,
		Kind:      res.Kind,
		Message:   res.Message,
		Cached:    res.Cached,
	}
	if !res.FetchedAt.IsZero() {
		out.FetchedAt = res.FetchedAt.UTC().Format(time.RFC3339)
	}
	if res.Quota != nil {
		out.Groups = res.Quota.Groups
	}
	return out
}

func toAccountResponse(acct *panel.AccountSummary) AccountResponse {
	return AccountResponse{
		ID:        acct.ID,
		Email:     acct.Email,
		ProjectID: acct.ProjectID,
		Enabled:   acct.Enabled,
		CreatedAt: acct.CreatedAt.UTC().Format(time.RFC3339),
	}
}
