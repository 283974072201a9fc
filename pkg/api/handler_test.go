package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ant2api/panelkit/pkg/api"
	"github.com/ant2api/panelkit/pkg/panel"
	"github.com/ant2api/panelkit/storage/memory"
)

type stubClient struct {
	err error
}

func (c *stubClient) FetchQuota(_ context.Context, _ string) (*panel.QuotaPayload, error) {
	if c.err != nil {
		return nil, c.err
	}
	frac := 0.6
	return &panel.QuotaPayload{Models: map[string]panel.ModelQuota{
		"claude-sonnet-4-5": {RemainingFraction: &frac},
	}}, nil
}

type stubExchanger struct{ err error }

func (e *stubExchanger) Exchange(_ context.Context, code, _ string) (*panel.TokenSet, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &panel.TokenSet{AccessToken: "at-" + code, RefreshToken: "rt", ExpiresIn: 3600}, nil
}

type stubProjects struct{}

func (stubProjects) ResolveProjectID(context.Context, *panel.TokenSet) (string, error) {
	return "proj-1", nil
}

type fixture struct {
	handler  *api.Handler
	accounts *memory.Store
	sessions *panel.SessionManager
	settings *panel.SettingsStore
	client   *stubClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fx := &fixture{
		accounts: memory.New(),
		client:   &stubClient{},
	}
	fx.settings = panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)

	fetcher, err := panel.NewFetcher(panel.FetcherConfig{Client: fx.client})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	agg, err := panel.NewAggregator(panel.AggregatorConfig{Fetcher: fetcher, Accounts: fx.accounts})
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	fx.sessions, err = panel.NewSessionManager(panel.SessionManagerConfig{
		Exchanger: &stubExchanger{},
		Projects:  stubProjects{},
		Accounts:  fx.accounts,
		Settings:  fx.settings,
		ClientID:  "client-abc",
	})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	fx.handler, err = api.NewHandler(api.Config{
		Fetcher:    fetcher,
		Aggregator: agg,
		Accounts:   fx.accounts,
		Sessions:   fx.sessions,
		Settings:   fx.settings,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return fx
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestGetQuota(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quota?id=acct-1", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetQuota(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[api.QuotaResponse](t, rec)
	if res.AccountID != "acct-1" || res.Kind != panel.KindSuccess {
		t.Errorf("unexpected response: %+v", res)
	}
	if len(res.Groups) != 1 || res.Groups[0].Name != panel.GroupClaudeGPT {
		t.Errorf("groups = %+v", res.Groups)
	}
}

func TestGetQuotaMissingID(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetQuota(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetQuotaForceBypassesCache(t *testing.T) {
	fx := newFixture(t)

	for _, target := range []string{"/api/quota?id=acct-1", "/api/quota?id=acct-1&force=true"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		fx.handler.GetQuota(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d", target, rec.Code)
		}
		res := decode[api.QuotaResponse](t, rec)
		if res.Cached {
			t.Errorf("GET %s returned a cached result", target)
		}
	}
}

func TestRefreshAll(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_ = fx.accounts.Save(ctx, &panel.AccountSummary{ID: "on", Enabled: true})
	_ = fx.accounts.Save(ctx, &panel.AccountSummary{ID: "off", Enabled: false})

	req := httptest.NewRequest(http.MethodPost, "/api/quota/refresh", nil)
	rec := httptest.NewRecorder()
	fx.handler.RefreshAll(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[api.AggregateResponse](t, rec)
	if len(res.Results) != 1 {
		t.Fatalf("results = %+v, want only the enabled account", res.Results)
	}
	if _, ok := res.Results["on"]; !ok {
		t.Errorf("enabled account missing from results: %+v", res.Results)
	}
}

func TestListAccountsOmitsTokens(t *testing.T) {
	fx := newFixture(t)
	_ = fx.accounts.Save(context.Background(), &panel.AccountSummary{
		ID:           "acct-1",
		Email:        "dev@example.com",
		AccessToken:  "secret-at",
		RefreshToken: "secret-rt",
		Enabled:      true,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	fx.handler.ListAccounts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "secret-at") || strings.Contains(body, "secret-rt") {
		t.Errorf("token material leaked into the account listing: %s", body)
	}
	accounts := decode[[]api.AccountResponse](t, rec)
	if len(accounts) != 1 || accounts[0].Email != "dev@example.com" {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestSetAccountEnabled(t *testing.T) {
	fx := newFixture(t)
	_ = fx.accounts.Save(context.Background(), &panel.AccountSummary{ID: "acct-1", Enabled: true})

	body := strings.NewReader(`{"id":"acct-1","enabled":false}`)
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/enabled", body)
	rec := httptest.NewRecorder()
	fx.handler.SetAccountEnabled(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[api.AccountResponse](t, rec)
	if res.Enabled {
		t.Error("account still enabled in response")
	}
}

func TestSetAccountEnabledUnknown(t *testing.T) {
	fx := newFixture(t)

	body := strings.NewReader(`{"id":"missing","enabled":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/enabled", body)
	rec := httptest.NewRecorder()
	fx.handler.SetAccountEnabled(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	fx := newFixture(t)
	_ = fx.accounts.Save(context.Background(), &panel.AccountSummary{ID: "acct-1"})

	req := httptest.NewRequest(http.MethodDelete, "/api/accounts?id=acct-1", nil)
	rec := httptest.NewRecorder()
	fx.handler.DeleteAccount(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	fx.handler.DeleteAccount(rec, httptest.NewRequest(http.MethodDelete, "/api/accounts?id=acct-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestOAuthBeginAndComplete(t *testing.T) {
	fx := newFixture(t)

	rec := httptest.NewRecorder()
	fx.handler.OAuthBegin(rec, httptest.NewRequest(http.MethodPost, "/api/oauth/begin", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("begin status = %d", rec.Code)
	}
	begin := decode[api.OAuthBeginResponse](t, rec)
	if begin.URL == "" || begin.State == "" {
		t.Fatalf("begin response incomplete: %+v", begin)
	}

	callback := "/oauth-callback?code=abc&state=" + url.QueryEscape(begin.State)
	body, _ := json.Marshal(api.OAuthCompleteRequest{URL: callback})
	rec = httptest.NewRecorder()
	fx.handler.OAuthComplete(rec, httptest.NewRequest(http.MethodPost, "/api/oauth/complete", strings.NewReader(string(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body.String())
	}
	acct := decode[api.AccountResponse](t, rec)
	if acct.ID == "" || !acct.Enabled {
		t.Errorf("account response = %+v", acct)
	}
}

func TestOAuthCompleteStatuses(t *testing.T) {
	fx := newFixture(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"empty url", `{"url":""}`, http.StatusBadRequest},
		{"missing code", `{"url":"/oauth-callback?state=s"}`, http.StatusBadRequest},
		{"unknown state", `{"url":"/oauth-callback?code=c&state=never-issued"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/oauth/complete", strings.NewReader(tc.body))
			fx.handler.OAuthComplete(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestOAuthCompleteExchangeFailure(t *testing.T) {
	fx := newFixture(t)

	accounts := memory.New()
	settings := panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)
	sessions, err := panel.NewSessionManager(panel.SessionManagerConfig{
		Exchanger: &stubExchanger{err: context.DeadlineExceeded},
		Projects:  stubProjects{},
		Accounts:  accounts,
		Settings:  settings,
	})
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	fetcher, _ := panel.NewFetcher(panel.FetcherConfig{Client: fx.client})
	agg, _ := panel.NewAggregator(panel.AggregatorConfig{Fetcher: fetcher})
	handler, err := api.NewHandler(api.Config{
		Fetcher:    fetcher,
		Aggregator: agg,
		Accounts:   accounts,
		Sessions:   sessions,
		Settings:   settings,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.OAuthBegin(rec, httptest.NewRequest(http.MethodPost, "/api/oauth/begin", nil))
	begin := decode[api.OAuthBeginResponse](t, rec)

	callback := "/oauth-callback?code=abc&state=" + url.QueryEscape(begin.State)
	body, _ := json.Marshal(api.OAuthCompleteRequest{URL: callback})
	rec = httptest.NewRecorder()
	handler.OAuthComplete(rec, httptest.NewRequest(http.MethodPost, "/api/oauth/complete", strings.NewReader(string(body))))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestGetAndSaveSettings(t *testing.T) {
	fx := newFixture(t)

	rec := httptest.NewRecorder()
	fx.handler.GetSettings(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	current := decode[api.SettingsPayload](t, rec)
	if current.Password != "hunter2" {
		t.Errorf("password = %q", current.Password)
	}

	current.Password = "new-secret"
	current.LogLevel = "debug"
	body, _ := json.Marshal(current)
	rec = httptest.NewRecorder()
	fx.handler.SaveSettings(rec, httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(string(body))))
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := fx.settings.Get()
	if got.Password != "new-secret" || got.LogLevel != panel.LogLevelDebug {
		t.Errorf("settings not applied: %+v", got)
	}
}

func TestSaveSettingsValidation(t *testing.T) {
	fx := newFixture(t)

	body := strings.NewReader(`{"password":"","logLevel":"info"}`)
	rec := httptest.NewRecorder()
	fx.handler.SaveSettings(rec, httptest.NewRequest(http.MethodPost, "/api/settings", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := fx.settings.Get(); got.Password != "hunter2" {
		t.Errorf("failed save changed the snapshot: %+v", got)
	}
}
