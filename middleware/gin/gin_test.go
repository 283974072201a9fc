package gin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	gongin "github.com/gin-gonic/gin"

	"github.com/ant2api/panelkit/pkg/panel"
)

func setupRouter(settings *panel.SettingsStore, cfg Config) *gongin.Engine {
	gongin.SetMode(gongin.TestMode)
	cfg.Settings = settings
	r := gongin.New()
	r.GET("/api/quota", Middleware(cfg), func(c *gongin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestMiddlewareAllowsCorrectPassword(t *testing.T) {
	settings := panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)
	r := setupRouter(settings, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	req.Header.Set("X-Panel-Password", "hunter2")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareRejectsWrongPassword(t *testing.T) {
	settings := panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)
	r := setupRouter(settings, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	req.Header.Set("X-Panel-Password", "nope")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewarePasswordRotation(t *testing.T) {
	settings := panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)
	r := setupRouter(settings, Config{})

	check := func(pw string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
		req.Header.Set("X-Panel-Password", pw)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := check("hunter2"); code != http.StatusOK {
		t.Fatalf("initial password rejected: %d", code)
	}

	next := settings.Get()
	next.Password = "rotated"
	if err := settings.Replace(next); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if code := check("hunter2"); code != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", code)
	}
	if code := check("rotated"); code != http.StatusOK {
		t.Errorf("new password rejected: %d", code)
	}
}

func TestMiddlewareQueryExtractor(t *testing.T) {
	settings := panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)
	r := setupRouter(settings, Config{GetPassword: FromQuery("key")})

	req := httptest.NewRequest(http.MethodGet, "/api/quota?key=hunter2", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareCustomUnauthorizedHook(t *testing.T) {
	settings := panel.NewSettingsStore(panel.Settings{Password: "hunter2"}, nil)
	r := setupRouter(settings, Config{
		OnUnauthorized: func(c *gongin.Context) {
			c.JSON(http.StatusTeapot, gongin.H{"error": "custom"})
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want custom handler status", rec.Code)
	}
}

func TestMiddlewarePanicsWithoutSettings(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when Settings is nil")
		}
	}()
	Middleware(Config{})
}
