// Package gin provides Gin middleware guarding panel endpoints with the
// login password from the runtime settings store
package gin

import (
	"crypto/subtle"
	"net/http"

	gongin "github.com/gin-gonic/gin"

	"github.com/ant2api/panelkit/pkg/panel"
)

// PasswordExtractor extracts the presented password from a Gin context
// Return empty string if no credential is present
type PasswordExtractor func(c *gongin.Context) string

// Config holds middleware configuration
type Config struct {
	// Settings is the runtime settings store (required)
	Settings *panel.SettingsStore

	// GetPassword extracts the presented password (optional)
	// If nil, defaults to extracting from the X-Panel-Password header
	GetPassword PasswordExtractor

	// OnUnauthorized is called when the password is missing or wrong
	// If nil, returns 401 JSON
	OnUnauthorized func(c *gongin.Context)
}

// Middleware creates a Gin middleware that rejects requests whose password
// does not match the current settings snapshot. The snapshot is re-read on
// every request, so a password change applies immediately.
func Middleware(cfg Config) gongin.HandlerFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Settings == nil {
		panic("panelkit/gin: Config.Settings is required")
	}

	if cfg.GetPassword == nil {
		cfg.GetPassword = FromHeader("X-Panel-Password")
	}

	return func(c *gongin.Context) {
		presented := cfg.GetPassword(c)
		expected := cfg.Settings.Get().Password
		if presented == "" || expected == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			if cfg.OnUnauthorized != nil {
				cfg.OnUnauthorized(c)
			} else {
				defaultUnauthorized(c)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

func defaultUnauthorized(c *gongin.Context) {
	c.JSON(http.StatusUnauthorized, gongin.H{"error": "Unauthorized"})
}

// Convenience extractors

// FromHeader returns a PasswordExtractor that reads the given header
func FromHeader(headerName string) PasswordExtractor {
	return func(c *gongin.Context) string {
		return c.GetHeader(headerName)
	}
}

// FromCookie returns a PasswordExtractor that reads the given cookie
func FromCookie(cookieName string) PasswordExtractor {
	return func(c *gongin.Context) string {
		v, err := c.Cookie(cookieName)
		if err != nil {
			return ""
		}
		return v
	}
}

// FromQuery returns a PasswordExtractor that reads a query parameter
func FromQuery(queryName string) PasswordExtractor {
	return func(c *gongin.Context) string {
		return c.Query(queryName)
	}
}
