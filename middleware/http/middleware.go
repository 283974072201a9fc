// Package http provides HTTP middleware guarding panel endpoints with the
// login password from the runtime settings store. The snapshot is read on
// every request, so a password change applies to the very next
// authentication check.
package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/ant2api/panelkit/pkg/panel"
)

// PasswordExtractor extracts the presented password from an HTTP request.
// Return empty string if no credential is present.
type PasswordExtractor func(r *http.Request) string

// Config holds middleware configuration
type Config struct {
	// Settings is the runtime settings store (required)
	Settings *panel.SettingsStore

	// GetPassword extracts the presented password (default: the
	// X-Panel-Password header)
	GetPassword PasswordExtractor

	// OnUnauthorized is called when the password is missing or wrong
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(w http.ResponseWriter, r *http.Request)
}

// FromHeader returns a PasswordExtractor reading the given header
func FromHeader(headerName string) PasswordExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// FromCookie returns a PasswordExtractor reading the given cookie
func FromCookie(cookieName string) PasswordExtractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(cookieName)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// Middleware creates an HTTP middleware that rejects requests whose password
// does not match the current settings snapshot
func Middleware(config Config) func(http.Handler) http.Handler {
	if config.GetPassword == nil {
		config.GetPassword = FromHeader("X-Panel-Password")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := config.GetPassword(r)
			expected := config.Settings.Get().Password
			if presented == "" || expected == "" ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				if config.OnUnauthorized != nil {
					config.OnUnauthorized(w, r)
				} else {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
