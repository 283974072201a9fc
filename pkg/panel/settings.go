package panel

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// MediaResolution is the default media resolution for outbound requests
type MediaResolution string

const (
	// MediaResolutionUnset leaves the resolution to the upstream default
	MediaResolutionUnset  MediaResolution = ""
	MediaResolutionLow    MediaResolution = "low"
	MediaResolutionMedium MediaResolution = "medium"
	MediaResolutionHigh   MediaResolution = "high"
)

// LogLevel is the panel log verbosity
type LogLevel string

const (
	LogLevelOff   LogLevel = "off"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

// DefaultPort is the local port embedded in the OAuth redirect target
const DefaultPort = 8045

// Keys used by the settings persistence editor.
const (
	KeyPassword             = "PANEL_PASSWORD"
	KeyUserAgent            = "API_USER_AGENT"
	KeyMediaResolution      = "MEDIA_RESOLUTION"
	KeyLogLevel             = "LOG_LEVEL"
	KeyAPIKey               = "API_KEY"
	KeyAllowRandomProjectID = "ALLOW_RANDOM_PROJECT_ID"
	KeyPort                 = "PORT"
)

// Settings is the runtime settings snapshot. It is replaced wholesale on
// every successful save; a reader never observes a mix of old and new values.
type Settings struct {
	// Password is the panel login password, checked on every authentication
	Password string

	// UserAgent is sent on outbound vendor requests
	UserAgent string

	// MediaResolution is the media-resolution default, possibly unset
	MediaResolution MediaResolution

	// LogLevel is the log verbosity
	LogLevel LogLevel

	// APIKey is stored for gateway use, not used by the panel itself
	APIKey string

	// AllowRandomProjectID permits a generated fallback project id when
	// OAuth onboarding cannot resolve one
	AllowRandomProjectID bool

	// Port is the local service port used for the OAuth redirect target.
	// Read-only at runtime: Replace keeps the current value.
	Port int
}

// DefaultSettings returns the settings used before any load or save
func DefaultSettings() Settings {
	return Settings{
		UserAgent: "panelkit/1.0",
		LogLevel:  LogLevelInfo,
		Port:      DefaultPort,
	}
}

// normalized trims fields and canonicalizes the enums. Unknown media
// resolutions collapse to unset; the log level is lowercased but otherwise
// left for Validate to judge.
func (s Settings) normalized() Settings {
	s.Password = strings.TrimSpace(s.Password)
	s.UserAgent = strings.TrimSpace(s.UserAgent)
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.LogLevel = LogLevel(strings.ToLower(strings.TrimSpace(string(s.LogLevel))))
	switch MediaResolution(strings.ToLower(strings.TrimSpace(string(s.MediaResolution)))) {
	case MediaResolutionLow:
		s.MediaResolution = MediaResolutionLow
	case MediaResolutionMedium:
		s.MediaResolution = MediaResolutionMedium
	case MediaResolutionHigh:
		s.MediaResolution = MediaResolutionHigh
	default:
		s.MediaResolution = MediaResolutionUnset
	}
	return s
}

// Validate reports the first offending field, if any
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Password) == "" {
		return &ValidationError{Field: "password", Reason: "login password must not be empty"}
	}
	switch s.LogLevel {
	case LogLevelOff, LogLevelInfo, LogLevelDebug:
	default:
		return &ValidationError{
			Field:  "logLevel",
			Reason: fmt.Sprintf("must be one of %q, %q or %q", LogLevelOff, LogLevelInfo, LogLevelDebug),
		}
	}
	return nil
}

// SettingsStore holds the live settings snapshot. Reads are lock-free; a
// successful Replace swaps the whole value atomically so changes take effect
// for all in-flight and future requests without a restart.
type SettingsStore struct {
	current atomic.Pointer[Settings]
	editor  SettingsEditor
	writeMu sync.Mutex
}

// NewSettingsStore creates a store seeded with initial. The editor receives
// the complete settings value on every successful Replace; pass nil to skip
// persistence (tests).
func NewSettingsStore(initial Settings, editor SettingsEditor) *SettingsStore {
	s := &SettingsStore{editor: editor}
	norm := initial.normalized()
	if norm.Port <= 0 {
		norm.Port = DefaultPort
	}
	s.current.Store(&norm)
	return s
}

// Get returns the current snapshot by value
func (s *SettingsStore) Get() Settings {
	return *s.current.Load()
}

// Replace validates next, persists it through the editor and swaps it in.
// On any failure the previous snapshot stays in effect. The port cannot be
// changed at runtime and keeps its current value.
func (s *SettingsStore) Replace(next Settings) error {
	next = next.normalized()
	if err := next.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next.Port = s.current.Load().Port
	if s.editor != nil {
		if err := persistSettings(s.editor, next); err != nil {
			return fmt.Errorf("persist settings: %w", err)
		}
	}
	s.current.Store(&next)
	return nil
}

func persistSettings(editor SettingsEditor, s Settings) error {
	pairs := []struct{ key, value string }{
		{KeyPassword, s.Password},
		{KeyUserAgent, s.UserAgent},
		{KeyMediaResolution, string(s.MediaResolution)},
		{KeyLogLevel, string(s.LogLevel)},
		{KeyAPIKey, s.APIKey},
		{KeyAllowRandomProjectID, strconv.FormatBool(s.AllowRandomProjectID)},
	}
	for _, p := range pairs {
		if err := editor.WriteOrUpdate(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// LoadSettings builds a Settings value from the editor's persisted keys,
// falling back to defaults for anything missing or malformed.
func LoadSettings(editor SettingsEditor) (Settings, error) {
	s := DefaultSettings()
	if editor == nil {
		return s, nil
	}
	values, err := editor.ReadAll()
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if v, ok := values[KeyPassword]; ok {
		s.Password = v
	}
	if v, ok := values[KeyUserAgent]; ok && strings.TrimSpace(v) != "" {
		s.UserAgent = v
	}
	if v, ok := values[KeyMediaResolution]; ok {
		s.MediaResolution = MediaResolution(v)
	}
	if v, ok := values[KeyLogLevel]; ok && strings.TrimSpace(v) != "" {
		s.LogLevel = LogLevel(v)
	}
	if v, ok := values[KeyAPIKey]; ok {
		s.APIKey = v
	}
	if v, ok := values[KeyAllowRandomProjectID]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			s.AllowRandomProjectID = b
		}
	}
	if v, ok := values[KeyPort]; ok {
		if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && p > 0 {
			s.Port = p
		}
	}
	return s.normalized(), nil
}
