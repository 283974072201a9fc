package api

import (
	"fmt"

	"github.com/ant2api/panelkit/pkg/panel"
)

// Config holds configuration for the panel API handler
type Config struct {
	// Fetcher serves single-account quota requests (required)
	Fetcher *panel.Fetcher

	// Aggregator serves refresh-all requests (required)
	Aggregator *panel.Aggregator

	// Accounts is the credential store (required)
	Accounts panel.AccountStore

	// Sessions drives OAuth onboarding (required)
	Sessions *panel.SessionManager

	// Settings is the runtime settings store (required)
	Settings *panel.SettingsStore

	// Logger is optional (default: NoopLogger)
	Logger panel.Logger
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Fetcher == nil {
		return fmt.Errorf("fetcher is required")
	}
	if c.Aggregator == nil {
		return fmt.Errorf("aggregator is required")
	}
	if c.Accounts == nil {
		return fmt.Errorf("account store is required")
	}
	if c.Sessions == nil {
		return fmt.Errorf("session manager is required")
	}
	if c.Settings == nil {
		return fmt.Errorf("settings store is required")
	}
	return nil
}

// NewHandler creates a new panel API handler with the given configuration
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &panel.NoopLogger{}
	}
	return &Handler{config: config}, nil
}
