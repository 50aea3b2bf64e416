package bridge

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable settings of the gateway core.
type Config struct {
	// TimeoutSeconds bounds a single backend call on general paths.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// ListTimeoutSeconds bounds backend calls on type and list heavy paths.
	ListTimeoutSeconds int `yaml:"list_timeout_seconds"`
	// SweepIntervalSeconds is how often the session expiry sweep runs.
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	// SessionTimeoutMinutes is the idle time after which a session expires.
	SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`
	// MaxPages is the hard cap on pages fetched for one list or query.
	MaxPages int `yaml:"max_pages"`
	// ItemsPerPage is the page-size hint sent to the backend.
	ItemsPerPage int `yaml:"items_per_page"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		TimeoutSeconds:        30,
		ListTimeoutSeconds:    60,
		SweepIntervalSeconds:  60,
		SessionTimeoutMinutes: 30,
		MaxPages:              1000,
		ItemsPerPage:          100,
	}
}

// LoadConfig reads a YAML config file. Settings not present in the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills zero-valued settings with their defaults.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.ListTimeoutSeconds <= 0 {
		c.ListTimeoutSeconds = def.ListTimeoutSeconds
	}
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = def.SweepIntervalSeconds
	}
	if c.SessionTimeoutMinutes <= 0 {
		c.SessionTimeoutMinutes = def.SessionTimeoutMinutes
	}
	if c.MaxPages <= 0 {
		c.MaxPages = def.MaxPages
	}
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = def.ItemsPerPage
	}
	return c
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) listTimeout() time.Duration {
	return time.Duration(c.ListTimeoutSeconds) * time.Second
}

func (c Config) sweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c Config) sessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}
