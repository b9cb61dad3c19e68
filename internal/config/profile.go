package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WatchProfile is an operator profile for the watch console. Connection
// fields override the environment; the filter section seeds the initial
// store filter.
type WatchProfile struct {
	Version int `yaml:"version,omitempty"`

	API struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"api"`

	Sync struct {
		DebounceMS     int `yaml:"debounce_ms"`
		PollSeconds    int `yaml:"poll_seconds"`
		FetchTimeout   int `yaml:"fetch_timeout_seconds"`
		InventoryLimit int `yaml:"inventory_limit"`
	} `yaml:"sync"`

	Filter struct {
		Query     string   `yaml:"query"`
		Statuses  []string `yaml:"statuses"`
		AlertOnly bool     `yaml:"alert_only"`
	} `yaml:"filter"`

	// Live is nil when the profile leaves the live feed at its default (on).
	Live *bool `yaml:"live,omitempty"`
}

// LoadWatchProfile reads and parses a YAML profile.
func LoadWatchProfile(path string) (*WatchProfile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("profile path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p WatchProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Version > 1 {
		return nil, fmt.Errorf("unsupported profile version %d", p.Version)
	}
	return &p, nil
}

// Apply overlays the non-zero profile settings onto cfg.
func (p *WatchProfile) Apply(cfg *Config) {
	if p == nil || cfg == nil {
		return
	}
	if v := strings.TrimSpace(p.API.URL); v != "" {
		cfg.WatchAPIBaseURL = v
	}
	if v := strings.TrimSpace(p.API.Token); v != "" {
		cfg.WatchAPIToken = v
	}
	if p.Sync.DebounceMS > 0 {
		cfg.WatchDebounce = time.Duration(p.Sync.DebounceMS) * time.Millisecond
	}
	if p.Sync.PollSeconds > 0 {
		cfg.WatchPollInterval = time.Duration(p.Sync.PollSeconds) * time.Second
	}
	if p.Sync.FetchTimeout > 0 {
		cfg.WatchFetchTimeout = time.Duration(p.Sync.FetchTimeout) * time.Second
	}
	if p.Sync.InventoryLimit > 0 {
		cfg.WatchInventoryLimit = p.Sync.InventoryLimit
	}
}

// LiveEnabled reports whether the live feed should start enabled.
func (p *WatchProfile) LiveEnabled() bool {
	if p == nil || p.Live == nil {
		return true
	}
	return *p.Live
}
