package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config load/save: first run writes defaults with 0600 permissions, later
// runs normalize partially-filled files. Saves are atomic.

// CredentialsConfig is the account used when no session credential is
// held yet (register, then log in).
type CredentialsConfig struct {
	Username string `yaml:"username" json:"username"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the local UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls the PNG snapshot of the rendered week.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// URL defaults to the local /calendar page.
	URL string `yaml:"url" json:"url"`
	// Output is where preview.png is written.
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the local UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// BaseURL is the remote scheduling service.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timezone is the IANA timezone events are displayed in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron schedule for background resync. "-" disables it.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// PxPerHour and GapPx are the time grid geometry.
	PxPerHour float64 `yaml:"px_per_hour" json:"px_per_hour"`
	GapPx     float64 `yaml:"gap_px" json:"gap_px"`

	// ShareRangeDays is how far before and after now a shared view reads.
	ShareRangeDays int `yaml:"share_range_days" json:"share_range_days"`

	// StatePath is the session state file (credential, onboarding marker).
	StatePath string `yaml:"state_path" json:"state_path"`

	// RequestsPerSecond limits outbound calls to the remote service.
	RequestsPerSecond float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultBaseURL    = "http://localhost:8000"
	defaultTimezone   = "Local"
	defaultWeekStart  = "sunday"
	defaultRefresh    = "*/15 * * * *"
	defaultPxPerHour  = 48
	defaultGapPx      = 2
	defaultShareRange = 365
	defaultStatePath  = "./var/weekcal-state.yaml"
	defaultRPS        = 5
	defaultOutput     = "./var/preview.png"
	defaultCaptureW   = 1280
	defaultCaptureH   = 1400
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so that older or partial files
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "sunday", "monday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.PxPerHour <= 0 {
		c.PxPerHour = defaultPxPerHour
	}
	if c.GapPx < 0 || c.GapPx >= c.PxPerHour {
		c.GapPx = defaultGapPx
	}
	if c.ShareRangeDays <= 0 {
		c.ShareRangeDays = defaultShareRange
	}
	if c.StatePath == "" {
		c.StatePath = defaultStatePath
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRPS
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Capture.Output == "" {
		c.Capture.Output = defaultOutput
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureW
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureH
	}
}

// Location resolves Timezone; "Local" and unknown names mean time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, err
	}
	return loc, nil
}

// FirstWeekday maps WeekStart onto a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// ShareRange returns the default [start, end) of a shared view around now.
func (c *Config) ShareRange(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -c.ShareRangeDays), now.AddDate(0, 0, c.ShareRangeDays)
}

// Load loads configuration from the given YAML path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg anyway so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".weekcal-config-*.tmp")
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// WriteFileAtomic writes data to a temp file in path's directory, then
// renames it over path. The parent directory is created 0700 and the final
// file is 0600.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
