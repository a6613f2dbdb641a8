package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"chronoview/internal/dateparse"
	appLog "chronoview/internal/log"
	"chronoview/internal/timeline"
)

// SourceConfig describes one event source.
type SourceConfig struct {
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Kind is "ics" or "yaml". Empty is inferred from the file extension.
	Kind string `yaml:"kind" json:"kind"`
	// URL is an http(s) endpoint; Path a local file. One of them is set.
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ProbeConfig controls the post-render diagnostic probe.
type ProbeConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DelaySeconds is the fixed wait between serving a pass and probing it.
	DelaySeconds int `yaml:"delay_seconds" json:"delay_seconds"`
	// URL of the timeline page; derived from Listen when empty.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// ScreenshotPath, if set, receives a PNG of the probed page.
	ScreenshotPath string `yaml:"screenshot_path,omitempty" json:"screenshot_path,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the timeline page and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone dates are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule for reloading sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds fetched ICS bodies and their HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// DateFormat holds the character widths of each date field.
	DateFormat dateparse.Config `yaml:"date_format" json:"date_format"`

	// Tags restricts rendering to events carrying one of these tags.
	// Empty renders everything.
	Tags          []string `yaml:"tags" json:"tags"`
	CaseSensitive bool     `yaml:"case_sensitive_tags" json:"case_sensitive_tags"`

	// LegacyDefaultDetection treats a requested window that resembles the
	// default window as if no window had been requested.
	LegacyDefaultDetection *bool `yaml:"legacy_default_detection,omitempty" json:"legacy_default_detection,omitempty"`

	// HorizonYears bounds recurrence expansion around the current year.
	HorizonYears int `yaml:"horizon_years" json:"horizon_years"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`

	Probe ProbeConfig `yaml:"probe" json:"probe"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	legacy := true
	return &Config{
		Listen:                 "127.0.0.1:8080",
		Timezone:               "Local",
		LogLevel:               "info",
		RefreshCron:            "*/15 * * * *",
		CacheDir:               "./cache/ics-cache",
		DateFormat:             dateparse.DefaultConfig(),
		Tags:                   []string{},
		LegacyDefaultDetection: &legacy,
		HorizonYears:           5,
		Sources:                []SourceConfig{},
		Probe: ProbeConfig{
			Enabled:      false,
			DelaySeconds: 3,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	// A partially broken date format falls back as a whole; mixing widths
	// from two layouts would slice dates at the wrong positions.
	if c.DateFormat.Validate() != nil {
		c.DateFormat = def.DateFormat
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.LegacyDefaultDetection == nil {
		c.LegacyDefaultDetection = def.LegacyDefaultDetection
	}
	if c.HorizonYears <= 0 {
		c.HorizonYears = def.HorizonYears
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	if c.Probe.DelaySeconds <= 0 {
		c.Probe.DelaySeconds = def.Probe.DelaySeconds
	}
}

// TimelineSettings returns the part of the config the render core reads.
func (c *Config) TimelineSettings() timeline.Settings {
	return timeline.Settings{
		DateFormat:    c.DateFormat,
		Tags:          append([]string(nil), c.Tags...),
		CaseSensitive: c.CaseSensitive,
	}
}

// LegacyDetection reports the effective legacy_default_detection value.
func (c *Config) LegacyDetection() bool {
	return c.LegacyDefaultDetection == nil || *c.LegacyDefaultDetection
}

// Location resolves Timezone, falling back to time.Local when the name is
// empty or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
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

// Save writes the given configuration to path atomically (temp file +
// rename) with 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".chronoview-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
