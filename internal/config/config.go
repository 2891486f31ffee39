package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes a single ICS subscription source.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is the calendar display name; it is also the color-assignment key.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the widget page and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA display timezone, or "Local" for the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Days is the event window length in days (today plus Days-1 more).
	Days int `yaml:"days" json:"days"`

	// RefreshSeconds is the slow-tick period: how often events are
	// re-fetched from the sources.
	RefreshSeconds int `yaml:"refresh_seconds" json:"refresh_seconds"`

	// CountdownSeconds is the fast-tick period: how often the countdown
	// and urgency flags are recomputed from cached events.
	CountdownSeconds int `yaml:"countdown_seconds" json:"countdown_seconds"`

	// Card geometry, passed through to the rendering layer untouched.
	CardHeight    int `yaml:"card_height" json:"card_height"`
	CardMargin    int `yaml:"card_margin" json:"card_margin"`
	ColumnPadding int `yaml:"column_padding" json:"column_padding"`

	// CacheDir is where fetched ICS bodies and conditional-request
	// metadata are stored.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		Timezone:         "Local",
		Days:             2,
		RefreshSeconds:   60,
		CountdownSeconds: 1,
		CardHeight:       160,
		CardMargin:       12,
		ColumnPadding:    20,
		CacheDir:         "./var/ics-cache",
		Feeds:            []FeedConfig{},
		BasicAuth:        nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Days <= 0 {
		c.Days = 2
	}
	if c.RefreshSeconds <= 0 {
		c.RefreshSeconds = 60
	}
	if c.CountdownSeconds <= 0 {
		c.CountdownSeconds = 1
	}
	if c.CardHeight <= 0 {
		c.CardHeight = 160
	}
	if c.CardMargin <= 0 {
		c.CardMargin = 12
	}
	if c.ColumnPadding <= 0 {
		c.ColumnPadding = 20
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

// RefreshInterval returns the slow-tick period as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// CountdownInterval returns the fast-tick period as a duration.
func (c *Config) CountdownInterval() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}

// Location resolves the configured timezone. "Local" (or empty) maps to the
// host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600,
// parent directory created as needed) and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
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

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
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

	tmp, err := os.CreateTemp(dir, ".calwidget-config-*.tmp")
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

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
