// ABOUTME: Glucose configuration: JSON file under XDG_CONFIG_HOME plus GLUCOSE_* env overrides.
// ABOUTME: Builds the storage, notification dispatchers and service options from settings.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/harperreed/glucose/internal/clinical"
	"github.com/harperreed/glucose/internal/logger"
	"github.com/harperreed/glucose/internal/notify"
	"github.com/harperreed/glucose/internal/storage"
)

// Config stores glucose tool configuration.
type Config struct {
	// DataDir is where glucose.db lives. Supports ~ expansion.
	// Defaults to ~/.local/share/glucose.
	DataDir string `json:"data_dir,omitempty" env:"GLUCOSE_DATA_DIR"`

	// LogMode is "dev" (default) or "prod".
	LogMode string `json:"log_mode,omitempty" env:"GLUCOSE_LOG_MODE"`

	// Timezone is an IANA name used for week boundaries and time-of-day buckets.
	Timezone string `json:"timezone,omitempty" env:"GLUCOSE_TIMEZONE"`

	Alerts   AlertSettings   `json:"alerts,omitempty"`
	Patterns PatternSettings `json:"patterns,omitempty"`
	Notify   NotifySettings  `json:"notify,omitempty"`
}

type AlertSettings struct {
	WindowDays int `json:"window_days,omitempty" env:"GLUCOSE_ALERT_WINDOW_DAYS"`
	Threshold  int `json:"threshold,omitempty" env:"GLUCOSE_ALERT_THRESHOLD"`
}

type PatternSettings struct {
	MinOccurrences int `json:"min_occurrences,omitempty" env:"GLUCOSE_MIN_OCCURRENCES"`
	// MinPercent is a fraction: 0.4 means a trigger must appear in 40% of the
	// patient's abnormal readings. Zero keeps the default.
	MinPercent float64 `json:"min_percent,omitempty" env:"GLUCOSE_MIN_PERCENT"`
}

// NotifySettings configures alert transports. A transport with no address is disabled.
type NotifySettings struct {
	// SMTPURL is a shoutrrr smtp:// URL without the recipient.
	SMTPURL       string        `json:"smtp_url,omitempty" env:"GLUCOSE_SMTP_URL"`
	From          string        `json:"from,omitempty" env:"GLUCOSE_SMTP_FROM"`
	RedisAddr     string        `json:"redis_addr,omitempty" env:"GLUCOSE_REDIS_ADDR"`
	ChannelPrefix string        `json:"channel_prefix,omitempty" env:"GLUCOSE_CHANNEL_PREFIX"`
	Timeout       time.Duration `json:"timeout,omitempty" env:"GLUCOSE_NOTIFY_TIMEOUT"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath is the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "glucose.db")
}

// Location resolves Timezone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ServiceOptions maps settings onto the clinical service. Unset values keep
// the service defaults.
func (c *Config) ServiceOptions() (clinical.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return clinical.Options{}, err
	}
	if p := c.Patterns.MinPercent; p < 0 || p > 1 {
		return clinical.Options{}, fmt.Errorf("patterns.min_percent must be a fraction between 0 and 1, got %v", p)
	}
	return clinical.Options{
		Detector: clinical.DetectorConfig{
			Window:    time.Duration(c.Alerts.WindowDays) * 24 * time.Hour,
			Threshold: c.Alerts.Threshold,
			Location:  loc,
		},
		Miner: clinical.MinerOptions{
			MinOccurrences: c.Patterns.MinOccurrences,
			MinPercent:     c.Patterns.MinPercent,
			Location:       loc,
		},
	}, nil
}

// OpenStorage opens the SQLite database in the data directory.
func (c *Config) OpenStorage() (*storage.DB, error) {
	return storage.Open(c.DBPath())
}

// Dispatchers builds the enabled alert transports. The returned closer
// releases any network clients.
func (c *Config) Dispatchers(ctx context.Context, contacts notify.ContactBook, log *logger.Logger) ([]notify.Dispatcher, func() error, error) {
	if log == nil {
		log = logger.Nop()
	}
	var ds []notify.Dispatcher
	closer := func() error { return nil }

	if c.Notify.SMTPURL != "" {
		email, err := notify.NewEmailDispatcher(c.Notify.SMTPURL, c.Notify.From, contacts, c.Notify.Timeout)
		if err != nil {
			return nil, closer, err
		}
		ds = append(ds, email)
	}

	if c.Notify.RedisAddr != "" {
		rdb, err := notify.NewRedisClient(ctx, c.Notify.RedisAddr)
		if err != nil {
			// Real-time delivery is optional; alerts still persist without it.
			log.Warn("real-time notifications disabled", "redis_addr", c.Notify.RedisAddr, "error", err)
		} else {
			ds = append(ds, notify.NewRealtimeDispatcher(rdb, c.Notify.ChannelPrefix))
			closer = rdb.Close
		}
	}
	return ds, closer, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "glucose", "config.json")
}

// Load reads the config file, if any, then applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(GetConfigPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
