// Package config handles TOML-based configuration loading and validation.
// Values come from defaults, then the config file, then ARCHIVER_* environment
// variables; command-line flags are applied last by the caller.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

const appName = "archiver"

// Config holds all application configuration.
type Config struct {
	DownloadDir  string   `toml:"download_dir" env:"ARCHIVER_DOWNLOAD_DIR"`
	Database     string   `toml:"database" env:"ARCHIVER_DATABASE"`
	TikwmAPI     string   `toml:"tikwm_api" env:"ARCHIVER_TIKWM_API"`
	RateLimit    string   `toml:"rate_limit" env:"ARCHIVER_RATE_LIMIT"`
	RedisAddr    string   `toml:"redis_addr" env:"ARCHIVER_REDIS_ADDR"`
	Exiftool     string   `toml:"exiftool" env:"ARCHIVER_EXIFTOOL"`
	YtDlp        string   `toml:"ytdlp" env:"ARCHIVER_YTDLP"`
	MetadataKeys []string `toml:"metadata_keys" env:"ARCHIVER_METADATA_KEYS"`
	Enrich       bool     `toml:"enrich" env:"ARCHIVER_ENRICH"`
	Timeout      string   `toml:"timeout" env:"ARCHIVER_TIMEOUT"`
	Debug        bool     `toml:"debug" env:"ARCHIVER_DEBUG"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DownloadDir:  "~/Archives/archiver",
		TikwmAPI:     "https://www.tikwm.com/api/",
		RateLimit:    "1s",
		Exiftool:     "exiftool",
		YtDlp:        "yt-dlp",
		MetadataKeys: []string{"author", "datetime", "location"},
		Enrich:       true,
		Timeout:      "30s",
		Debug:        false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and environment and merges them over the
// defaults. A missing config file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		path = ""
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir cannot be empty")
	}

	u, err := url.Parse(c.TikwmAPI)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("tikwm_api %q must be an https URL", c.TikwmAPI)
	}

	if d, err := time.ParseDuration(c.RateLimit); err != nil || d < 0 {
		return fmt.Errorf("rate_limit %q must be a non-negative duration like 1s", c.RateLimit)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("timeout %q must be a positive duration like 30s", c.Timeout)
	}

	for _, k := range c.MetadataKeys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("metadata_keys cannot contain empty keys")
		}
	}

	if c.Enrich && c.Exiftool == "" {
		return fmt.Errorf("exiftool cannot be empty when enrich is on")
	}

	return nil
}

// RateLimitInterval is the minimum spacing between tikwm calls.
func (c *Config) RateLimitInterval() time.Duration {
	d, _ := time.ParseDuration(c.RateLimit)
	return d
}

// HTTPTimeout is the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	return expandHome(c.DownloadDir)
}

// DatabasePath returns the archive database location, defaulting to the XDG
// data directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database != "" {
		return expandHome(c.Database)
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appName, "archive.db"), nil
}

func expandHome(dir string) (string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}
