// Package config holds the library configuration: cache behavior, download
// parallelism and timeouts.
//
// Config is an explicit, passable object. Every entry point that needs
// configuration takes a *Config; Default() exists for convenience but there
// is no hidden process-wide state, so tests inject their own instance.
//
// The on-disk form is a YAML file in the user config directory. Individual
// keys can be overridden through FIELDKIT_* environment variables, and
// Temporary() yields a scratch copy whose changes never touch the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CachePolicy selects where downloaded files are kept.
type CachePolicy string

const (
	// CacheOff disables caching; every retrieval downloads again.
	CacheOff CachePolicy = "off"
	// CacheTemporary uses a per-process temp directory, dropped on exit.
	CacheTemporary CachePolicy = "temporary"
	// CacheUser uses the persistent user cache directory.
	CacheUser CachePolicy = "user"
)

// Config is the full set of tunables. Field tags give the YAML/env key for
// each entry; FIELDKIT_<KEY> with dashes as underscores overrides any of
// them (e.g. FIELDKIT_NUMBER_OF_DOWNLOAD_THREADS).
type Config struct {
	CachePolicy             CachePolicy `yaml:"cache-policy"`
	UserCacheDirectory      string      `yaml:"user-cache-directory"`
	MaximumCacheDiskUsage   int64       `yaml:"maximum-cache-disk-usage"` // bytes, 0 = unlimited
	NumberOfDownloadThreads int         `yaml:"number-of-download-threads"`
	URLDownloadTimeout      int         `yaml:"url-download-timeout"` // seconds per request
	DownloadRetries         int         `yaml:"download-retries"`
	SampleBaseURL           string      `yaml:"sample-base-url"`

	path     string
	autosave bool
}

// DefaultSampleBaseURL serves the documentation example files.
const DefaultSampleBaseURL = "https://get.ecmwf.int/repository/test-data/earthkit-data/examples"

// Default returns a configuration with documented defaults and environment
// overrides applied. It is not connected to a file; Save is a no-op until
// SetPath is called.
func Default() *Config {
	c := &Config{
		CachePolicy:             CacheTemporary,
		MaximumCacheDiskUsage:   5 << 30, // 5 GiB
		NumberOfDownloadThreads: 5,
		URLDownloadTimeout:      30,
		DownloadRetries:         3,
		SampleBaseURL:           DefaultSampleBaseURL,
		autosave:                true,
	}
	c.applyEnv()

	return c
}

// Load reads the YAML file at path, filling unset keys with defaults and
// applying environment overrides on top. A missing file is not an error:
// the defaults are returned, bound to path for later Save calls.
func Load(path string) (*Config, error) {
	c := Default()
	c.path = path

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.applyEnv()

	return c, nil
}

// DefaultPath returns the conventional config file location,
// $XDG_CONFIG_HOME/fieldkit/settings.yaml or the OS equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "fieldkit", "settings.yaml"), nil
}

// SetPath binds the config to a file for Save and autosave.
func (c *Config) SetPath(path string) {
	c.path = path
}

// SetAutosave controls whether Set persists immediately. Default on.
func (c *Config) SetAutosave(on bool) {
	c.autosave = on
}

// Save writes the configuration to its bound file, creating parent
// directories as needed. Unbound configs save nowhere and return nil.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}

	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	// Write-then-rename keeps a concurrent reader from seeing a torn file.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, c.path)
}

// Set updates one key from its string form and autosaves when enabled.
// Unknown keys fail.
func (c *Config) Set(key, value string) error {
	if err := c.setString(key, value); err != nil {
		return err
	}

	if c.autosave {
		return c.Save()
	}

	return nil
}

// Temporary returns an independent copy whose mutations are never persisted,
// plus a restore function. The pattern mirrors a context-managed temporary
// config: use the copy, then call restore (typically deferred) to drop it.
func (c *Config) Temporary() (*Config, func()) {
	tmp := *c
	tmp.path = ""
	tmp.autosave = false

	return &tmp, func() {}
}

// CacheDirectory resolves the effective cache directory for the policy.
// Returns "" when caching is off.
func (c *Config) CacheDirectory() string {
	switch c.CachePolicy {
	case CacheOff:
		return ""
	case CacheUser:
		if c.UserCacheDirectory != "" {
			return c.UserCacheDirectory
		}
		if dir, err := os.UserCacheDir(); err == nil {
			return filepath.Join(dir, "fieldkit")
		}
		fallthrough
	default:
		return filepath.Join(os.TempDir(), "fieldkit-cache")
	}
}

// Timeout returns the per-request download timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.URLDownloadTimeout) * time.Second
}

func (c *Config) setString(key, value string) error {
	switch key {
	case "cache-policy":
		switch CachePolicy(value) {
		case CacheOff, CacheTemporary, CacheUser:
			c.CachePolicy = CachePolicy(value)
		default:
			return fmt.Errorf("invalid cache-policy %q", value)
		}
	case "user-cache-directory":
		c.UserCacheDirectory = value
	case "sample-base-url":
		c.SampleBaseURL = value
	case "maximum-cache-disk-usage":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid maximum-cache-disk-usage %q: %w", value, err)
		}
		c.MaximumCacheDiskUsage = n
	case "number-of-download-threads":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid number-of-download-threads %q", value)
		}
		c.NumberOfDownloadThreads = n
	case "url-download-timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid url-download-timeout %q", value)
		}
		c.URLDownloadTimeout = n
	case "download-retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid download-retries %q", value)
		}
		c.DownloadRetries = n
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	return nil
}

// envKeys maps config keys to the environment variables overriding them.
var envKeys = map[string]string{
	"cache-policy":               "FIELDKIT_CACHE_POLICY",
	"user-cache-directory":       "FIELDKIT_USER_CACHE_DIRECTORY",
	"maximum-cache-disk-usage":   "FIELDKIT_MAXIMUM_CACHE_DISK_USAGE",
	"number-of-download-threads": "FIELDKIT_NUMBER_OF_DOWNLOAD_THREADS",
	"url-download-timeout":       "FIELDKIT_URL_DOWNLOAD_TIMEOUT",
	"download-retries":           "FIELDKIT_DOWNLOAD_RETRIES",
	"sample-base-url":            "FIELDKIT_SAMPLE_BASE_URL",
}

func (c *Config) applyEnv() {
	for key, env := range envKeys {
		if v, ok := os.LookupEnv(env); ok {
			// Bad env values are ignored rather than fatal; the file and
			// defaults stay authoritative.
			_ = c.setString(key, v)
		}
	}
}
