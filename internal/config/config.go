// Package config collects the settings shared by every pandabundle command.
//
// Values are layered: built-in defaults, then the optional INI file
// (~/.config/pandabundle/config), then PANDA_* environment variables, then
// command-line flags.
//
// INI format:
//
//	[panda]
//	base_url = https://panda.ecs.kyoto-u.ac.jp
//	site = 2024-110-N150-017
//	cookie = JSESSIONID=...
//	timeout = 60s
//	concurrency = 0
//	rate = 0
//	listing_retries = 3
//
//	[minio]
//	endpoint = localhost:9000
//	access_key = ...
//	secret_key = ...
//	bucket = archives
//	prefix = panda
//	secure = false
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"

	"github.com/pandatools/panda-bundle/fetch"
	"github.com/pandatools/panda-bundle/tree"
)

// Environment variables read by Load.
const (
	EnvBaseURL     = "PANDA_BASE_URL"
	EnvSite        = "PANDA_SITE"
	EnvCookie      = "PANDA_COOKIE"
	EnvConfigFile  = "PANDA_CONFIG"
	EnvMinioAccess = "PANDA_MINIO_ACCESS_KEY"
	EnvMinioSecret = "PANDA_MINIO_SECRET_KEY"
)

const (
	DefaultTimeout        = 60 * time.Second
	DefaultListingRetries = 3
)

// Validation errors
var (
	ErrMissingSite        = errors.New("a site id, portal URL or records file is required")
	ErrInvalidConcurrency = errors.New("concurrency must not be negative")
	ErrInvalidRate        = errors.New("rate must not be negative")
	ErrInvalidRetries     = errors.New("listing retries must not be negative")
	ErrMissingBucket      = errors.New("minio bucket is required when an endpoint is set")
)

// Minio locates the optional object storage destination.
type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Secure    bool
}

// Enabled reports whether an endpoint is configured.
func (m Minio) Enabled() bool {
	return m.Endpoint != ""
}

// Config holds the resolved settings.
type Config struct {
	BaseURL     string
	SiteID      string
	PortalURL   string
	Cookie      string
	RecordsFile string

	Timeout        time.Duration
	Concurrency    int
	Rate           float64
	ListingRetries int

	Minio Minio
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:        tree.DefaultBaseURL,
		Timeout:        DefaultTimeout,
		ListingRetries: DefaultListingRetries,
	}
}

// DefaultPath returns ~/.config/pandabundle/config.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pandabundle", "config"), nil
}

// Load returns defaults overlaid with the file at path (if it exists) and the
// environment as seen through getenv. An empty path selects PANDA_CONFIG or
// DefaultPath.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if path == "" {
		path = getenv(EnvConfigFile)
	}
	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				err = nil
			}
			if err != nil {
				return nil, err
			}
		}
	}

	cfg.applyEnv(getenv)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	panda := f.Section("panda")
	c.BaseURL = panda.Key("base_url").MustString(c.BaseURL)
	c.SiteID = panda.Key("site").MustString(c.SiteID)
	c.PortalURL = panda.Key("portal_url").MustString(c.PortalURL)
	c.Cookie = panda.Key("cookie").MustString(c.Cookie)
	c.RecordsFile = panda.Key("records_file").MustString(c.RecordsFile)
	c.Timeout = panda.Key("timeout").MustDuration(c.Timeout)
	c.Concurrency = panda.Key("concurrency").MustInt(c.Concurrency)
	c.Rate = panda.Key("rate").MustFloat64(c.Rate)
	c.ListingRetries = panda.Key("listing_retries").MustInt(c.ListingRetries)

	m := f.Section("minio")
	c.Minio.Endpoint = m.Key("endpoint").String()
	c.Minio.AccessKey = m.Key("access_key").String()
	c.Minio.SecretKey = m.Key("secret_key").String()
	c.Minio.Bucket = m.Key("bucket").String()
	c.Minio.Prefix = m.Key("prefix").String()
	c.Minio.Secure = m.Key("secure").MustBool(false)
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.BaseURL, EnvBaseURL)
	set(&c.SiteID, EnvSite)
	set(&c.Cookie, EnvCookie)
	set(&c.Minio.AccessKey, EnvMinioAccess)
	set(&c.Minio.SecretKey, EnvMinioSecret)
}

// Save writes cfg to path as INI with user-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f := ini.Empty()
	panda, err := f.NewSection("panda")
	if err != nil {
		return fmt.Errorf("failed to create panda section: %w", err)
	}
	panda.Key("base_url").SetValue(cfg.BaseURL)
	panda.Key("site").SetValue(cfg.SiteID)
	panda.Key("portal_url").SetValue(cfg.PortalURL)
	panda.Key("cookie").SetValue(cfg.Cookie)
	panda.Key("records_file").SetValue(cfg.RecordsFile)
	panda.Key("timeout").SetValue(cfg.Timeout.String())
	panda.Key("concurrency").SetValue(strconv.Itoa(cfg.Concurrency))
	panda.Key("rate").SetValue(strconv.FormatFloat(cfg.Rate, 'g', -1, 64))
	panda.Key("listing_retries").SetValue(strconv.Itoa(cfg.ListingRetries))

	if cfg.Minio.Enabled() {
		m, err := f.NewSection("minio")
		if err != nil {
			return fmt.Errorf("failed to create minio section: %w", err)
		}
		m.Key("endpoint").SetValue(cfg.Minio.Endpoint)
		m.Key("access_key").SetValue(cfg.Minio.AccessKey)
		m.Key("secret_key").SetValue(cfg.Minio.SecretKey)
		m.Key("bucket").SetValue(cfg.Minio.Bucket)
		m.Key("prefix").SetValue(cfg.Minio.Prefix)
		m.Key("secure").SetValue(strconv.FormatBool(cfg.Minio.Secure))
	}

	tmp := path + ".tmp"
	if err := f.SaveTo(tmp); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResolveSite fills SiteID from PortalURL when only the latter is set.
func (c *Config) ResolveSite() error {
	if c.SiteID != "" || c.PortalURL == "" {
		return nil
	}
	id, err := fetch.SiteIDFromPortalURL(c.PortalURL)
	if err != nil {
		return err
	}
	c.SiteID = id
	return nil
}

// Validate checks the settings needed to build a forest.
func (c *Config) Validate() error {
	if c.SiteID == "" && c.RecordsFile == "" {
		return ErrMissingSite
	}
	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if c.Rate < 0 {
		return ErrInvalidRate
	}
	if c.ListingRetries < 0 {
		return ErrInvalidRetries
	}
	if c.Minio.Enabled() && c.Minio.Bucket == "" {
		return ErrMissingBucket
	}
	return nil
}

// ListingOptions configures the client used for the listing request.
func (c *Config) ListingOptions(logger zerolog.Logger) fetch.Options {
	return fetch.Options{
		Timeout: c.Timeout,
		Retries: c.ListingRetries,
		Cookie:  c.Cookie,
		Rate:    c.Rate,
		Logger:  logger,
	}
}

// FileOptions configures the client used for file downloads. Failed file
// fetches are never retried.
func (c *Config) FileOptions(logger zerolog.Logger) fetch.Options {
	opts := c.ListingOptions(logger)
	opts.Retries = 0
	return opts
}
