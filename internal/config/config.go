// Package config loads the server configuration.
//
// Sources, later ones winning: built-in defaults, an optional YAML file, then
// environment variables. .env files are loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBackendURL is used when neither an absolute backend URL nor a usable
// proxy path is configured.
const DefaultBackendURL = "https://pb.we-be.xyz"

// MinSessionSecretLength is the minimum length of SESSION_SECRET.
const MinSessionSecretLength = 32

// Backend drivers
const (
	DriverHTTP     = "http"
	DriverPostgres = "postgres"
)

// Config validation errors
var (
	ErrInvalidPort           = errors.New("port must be a number between 1 and 65535")
	ErrInvalidDriver         = errors.New("backend driver must be http or postgres")
	ErrMissingDatabaseURL    = errors.New("DATABASE_URL is required for the postgres backend driver")
	ErrShortSessionSecret    = fmt.Errorf("SESSION_SECRET must be at least %d characters", MinSessionSecretLength)
	ErrInvalidRateLimit      = errors.New("rate limit requests and window must be positive")
	ErrInvalidLogFormat      = errors.New("log format must be text or json")
	ErrInvalidPageSize       = errors.New("page sizes must be positive")
	ErrInvalidBackendTimeout = errors.New("backend timeout must be positive")
)

// Config holds the server configuration.
type Config struct {
	Port string `yaml:"port"`

	// PublicURL is the externally visible origin of this site, e.g. "https://we-be.xyz".
	// A relative backend proxy path is resolved against it.
	PublicURL string `yaml:"public_url"`

	// DatabaseURL is the Postgres mirror DSN, used with the postgres backend driver.
	DatabaseURL string `yaml:"database_url"`

	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Pages     PagesConfig     `yaml:"pages"`
}

// BackendConfig locates the data backend.
type BackendConfig struct {
	// URL is an explicit absolute backend URL. It wins over everything else.
	URL string `yaml:"url"`
	// ProxyPath is a path on PublicURL under which the backend is reverse-proxied, e.g. "/pb".
	ProxyPath string `yaml:"proxy_path"`
	// Driver selects the read path: http (the backend REST API) or postgres (local mirror).
	Driver  string        `yaml:"driver"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures the browser session cookie.
type SessionConfig struct {
	// Secret signs the cookie. Empty means an ephemeral secret is generated at startup.
	Secret string `yaml:"secret"`
	Name   string `yaml:"name"`
	Secure bool   `yaml:"secure"`
}

// RateLimitConfig configures the per-client fixed window limiter.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LogConfig configures the slog default logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PagesConfig holds the listing page sizes.
type PagesConfig struct {
	EventPerPage     int `yaml:"event_per_page"`
	UserPerPage      int `yaml:"user_per_page"`
	TopPostsLimit    int `yaml:"top_posts_limit"`
	TopPostsPerEvent int `yaml:"top_posts_per_event"`
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		Port: "8080",
		Backend: BackendConfig{
			Driver:  DriverHTTP,
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Name: "vibe_chuck_session",
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Pages: PagesConfig{
			EventPerPage:     12,
			UserPerPage:      10,
			TopPostsLimit:    6,
			TopPostsPerEvent: 2,
		},
	}
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("%w: got %q", ErrInvalidPort, c.Port)
	}
	switch c.Backend.Driver {
	case DriverHTTP:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDriver, c.Backend.Driver)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidBackendTimeout, c.Backend.Timeout)
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < MinSessionSecretLength {
		return ErrShortSessionSecret
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("%w: got %d per %v", ErrInvalidRateLimit, c.RateLimit.Requests, c.RateLimit.Window)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: got %q", ErrInvalidLogFormat, c.Log.Format)
	}
	p := c.Pages
	if p.EventPerPage <= 0 || p.UserPerPage <= 0 || p.TopPostsLimit <= 0 || p.TopPostsPerEvent <= 0 {
		return ErrInvalidPageSize
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

// ResolveBackendURL returns the absolute backend URL and which setting produced it.
// Precedence: an absolute Backend.URL, then Backend.ProxyPath joined onto
// PublicURL, then DefaultBackendURL. A relative Backend.URL counts as a proxy path.
func (c Config) ResolveBackendURL() (backendURL, source string) {
	if isAbsoluteURL(c.Backend.URL) {
		return strings.TrimSuffix(c.Backend.URL, "/"), "BACKEND_URL"
	}

	proxyPath := c.Backend.ProxyPath
	if proxyPath == "" && c.Backend.URL != "" {
		proxyPath = c.Backend.URL
	}
	if proxyPath != "" {
		if isAbsoluteURL(c.PublicURL) {
			base := strings.TrimSuffix(c.PublicURL, "/")
			return base + "/" + strings.Trim(proxyPath, "/"), "BACKEND_PROXY_PATH"
		}
		slog.Warn("backend proxy path set without an absolute PUBLIC_URL, using fallback",
			"proxy_path", proxyPath,
			"public_url", c.PublicURL,
			"fallback", DefaultBackendURL,
		)
	}

	return DefaultBackendURL, "default"
}

func isAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// NewLogger builds the slog logger described by the config.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// applyEnv overrides fields from environment variables.
//
// Environment variables:
//   - PORT: listen port (default: 8080)
//   - PUBLIC_URL: external origin of the site
//   - BACKEND_URL: absolute backend URL
//   - BACKEND_PROXY_PATH: backend path on PUBLIC_URL
//   - BACKEND_DRIVER: http or postgres (default: http)
//   - BACKEND_TIMEOUT: backend request timeout, Go duration (default: 30s)
//   - DATABASE_URL: Postgres mirror DSN
//   - SESSION_SECRET, SESSION_NAME, SESSION_SECURE: session cookie
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: limiter (default: 100 per 1m)
//   - LOG_LEVEL, LOG_FORMAT: logging (default: info, text)
//   - EVENT_PER_PAGE, USER_PER_PAGE, TOP_POSTS_LIMIT, TOP_POSTS_PER_EVENT: page sizes
func (c *Config) applyEnv() {
	envString("PORT", &c.Port)
	envString("PUBLIC_URL", &c.PublicURL)
	envString("BACKEND_URL", &c.Backend.URL)
	envString("BACKEND_PROXY_PATH", &c.Backend.ProxyPath)
	envString("BACKEND_DRIVER", &c.Backend.Driver)
	envDuration("BACKEND_TIMEOUT", &c.Backend.Timeout)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("SESSION_SECRET", &c.Session.Secret)
	envString("SESSION_NAME", &c.Session.Name)
	envBool("SESSION_SECURE", &c.Session.Secure)
	envInt("RATE_LIMIT_REQUESTS", &c.RateLimit.Requests)
	envDuration("RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)
	envInt("EVENT_PER_PAGE", &c.Pages.EventPerPage)
	envInt("USER_PER_PAGE", &c.Pages.UserPerPage)
	envInt("TOP_POSTS_LIMIT", &c.Pages.TopPostsLimit)
	envInt("TOP_POSTS_PER_EVENT", &c.Pages.TopPostsPerEvent)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer in environment, keeping current value",
			"key", key,
			"value", v,
			"current", *dst,
			"error", err,
		)
		return
	}
	*dst = n
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, keeping current value",
			"key", key,
			"value", v,
			"current", dst.String(),
			"error", err,
		)
		return
	}
	*dst = d
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}
