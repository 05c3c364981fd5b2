package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine names.
const (
	EngineSteel = "steel"
	EngineLocal = "local"
)

// Config holds all application configuration.
type Config struct {
	Steel     SteelConfig     `yaml:"steel"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
	Local     LocalConfig     `yaml:"local"`
	LogSink   LogSinkConfig   `yaml:"log_sink"`
}

// SteelConfig controls the remote Steel service client.
type SteelConfig struct {
	// APIURL is the base URL of the Steel service.
	APIURL string `yaml:"api_url"` // default: "http://localhost:3000"

	// TimeoutMS is the per-attempt HTTP timeout in milliseconds.
	TimeoutMS int `yaml:"timeout_ms"` // default: 30000

	// Retries is the number of extra attempts on retryable failures.
	Retries int `yaml:"retries"` // default: 3

	// Engine selects the collaborator: "steel" (remote) or "local".
	Engine string `yaml:"engine"` // default: "steel"

	// HealthTimeout bounds one health probe.
	HealthTimeout time.Duration `yaml:"health_timeout"` // default: 5s
}

// Timeout returns TimeoutMS as a duration.
func (s SteelConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// AuthConfig controls API key authentication on the HTTP server.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool `yaml:"enabled"` // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 5

	// Burst is the maximum burst size per API key.
	Burst int `yaml:"burst"` // default: 10
}

// CacheConfig controls the reply cache. A zero TTL disables it.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`         // default: 0
	MaxEntries int           `yaml:"max_entries"` // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// LocalConfig controls the local engine.
type LocalConfig struct {
	// UserAgent overrides the Chrome user agent string.
	UserAgent string `yaml:"user_agent"`

	// FetchTimeout bounds a single page fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // default: 30s
}

// LogSinkConfig controls event delivery to request log URLs.
type LogSinkConfig struct {
	// Secret signs event bodies with HMAC-SHA256 when set.
	Secret string `yaml:"secret"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Steel: SteelConfig{
			APIURL:        "http://localhost:3000",
			TimeoutMS:     30000,
			Retries:       3,
			Engine:        EngineSteel,
			HealthTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ShutdownTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5.0,
			Burst:             10,
		},
		Cache: CacheConfig{
			MaxEntries: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Local: LocalConfig{
			FetchTimeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// STEEL_CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("STEEL_CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields whose environment variable is set.
func (c *Config) applyEnv() {
	c.Steel.APIURL = envOr("STEEL_API_URL", c.Steel.APIURL)
	c.Steel.TimeoutMS = envIntOr("STEEL_TIMEOUT", c.Steel.TimeoutMS)
	c.Steel.Retries = envIntOr("STEEL_RETRIES", c.Steel.Retries)
	c.Steel.Engine = envOr("STEEL_ENGINE", c.Steel.Engine)
	c.Steel.HealthTimeout = envDurationOr("STEEL_HEALTH_TIMEOUT", c.Steel.HealthTimeout)

	c.Server.Host = envOr("STEEL_HOST", c.Server.Host)
	c.Server.Port = envIntOr("STEEL_PORT", c.Server.Port)
	c.Server.Mode = envOr("STEEL_MODE", c.Server.Mode)
	c.Server.ShutdownTimeout = envDurationOr("STEEL_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Auth.Enabled = envBoolOr("STEEL_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("STEEL_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("STEEL_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("STEEL_RATE_BURST", c.RateLimit.Burst)

	c.Cache.TTL = envDurationOr("STEEL_CACHE_TTL", c.Cache.TTL)
	c.Cache.MaxEntries = envIntOr("STEEL_CACHE_MAX_ENTRIES", c.Cache.MaxEntries)

	c.Log.Level = envOr("STEEL_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("STEEL_LOG_FORMAT", c.Log.Format)

	c.Local.UserAgent = envOr("STEEL_LOCAL_USER_AGENT", c.Local.UserAgent)
	c.Local.FetchTimeout = envDurationOr("STEEL_LOCAL_FETCH_TIMEOUT", c.Local.FetchTimeout)

	c.LogSink.Secret = envOr("STEEL_LOG_SINK_SECRET", c.LogSink.Secret)
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Steel.APIURL == "" {
		errs = append(errs, errors.New("steel.api_url must not be empty"))
	}
	if c.Steel.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("steel.timeout_ms must be positive, got %d", c.Steel.TimeoutMS))
	}
	if c.Steel.Retries < 0 {
		errs = append(errs, fmt.Errorf("steel.retries must not be negative, got %d", c.Steel.Retries))
	}
	if c.Steel.HealthTimeout <= 0 {
		errs = append(errs, fmt.Errorf("steel.health_timeout must be positive, got %s", c.Steel.HealthTimeout))
	}
	if c.Steel.Engine != EngineSteel && c.Steel.Engine != EngineLocal {
		errs = append(errs, fmt.Errorf("steel.engine must be %q or %q, got %q", EngineSteel, EngineLocal, c.Steel.Engine))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("auth.enabled requires at least one api key"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
