// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ravindran79-arch/smartbid-compliance/domain/ratelimit"
)

// Defaults applied by setDefaults.
const (
	DefaultTrialLimit     = 3
	DefaultNamespace      = "smartbid"
	DefaultDSN            = "smartbid.db"
	DefaultLLMMaxRetries  = 3
	DefaultInitialBackoff = time.Second
	DefaultRateRequests   = 30
	DefaultRateWindow     = time.Minute
	DefaultRateBurst      = 5
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Usage     UsageConfig     `yaml:"usage"`
	LLM       LLMConfig       `yaml:"llm"`
	Billing   BillingConfig   `yaml:"billing"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	OpenAPI   OpenAPIConfig   `yaml:"openapi"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request deadline for /api routes
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the database holding reports (and usage records
// unless usage.backend is redis).
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

// UsageConfig configures the usage record store and the trial gate.
type UsageConfig struct {
	Backend    string `yaml:"backend"` // "database" or "redis"
	RedisURL   string `yaml:"redis_url,omitempty"`
	Namespace  string `yaml:"namespace"`   // scopes keys and rows per deployment
	TrialLimit int64  `yaml:"trial_limit"` // free bidder audits per user
}

// LLMConfig configures the generative AI relay.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key,omitempty"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url,omitempty"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	Timeout        time.Duration `yaml:"timeout"`
}

// BillingConfig configures the payment provider.
// Provider "stripe" with empty keys is valid; billing endpoints then report
// that billing is not configured.
type BillingConfig struct {
	Provider      string `yaml:"provider"` // "stripe" or "none"
	SecretKey     string `yaml:"secret_key,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
	ReturnURL     string `yaml:"return_url"`
	APIURL        string `yaml:"api_url,omitempty"` // overrides the Stripe API base URL
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RateLimitConfig configures the per-client throttle on /api/analyze and
// /api/audits.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"` // per window per client address
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// Policy converts the section to a domain policy.
func (r RateLimitConfig) Policy() ratelimit.Policy {
	return ratelimit.Policy{Limit: r.Requests, Window: r.Window, Burst: r.Burst}
}

// Load reads configuration from a YAML file.
// ${VAR} references are expanded before parsing, then SMARTBID_* variables
// override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SMARTBID_SERVER_HOST           - Server host (default: 0.0.0.0)
//	SMARTBID_SERVER_PORT           - Server port (default: 8080)
//	SMARTBID_DATABASE_DRIVER       - sqlite or memory (default: sqlite)
//	SMARTBID_DATABASE_DSN          - Database path (default: smartbid.db)
//	SMARTBID_USAGE_BACKEND         - database or redis (default: database)
//	SMARTBID_REDIS_URL             - Redis URL for the redis backend
//	SMARTBID_USAGE_NAMESPACE       - Key/row namespace (default: smartbid)
//	SMARTBID_TRIAL_LIMIT           - Free bidder audits (default: 3)
//	SMARTBID_LLM_API_KEY           - Generative AI key (fallback: GEMINI_API_KEY)
//	SMARTBID_LLM_MODEL             - Model name
//	SMARTBID_BILLING_SECRET_KEY    - Stripe key (fallback: STRIPE_SECRET_KEY)
//	SMARTBID_BILLING_WEBHOOK_SECRET - Webhook secret (fallback: STRIPE_WEBHOOK_SECRET)
//	SMARTBID_BILLING_RETURN_URL    - Portal return URL
//	SMARTBID_LOG_LEVEL             - debug, info, warn, error (default: info)
//	SMARTBID_LOG_FORMAT            - json or console (default: json)
//	SMARTBID_METRICS_ENABLED       - Enable /metrics endpoint
//	SMARTBID_OPENAPI_ENABLED       - Enable OpenAPI/Swagger
//	SMARTBID_RATE_LIMIT_ENABLED    - Throttle model-backed routes per client
//	SMARTBID_RATE_LIMIT_REQUESTS   - Requests per window (default: 30)
//	SMARTBID_RATE_LIMIT_WINDOW     - Window length (default: 1m)
//	SMARTBID_RATE_LIMIT_BURST      - Extra requests past the limit (default: 5)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SMARTBID_* environment variables to the config.
// Vendor variables (GEMINI_API_KEY, STRIPE_*) fill secrets that are still
// empty afterwards.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("SMARTBID_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SMARTBID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SMARTBID_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SMARTBID_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("SMARTBID_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SMARTBID_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Usage configuration
	if v := os.Getenv("SMARTBID_USAGE_BACKEND"); v != "" {
		cfg.Usage.Backend = v
	}
	if v := os.Getenv("SMARTBID_REDIS_URL"); v != "" {
		cfg.Usage.RedisURL = v
	}
	if v := os.Getenv("SMARTBID_USAGE_NAMESPACE"); v != "" {
		cfg.Usage.Namespace = v
	}
	if v := os.Getenv("SMARTBID_TRIAL_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Usage.TrialLimit = n
		}
	}

	// LLM configuration
	if v := os.Getenv("SMARTBID_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SMARTBID_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SMARTBID_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("SMARTBID_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxRetries = n
		}
	}
	if v := os.Getenv("SMARTBID_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}

	// Billing configuration
	if v := os.Getenv("SMARTBID_BILLING_PROVIDER"); v != "" {
		cfg.Billing.Provider = v
	}
	if v := os.Getenv("SMARTBID_BILLING_SECRET_KEY"); v != "" {
		cfg.Billing.SecretKey = v
	}
	if v := os.Getenv("SMARTBID_BILLING_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}
	if v := os.Getenv("SMARTBID_BILLING_RETURN_URL"); v != "" {
		cfg.Billing.ReturnURL = v
	}

	// Logging configuration
	if v := os.Getenv("SMARTBID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SMARTBID_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("SMARTBID_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SMARTBID_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("SMARTBID_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}

	// Rate limit configuration
	if v := os.Getenv("SMARTBID_RATE_LIMIT_ENABLED"); v != "" {
		cfg.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("SMARTBID_RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Requests = n
		}
	}
	if v := os.Getenv("SMARTBID_RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = d
		}
	}
	if v := os.Getenv("SMARTBID_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = n
		}
	}

	// Vendor fallbacks
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Billing.SecretKey == "" {
		cfg.Billing.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	}
	if cfg.Billing.WebhookSecret == "" {
		cfg.Billing.WebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	// Audits wait on the model; leave room for retries.
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 180 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 150 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDSN
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = "database"
	}
	if cfg.Usage.Namespace == "" {
		cfg.Usage.Namespace = DefaultNamespace
	}
	if cfg.Usage.TrialLimit == 0 {
		cfg.Usage.TrialLimit = DefaultTrialLimit
	}

	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = DefaultLLMMaxRetries
	}
	if cfg.LLM.InitialBackoff == 0 {
		cfg.LLM.InitialBackoff = DefaultInitialBackoff
	}

	if cfg.Billing.Provider == "" {
		cfg.Billing.Provider = "stripe"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = DefaultRateRequests
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateWindow
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateBurst
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	validDrivers := map[string]bool{"sqlite": true, "memory": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver)
	}

	validBackends := map[string]bool{"database": true, "redis": true}
	if !validBackends[cfg.Usage.Backend] {
		return fmt.Errorf("usage.backend must be 'database' or 'redis', got %q", cfg.Usage.Backend)
	}
	if cfg.Usage.Backend == "redis" && cfg.Usage.RedisURL == "" {
		return fmt.Errorf("usage.redis_url is required when usage.backend is 'redis'")
	}
	if cfg.Usage.TrialLimit < 0 {
		return fmt.Errorf("usage.trial_limit must not be negative, got %d", cfg.Usage.TrialLimit)
	}

	if cfg.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", cfg.LLM.MaxRetries)
	}

	validProviders := map[string]bool{"stripe": true, "none": true}
	if !validProviders[cfg.Billing.Provider] {
		return fmt.Errorf("billing.provider must be 'stripe' or 'none', got %q", cfg.Billing.Provider)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	if cfg.RateLimit.Enabled {
		if err := cfg.RateLimit.Policy().Validate(); err != nil {
			return fmt.Errorf("rate_limit: %w", err)
		}
	}

	return nil
}
