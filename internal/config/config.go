// Package config loads the enrichment service configuration from environment
// variables with sensible defaults and validates it before startup.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path, stdout when unset
//   - TLS_CERT_FILE / TLS_KEY_FILE: Serve HTTPS when both are set
//
// Model API:
//   - OPENAI_API_KEY: Chat completions API key; without it every extraction is synthesised
//   - OPENAI_MODEL: Model name (default: gpt-4o-mini)
//   - OPENAI_BASE_URL: API base URL override for proxies and tests
//   - OPENAI_TIMEOUT: Per-call timeout (default: 30s)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - RATE_LIMIT_PER_MINUTE: Enrichments per identity per minute (default: 10)
//
// Cache:
//   - ENABLE_CACHE: Enable the enrichment cache (default: true)
//   - CACHE_TTL: Entry lifetime, accepts d and w units (default: 7d)
//   - CACHE_BACKEND: Durable tier - memory, redis, sqlite or postgres (default: memory)
//   - DATABASE_PATH: SQLite file for the sqlite backend (default: ./ventureflow_cache.db)
//   - POSTGRES_URL: Connection string for the postgres backend
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Fetching and Retries:
//   - USER_AGENT: User agent sent to company websites
//   - FETCH_TIMEOUT: Main page timeout (default: 10s)
//   - AUX_FETCH_TIMEOUT: Auxiliary page timeout (default: 3s)
//   - MAX_RETRIES: Attempts of the whole enrichment (default: 3)
//   - FETCH_RETRIES: Attempts of the page fetch inside one enrichment (default: 2)
//   - RETRY_DELAY: Base backoff delay (default: 1s)
//
// Queue and Scheduling:
//   - QUEUE_TIMEOUT: Age after which a queued request is dropped (default: 30s)
//   - QUEUE_MAX_ATTEMPTS: Attempts per queued request (default: 3)
//   - SWEEP_SCHEDULE: Cron spec for expired cache sweeps (default: @every 10m)
//   - DRAIN_SCHEDULE: Cron spec for queue drains (default: @every 15s)
//
// Security Configuration:
//   - JWT_SECRET: HS256 secret for bearer identities (optional, minimum 32 characters)
//   - TRUSTED_PROXIES: Comma separated CIDRs or addresses whose X-Forwarded-For
//     and X-Real-IP headers are believed (default: none, headers ignored)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/auth"
	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"github.com/SurajPatil2645/VentureFlow/internal/common/validation"
	"github.com/SurajPatil2645/VentureFlow/internal/storage"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration values of the enrichment service.
//
// Load never fails; values that do not parse are recorded and reported by
// Validate.
type Config struct {
	// Application settings
	Port     string
	LogLevel string
	LogFile  string
	TLSCert  string
	TLSKey   string

	// Model API
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout time.Duration

	// Rate limiting
	RateLimitEnabled   bool
	RateLimitPerMinute int

	// Cache and its durable tier
	CacheEnabled  bool
	CacheTTL      time.Duration
	CacheBackend  string
	DatabasePath  string
	PostgresURL   string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Fetching and retries
	UserAgent       string
	FetchTimeout    time.Duration
	AuxFetchTimeout time.Duration
	MaxRetries      int
	FetchRetries    int
	RetryDelay      time.Duration

	// Queue and scheduling
	QueueTimeout     time.Duration
	QueueMaxAttempts int
	SweepSchedule    string
	DrainSchedule    string

	// Caller identity
	JWTSecret      string
	TrustedProxies string

	parseErrors []error
}

// Load creates a Config from environment variables, falling back to defaults
// for unset ones. Call Validate on the result before use.
func Load() *Config {
	c := &Config{}

	c.Port = getEnv("PORT", "8080")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFile = getEnv("LOG_FILE", "")
	c.TLSCert = getEnv("TLS_CERT_FILE", "")
	c.TLSKey = getEnv("TLS_KEY_FILE", "")

	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	c.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")
	c.OpenAITimeout = c.getDurationEnv("OPENAI_TIMEOUT", 30*time.Second)

	c.RateLimitEnabled = getBoolEnv("RATE_LIMIT_ENABLED", true)
	c.RateLimitPerMinute = c.getIntEnv("RATE_LIMIT_PER_MINUTE", 10)

	c.CacheEnabled = getBoolEnv("ENABLE_CACHE", true)
	c.CacheTTL = c.getDurationEnv("CACHE_TTL", 7*24*time.Hour)
	c.CacheBackend = getEnv("CACHE_BACKEND", "memory")
	c.DatabasePath = getEnv("DATABASE_PATH", "./ventureflow_cache.db")
	c.PostgresURL = getEnv("POSTGRES_URL", "")
	c.RedisAddress = getEnv("REDIS_ADDRESS", "localhost:6379")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.getIntEnv("REDIS_POOL_SIZE", 10)

	c.UserAgent = getEnv("USER_AGENT", "Mozilla/5.0 (compatible; VentureFlow VC Intelligence)")
	c.FetchTimeout = c.getDurationEnv("FETCH_TIMEOUT", 10*time.Second)
	c.AuxFetchTimeout = c.getDurationEnv("AUX_FETCH_TIMEOUT", 3*time.Second)
	c.MaxRetries = c.getIntEnv("MAX_RETRIES", 3)
	c.FetchRetries = c.getIntEnv("FETCH_RETRIES", 2)
	c.RetryDelay = c.getDurationEnv("RETRY_DELAY", time.Second)

	c.QueueTimeout = c.getDurationEnv("QUEUE_TIMEOUT", 30*time.Second)
	c.QueueMaxAttempts = c.getIntEnv("QUEUE_MAX_ATTEMPTS", 3)
	c.SweepSchedule = getEnv("SWEEP_SCHEDULE", "@every 10m")
	c.DrainSchedule = getEnv("DRAIN_SCHEDULE", "@every 15s")

	c.JWTSecret = getEnv("JWT_SECRET", "")
	c.TrustedProxies = getEnv("TRUSTED_PROXIES", "")

	return c
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts the strconv.ParseBool forms; anything else yields the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Errorf("%s must be a number", key))
		return defaultValue
	}
	return parsed
}

// getDurationEnv accepts Go durations plus the d and w units.
func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := utils.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Errorf("%s must be a valid duration (e.g. '10s', '7d')", key))
		return defaultValue
	}
	return parsed
}

// Validate checks ranges, the backend selection and its required settings,
// the cron schedules and the JWT secret length. All problems are reported
// together as one config error.
func (c *Config) Validate() error {
	v := validation.NewValidator()
	for _, err := range c.parseErrors {
		v.Validate(func() error { return err })
	}

	v.Validate(func() error {
		if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
		}
		return nil
	})

	v.RequirePositive(c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE").
		RequirePositiveDuration(c.CacheTTL, "CACHE_TTL").
		RequireOneOf(c.CacheBackend, storage.DefaultRegistry.GetAvailableTypes(), "CACHE_BACKEND").
		RequirePositiveDuration(c.FetchTimeout, "FETCH_TIMEOUT").
		RequirePositiveDuration(c.AuxFetchTimeout, "AUX_FETCH_TIMEOUT").
		RequirePositiveDuration(c.OpenAITimeout, "OPENAI_TIMEOUT").
		RequirePositive(c.MaxRetries, "MAX_RETRIES").
		RequirePositive(c.FetchRetries, "FETCH_RETRIES").
		RequirePositiveDuration(c.QueueTimeout, "QUEUE_TIMEOUT").
		RequirePositive(c.QueueMaxAttempts, "QUEUE_MAX_ATTEMPTS")

	v.ValidateIf(c.RetryDelay < 0, func() error {
		return fmt.Errorf("RETRY_DELAY must not be negative")
	})

	v.ValidateIf(c.CacheBackend == "redis", func() error {
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if c.RedisPoolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
		return nil
	})
	v.ValidateIf(c.CacheBackend == "postgres", func() error {
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when CACHE_BACKEND is postgres")
		}
		return nil
	})
	v.ValidateIf(c.CacheBackend == "sqlite", func() error {
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when CACHE_BACKEND is sqlite")
		}
		return nil
	})

	v.ValidateIf((c.TLSCert == "") != (c.TLSKey == ""), func() error {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	})

	v.Validate(func() error { return validateSchedule("SWEEP_SCHEDULE", c.SweepSchedule) })
	v.Validate(func() error { return validateSchedule("DRAIN_SCHEDULE", c.DrainSchedule) })

	v.ValidateIf(c.JWTSecret != "", func() error {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
		}
		return nil
	})

	v.Validate(func() error {
		if _, err := auth.ParseTrustedProxies(c.TrustedProxies); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES %v", err)
		}
		return nil
	})

	if err := v.Error(); err != nil {
		return errors.ConfigError(err.Error())
	}
	return nil
}

func validateSchedule(name, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%s must be a valid cron expression: %v", name, err)
	}
	return nil
}

// StorageConfig returns the durable cache tier settings
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Type:          c.CacheBackend,
		DatabasePath:  c.DatabasePath,
		PostgresURL:   c.PostgresURL,
		RedisAddress:  c.RedisAddress,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPoolSize: c.RedisPoolSize,
	}
}
