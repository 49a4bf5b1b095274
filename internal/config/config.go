// Package config provides environment-driven configuration for loglens.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// KDF holds the argon2id parameters for API key digests. These must remain
// stable across restarts or existing keys stop verifying.
type KDF struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	SaltLen   int
	KeyLen    uint32
}

// Config holds all application configuration values.
type Config struct {
	DatabaseURL Secret
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string

	MaxBodyBytes      int64
	MaxMessageBytes   int
	PerTenantRate     float64
	PerTenantBurst    int
	FanoutBuffer      int
	FanoutDropLimit   int
	AnalyticsTTLSecs  int
	RetentionDays     int
	AnalyticsWorkers  int

	KDF KDF
}

// Defaults for the recognized options.
const (
	defaultMaxBodyBytes    = 10 << 20 // 10 MiB
	defaultMaxMessageBytes = 64 << 10 // 64 KiB
	defaultPerTenantRate   = 1000.0   // records/s
	defaultPerTenantBurst  = 5000
	defaultFanoutBuffer    = 256
	defaultFanoutDropLimit = 64
	defaultAnalyticsTTL    = 3600
	defaultRetentionDays   = 90

	defaultKDFTime      = 3
	defaultKDFMemoryKiB = 64 * 1024
	defaultKDFThreads   = 2
	defaultKDFSaltLen   = 16
	defaultKDFKeyLen    = 32
)

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Port:        envOrDefault("PORT", "3040"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.MaxBodyBytes, err = envInt64("LL_MAX_BODY_BYTES", defaultMaxBodyBytes); err != nil {
		return nil, err
	}
	if cfg.MaxMessageBytes, err = envInt("LL_MAX_MESSAGE_BYTES", defaultMaxMessageBytes); err != nil {
		return nil, err
	}
	if cfg.PerTenantRate, err = envFloat("LL_PER_TENANT_RATE", defaultPerTenantRate); err != nil {
		return nil, err
	}
	if cfg.PerTenantBurst, err = envInt("LL_PER_TENANT_BURST", defaultPerTenantBurst); err != nil {
		return nil, err
	}
	if cfg.FanoutBuffer, err = envInt("LL_FANOUT_BUFFER", defaultFanoutBuffer); err != nil {
		return nil, err
	}
	if cfg.FanoutDropLimit, err = envInt("LL_FANOUT_DROP_THRESHOLD", defaultFanoutDropLimit); err != nil {
		return nil, err
	}
	if cfg.AnalyticsTTLSecs, err = envInt("LL_ANALYTICS_TTL_SECONDS", defaultAnalyticsTTL); err != nil {
		return nil, err
	}
	if cfg.RetentionDays, err = envInt("LL_RETENTION_DAYS", defaultRetentionDays); err != nil {
		return nil, err
	}

	if cfg.KDF, err = loadKDF(); err != nil {
		return nil, err
	}

	workers, err := envInt("LL_ANALYTICS_WORKERS", 4)
	if err != nil || workers < 1 || workers > 32 {
		return nil, fmt.Errorf("LL_ANALYTICS_WORKERS must be an integer between 1 and 32")
	}
	cfg.AnalyticsWorkers = workers

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadKDF reads the argon2id parameters. Bounds are checked on the raw values
// before the unsigned conversions.
func loadKDF() (KDF, error) {
	kdfTime, err := envInt("LL_KDF_TIME", defaultKDFTime)
	if err != nil {
		return KDF{}, err
	}
	memoryKiB, err := envInt("LL_KDF_MEMORY_KIB", defaultKDFMemoryKiB)
	if err != nil {
		return KDF{}, err
	}
	threads, err := envInt("LL_KDF_THREADS", defaultKDFThreads)
	if err != nil {
		return KDF{}, err
	}
	saltLen, err := envInt("LL_KDF_SALT_LEN", defaultKDFSaltLen)
	if err != nil {
		return KDF{}, err
	}
	keyLen, err := envInt("LL_KDF_KEY_LEN", defaultKDFKeyLen)
	if err != nil {
		return KDF{}, err
	}

	switch {
	case kdfTime < 1:
		return KDF{}, fmt.Errorf("LL_KDF_TIME must be at least 1")
	case memoryKiB < 8*1024:
		return KDF{}, fmt.Errorf("LL_KDF_MEMORY_KIB must be at least 8192")
	case threads < 1 || threads > 64:
		return KDF{}, fmt.Errorf("LL_KDF_THREADS must be between 1 and 64")
	case saltLen < 8:
		return KDF{}, fmt.Errorf("LL_KDF_SALT_LEN must be at least 8")
	case keyLen < 16:
		return KDF{}, fmt.Errorf("LL_KDF_KEY_LEN must be at least 16")
	}

	return KDF{
		Time:      uint32(kdfTime),
		MemoryKiB: uint32(memoryKiB),
		Threads:   uint8(threads),
		SaltLen:   saltLen,
		KeyLen:    uint32(keyLen),
	}, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateLimits()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if dbHost != "localhost" && dbHost != "127.0.0.1" && dbHost != "::1" {
		if dbURL.Query().Get("sslmode") == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local deployments, 0.0.0.0/:: for containers where the
	// network boundary is enforced externally.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateLimits() error {
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("LL_MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxMessageBytes < 256 {
		return fmt.Errorf("LL_MAX_MESSAGE_BYTES must be at least 256")
	}
	if c.PerTenantRate <= 0 {
		return fmt.Errorf("LL_PER_TENANT_RATE must be positive")
	}
	if c.PerTenantBurst < 1 {
		return fmt.Errorf("LL_PER_TENANT_BURST must be at least 1")
	}
	if c.FanoutBuffer < 1 || c.FanoutDropLimit < 1 {
		return fmt.Errorf("fanout buffer and drop threshold must be at least 1")
	}
	if c.AnalyticsTTLSecs < 1 {
		return fmt.Errorf("LL_ANALYTICS_TTL_SECONDS must be at least 1")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("LL_RETENTION_DAYS must be at least 1")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}
