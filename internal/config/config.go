package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// RedisConfig holds connection settings for the entry store
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// Config holds configuration settings for the workflow service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Entry Store
		Store RedisConfig

		// Notifications
		MailGatewayURL string
		MailTimeout    time.Duration
		SiteName       string
		SiteEmail      string
		DedupeTTLDays  int

		// Schedule evaluation
		Timezone string

		// Archiving
		ArchiveBucketURL string
		ArchivePrefix    string

		// Directory
		DirectoryPath string

		// Engine
		FormCacheSize   int
		ShutdownTimeout time.Duration
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultRedisPrefix   = "turnstile"

	DefaultMailTimeout     = 10 * time.Second
	DefaultDedupeTTLDays   = 30
	DefaultFormCacheSize   = 256
	DefaultShutdownTimeout = 10 * time.Second

	MaxFormCacheSize = 1_000_000
	MaxDedupeTTLDays = 3650
	MaxRedisDB       = 15
)

var (
	ErrInvalidAPIPort  = errors.New("invalid API port")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, store, and notification settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",
		Store: RedisConfig{
			Addr:     DefaultRedisEndpoint,
			Password: "",
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
		},
		MailTimeout:     DefaultMailTimeout,
		DedupeTTLDays:   DefaultDedupeTTLDays,
		Timezone:        "UTC",
		FormCacheSize:   DefaultFormCacheSize,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Store.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Store.Prefix = prefix
	}

	if url := os.Getenv("MAIL_GATEWAY_URL"); url != "" {
		c.MailGatewayURL = url
	}
	if name := os.Getenv("SITE_NAME"); name != "" {
		c.SiteName = name
	}
	if email := os.Getenv("SITE_EMAIL"); email != "" {
		c.SiteEmail = email
	}

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		c.Timezone = tz
	}

	if url := os.Getenv("ARCHIVE_BUCKET_URL"); url != "" {
		c.ArchiveBucketURL = url
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}

	if path := os.Getenv("DIRECTORY_PATH"); path != "" {
		c.DirectoryPath = path
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.Store.DB, -1, MaxRedisDB,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"FORM_CACHE_SIZE", &c.FormCacheSize, 0, MaxFormCacheSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"DEDUPE_TTL_DAYS", &c.DedupeTTLDays, 0, MaxDedupeTTLDays,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimezone, c.Timezone)
	}
	return nil
}

// Location resolves the configured timezone. Validate must have passed
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DedupeTTL converts the configured retention in days to a duration
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLDays) * 24 * time.Hour
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
