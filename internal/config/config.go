package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// Defaults applied by Load and LoadFromFile.
const (
	DefaultServerPort       = "8080"
	DefaultTimeout          = 30 * time.Second
	DefaultConcurrency      = 1
	DefaultConvertRateLimit = 10
	DefaultLogLevel         = "info"
)

var (
	ErrInvalidMode        = errors.New("config: mode must be \"category\" or \"flat\"")
	ErrInvalidConcurrency = errors.New("config: concurrency must be positive")
)

// Config holds application configuration. Database and Redis are optional:
// without a database conversions are kept in memory, without Redis there is
// no cache, device lock or job queue.
type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string

	Timeout           time.Duration
	Concurrency       int
	Mode              models.EnumerationMode
	RequestsPerSecond float64
	MaxPages          int
	PersistItems      bool
	InlinePlaylist    bool
	// ConvertRateLimit is requests per minute per client IP on the convert
	// endpoints. Zero disables the limit.
	ConvertRateLimit int
	LogLevel         string
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		ServerPort:       DefaultServerPort,
		Timeout:          DefaultTimeout,
		Concurrency:      DefaultConcurrency,
		Mode:             models.ModeCategory,
		InlinePlaylist:   true,
		ConvertRateLimit: DefaultConvertRateLimit,
		LogLevel:         DefaultLogLevel,
	}
}

// Load builds config from environment variables. .env.local and .env in the
// working directory or next to the executable fill in unset variables.
func Load() (*Config, error) {
	loadEnvFiles()
	c := Default()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overrides c with any variables that are set.
func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("ENUMERATION_MODE"); v != "" {
		c.Mode = models.EnumerationMode(strings.ToLower(strings.TrimSpace(v)))
	}

	var err error
	if c.Timeout, err = envDuration("PORTAL_TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if c.Concurrency, err = envInt("CONCURRENCY", c.Concurrency); err != nil {
		return err
	}
	if c.MaxPages, err = envInt("MAX_PAGES", c.MaxPages); err != nil {
		return err
	}
	if c.ConvertRateLimit, err = envInt("CONVERT_RATE_LIMIT", c.ConvertRateLimit); err != nil {
		return err
	}
	if c.PersistItems, err = envBool("PERSIST_ITEMS", c.PersistItems); err != nil {
		return err
	}
	if c.InlinePlaylist, err = envBool("INLINE_PLAYLIST", c.InlinePlaylist); err != nil {
		return err
	}
	if v := os.Getenv("REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: REQUESTS_PER_SECOND: %w", err)
		}
		c.RequestsPerSecond = f
	}
	return nil
}

// Validate rejects settings the converter cannot run with.
func (c *Config) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w, got %q", ErrInvalidMode, c.Mode)
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MaxPages < 0 {
		return errors.New("config: max_pages must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("config: requests_per_second must not be negative")
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
