package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stayonboard-server-go/internal/platform/errors"
)

// Loader reads configuration from an optional YAML file with environment
// overrides layered on top. Environment variables use the SOB_ prefix.
type Loader struct {
	path      string
	useDotEnv bool
}

// NewLoader creates a loader for the given config path. An empty path skips
// file loading and uses defaults plus environment overrides.
func NewLoader(path string) *Loader {
	return &Loader{
		path:      path,
		useDotEnv: true,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Load builds the effective configuration.
func (l *Loader) Load() (*Config, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	cfg := Defaults()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrap(errors.KindConfig, "config.load", "read config file", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load", "parse config file", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "config.validate", "server port out of range")
	}
	if c.Server.AuthEnabled && c.Server.AuthSecret == "" {
		return errors.New(errors.KindConfig, "config.validate", "auth enabled but no secret configured")
	}
	if c.Extraction.Colors < 1 || c.Extraction.Colors > 16 {
		return errors.New(errors.KindConfig, "config.validate", "extraction colors must be between 1 and 16")
	}
	if c.Cache.Capacity < 1 {
		return errors.New(errors.KindConfig, "config.validate", "cache capacity must be positive")
	}
	if c.History.MaxPageSize < c.History.DefaultPageSize {
		return errors.New(errors.KindConfig, "config.validate", "history max page size below default page size")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "SOB_SERVER_HOST")
	setInt(&cfg.Server.Port, "SOB_SERVER_PORT")
	setBool(&cfg.Server.AuthEnabled, "SOB_AUTH_ENABLED")
	setString(&cfg.Server.AuthSecret, "SOB_AUTH_SECRET")
	setString(&cfg.Log.Level, "SOB_LOG_LEVEL")
	setString(&cfg.Log.Dir, "SOB_LOG_DIR")
	setInt64(&cfg.Image.MaxFileSize, "SOB_IMAGE_MAX_FILE_SIZE")
	setInt(&cfg.Extraction.Colors, "SOB_EXTRACTION_COLORS")
	setDuration(&cfg.Compute.Timeout, "SOB_COMPUTE_TIMEOUT")
	setString(&cfg.Cache.Driver, "SOB_CACHE_DRIVER")
	setDuration(&cfg.Cache.TTL, "SOB_CACHE_TTL")
	setInt(&cfg.Cache.Capacity, "SOB_CACHE_CAPACITY")
	setString(&cfg.Cache.Redis.Addr, "SOB_CACHE_REDIS_ADDR")
	setString(&cfg.Cache.Redis.Password, "SOB_CACHE_REDIS_PASSWORD")
	setString(&cfg.ImageStore.Driver, "SOB_IMAGE_STORE_DRIVER")
	setDuration(&cfg.ImageStore.TTL, "SOB_IMAGE_STORE_TTL")
	setString(&cfg.ImageStore.Redis.Addr, "SOB_IMAGE_STORE_REDIS_ADDR")
	setString(&cfg.History.Driver, "SOB_HISTORY_DRIVER")
	setString(&cfg.History.SQLite.DSN, "SOB_HISTORY_SQLITE_DSN")
	setInt(&cfg.History.DefaultPageSize, "SOB_HISTORY_DEFAULT_PAGE_SIZE")
	setInt(&cfg.History.MaxPageSize, "SOB_HISTORY_MAX_PAGE_SIZE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}

func setInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}
