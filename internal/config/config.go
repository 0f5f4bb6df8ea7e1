package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Station seeds the station directory in memory mode.
type Station struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
	Region   string `yaml:"region"`
}

// Config is the service configuration.
type Config struct {
	Storage           string        `yaml:"storage"`
	DatabaseURL       string        `yaml:"database_url"`
	HTTPAddr          string        `yaml:"http_addr"`
	JWTSecret         string        `yaml:"jwt_secret"`
	RedisURL          string        `yaml:"redis_url"`
	StationCacheTTL   time.Duration `yaml:"station_cache_ttl"`
	NATSURL           string        `yaml:"nats_url"`
	NATSSubject       string        `yaml:"nats_subject"`
	BlobRoot          string        `yaml:"blob_root"`
	BlobPublicBaseURL string        `yaml:"blob_public_base_url"`
	Locale            string        `yaml:"locale"`
	Currency          string        `yaml:"currency"`
	ReportFontPath    string        `yaml:"report_font_path"`
	CommitTimeout     time.Duration `yaml:"commit_timeout"`
	WriteLimit        int           `yaml:"write_limit"`
	OptimisticLock    bool          `yaml:"optimistic_lock"`
	Stations          []Station     `yaml:"stations"`
}

// Load reads CONFIG_FILE when set, then applies environment overrides.
func Load() (Config, error) {
	cfg := Config{
		Storage:         StoragePostgres,
		HTTPAddr:        ":8080",
		NATSSubject:     "settlement.period.committed",
		StationCacheTTL: time.Minute,
		Locale:          "en",
		CommitTimeout:   30 * time.Second,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Storage = strings.ToLower(getenvDefault("STORAGE", cfg.Storage))
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.RedisURL = getenvDefault("REDIS_URL", cfg.RedisURL)
	cfg.StationCacheTTL = getenvDuration("STATION_CACHE_TTL", cfg.StationCacheTTL)
	cfg.NATSURL = getenvDefault("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = getenvDefault("NATS_SUBJECT", cfg.NATSSubject)
	cfg.BlobRoot = getenvDefault("BLOB_ROOT", cfg.BlobRoot)
	cfg.BlobPublicBaseURL = getenvDefault("BLOB_PUBLIC_BASE_URL", cfg.BlobPublicBaseURL)
	cfg.Locale = getenvDefault("LOCALE", cfg.Locale)
	cfg.Currency = getenvDefault("CURRENCY", cfg.Currency)
	cfg.ReportFontPath = getenvDefault("REPORT_FONT_PATH", cfg.ReportFontPath)
	cfg.CommitTimeout = getenvDuration("COMMIT_TIMEOUT", cfg.CommitTimeout)
	cfg.WriteLimit = getenvIntDefault("COMMIT_WRITE_LIMIT", cfg.WriteLimit)
	cfg.OptimisticLock = getenvBool("OPTIMISTIC_LOCK", cfg.OptimisticLock)

	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL or PG_DSN is required")
		}
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if c.CommitTimeout <= 0 {
		return errors.New("config: commit timeout must be positive")
	}
	if c.ReportFontPath != "" {
		if _, err := os.Stat(c.ReportFontPath); err != nil {
			return fmt.Errorf("config: report font: %w", err)
		}
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
