package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/halftime/internal/features"
)

type Config struct {
	// Server
	Port     int
	WSPort   int
	Env      string
	LogLevel string

	// CORS
	AllowedOrigins []string

	// Live feed
	ESPNAPIBase   string
	FeedTimeout   time.Duration
	FeedUserAgent string

	// Baseline source; exactly one of CSV path or DSN is set
	BaselineCSV   string
	BaselineDSN   string
	BaselineTable string

	// Models
	ModelMeanPath string
	ModelLowPath  string
	ModelHighPath string
	Variant       features.Variant

	// Location defines the calendar day of "today"
	Location *time.Location

	// Optional live snapshot stream and its background poll; a zero
	// interval disables polling
	RedisURL             string
	SnapshotPollInterval time.Duration
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		WSPort:   getEnvInt("WS_PORT", 8081),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ESPNAPIBase:   getEnv("ESPN_API_BASE", "https://site.api.espn.com"),
		FeedTimeout:   getEnvDuration("FEED_TIMEOUT", 15*time.Second),
		FeedUserAgent: getEnv("FEED_USER_AGENT", ""),

		BaselineCSV:   os.Getenv("BASELINE_CSV"),
		BaselineDSN:   os.Getenv("BASELINE_DSN"),
		BaselineTable: getEnv("BASELINE_TABLE", "baseline_features"),

		ModelLowPath:  os.Getenv("MODEL_LOW_PATH"),
		ModelHighPath: os.Getenv("MODEL_HIGH_PATH"),

		RedisURL:             os.Getenv("REDIS_URL"),
		SnapshotPollInterval: getEnvDuration("SNAPSHOT_POLL_INTERVAL", 30*time.Second),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.ModelMeanPath, err = getEnvRequired("MODEL_MEAN_PATH"); err != nil {
		return nil, err
	}
	if cfg.Variant, err = features.ParseVariant(getEnv("MODEL_VARIANT", string(features.VariantEnsemble))); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "America/New_York")); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations that individual variables cannot.
func (c *Config) Validate() error {
	switch {
	case c.BaselineCSV == "" && c.BaselineDSN == "":
		return errors.New("one of BASELINE_CSV or BASELINE_DSN must be set")
	case c.BaselineCSV != "" && c.BaselineDSN != "":
		return errors.New("BASELINE_CSV and BASELINE_DSN are mutually exclusive")
	}

	if c.Variant.NeedsQuantiles() && (c.ModelLowPath == "" || c.ModelHighPath == "") {
		return fmt.Errorf("variant %s requires MODEL_LOW_PATH and MODEL_HIGH_PATH", c.Variant)
	}
	if !c.Variant.NeedsQuantiles() && (c.ModelLowPath != "" || c.ModelHighPath != "") {
		return fmt.Errorf("variant %s uses the mean model only; unset MODEL_LOW_PATH and MODEL_HIGH_PATH", c.Variant)
	}
	if c.Port == c.WSPort {
		return fmt.Errorf("PORT and WS_PORT must differ (both %d)", c.Port)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
