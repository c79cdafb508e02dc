// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback), after loading a .env file if present
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	token := cfg.Ledger.Token
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Tagger        TaggerConfig        `yaml:"tagger"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Events        EventsConfig        `yaml:"events"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// TaggerConfig holds the reconciliation options
type TaggerConfig struct {
	RetagMode      string   `yaml:"retag_mode" validate:"omitempty,oneof=off interactive force"`
	MaxUpdates     int      `yaml:"max_updates" validate:"gte=0"`
	Verbose        bool     `yaml:"verbose_itemize"`
	NoItemize      bool     `yaml:"no_itemize"`
	IgnoreCategory bool     `yaml:"ignore_category"`
	OrderPrefix    string   `yaml:"description_prefix_override"`
	RefundPrefix   string   `yaml:"description_return_prefix_override"`
	MerchantFilter []string `yaml:"merchant_filter"`
	CategoryFilter []string `yaml:"category_filter"`
	NoPredict      bool     `yaml:"no_predict_categories"`
	LookbackDays   int      `yaml:"lookback_days" validate:"gte=0"`
}

// LedgerConfig holds ledger service configuration
type LedgerConfig struct {
	BaseURL    string `yaml:"base_url" validate:"omitempty,url"`
	Token      string `yaml:"token"`
	MaxRetries int    `yaml:"max_retries" validate:"gte=0"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds run-history server configuration
type APIConfig struct {
	Port           int      `yaml:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// EventsConfig holds update event stream configuration. Publishing is off
// when no brokers are configured.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" validate:"required_with=Brokers"`
}

// Enabled reports whether update events should be published.
func (e EventsConfig) Enabled() bool {
	return len(e.Brokers) > 0
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGER_TOKEN})
	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables only. A .env
// file in the working directory is read first; real environment variables
// take precedence over it.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	cfg := defaults()
	cfg.Tagger.RetagMode = getEnv("TAGGER_RETAG_MODE", cfg.Tagger.RetagMode)
	cfg.Tagger.MaxUpdates = getEnvInt("TAGGER_MAX_UPDATES", cfg.Tagger.MaxUpdates)
	cfg.Tagger.LookbackDays = getEnvInt("TAGGER_LOOKBACK_DAYS", cfg.Tagger.LookbackDays)
	cfg.Tagger.OrderPrefix = os.Getenv("TAGGER_ORDER_PREFIX")
	cfg.Tagger.RefundPrefix = os.Getenv("TAGGER_REFUND_PREFIX")
	if v := os.Getenv("TAGGER_MERCHANT_FILTER"); v != "" {
		cfg.Tagger.MerchantFilter = splitList(v)
	}
	cfg.Tagger.CategoryFilter = splitList(os.Getenv("TAGGER_CATEGORY_FILTER"))

	cfg.Ledger.BaseURL = getEnv("LEDGER_BASE_URL", cfg.Ledger.BaseURL)
	cfg.Ledger.Token = os.Getenv("LEDGER_TOKEN")
	cfg.Ledger.MaxRetries = getEnvInt("LEDGER_MAX_RETRIES", cfg.Ledger.MaxRetries)

	cfg.Storage.DatabasePath = getEnv("TAGGER_DB_PATH", cfg.Storage.DatabasePath)

	cfg.API.Port = getEnvInt("API_PORT", cfg.API.Port)
	if v := os.Getenv("API_ALLOWED_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = splitList(v)
	}

	cfg.Events.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.Events.Topic = getEnv("KAFKA_TOPIC", cfg.Events.Topic)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func defaults() *Config {
	return &Config{
		Tagger: TaggerConfig{
			RetagMode:      "off",
			LookbackDays:   90,
			MerchantFilter: []string{"amazon", "amzn"},
		},
		Ledger: LedgerConfig{
			BaseURL:    "http://localhost:8090",
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			DatabasePath: "ledger_tagger.db",
		},
		API: APIConfig{
			Port:           8085,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Events: EventsConfig{
			Topic: "ledger_updates",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetAPIKey retrieves a secret from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Ledger.Token, "LEDGER_TOKEN")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
