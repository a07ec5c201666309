package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the server configuration, read from the environment.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	QuoteTopic   string   `env:"QUOTE_TOPIC" envDefault:"quotes.generated"`

	QuoteValidity   time.Duration `env:"QUOTE_VALIDITY" envDefault:"720h"`
	RecordTimeout   time.Duration `env:"RECORD_TIMEOUT" envDefault:"5s"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
	CurrencySymbol  string        `env:"CURRENCY_SYMBOL" envDefault:"R"`

	LogLevel        string `env:"LOG_LEVEL" envDefault:"INFO"`
	ErrorSampleRate int    `env:"ERROR_SAMPLE_RATE" envDefault:"100"`
	OTELEnabled     bool   `env:"OTEL_ENABLED"`
	ServiceName     string `env:"OTEL_SERVICE_NAME" envDefault:"quoting"`
}

// Load reads .env files (when present) and then the environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values env parsing accepts but the server cannot use.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.QuoteValidity <= 0 {
		return fmt.Errorf("QUOTE_VALIDITY must be positive, got %s", c.QuoteValidity)
	}
	if c.RecordTimeout <= 0 {
		return fmt.Errorf("RECORD_TIMEOUT must be positive, got %s", c.RecordTimeout)
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL cannot be negative, got %s", c.CatalogCacheTTL)
	}
	return nil
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
