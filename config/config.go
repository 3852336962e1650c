package config

import (
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Search    SearchConfig    `envPrefix:"SEARCH_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	AI        AIConfig        `envPrefix:"AI_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Telemetry TelemetryConfig `envPrefix:"TELEMETRY_"`
	Scraper   ScraperConfig   `envPrefix:"SCRAPER_"`

	ProvidersFile  string `env:"PROVIDERS_FILE" envDefault:"data/searchProviders.yaml"`
	ProxyURL       string `env:"PROXY_URL"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"PORT" envDefault:"5001"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

type SearchConfig struct {
	ReadyTimeout      time.Duration `env:"READY_TIMEOUT" envDefault:"5s"`
	DefaultCountry    string        `env:"DEFAULT_COUNTRY" envDefault:"US"`
	DefaultMaxResults int           `env:"DEFAULT_MAX_RESULTS" envDefault:"12"`
	MaxResultsLimit   int           `env:"MAX_RESULTS_LIMIT" envDefault:"100"`
}

type SessionConfig struct {
	// IdleTTL evicts sessions untouched for this long. Zero keeps them for the
	// life of the process.
	IdleTTL         time.Duration `env:"IDLE_TTL" envDefault:"0s"`
	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"1m"`
}

type AIConfig struct {
	Provider    string  `env:"PROVIDER" envDefault:"googleai"`
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.2"`
}

type StorageConfig struct {
	Path string `env:"PATH" envDefault:"data/dealhunter.db"`
}

type TelemetryConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTLPInsecure    bool          `env:"OTLP_INSECURE" envDefault:"true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"dealhunter"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
}

type ScraperConfig struct {
	UserAgent      string        `env:"USER_AGENT" envDefault:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	Headless       bool          `env:"HEADLESS" envDefault:"true"`
	ExecPath       string        `env:"CHROME_PATH"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
