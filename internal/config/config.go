package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	DefaultPasswordIterations = 200_000
	DefaultSessionCookieName  = "partnerdesk_session"
	envPrefix                 = "PD_"
)

type Config struct {
	Environment string `toml:"-" env:"-"`

	Host string `toml:"host" env:"HOST"`
	Port int    `toml:"port" env:"PORT"`

	// storage
	DBPath             string `toml:"db_path" env:"DB_PATH"`
	PasswordIterations int    `toml:"password_iterations" env:"PASSWORD_ITERATIONS"`
	TablesCacheSizeMB  int    `toml:"tables_cache_size_mb" env:"TABLES_CACHE_SIZE_MB"`

	// sessions
	SessionCookieName string `toml:"session_cookie_name" env:"SESSION_COOKIE_NAME"`
	SecureCookies     bool   `toml:"secure_cookies" env:"SECURE_COOKIES"`

	// browser origins allowed to call the API; requests without Origin always pass
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// logging
	LogLevel      string `toml:"log_level" env:"LOG_LEVEL"`
	LogsPath      string `toml:"logs_path" env:"LOGS_PATH"`
	LogToStdout   bool   `toml:"log_to_stdout" env:"LOG_TO_STDOUT"`
	LogFormatJSON bool   `toml:"log_format_json" env:"LOG_FORMAT_JSON"`
	SentryEnabled bool   `toml:"sentry_enabled" env:"SENTRY_ENABLED"`
	SentryDSN     string `toml:"-" env:"SENTRY_DSN"`

	// telemetry
	PrometheusMetricsHost string `toml:"prometheus_metrics_host" env:"PROMETHEUS_METRICS_HOST"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port" env:"PROMETHEUS_METRICS_PORT"`
	HoneycombEnabled      bool   `toml:"-" env:"HONEYCOMB_ENABLED"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path, picks the section for env and applies
// PD_* environment overrides on top of it.
func Load(environment, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return fromToml(&t, environment)
}

// Parse is Load for an in-memory TOML document.
func Parse(environment, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, environment)
}

func fromToml(t *Toml, environment string) (*Config, error) {
	cfg, err := t.Get(environment)
	if err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}

	cfg.Environment = strings.ToLower(environment)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.PasswordIterations == 0 {
		c.PasswordIterations = DefaultPasswordIterations
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = DefaultSessionCookieName
	}
	if c.TablesCacheSizeMB == 0 {
		c.TablesCacheSizeMB = 4
	}
	if c.PrometheusMetricsHost == "" {
		c.PrometheusMetricsHost = "localhost"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = "2112"
	}
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path not set")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PasswordIterations < 1000 {
		return fmt.Errorf("password_iterations too low: %d", c.PasswordIterations)
	}
	return nil
}
