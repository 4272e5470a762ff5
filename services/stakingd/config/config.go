package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryDataDir selects the in-memory state database.
const MemoryDataDir = ":memory:"

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for stakingd.
type Config struct {
	ListenAddress     string          `yaml:"listen"`
	GRPCListenAddress string          `yaml:"grpc_listen"`
	Environment       string          `yaml:"environment"`
	DataDir           string          `yaml:"data_dir"`
	ParamsFile        string          `yaml:"params_file"`
	ExportDir         string          `yaml:"export_dir"`
	Journal           JournalConfig   `yaml:"journal"`
	Auth              AuthConfig      `yaml:"auth"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	Log               LogConfig       `yaml:"log"`
	Telemetry         TelemetryConfig `yaml:"telemetry"`
	ShutdownTimeout   Duration        `yaml:"shutdown_timeout"`
}

// JournalConfig selects the activity journal database. DSNs starting with
// postgres:// or postgresql:// use PostgreSQL, anything else is a SQLite path.
type JournalConfig struct {
	DSN string `yaml:"dsn"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	HMACSecret    string `yaml:"hmac_secret"`
	HMACSecretEnv string `yaml:"hmac_secret_env"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	AdminScope    string `yaml:"admin_scope"`
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LogConfig configures the optional rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
}

// TelemetryConfig configures OTLP exporters.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"headers"`
	Metrics     bool    `yaml:"metrics"`
	Traces      bool    `yaml:"traces"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8090"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./stakingd-data"
	}
	if cfg.ParamsFile == "" {
		cfg.ParamsFile = "./params.toml"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "./exports"
	}
	if cfg.Journal.DSN == "" {
		cfg.Journal.DSN = "stakingd-journal.db"
	}
	if cfg.Auth.HMACSecretEnv == "" {
		cfg.Auth.HMACSecretEnv = "STAKINGD_JWT_SECRET"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "stakingd"
	}
	if cfg.Auth.Audience == "" {
		cfg.Auth.Audience = "staking-api"
	}
	if cfg.Auth.AdminScope == "" {
		cfg.Auth.AdminScope = "staking:admin"
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 5
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 14
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4318"
	}
	if cfg.ShutdownTimeout.Duration == 0 {
		cfg.ShutdownTimeout.Duration = 10 * time.Second
	}
}

func validate(cfg Config) error {
	if cfg.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative")
	}
	if cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must not be negative")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1]")
	}
	if cfg.GRPCListenAddress != "" && cfg.GRPCListenAddress == cfg.ListenAddress {
		return fmt.Errorf("grpc_listen must differ from listen")
	}
	return nil
}

// ResolveSecret returns the HMAC secret, preferring the environment variable
// over the inline value.
func (a AuthConfig) ResolveSecret() (string, error) {
	if env := strings.TrimSpace(a.HMACSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value, nil
		}
	}
	if secret := strings.TrimSpace(a.HMACSecret); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("auth: set %s or auth.hmac_secret", a.HMACSecretEnv)
}

// IsPostgres reports whether the journal DSN targets PostgreSQL.
func (j JournalConfig) IsPostgres() bool {
	dsn := strings.ToLower(strings.TrimSpace(j.DSN))
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
