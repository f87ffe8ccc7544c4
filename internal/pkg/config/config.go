package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sampling  SamplingConfig  `mapstructure:"sampling"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Exporter    string `mapstructure:"exporter"` // otlp | stdout
	Enabled     bool   `mapstructure:"enabled"`
}

// SamplingConfig tunes how profiles are sampled.
type SamplingConfig struct {
	// ResolutionMeters is the path spacing used by the curvature sightline.
	ResolutionMeters float64 `mapstructure:"resolution_meters"`
	// MaxSamples caps the number of lookups for one profile.
	MaxSamples      int `mapstructure:"max_samples"`
	Concurrency     int `mapstructure:"concurrency"`
	LookupTimeoutMs int `mapstructure:"lookup_timeout_ms"`
	DefaultSamples  int `mapstructure:"default_samples"`
}

// LookupTimeout returns the per-lookup timeout as a duration.
func (s SamplingConfig) LookupTimeout() time.Duration {
	return time.Duration(s.LookupTimeoutMs) * time.Millisecond
}

type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	TaskQueue string `mapstructure:"task_queue"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "terrain")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "sightline")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.exporter", "otlp")
	v.SetDefault("sampling.resolution_meters", 100.0)
	v.SetDefault("sampling.max_samples", 2000)
	v.SetDefault("sampling.concurrency", 8)
	v.SetDefault("sampling.lookup_timeout_ms", 2000)
	v.SetDefault("sampling.default_samples", 10)
	v.SetDefault("cache.ttl_seconds", 3600)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.task_queue", "coverage-sweeps")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// A local .env only fills variables that are not already set.
	_ = godotenv.Load()

	// Environment variables: SIGHTLINE_DATABASE_HOST → database.host
	v.SetEnvPrefix("SIGHTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Sampling.ResolutionMeters <= 0 {
		errs = append(errs, "sampling.resolution_meters must be positive")
	}
	if c.Sampling.MaxSamples < 2 {
		errs = append(errs, fmt.Sprintf("sampling.max_samples must be at least 2, got %d", c.Sampling.MaxSamples))
	}
	if c.Sampling.Concurrency <= 0 {
		errs = append(errs, "sampling.concurrency must be positive")
	}
	if c.Sampling.LookupTimeoutMs <= 0 {
		errs = append(errs, "sampling.lookup_timeout_ms must be positive")
	}
	if c.Sampling.DefaultSamples < 2 {
		errs = append(errs, fmt.Sprintf("sampling.default_samples must be at least 2, got %d", c.Sampling.DefaultSamples))
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttl_seconds must not be negative")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.Telemetry.Enabled && c.Telemetry.Exporter != "otlp" && c.Telemetry.Exporter != "stdout" {
		errs = append(errs, fmt.Sprintf("telemetry.exporter must be otlp or stdout, got %q", c.Telemetry.Exporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
