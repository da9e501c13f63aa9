package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Runner   RunnerConfig   `yaml:"runner"`
	Env      EnvConfig      `yaml:"env"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Security SecurityConfig `yaml:"security"`
	TLS      TLSConfig      `yaml:"tls"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

// RunnerConfig controls script generation and subprocess execution.
type RunnerConfig struct {
	Interpreter        string        `yaml:"interpreter"`
	InterpreterArgs    []string      `yaml:"interpreter_args"`
	DefaultTimeout     time.Duration `yaml:"default_timeout"`
	MaxTimeout         time.Duration `yaml:"max_timeout"`
	MaxConcurrent      int           `yaml:"max_concurrent"`
	MaxScriptBytes     int64         `yaml:"max_script_bytes"`
	ScratchRoot        string        `yaml:"scratch_root"` // empty = OS temp dir
	MaxOutputFileBytes int64         `yaml:"max_output_file_bytes"`
	CleanupScratch     bool          `yaml:"cleanup_scratch"`
	OrphanSweepAge     time.Duration `yaml:"orphan_sweep_age"`
}

// EnvConfig controls which process environment variables may reach scripts.
// Request credentials always pass; pass_through names are read from the
// server's own environment and merged after them, so the process environment
// wins on key collisions (last source wins).
type EnvConfig struct {
	PassThrough []string `yaml:"pass_through"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type TracingConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Endpoint string  `yaml:"endpoint"`
	Sample   float64 `yaml:"sample_rate"`
}

type SecurityConfig struct {
	APIKeyHeader   string   `yaml:"api_key_header"`
	AllowedKeys    []string `yaml:"allowed_keys"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

// TLSConfig controls HTTPS/TLS termination.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from CLI flag or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    65 * time.Second, // > max script timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  4 << 20, // items may carry base64 attachments
		},
		Runner: RunnerConfig{
			Interpreter:        "python3",
			InterpreterArgs:    []string{"-u", "-B"},
			DefaultTimeout:     10 * time.Second,
			MaxTimeout:         60 * time.Second,
			MaxConcurrent:      100,
			MaxScriptBytes:     1 << 20, // 1MB
			MaxOutputFileBytes: 16 << 20,
			CleanupScratch:     true,
			OrphanSweepAge:     time.Hour,
		},
		Database: DatabaseConfig{
			DSN:             "",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled: false,
			Sample:  0.1,
		},
		Security: SecurityConfig{
			APIKeyHeader:   "X-API-Key",
			RateLimitRPS:   100,
			RateLimitBurst: 200,
		},
		TLS: TLSConfig{
			Enabled: false,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Runner.Interpreter == "" {
		return fmt.Errorf("runner.interpreter must not be empty")
	}
	if c.Runner.DefaultTimeout > c.Runner.MaxTimeout {
		return fmt.Errorf("runner.default_timeout (%s) must be <= max_timeout (%s)",
			c.Runner.DefaultTimeout, c.Runner.MaxTimeout)
	}
	if c.Runner.MaxConcurrent < 1 {
		return fmt.Errorf("runner.max_concurrent must be >= 1")
	}
	if c.Runner.MaxScriptBytes < 1 {
		return fmt.Errorf("runner.max_script_bytes must be >= 1")
	}
	if c.Runner.ScratchRoot != "" && !filepath.IsAbs(c.Runner.ScratchRoot) {
		return fmt.Errorf("runner.scratch_root %q must be an absolute path", c.Runner.ScratchRoot)
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}
	if c.Database.DSN != "" && strings.Contains(c.Database.DSN, "sslmode=disable") {
		log.Warn().Msg("database DSN has sslmode=disable — connections to Postgres are unencrypted")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
