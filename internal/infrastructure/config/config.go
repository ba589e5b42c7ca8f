package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// FileEnv names an optional YAML or TOML file applied before the environment.
const FileEnv = "SCRIPT_ENGINE_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" toml:"monitoring"`
	Logging     LogConfig         `yaml:"logging" toml:"logging"`
	HTTPLogging HTTPLoggingConfig `yaml:"httpLogging" toml:"httpLogging"`
	Script      ScriptConfig      `yaml:"script" toml:"script"`
	Sandbox     SandboxConfig     `yaml:"sandbox" toml:"sandbox"`
	RateLimit   RateLimitConfig   `yaml:"rateLimit" toml:"rateLimit"`
	CORS        CORSConfig        `yaml:"cors" toml:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port                string `envconfig:"PORT" yaml:"port" toml:"port"`
	Host                string `envconfig:"HOST" yaml:"host" toml:"host"`
	ConnectionTimeoutMS int    `envconfig:"ATP_ITF_LITE_CONNECTION_TIMEOUT" yaml:"connectionTimeoutMs" toml:"connectionTimeoutMs"`
	RequestSizeMB       int    `envconfig:"ATP_ITF_LITE_HTTP_REQUEST_SIZE_MB" yaml:"requestSizeMb" toml:"requestSizeMb"`
	ResponseSizeMB      int    `envconfig:"ATP_ITF_LITE_HTTP_RESPONSE_SIZE_MB" yaml:"responseSizeMb" toml:"responseSizeMb"`
}

// MonitoringConfig holds the metrics listener configuration.
type MonitoringConfig struct {
	Enabled bool   `envconfig:"MONITORING_ENABLED" yaml:"enabled" toml:"enabled"`
	Port    string `envconfig:"MONITORING_PORT" yaml:"port" toml:"port"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development    bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
	File           string `envconfig:"LOG_FILE" yaml:"file" toml:"file"`
	FileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" yaml:"fileMaxSizeMb" toml:"fileMaxSizeMb"`
	FileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" yaml:"fileMaxBackups" toml:"fileMaxBackups"`
	FileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" yaml:"fileMaxAgeDays" toml:"fileMaxAgeDays"`
}

// HTTPLoggingConfig controls request/response logging.
type HTTPLoggingConfig struct {
	Enabled       bool   `envconfig:"ATP_HTTP_LOGGING" yaml:"enabled" toml:"enabled"`
	Headers       bool   `envconfig:"ATP_HTTP_LOGGING_HEADERS" yaml:"headers" toml:"headers"`
	URIIgnore     string `envconfig:"ATP_HTTP_LOGGING_URI_IGNORE" yaml:"uriIgnore" toml:"uriIgnore"`
	HeadersIgnore string `envconfig:"ATP_HTTP_LOGGING_HEADERS_IGNORE" yaml:"headersIgnore" toml:"headersIgnore"`
}

// ScriptConfig holds execution limits.
type ScriptConfig struct {
	ExecutionTimeoutMS int `envconfig:"SCRIPT_EXECUTION_TIMEOUT_MS" yaml:"executionTimeoutMs" toml:"executionTimeoutMs"`
	LockCacheSize      int `envconfig:"SCRIPT_LOCK_CACHE_SIZE" yaml:"lockCacheSize" toml:"lockCacheSize"`
}

// SandboxConfig holds script runtime configuration.
type SandboxConfig struct {
	MaxCallStack     int `envconfig:"SANDBOX_MAX_CALL_STACK" yaml:"maxCallStack" toml:"maxCallStack"`
	BreakerFailures  int `envconfig:"SANDBOX_BREAKER_FAILURES" yaml:"breakerFailures" toml:"breakerFailures"`
	BreakerTimeoutMS int `envconfig:"SANDBOX_BREAKER_TIMEOUT_MS" yaml:"breakerTimeoutMs" toml:"breakerTimeoutMs"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// CORSConfig holds cross-origin settings. An empty origin list allows any origin.
type CORSConfig struct {
	Enabled bool     `envconfig:"CORS_ENABLED" yaml:"enabled" toml:"enabled"`
	Origins []string `envconfig:"CORS_ORIGINS" yaml:"origins" toml:"origins"`
}

// Load builds configuration from defaults, the optional file named by
// SCRIPT_ENGINE_CONFIG, then environment variables, each overriding the last.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays the YAML or TOML file at path onto cfg. Keys missing from
// the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Script.ExecutionTimeoutMS < 0 {
		return fmt.Errorf("SCRIPT_EXECUTION_TIMEOUT_MS must not be negative")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	if c.HTTPLogging.URIIgnore != "" {
		if _, err := regexp.Compile(c.HTTPLogging.URIIgnore); err != nil {
			return fmt.Errorf("invalid ATP_HTTP_LOGGING_URI_IGNORE: %w", err)
		}
	}
	if c.HTTPLogging.HeadersIgnore != "" {
		if _, err := regexp.Compile("(?i)" + c.HTTPLogging.HeadersIgnore); err != nil {
			return fmt.Errorf("invalid ATP_HTTP_LOGGING_HEADERS_IGNORE: %w", err)
		}
	}
	return nil
}

// Addr is the API listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionTimeout bounds reading and writing one request.
func (s ServerConfig) ConnectionTimeout() time.Duration {
	return time.Duration(s.ConnectionTimeoutMS) * time.Millisecond
}

// MaxBodyBytes is the largest accepted request body. It covers both the
// request and the echoed response carried in the scripting context.
func (s ServerConfig) MaxBodyBytes() int64 {
	return int64(s.RequestSizeMB+s.ResponseSizeMB) << 20
}

// ExecutionTimeout bounds one sandbox run; zero disables the bound.
func (s ScriptConfig) ExecutionTimeout() time.Duration {
	return time.Duration(s.ExecutionTimeoutMS) * time.Millisecond
}

// BreakerTimeout is how long the sandbox breaker stays open.
func (s SandboxConfig) BreakerTimeout() time.Duration {
	return time.Duration(s.BreakerTimeoutMS) * time.Millisecond
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8080",
			Host:                "0.0.0.0",
			ConnectionTimeoutMS: 60000,
			RequestSizeMB:       50,
			ResponseSizeMB:      50,
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Port:    "8090",
		},
		Logging: LogConfig{
			Level:          "info",
			Development:    false,
			FileMaxSizeMB:  100,
			FileMaxBackups: 5,
			FileMaxAgeDays: 14,
		},
		Script: ScriptConfig{
			ExecutionTimeoutMS: 30000,
			LockCacheSize:      10000,
		},
		Sandbox: SandboxConfig{
			MaxCallStack:     1024,
			BreakerFailures:  5,
			BreakerTimeoutMS: 30000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
		CORS: CORSConfig{
			Enabled: true,
		},
	}
}
