package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Seqkit   SeqkitConfig   `yaml:"seqkit"`
	Limits   LimitsConfig   `yaml:"limits"`
	Audit    AuditConfig    `yaml:"audit"`
	Database DatabaseConfig `yaml:"database"`
	Security SecurityConfig `yaml:"security"`
	CORS     CORSConfig     `yaml:"cors"`
	TLS      TLSConfig      `yaml:"tls"`
	Logging  LoggingConfig  `yaml:"logging"`
	MCP      MCPConfig      `yaml:"mcp"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

// SeqkitConfig controls how the seqkit binary is located and invoked.
type SeqkitConfig struct {
	Path           string        `yaml:"path"`
	Backend        string        `yaml:"backend"` // "auto" (default), "local", or "docker"
	DockerImage    string        `yaml:"docker_image"`
	StatsTimeout   time.Duration `yaml:"stats_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	MaxOutputBytes int           `yaml:"max_output_bytes"`
	Limits         ToolLimits    `yaml:"limits"`
	Breaker        BreakerConfig `yaml:"breaker"`
	VersionCache   time.Duration `yaml:"version_cache"`
}

// ToolLimits are container limits applied by the docker backend.
type ToolLimits struct {
	CPUShares int64 `yaml:"cpu_shares"`
	MemoryMB  int64 `yaml:"memory_mb"`
	PidsLimit int64 `yaml:"pids_limit"`
	DiskMB    int64 `yaml:"disk_mb"`
}

type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
	HalfOpenRequests    uint32        `yaml:"half_open_requests"`
}

// LimitsConfig holds content limits applied by the validator.
type LimitsConfig struct {
	MaxContentBytes   int64 `yaml:"max_content_bytes"`
	EnforceMaxContent bool  `yaml:"enforce_max_content"`
}

type AuditConfig struct {
	MaxRecords int `yaml:"max_records"`
	BufferSize int `yaml:"archive_buffer_size"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	WriteAttempts   uint          `yaml:"write_attempts"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

type SecurityConfig struct {
	AllowedKeys          []string `yaml:"allowed_keys"`
	AllowUnauthenticated bool     `yaml:"allow_unauthenticated"`
	RateLimitRPS         float64  `yaml:"rate_limit_rps"`
	RateLimitBurst       int      `yaml:"rate_limit_burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TLSConfig controls HTTPS/TLS termination.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MCPConfig feeds the /mcp manifest.
type MCPConfig struct {
	ProtocolVersion string   `yaml:"protocol_version"`
	ServerName      string   `yaml:"server_name"`
	ServerVersion   string   `yaml:"server_version"`
	Features        []string `yaml:"features"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from CONFIG_PATH or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
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
			Port:            8000,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    75 * time.Second, // > command timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  100 << 20, // base64 of a 50MB payload plus JSON framing
		},
		Seqkit: SeqkitConfig{
			Path:           "seqkit",
			Backend:        "auto",
			DockerImage:    "quay.io/biocontainers/seqkit:2.8.2--h9ee0642_0",
			StatsTimeout:   30 * time.Second,
			CommandTimeout: 60 * time.Second,
			MaxConcurrent:  16,
			MaxOutputBytes: 16 << 20,
			Limits: ToolLimits{
				CPUShares: 1024,
				MemoryMB:  512,
				PidsLimit: 64,
				DiskMB:    256,
			},
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
				HalfOpenRequests:    1,
			},
			VersionCache: 30 * time.Second,
		},
		Limits: LimitsConfig{
			MaxContentBytes:   50 << 20,
			EnforceMaxContent: false,
		},
		Audit: AuditConfig{
			MaxRecords: 1000,
			BufferSize: 10000,
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: 5 * time.Minute,
			WriteAttempts:   4,
			WriteTimeout:    5 * time.Second,
		},
		Security: SecurityConfig{
			AllowUnauthenticated: true,
			RateLimitRPS:         50,
			RateLimitBurst:       100,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		MCP: MCPConfig{
			ProtocolVersion: "2025-06-18",
			ServerName:      "FastX-MCP",
			ServerVersion:   "1.0.0",
			Features:        []string{"tools", "logging", "seqkit_integration"},
		},
	}
}

// ApplyEnv overrides selected fields from the environment. The lookup is
// injected so tests do not have to touch the process environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT must be an integer, got %q", port)
		}
		c.Server.Port = p
	}
	if path := getenv("SEQKIT_PATH"); path != "" {
		c.Seqkit.Path = path
	}
	if backend := getenv("SEQKIT_BACKEND"); backend != "" {
		c.Seqkit.Backend = backend
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if keys := getenv("FASTX_API_KEYS"); keys != "" {
		c.Security.AllowedKeys = splitList(keys)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.MaxRequestBody < 1 {
		return fmt.Errorf("server.max_request_body_bytes must be >= 1")
	}
	switch c.Seqkit.Backend {
	case "", "auto", "local", "docker":
	default:
		return fmt.Errorf("seqkit.backend must be auto, local, or docker, got %q", c.Seqkit.Backend)
	}
	if c.Seqkit.Path == "" {
		return fmt.Errorf("seqkit.path is required")
	}
	if c.Seqkit.StatsTimeout <= 0 || c.Seqkit.CommandTimeout <= 0 {
		return fmt.Errorf("seqkit timeouts must be positive")
	}
	if c.Seqkit.MaxConcurrent < 1 {
		return fmt.Errorf("seqkit.max_concurrent must be >= 1")
	}
	if c.Seqkit.Limits.MemoryMB < 16 {
		return fmt.Errorf("seqkit.limits.memory_mb must be >= 16")
	}
	if c.Limits.MaxContentBytes < 1 {
		return fmt.Errorf("limits.max_content_bytes must be >= 1")
	}
	if c.Audit.MaxRecords < 1 {
		return fmt.Errorf("audit.max_records must be >= 1")
	}
	if c.Security.RateLimitRPS < 0 || c.Security.RateLimitBurst < 0 {
		return fmt.Errorf("security rate limits must not be negative")
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}
	if c.Database.DSN != "" && strings.Contains(c.Database.DSN, "sslmode=disable") {
		log.Warn().Msg("database DSN has sslmode=disable, connections to Postgres are unencrypted")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
