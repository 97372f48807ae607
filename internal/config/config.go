// ABOUTME: Configuration loading and parsing for mcp-gateway
// ABOUTME: Supports YAML or TOML files with environment variable expansion, defaults, and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete mcp-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	MCP       MCPConfig       `yaml:"mcp" toml:"mcp"`
	Chat      ChatConfig      `yaml:"chat" toml:"chat"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"` // serve HTTPS on :443 with Tailscale-provisioned certs
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"` // optional gRPC health service
	WSPath   string `yaml:"ws_path" toml:"ws_path"`

	ReadHeaderTimeout time.Duration `yaml:"-" toml:"-"`
	ShutdownTimeout   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ReadHeaderTimeoutRaw string `yaml:"read_header_timeout" toml:"read_header_timeout"`
	ShutdownTimeoutRaw   string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// MCPConfig holds protocol settings
type MCPConfig struct {
	ServerName       string   `yaml:"server_name" toml:"server_name"`
	ServerVersion    string   `yaml:"server_version" toml:"server_version"`
	ProtocolVersion  string   `yaml:"protocol_version" toml:"protocol_version"`
	LegacyErrorCodes bool     `yaml:"legacy_error_codes" toml:"legacy_error_codes"`
	BatchConcurrency int      `yaml:"batch_concurrency" toml:"batch_concurrency"`
	MaxRequestBytes  int64    `yaml:"max_request_bytes" toml:"max_request_bytes"`
	OriginPatterns   []string `yaml:"origin_patterns" toml:"origin_patterns"`

	ToolTimeout  time.Duration `yaml:"-" toml:"-"`
	WriteTimeout time.Duration `yaml:"-" toml:"-"`

	ToolTimeoutRaw  string `yaml:"tool_timeout" toml:"tool_timeout"`
	WriteTimeoutRaw string `yaml:"write_timeout" toml:"write_timeout"`
}

// ChatConfig holds the chat API configuration
type ChatConfig struct {
	Enabled         bool     `yaml:"enabled" toml:"enabled"`
	Model           string   `yaml:"model" toml:"model"`
	DefaultHistory  int      `yaml:"default_history" toml:"default_history"`
	MinHistory      int      `yaml:"min_history" toml:"min_history"`
	MaxHistory      int      `yaml:"max_history" toml:"max_history"`
	BlockedWords    []string `yaml:"blocked_words" toml:"blocked_words"`
	BlockedResponse string   `yaml:"blocked_response" toml:"blocked_response"`

	ChunkDelay    time.Duration `yaml:"-" toml:"-"`
	ChunkDelayRaw string        `yaml:"chunk_delay" toml:"chunk_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultPath returns the config path from MCP_GATEWAY_CONFIG, falling back to
// $XDG_CONFIG_HOME/mcp-gateway/gateway.yaml (or ~/.config/mcp-gateway/gateway.yaml).
func DefaultPath() string {
	if p := os.Getenv("MCP_GATEWAY_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "mcp-gateway", "gateway.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills unset fields with their default values
func (c *Config) ApplyDefaults() {
	if c.Server.WSPath == "" {
		c.Server.WSPath = "/mcp/ws"
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	if c.MCP.ServerName == "" {
		c.MCP.ServerName = "mcp-gateway"
	}
	if c.MCP.ServerVersion == "" {
		c.MCP.ServerVersion = "1.0.0"
	}
	if c.MCP.ProtocolVersion == "" {
		c.MCP.ProtocolVersion = "2024-11-05"
	}
	if c.MCP.BatchConcurrency == 0 {
		c.MCP.BatchConcurrency = 8
	}
	if c.MCP.MaxRequestBytes == 0 {
		c.MCP.MaxRequestBytes = 1 << 20
	}
	if c.MCP.ToolTimeout == 0 {
		c.MCP.ToolTimeout = 30 * time.Second
	}
	if c.MCP.WriteTimeout == 0 {
		c.MCP.WriteTimeout = 10 * time.Second
	}

	if c.Chat.Model == "" {
		c.Chat.Model = "echo"
	}
	if c.Chat.DefaultHistory == 0 {
		c.Chat.DefaultHistory = 10
	}
	if c.Chat.MinHistory == 0 {
		c.Chat.MinHistory = 1
	}
	if c.Chat.MaxHistory == 0 {
		c.Chat.MaxHistory = 50
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server.ws_path must start with /")
	}

	if c.MCP.BatchConcurrency < 0 {
		return fmt.Errorf("mcp.batch_concurrency must not be negative")
	}
	if c.MCP.MaxRequestBytes < 0 {
		return fmt.Errorf("mcp.max_request_bytes must not be negative")
	}

	if c.Chat.Enabled {
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required when chat is enabled")
		}
		if c.Chat.Model != "echo" {
			return fmt.Errorf("chat.model %q is not supported (available: echo)", c.Chat.Model)
		}
		if c.Chat.MinHistory < 1 || c.Chat.MinHistory > c.Chat.MaxHistory {
			return fmt.Errorf("chat.min_history must be between 1 and chat.max_history")
		}
		if c.Chat.DefaultHistory < c.Chat.MinHistory || c.Chat.DefaultHistory > c.Chat.MaxHistory {
			return fmt.Errorf("chat.default_history must be between chat.min_history and chat.max_history")
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_header_timeout", cfg.Server.ReadHeaderTimeoutRaw, &cfg.Server.ReadHeaderTimeout},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"mcp.tool_timeout", cfg.MCP.ToolTimeoutRaw, &cfg.MCP.ToolTimeout},
		{"mcp.write_timeout", cfg.MCP.WriteTimeoutRaw, &cfg.MCP.WriteTimeout},
		{"chat.chunk_delay", cfg.Chat.ChunkDelayRaw, &cfg.Chat.ChunkDelay},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
