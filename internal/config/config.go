package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mcpd/internal/logging"
	"mcpd/internal/mcp/protocol"
	"mcpd/internal/mcp/tools"

	"github.com/adrg/xdg"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// AppName is used for the XDG config and state paths
const AppName = "mcpd"

// Config holds the complete application configuration
type Config struct {
	// Static document served by initialize
	Server ServerConfig `yaml:"server" json:"server"`

	// Tool descriptors served by tools/list
	Tools []protocol.Tool `yaml:"tools,omitempty" json:"tools,omitempty"`

	// Optional separate descriptor document, relative to the config file
	ToolsFile string `yaml:"tools_file,omitempty" json:"tools_file,omitempty"`

	// Logging configuration
	LogFile  string `yaml:"log_file" json:"log_file"`
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// ServerConfig mirrors the initialize result
type ServerConfig struct {
	ProtocolVersion string                `yaml:"protocolVersion" json:"protocolVersion"`
	ServerInfo      protocol.ServerInfo   `yaml:"serverInfo" json:"serverInfo"`
	Capabilities    protocol.Capabilities `yaml:"capabilities" json:"capabilities"`
	Instructions    string                `yaml:"instructions,omitempty" json:"instructions,omitempty"`
}

// InitializeResult returns the document sent in reply to initialize
func (s ServerConfig) InitializeResult() protocol.InitializeResult {
	return protocol.InitializeResult{
		ProtocolVersion: s.ProtocolVersion,
		Capabilities:    s.Capabilities,
		ServerInfo:      s.ServerInfo,
		Instructions:    s.Instructions,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ProtocolVersion: protocol.MCPProtocolVersion,
			ServerInfo: protocol.ServerInfo{
				Name:    AppName,
				Version: "1.0.0",
			},
			Capabilities: protocol.Capabilities{
				Tools: &protocol.ToolsCapability{},
			},
		},
		LogFile:  DefaultLogFile(),
		LogLevel: "info",
	}
}

// DefaultLogFile returns the log path under the XDG state directory
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

// DefaultConfigFile returns the config file found in the XDG config
// directories, or "" if there is none.
func DefaultConfigFile() string {
	path, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml"))
	if err != nil {
		return ""
	}
	return path
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate validates the configuration. Tool descriptors without an input
// schema get an empty object schema.
func (c *Config) Validate() error {
	if c.Server.ServerInfo.Name == "" {
		return &ConfigError{Field: "server.serverInfo.name", Message: "server name is required"}
	}

	if c.Server.ServerInfo.Version == "" {
		return &ConfigError{Field: "server.serverInfo.version", Message: "server version is required"}
	}

	if c.Server.ProtocolVersion == "" {
		return &ConfigError{Field: "server.protocolVersion", Message: "protocol version is required"}
	}

	seen := make(map[string]bool, len(c.Tools))
	for i := range c.Tools {
		tool := &c.Tools[i]
		field := fmt.Sprintf("tools[%d].name", i)
		if !tools.ValidName(tool.Name) {
			return &ConfigError{Field: field, Message: fmt.Sprintf("invalid tool name %q", tool.Name)}
		}
		if seen[tool.Name] {
			return &ConfigError{Field: field, Message: "duplicate tool name: " + tool.Name}
		}
		seen[tool.Name] = true

		if tool.InputSchema == nil {
			tool.InputSchema = map[string]interface{}{"type": "object"}
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}

	return nil
}

// LoadConfig loads configuration from a file. A tools_file named in it is
// loaded too, and its descriptors are appended to the inline ones.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(configPath, config); err != nil {
		return nil, err
	}

	if config.ToolsFile != "" {
		toolsPath := config.ToolsFile
		if !filepath.IsAbs(toolsPath) {
			toolsPath = filepath.Join(filepath.Dir(configPath), toolsPath)
		}
		descriptors, err := LoadTools(toolsPath)
		if err != nil {
			return nil, err
		}
		config.Tools = append(config.Tools, descriptors...)
	}

	return config, nil
}

// LoadTools loads a list of tool descriptors from a YAML or JSON file
func LoadTools(path string) ([]protocol.Tool, error) {
	var descriptors []protocol.Tool
	if err := decodeFile(path, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

func decodeFile(path string, out interface{}) error {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse based on file extension
	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, configPath string) error {
	// Validate configuration first
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal based on file extension
	ext := filepath.Ext(configPath)
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML config: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Overrides holds values that take precedence over the config file. Empty
// fields are ignored.
type Overrides struct {
	ConfigFile string `env:"MCPD_CONFIG"`
	LogFile    string `env:"MCPD_LOG_FILE"`
	LogLevel   string `env:"MCPD_LOG_LEVEL"`
}

// FromEnv reads overrides from the MCPD_* environment variables
func FromEnv() (Overrides, error) {
	var env Overrides
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Overrides{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// merge returns o with its empty fields filled from fallback
func (o Overrides) merge(fallback Overrides) Overrides {
	if o.ConfigFile == "" {
		o.ConfigFile = fallback.ConfigFile
	}
	if o.LogFile == "" {
		o.LogFile = fallback.LogFile
	}
	if o.LogLevel == "" {
		o.LogLevel = fallback.LogLevel
	}
	return o
}

// Resolve builds the effective configuration once at startup. Precedence is
// flags, then environment, then the config file, then defaults.
func Resolve(flags Overrides) (*Config, error) {
	env, err := FromEnv()
	if err != nil {
		return nil, err
	}
	effective := flags.merge(env)

	path := effective.ConfigFile
	if path == "" {
		path = DefaultConfigFile()
	}

	config := DefaultConfig()
	if path != "" {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if effective.LogFile != "" {
		config.LogFile = effective.LogFile
	}
	if effective.LogLevel != "" {
		config.LogLevel = effective.LogLevel
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
