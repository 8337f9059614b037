package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the single entry point for process-level configuration, loaded
// from a YAML file on process startup. It never describes a workflow
// document (those are JSON, produced by the builder or hand-authored and
// loaded through the store package).
type Config struct {
	Server     ServerConfig      `yaml:"server,omitempty"`
	LLM        LLMConfig         `yaml:"llm,omitempty"`
	Store      StoreConfig       `yaml:"store,omitempty"`
	Audit      AuditConfig       `yaml:"audit,omitempty"`
	Plugins    []PluginDirConfig `yaml:"plugins,omitempty"`
	MCPServers []MCPServerConfig `yaml:"mcp_servers,omitempty"`
	Triggers   []TriggerConfig   `yaml:"triggers,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
	Log        LogConfig         `yaml:"log,omitempty"`
}

// ServerConfig configures the HTTP/WS transports.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// LLMConfig configures the single LLM provider instance the process wires up.
type LLMConfig struct {
	Provider         string  `yaml:"provider,omitempty"`
	Model            string  `yaml:"model,omitempty"`
	APIKey           string  `yaml:"api_key,omitempty"`
	BaseURL          string  `yaml:"base_url,omitempty"`
	Temperature      float64 `yaml:"temperature,omitempty"`
	MaxContextTokens int     `yaml:"max_context_tokens,omitempty"`
}

// StoreConfig configures the file-backed workflow store.
type StoreConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// AuditConfig configures the optional sqlite execution audit log.
// Disabled unless Path is set.
type AuditConfig struct {
	Path string `yaml:"path,omitempty"`
}

// PluginDirConfig names a directory holding a plugin manifest.json plus
// its go-plugin binary, to be loaded at startup.
type PluginDirConfig struct {
	Dir string `yaml:"dir"`
}

// MCPServerConfig names a subprocess-backed MCP tool server (spec §3's
// domain-stack extension beyond plugins) to connect to at startup: its
// tools are discovered and registered exactly like a plugin's, over the
// stdio transport rather than go-plugin's net/rpc.
type MCPServerConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// TriggerConfig schedules a saved workflow to run on a cron schedule,
// owned by the serving process rather than the engine (spec §5.8).
type TriggerConfig struct {
	WorkflowID string `yaml:"workflow_id"`
	Schedule   string `yaml:"schedule"`
}

// LogConfig configures the process-wide slog handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// SetDefaults fills in zero-valued fields with production defaults.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.LLM.MaxContextTokens == 0 {
		c.LLM.MaxContextTokens = 8000
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "./workflows"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.LLM.MaxContextTokens < 0 {
		return fmt.Errorf("llm.max_context_tokens cannot be negative")
	}
	for i, t := range c.Triggers {
		if t.WorkflowID == "" {
			return fmt.Errorf("triggers[%d].workflow_id is required", i)
		}
		if t.Schedule == "" {
			return fmt.Errorf("triggers[%d].schedule is required", i)
		}
	}
	for i, p := range c.Plugins {
		if p.Dir == "" {
			return fmt.Errorf("plugins[%d].dir is required", i)
		}
	}
	for i, m := range c.MCPServers {
		if m.Name == "" {
			return fmt.Errorf("mcp_servers[%d].name is required", i)
		}
		if m.Command == "" {
			return fmt.Errorf("mcp_servers[%d].command is required", i)
		}
	}
	return nil
}

// Load reads a YAML config file, expands ${VAR}-style environment
// references in every string value, applies defaults and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	// Decode into a generic tree first so ExpandEnvVarsInData can walk it
	// before we re-marshal into the typed struct.
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	expanded := ExpandEnvVarsInData(generic)

	reencoded, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("re-encoding expanded config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(reencoded, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config %q: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}
