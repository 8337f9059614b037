package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("LOCALFLOW_TEST_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  api_key: ${LOCALFLOW_TEST_KEY}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.LLM.APIKey)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 8000, cfg.LLM.MaxContextTokens)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestValidate_RejectsIncompleteTrigger(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Triggers = []TriggerConfig{{WorkflowID: "wf_1"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsIncompletePlugin(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Plugins = []PluginDirConfig{{}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsIncompleteMCPServer(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.MCPServers = []MCPServerConfig{{Name: "search"}}
	assert.Error(t, cfg.Validate())
}
