package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localflow/core/config"
	"github.com/localflow/core/llm"
	"github.com/localflow/core/workflowtool"
)

func TestNew_BuildsEveryCollaborator(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Store.Dir = t.TempDir()

	core, err := New(cfg, llm.NewFakeProvider(), slog.Default())
	require.NoError(t, err)

	assert.NotNil(t, core.Nodes)
	assert.NotNil(t, core.Tools)
	assert.NotNil(t, core.Engine)
	assert.NotNil(t, core.Store)
	assert.NotNil(t, core.Builder)
	assert.NotNil(t, core.Sessions)
	assert.NotNil(t, core.Dispatcher)
	assert.NotNil(t, core.Metrics)
	assert.Nil(t, core.Audit)

	_, ok := core.Nodes.GetNode("ai-orchestrator")
	assert.True(t, ok, "orchestrator node type should be registered")

	_, ok = core.Tools.GetTool("add_node")
	assert.True(t, ok, "builder tools should be registered")
}

func TestNew_SavingAWorkflowRegistersItAsATool(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Store.Dir = t.TempDir()

	core, err := New(cfg, llm.NewFakeProvider(), slog.Default())
	require.NoError(t, err)

	saved, err := core.Store.Save("greeter", []any{}, []any{}, "", "")
	require.NoError(t, err)

	toolName := workflowtool.ToolName(saved.ID)
	_, ok := core.Tools.GetTool(toolName)
	assert.True(t, ok, "saving a workflow should register it as a workflow-as-tool")

	_, ok = core.Nodes.GetNode("tool-" + toolName)
	assert.True(t, ok, "saving a workflow should register its tool-node")

	require.NoError(t, core.Store.Delete(saved.ID))
	_, ok = core.Tools.GetTool(toolName)
	assert.False(t, ok, "deleting a workflow should unregister its tool")
}

func TestNew_OpensAuditLogWhenConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Store.Dir = t.TempDir()
	cfg.Audit.Path = t.TempDir() + "/audit.db"

	core, err := New(cfg, llm.NewFakeProvider(), slog.Default())
	require.NoError(t, err)
	require.NotNil(t, core.Audit)
	defer core.Audit.Close()

	sink := core.Sink(nil)
	assert.NotNil(t, sink)
}
