package builder

import (
	"context"
	"testing"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/internal/testkit"
	"github.com/localflow/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolByName(tools []catalog.Tool, name string) catalog.Tool {
	for _, t := range tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// Round-trip builder scenario (spec §8): clear; add A; add B; connect A,B;
// save S; load S yields an executable subgraph {A -> B}.
func TestBuilder_ClearAddConnectSaveRoundTrip(t *testing.T) {
	state := New()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	nodes := NewNodeRegistryWithFakeLLM()
	eng := engine.New(nodes, testkit.NewFakeLLM())
	tools := Tools(state, fs, eng)
	ctx := context.Background()

	_, err = toolByName(tools, "clear_canvas").Execute(ctx, nil)
	require.NoError(t, err)

	a, err := toolByName(tools, "add_node").Execute(ctx, map[string]any{"type": "text-input", "label": "A"})
	require.NoError(t, err)
	_, err = toolByName(tools, "add_node").Execute(ctx, map[string]any{"type": "debug", "label": "B"})
	require.NoError(t, err)

	_, err = toolByName(tools, "connect_nodes").Execute(ctx, map[string]any{"from_node_id": "A", "to_node_id": "B"})
	require.NoError(t, err)

	saveResult, err := toolByName(tools, "save_built_workflow").Execute(ctx, map[string]any{"name": "S"})
	require.NoError(t, err)
	id, _ := saveResult["id"].(string)
	require.NotEmpty(t, id)

	saved, ok, err := fs.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, saved.Nodes, 2)
	require.Len(t, saved.Edges, 1)
	assert.Equal(t, "A", a["label"])
}

func TestBuilder_ConnectUnknownSourceErrors(t *testing.T) {
	state := New()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	nodes := NewNodeRegistryWithFakeLLM()
	eng := engine.New(nodes, testkit.NewFakeLLM())
	tools := Tools(state, fs, eng)
	ctx := context.Background()

	_, err = toolByName(tools, "add_node").Execute(ctx, map[string]any{"type": "debug", "label": "B"})
	require.NoError(t, err)

	_, err = toolByName(tools, "connect_nodes").Execute(ctx, map[string]any{"from_node_id": "missing", "to_node_id": "B"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source not found")
}

func TestBuilder_SaveWithNoNodesErrors(t *testing.T) {
	state := New()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	nodes := NewNodeRegistryWithFakeLLM()
	eng := engine.New(nodes, testkit.NewFakeLLM())
	tools := Tools(state, fs, eng)

	_, err = toolByName(tools, "save_built_workflow").Execute(context.Background(), map[string]any{"name": "empty"})
	require.Error(t, err)
}

// NewNodeRegistryWithFakeLLM installs the built-in node types for use in
// builder tests that need a real engine (run_built_workflow).
func NewNodeRegistryWithFakeLLM() *catalog.NodeRegistry {
	nodes := catalog.NewNodeRegistry()
	catalog.RegisterBuiltins(nodes)
	return nodes
}
