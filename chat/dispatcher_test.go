package chat

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

func TestIsBuildRequest(t *testing.T) {
	assert.True(t, isBuildRequest("build a workflow that translates text"))
	assert.True(t, isBuildRequest("create an automation for RSS digests"))
	assert.False(t, isBuildRequest("what is 2+2"))
	assert.False(t, isBuildRequest("build a house"))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testkit.FakeLLM, store.WorkflowStore) {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	nodes := catalog.NewNodeRegistry()
	catalog.RegisterBuiltins(nodes)
	fake := testkit.NewFakeLLM()
	eng := engine.New(nodes, fake)

	builderDoc := []any{
		map[string]any{
			"id": "n1", "display_type": "custom",
			"position": map[string]any{"x": 0, "y": 0},
			"data": map[string]any{"label": "Input", "type_id": "text-input", "config": map[string]any{"text": "placeholder"}},
		},
		map[string]any{
			"id": "n2", "display_type": "custom",
			"position": map[string]any{"x": 0, "y": 0},
			"data": map[string]any{"label": "Orchestrate", "type_id": "ai-orchestrator", "config": map[string]any{}},
		},
	}
	_, err = fs.Save("Workflow Builder", builderDoc, nil, "", "")
	require.NoError(t, err)

	return NewDispatcher(NewSessionStore(), fs, eng, fake, map[string]*engine.WorkflowDocument{}, nil), fake, fs
}

// Scenario 6 (spec §8): build-intent routing never asks the LLM for
// command blocks.
func TestDispatcher_BuildIntentRouting(t *testing.T) {
	d, fake, _ := newTestDispatcher(t)

	res, err := d.Chat(context.Background(), "", "build a workflow that translates text")
	require.NoError(t, err)
	require.NotNil(t, res.BuildResult)
	assert.Contains(t, res.Response, "I've built your workflow!")
	assert.Empty(t, res.Commands)
	assert.Empty(t, fake.Calls())
}

func TestExtractCommands_JSONBlock(t *testing.T) {
	resp := "Sure, here:\n```json\n{\"action\": \"clear\"}\n```\n"
	cmds := extractCommands(resp)
	require.Len(t, cmds, 1)
	assert.Equal(t, "clear", cmds[0].Action)
}

func TestExtractCommands_NoStructuredOutput(t *testing.T) {
	cmds := extractCommands("just a regular chat reply with no commands")
	assert.Empty(t, cmds)
}

func TestSessionStore_ExpiresAfterInactivity(t *testing.T) {
	store := NewSessionStore()
	sess := store.GetOrCreate("")
	sess.LastActivity = sess.LastActivity.Add(-Expiry - 1)

	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}
