package workflowtool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/llm"
	"github.com/localflow/core/store"
)

func newTestStore(t *testing.T) store.WorkflowStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func textInputChatDoc() (nodes, edges []any) {
	nodes = []any{
		engine.Node{ID: "n1", Data: engine.NodeData{TypeID: "text-input", Config: map[string]any{"text": "hi"}}},
		engine.Node{ID: "n2", Data: engine.NodeData{TypeID: "ai-chat", Config: map[string]any{}}},
	}
	edges = []any{engine.Edge{ID: "e1", Source: "n1", Target: "n2"}}
	return nodes, edges
}

// decodeForTest mirrors chat.DecodeSavedDocument's JSON round-trip so this
// test does not depend on the chat package.
func decodeForTest(wf *store.SavedWorkflow) (*engine.WorkflowDocument, error) {
	doc := &engine.WorkflowDocument{ID: wf.ID, Name: wf.Name}
	for _, raw := range wf.Nodes {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var n engine.Node
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	for _, raw := range wf.Edges {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		var e engine.Edge
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		doc.Edges = append(doc.Edges, e)
	}
	return doc, nil
}

func newAdapter(t *testing.T, wfStore store.WorkflowStore, provider catalog.LLMHandle) *Adapter {
	t.Helper()
	nodes := catalog.NewNodeRegistry()
	catalog.RegisterBuiltins(nodes)
	tools := catalog.NewToolRegistry()
	eng := engine.New(nodes, provider)
	return New(nodes, tools, eng, wfStore, decodeForTest)
}

func TestToolName_SanitizesID(t *testing.T) {
	assert.Equal(t, "workflow_wf_1700000000000_ab3de", ToolName("wf_1700000000000_ab3de"))
}

func TestRegister_InstallsToolAndToolNode(t *testing.T) {
	wfStore := newTestStore(t)
	provider := llm.NewFakeProvider().WithResponse("hello back")
	a := newAdapter(t, wfStore, provider)

	nodes, edges := textInputChatDoc()
	saved, err := wfStore.Save("greeter", nodes, edges, "", "")
	require.NoError(t, err)

	a.Register(saved)

	name := ToolName(saved.ID)
	tool, ok := a.tools.GetTool(name)
	require.True(t, ok)
	assert.Equal(t, name, tool.Name())

	_, ok = a.nodes.GetNode("tool-" + name)
	assert.True(t, ok, "tool-node should be registered alongside the tool")
}

func TestExecute_RunsTheSavedWorkflowAndExtractsResult(t *testing.T) {
	wfStore := newTestStore(t)
	provider := llm.NewFakeProvider().WithResponse("hello back")
	a := newAdapter(t, wfStore, provider)

	nodes, edges := textInputChatDoc()
	saved, err := wfStore.Save("greeter", nodes, edges, "", "")
	require.NoError(t, err)
	a.Register(saved)

	tool, ok := a.tools.GetTool(ToolName(saved.ID))
	require.True(t, ok)

	out, err := tool.Execute(context.Background(), map[string]any{"task": "hi there"})
	require.NoError(t, err)
	assert.Equal(t, "hello back", out["result"])
}

func TestExecute_FailsFastBeyondMaxDepth(t *testing.T) {
	wfStore := newTestStore(t)
	provider := llm.NewFakeProvider().WithResponse("hello back")
	a := newAdapter(t, wfStore, provider)

	nodes, edges := textInputChatDoc()
	saved, err := wfStore.Save("greeter", nodes, edges, "", "")
	require.NoError(t, err)
	a.Register(saved)

	tool, ok := a.tools.GetTool(ToolName(saved.ID))
	require.True(t, ok)

	ctx := withDepth(context.Background(), MaxDepth)
	_, err = tool.Execute(ctx, map[string]any{"task": "hi there"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tool_depth")
}

func TestUnregister_RemovesTheTool(t *testing.T) {
	wfStore := newTestStore(t)
	provider := llm.NewFakeProvider()
	a := newAdapter(t, wfStore, provider)

	nodes, edges := textInputChatDoc()
	saved, err := wfStore.Save("greeter", nodes, edges, "", "")
	require.NoError(t, err)
	a.Register(saved)

	a.Unregister(saved.ID)
	_, ok := a.tools.GetTool(ToolName(saved.ID))
	assert.False(t, ok)
}

func TestRegisterAll_WrapsEverySavedWorkflow(t *testing.T) {
	wfStore := newTestStore(t)
	provider := llm.NewFakeProvider()
	a := newAdapter(t, wfStore, provider)

	nodes, edges := textInputChatDoc()
	first, err := wfStore.Save("one", nodes, edges, "", "")
	require.NoError(t, err)
	second, err := wfStore.Save("two", nodes, edges, "", "")
	require.NoError(t, err)

	require.NoError(t, a.RegisterAll())

	_, ok := a.tools.GetTool(ToolName(first.ID))
	assert.True(t, ok)
	_, ok = a.tools.GetTool(ToolName(second.ID))
	assert.True(t, ok)
}
