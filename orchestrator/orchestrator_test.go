package orchestrator

import (
	"context"
	"testing"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calcTool() *catalog.FuncTool {
	return &catalog.FuncTool{
		ToolName:        "calculator",
		ToolDescription: "evaluates arithmetic",
		ToolInputSchema: &catalog.ToolSchema{Name: "calculator", Description: "evaluates arithmetic"},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"value": 4}, nil
		},
	}
}

// Scenario 5 (spec §8): ReAct loop termination at max_steps.
func TestRun_TerminatesAtMaxSteps(t *testing.T) {
	tools := catalog.NewToolRegistry()
	tools.RegisterTool(calcTool())

	llm := testkit.NewFakeLLM().WithResponses(
		"THOUGHT: trying\nACTION: calculator\nINPUT: {}",
		"THOUGHT: trying again\nACTION: calculator\nINPUT: {}",
		"THOUGHT: still going\nACTION: calculator\nINPUT: {}",
	)

	mem, err := Run(context.Background(), "compute something", Config{MaxSteps: 3, EnabledTools: []string{"calculator"}}, nil, tools, llm, Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, mem.Status)
	assert.Contains(t, mem.FinalResult, "Reached maximum steps")
	assert.LessOrEqual(t, len(mem.Steps), 3)
	assert.Equal(t, 0, llm.OpenSessionCount(), "session must be disposed after the loop exits")
}

func TestRun_DoneWithoutActionCompletes(t *testing.T) {
	tools := catalog.NewToolRegistry()
	tools.RegisterTool(calcTool())
	llm := testkit.NewFakeLLM().WithResponse("DONE: the answer is 4")

	mem, err := Run(context.Background(), "what is 2+2", Config{MaxSteps: 5, EnabledTools: []string{"calculator"}}, nil, tools, llm, Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, mem.Status)
	assert.Equal(t, "the answer is 4", mem.FinalResult)
	assert.Len(t, mem.Steps, 1)
}

// Boundary (spec §8): ACTION for a tool not in the enabled set.
func TestRun_ActionNotEnabled(t *testing.T) {
	tools := catalog.NewToolRegistry()
	tools.RegisterTool(calcTool())
	llm := testkit.NewFakeLLM().WithResponses(
		"ACTION: tool_x\nINPUT: {}",
		"DONE: giving up",
	)

	mem, err := Run(context.Background(), "task", Config{MaxSteps: 5, EnabledTools: []string{"calculator"}}, nil, tools, llm, Callbacks{})
	require.NoError(t, err)
	require.Len(t, mem.Steps, 2)
	assert.Contains(t, mem.Steps[0].Result["error"], `Tool "tool_x" not enabled`)

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1], `ERROR: Tool "tool_x" not enabled`)
}

// Boundary (spec §8): both ACTION and DONE present → DONE ignored, action executes.
func TestRun_ActionWinsOverDone(t *testing.T) {
	tools := catalog.NewToolRegistry()
	tools.RegisterTool(calcTool())
	llm := testkit.NewFakeLLM().WithResponses(
		"ACTION: calculator\nINPUT: {}\nDONE: nevermind",
		"DONE: ok now done",
	)

	mem, err := Run(context.Background(), "task", Config{MaxSteps: 5, EnabledTools: []string{"calculator"}}, nil, tools, llm, Callbacks{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(mem.Steps), 1)
	assert.Equal(t, "calculator", mem.Steps[0].Action)
	assert.Equal(t, map[string]any{"value": 4}, mem.Steps[0].Result)
}

func TestRun_NoToolsReturnsError(t *testing.T) {
	tools := catalog.NewToolRegistry()
	llm := testkit.NewFakeLLM()
	mem, err := Run(context.Background(), "task", Config{MaxSteps: 3}, nil, tools, llm, Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, StatusError, mem.Status)
	assert.Equal(t, "no tools", mem.FinalResult)
}

func TestRun_ConnectedToolsOverrideConfigList(t *testing.T) {
	tools := catalog.NewToolRegistry()
	tools.RegisterTool(calcTool())
	llm := testkit.NewFakeLLM().WithResponse("DONE: ok")

	mem, err := Run(context.Background(), "task", Config{MaxSteps: 1, EnabledTools: []string{"something-else"}}, []string{"calculator"}, tools, llm, Callbacks{})
	require.NoError(t, err)
	assert.NotEqual(t, "no tools", mem.FinalResult)
}
