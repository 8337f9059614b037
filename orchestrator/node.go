package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/localflow/core/catalog"
)

// RegisterNode installs the ai-orchestrator node type into nodes, closing
// over tools and provider. This is kept separate from
// catalog.RegisterBuiltins (spec §4.1's "orchestrator-node registrar")
// because it alone, among the built-in set, needs to reach the live tool
// registry: every other built-in only ever touches the inputs/config it is
// handed.
func RegisterNode(nodes *catalog.NodeRegistry, tools *catalog.ToolRegistry, provider catalog.LLMHandle) {
	nodes.RegisterNodeType(&catalog.NodeTypeDefinition{
		ID:       "ai-orchestrator",
		Name:     "AI Orchestrator",
		Category: catalog.CategoryAI,
		Inputs:   []catalog.Port{{ID: "task", Name: "task", Type: "string"}},
		Outputs:  []catalog.Port{{ID: "result", Name: "result", Type: "string"}, {ID: "steps", Name: "steps", Type: "number"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *catalog.RuntimeContext) (map[string]any, error) {
			task, _ := inputs["task"].(string)
			if task == "" {
				task, _ = inputs["input"].(string)
			}

			cfg := configFromNode(config)
			connected := connectedToolNames(config)

			cb := callbacksFromRuntimeContext(rc)

			llmHandle := provider
			if rc != nil && rc.LLM != nil {
				llmHandle = rc.LLM
			}

			mem, err := Run(ctx, task, cfg, connected, tools, llmHandle, cb)
			if err != nil {
				return nil, err
			}
			return map[string]any{"result": mem.FinalResult, "steps": len(mem.Steps)}, nil
		},
	})
}

// configFromNode reads the ai-orchestrator node's config map (max_steps,
// system_prompt, tools, max_context_tokens) per SPEC_FULL §5.3.
func configFromNode(config map[string]any) Config {
	cfg := Config{MaxSteps: 10, MaxContextTokens: defaultMaxContextTokens}

	switch v := config["max_steps"].(type) {
	case int:
		cfg.MaxSteps = v
	case float64:
		cfg.MaxSteps = int(v)
	}

	switch v := config["max_context_tokens"].(type) {
	case int:
		cfg.MaxContextTokens = v
	case float64:
		cfg.MaxContextTokens = int(v)
	}

	if sp, ok := config["system_prompt"].(string); ok {
		cfg.SystemPrompt = sp
	}

	if toolsStr, ok := config["tools"].(string); ok && toolsStr != "" {
		for _, name := range strings.Split(toolsStr, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.EnabledTools = append(cfg.EnabledTools, name)
			}
		}
	}

	return cfg
}

// connectedToolNames reads the _connected_tools key the engine's
// withToolDiscovery injects (spec §4.2 step 4).
func connectedToolNames(config map[string]any) []string {
	schemas, ok := config["_connected_tools"].([]*catalog.ToolSchema)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		if s != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

func callbacksFromRuntimeContext(rc *catalog.RuntimeContext) Callbacks {
	if rc == nil || rc.SendProgress == nil {
		return Callbacks{}
	}
	return Callbacks{
		OnThought: func(thought string) {
			rc.SendProgress("orchestrator", "thinking", map[string]any{"thought": thought})
		},
		OnAction: func(action string, input map[string]any) {
			rc.SendProgress("orchestrator", "acting", map[string]any{"action": action, "input": input})
		},
		OnResult: func(action string, result map[string]any) {
			rc.SendProgress("orchestrator", "result", map[string]any{"action": action, "result": result})
		},
		OnToolComplete: func(action string, result map[string]any) {
			rc.SendProgress("orchestrator", "tool_complete", map[string]any{"action": action})
		},
		OnComplete: func(mem *Memory) {
			rc.SendProgress("orchestrator", "complete", map[string]any{"status": string(mem.Status)})
		},
		OnError: func(err error) {
			rc.SendProgress("orchestrator", "error", map[string]any{"error": fmt.Sprintf("%v", err)})
		},
	}
}
