// Package builder implements the meta-workflow canvas builder (spec §4.4):
// a singleton BuilderState plus six tools an orchestrator running the
// "workflow builder" meta-workflow can attach to itself.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/internal/errs"
	"github.com/localflow/core/store"
)

// State is the process-wide singleton canvas the six builder tools mutate.
type State struct {
	mu         sync.Mutex
	Nodes      []engine.Node
	Edges      []engine.Edge
	NextNodeID int
}

// New constructs an empty builder state.
func New() *State {
	return &State{}
}

func (s *State) clear() {
	s.Nodes = nil
	s.Edges = nil
	s.NextNodeID = 0
}

// snapshot returns a document built from the current canvas, cloned so
// callers may mutate or execute it without racing further builder calls.
func (s *State) snapshot() *engine.WorkflowDocument {
	doc := &engine.WorkflowDocument{Nodes: append([]engine.Node{}, s.Nodes...), Edges: append([]engine.Edge{}, s.Edges...)}
	return doc.Clone()
}

func (s *State) findNode(identifier string) (*engine.Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == identifier {
			return &s.Nodes[i], true
		}
	}
	lower := strings.ToLower(identifier)
	for i := range s.Nodes {
		if strings.ToLower(s.Nodes[i].Data.Label) == lower {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// Tools builds the six catalog.Tool values described in spec §4.4, bound
// to state, storage, and an engine used for run_built_workflow.
func Tools(state *State, wfStore store.WorkflowStore, eng *engine.Engine) []catalog.Tool {
	return []catalog.Tool{
		clearCanvasTool(state),
		addNodeTool(state),
		connectNodesTool(state),
		listNodesTool(state),
		saveBuiltWorkflowTool(state, wfStore),
		runBuiltWorkflowTool(state, eng),
	}
}

func clearCanvasTool(state *State) catalog.Tool {
	return &catalog.FuncTool{
		ToolName:        "clear_canvas",
		ToolDescription: "Resets the builder canvas to empty.",
		ToolInputSchema: &catalog.ToolSchema{Name: "clear_canvas", Description: "Resets the builder canvas to empty."},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			state.mu.Lock()
			defer state.mu.Unlock()
			state.clear()
			return map[string]any{"cleared": true}, nil
		},
	}
}

func addNodeTool(state *State) catalog.Tool {
	return &catalog.FuncTool{
		ToolName:        "add_node",
		ToolDescription: "Appends a node of the given type and label to the canvas.",
		ToolInputSchema: &catalog.ToolSchema{Name: "add_node", Description: "Appends a node of the given type and label to the canvas."},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			state.mu.Lock()
			defer state.mu.Unlock()

			typeID, _ := params["type"].(string)
			label, _ := params["label"].(string)
			if label == "" {
				label = typeID
			}

			config := map[string]any{}
			if text, ok := params["config_text"].(string); ok && text != "" {
				config["text"] = text
			}
			if sp, ok := params["config_systemPrompt"].(string); ok && sp != "" {
				config["systemPrompt"] = sp
			}
			if tools, ok := params["config_tools"].(string); ok && tools != "" {
				config["tools"] = tools
			}

			id := fmt.Sprintf("node_%d", state.NextNodeID)
			state.NextNodeID++

			node := engine.Node{
				ID:          id,
				DisplayType: "custom",
				Position:    engine.Position{X: 150 + 250*float64(len(state.Nodes)), Y: 200},
				Data:        engine.NodeData{Label: label, TypeID: typeID, Config: config},
			}
			state.Nodes = append(state.Nodes, node)

			return map[string]any{"id": id, "label": label}, nil
		},
	}
}

func connectNodesTool(state *State) catalog.Tool {
	return &catalog.FuncTool{
		ToolName:        "connect_nodes",
		ToolDescription: "Connects two nodes on the canvas by id or label.",
		ToolInputSchema: &catalog.ToolSchema{Name: "connect_nodes", Description: "Connects two nodes on the canvas by id or label."},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			state.mu.Lock()
			defer state.mu.Unlock()

			from, _ := params["from_node_id"].(string)
			to, _ := params["to_node_id"].(string)

			srcNode, ok := state.findNode(from)
			if !ok {
				return nil, &errs.ToolError{Component: "builder", Action: "connect_nodes", Message: "source not found"}
			}
			dstNode, ok := state.findNode(to)
			if !ok {
				return nil, &errs.ToolError{Component: "builder", Action: "connect_nodes", Message: "target not found"}
			}

			edge := engine.Edge{
				ID:     fmt.Sprintf("edge_%d", len(state.Edges)),
				Source: srcNode.ID,
				Target: dstNode.ID,
			}
			state.Edges = append(state.Edges, edge)

			return map[string]any{"source": srcNode.ID, "target": dstNode.ID}, nil
		},
	}
}

func listNodesTool(state *State) catalog.Tool {
	return &catalog.FuncTool{
		ToolName:        "list_nodes",
		ToolDescription: "Lists the nodes currently on the canvas.",
		ToolInputSchema: &catalog.ToolSchema{Name: "list_nodes", Description: "Lists the nodes currently on the canvas."},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			state.mu.Lock()
			defer state.mu.Unlock()

			list := make([]map[string]any, 0, len(state.Nodes))
			for _, n := range state.Nodes {
				list = append(list, map[string]any{"id": n.ID, "type": n.Data.TypeID, "label": n.Data.Label})
			}
			return map[string]any{"nodes": list}, nil
		},
	}
}

func saveBuiltWorkflowTool(state *State, wfStore store.WorkflowStore) catalog.Tool {
	return &catalog.FuncTool{
		ToolName:        "save_built_workflow",
		ToolDescription: "Persists the current canvas as a named saved workflow.",
		ToolInputSchema: &catalog.ToolSchema{Name: "save_built_workflow", Description: "Persists the current canvas as a named saved workflow."},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			state.mu.Lock()
			if len(state.Nodes) == 0 {
				state.mu.Unlock()
				return nil, &errs.ToolError{Component: "builder", Action: "save_built_workflow", Message: "no nodes"}
			}
			doc := state.snapshot()
			state.mu.Unlock()

			name, _ := params["name"].(string)
			description, _ := params["description"].(string)

			nodes := make([]any, len(doc.Nodes))
			for i, n := range doc.Nodes {
				nodes[i] = n
			}
			edges := make([]any, len(doc.Edges))
			for i, e := range doc.Edges {
				edges[i] = e
			}

			saved, err := wfStore.Save(name, nodes, edges, description, "")
			if err != nil {
				return nil, err
			}
			return map[string]any{"id": saved.ID, "name": saved.Name}, nil
		},
	}
}

func runBuiltWorkflowTool(state *State, eng *engine.Engine) catalog.Tool {
	return &catalog.FuncTool{
		ToolName:        "run_built_workflow",
		ToolDescription: "Runs the current canvas as a workflow and returns its result.",
		ToolInputSchema: &catalog.ToolSchema{Name: "run_built_workflow", Description: "Runs the current canvas as a workflow and returns its result."},
		Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			state.mu.Lock()
			if len(state.Nodes) == 0 {
				state.mu.Unlock()
				return nil, &errs.ToolError{Component: "builder", Action: "run_built_workflow", Message: "no nodes"}
			}
			doc := state.snapshot()
			state.mu.Unlock()

			res, err := eng.Execute(ctx, doc, nil)
			if err != nil {
				return nil, err
			}
			if !res.Success {
				return map[string]any{"success": false, "error": res.Error}, nil
			}
			return map[string]any{"success": true, "result": ExtractResult(doc, res)}, nil
		},
	}
}

// ExtractResult applies the workflow-as-tool result-extraction priority
// (spec §4.7): the one implementation shared by run_built_workflow, the
// chat dispatcher's build path, POST /run, and the workflow-as-tool
// adapter, so all four report a built/run workflow's result the same way.
func ExtractResult(doc *engine.WorkflowDocument, res *engine.Result) string {
	for _, n := range doc.Nodes {
		if n.Data.TypeID != "ai-orchestrator" {
			continue
		}
		out := res.Outputs[n.ID]
		if r, ok := out["result"].(string); ok && r != "" {
			return r
		}
	}
	for _, n := range doc.Nodes {
		if n.Data.TypeID != "ai-chat" && n.Data.TypeID != "ai-transform" {
			continue
		}
		out := res.Outputs[n.ID]
		if r, ok := out["response"].(string); ok && r != "" {
			return r
		}
		if r, ok := out["output"].(string); ok && r != "" {
			return r
		}
	}
	for _, n := range doc.Nodes {
		if n.Data.TypeID != "debug" {
			continue
		}
		out := res.Outputs[n.ID]
		if len(out) > 0 {
			if data, err := json.Marshal(out); err == nil {
				return string(data)
			}
			return fmt.Sprintf("%v", out)
		}
	}
	for i := len(doc.Nodes) - 1; i >= 0; i-- {
		n := doc.Nodes[i]
		if n.Data.TypeID == "trigger" || n.Data.TypeID == "manual-trigger" || n.Data.TypeID == "text-input" {
			continue
		}
		out := res.Outputs[n.ID]
		if len(out) > 0 {
			return fmt.Sprintf("%v", out)
		}
	}
	return "Workflow completed"
}

// NextNumericSuffix implements Open Question (a): non-numeric id suffixes
// are treated as 0 when computing the next builder id after loadTemplate.
func NextNumericSuffix(ids []string, prefix string) int {
	max := -1
	for _, id := range ids {
		suffix := strings.TrimPrefix(id, prefix)
		n, err := strconv.Atoi(suffix)
		if err != nil {
			n = 0
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}
