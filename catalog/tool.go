package catalog

import "context"

// Tool is a named, schema-described callable available to an autonomous
// orchestrator (spec §3). Grounded on the teacher's legacy tools.Tool
// interface, simplified: no streaming, no display-direct flag, since the
// orchestrator only ever needs Execute's result (success) or error (failure).
type Tool interface {
	Name() string
	Description() string
	Schema() *ToolSchema
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// FuncTool adapts a plain function into a Tool, the idiom used for every
// built-in and plugin-discovered tool in this module.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	ToolInputSchema *ToolSchema
	Fn              func(ctx context.Context, params map[string]any) (map[string]any, error)
}

func (f *FuncTool) Name() string        { return f.ToolName }
func (f *FuncTool) Description() string { return f.ToolDescription }
func (f *FuncTool) Schema() *ToolSchema { return f.ToolInputSchema }
func (f *FuncTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	return f.Fn(ctx, params)
}

// NewToolNode wraps a Tool as a tool-node: a NodeTypeDefinition whose ID is
// prefixed "tool-" and which never executes in dataflow (spec §3, §4.1).
// Used by the plugin loader and the workflow-as-tool adapter so both paths
// share one mechanism for "make a callable discoverable as a tool-attached
// node."
func NewToolNode(t Tool) *NodeTypeDefinition {
	schema := t.Schema()
	return &NodeTypeDefinition{
		ID:       "tool-" + t.Name(),
		Name:     t.Name(),
		Category: CategoryTool,
		Outputs:  []Port{{ID: "tool", Name: "tool", Type: "tool"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			// Tool nodes never execute in dataflow; the engine's topological
			// sort skips any node whose type id starts with "tool-", but this
			// is kept safe if ever invoked directly.
			return map[string]any{}, nil
		},
		ToolSchema: schema,
	}
}
