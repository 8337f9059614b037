// Package catalog holds the shared schema types for the node/tool registry
// (spec §3, §4.1): node-type definitions, ports, tool descriptors, and the
// two process-wide registries built on top of the generic registry package.
//
// A Tool and a tool-node share one input-schema record (ToolSchema) so the
// orchestrator and the plugin loader present a uniform view of "a callable
// with a name, a description, and JSON-schema parameters."
package catalog

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Port is a named, typed input or output on a node type.
type Port struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Node categories, per spec §3.
const (
	CategoryTrigger     = "trigger"
	CategoryAI          = "ai"
	CategoryData        = "data"
	CategoryOutput      = "output"
	CategoryTool        = "tool"
	CategoryPluginTools = "plugin-tools"
)

// RuntimeContext is what the engine hands to every node executor: an LLM
// handle, the id of the workflow being run, a line-oriented logger, and a
// progress callback (spec §4.2's "ctx supplied to executors").
type RuntimeContext struct {
	WorkflowID   string
	LLM          LLMHandle
	Log          func(msg string)
	SendProgress func(nodeID, status string, data map[string]any)
}

// LLMHandle mirrors llm.Provider (spec §6.1), declared here rather than
// imported so that catalog, which llm depends on for schema types, never
// imports llm back.
type LLMHandle interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	CreateOrchestratorSession(ctx context.Context, systemPrompt string) (SessionHandle, error)
	OrchestratorPrompt(ctx context.Context, session SessionHandle, prompt string, opts GenerateOptions) (string, error)
	DisposeOrchestratorSession(ctx context.Context, session SessionHandle) error
}

// SessionHandle is an opaque, provider-specific persistent chat context.
type SessionHandle interface{}

// GenerateOptions mirrors spec §6.1's Generate parameters.
type GenerateOptions struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// ExecuteFunc is a node type's behavior: consume resolved inputs and
// config, produce named outputs.
type ExecuteFunc func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error)

// NodeTypeDefinition is a registered node type (spec §3). Nodes whose ID
// begins with "tool-" never execute in dataflow; they exist solely to
// advertise ToolSchema to an ai-orchestrator node they are tool-attached to.
type NodeTypeDefinition struct {
	ID           string
	Name         string
	Category     string
	Inputs       []Port
	Outputs      []Port
	ConfigSchema *jsonschema.Schema
	Execute      ExecuteFunc
	ToolSchema   *ToolSchema

	// CronSpec is an optional cron expression field; no node type in this
	// module sets or reads it, the cron-trigger type included.
	CronSpec string
}

// IsToolNode reports whether this type never participates in dataflow
// execution, per spec §3's "id begins with tool-" rule.
func (d *NodeTypeDefinition) IsToolNode() bool {
	return len(d.ID) >= 5 && d.ID[:5] == "tool-"
}

// ToolSchema is the MCP-style descriptor shared by a callable Tool and the
// tool-node that advertises it to an orchestrator (spec §6.6).
type ToolSchema struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}
