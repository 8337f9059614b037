package catalog

import (
	"fmt"
	"strings"

	"github.com/localflow/core/registry"
)

// NodeRegistry holds the node-type catalog. Re-registration replaces the
// existing definition (spec §3's idempotent-by-replace invariant), unlike a
// general-purpose registry.Registry whose Register errors on duplicates.
type NodeRegistry struct {
	base *registry.BaseRegistry[*NodeTypeDefinition]
}

// NewNodeRegistry constructs an empty node-type catalog.
func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{base: registry.NewBaseRegistry[*NodeTypeDefinition]()}
}

// RegisterNodeType installs or replaces a node type definition by ID.
func (r *NodeRegistry) RegisterNodeType(def *NodeTypeDefinition) {
	r.base.Set(def.ID, def)
}

// GetNode resolves type_id against the catalog (spec §4.1's get_node).
func (r *NodeRegistry) GetNode(typeID string) (*NodeTypeDefinition, bool) {
	return r.base.Get(typeID)
}

// ListNodeTypes enumerates every registered node type, sorted by ID.
func (r *NodeRegistry) ListNodeTypes() []*NodeTypeDefinition {
	return r.base.List()
}

// Count reports how many node types are registered.
func (r *NodeRegistry) Count() int { return r.base.Count() }

// RemoveNodeType drops a node type by ID (used when a workflow-as-tool is
// deleted, alongside ToolRegistry.Remove).
func (r *NodeRegistry) RemoveNodeType(id string) error { return r.base.Remove(id) }

// ToolRegistry holds the name→Tool catalog described in spec §3. Entries
// may be registered at startup, by plugin load, by orchestrator-node
// registration, or by wrapping a saved workflow (the workflow-as-tool
// adapter).
type ToolRegistry struct {
	base *registry.BaseRegistry[Tool]
}

// NewToolRegistry constructs an empty tool catalog.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{base: registry.NewBaseRegistry[Tool]()}
}

// RegisterTool installs or replaces a tool by name (idempotent per spec §3).
func (r *ToolRegistry) RegisterTool(t Tool) {
	r.base.Set(t.Name(), t)
}

// GetTool resolves a tool by name (spec §4.1's get_tool).
func (r *ToolRegistry) GetTool(name string) (Tool, bool) {
	return r.base.Get(name)
}

// ListTools enumerates every registered tool, sorted by name.
func (r *ToolRegistry) ListTools() []Tool {
	return r.base.List()
}

// Count reports how many tools are registered.
func (r *ToolRegistry) Count() int { return r.base.Count() }

// Remove drops a tool by name (used when a workflow-as-tool is deleted).
func (r *ToolRegistry) Remove(name string) error { return r.base.Remove(name) }

// ToolDescriptionsForPrompt renders the subset of tools named in names as
// the prompt fragment the orchestrator's system prompt embeds (spec §4.3):
//
//	• <name>: <description>
//	  Parameters:
//	    <param>: <description or type>
//
// Unknown names are skipped silently; the caller is expected to have
// already intersected enabled_tools with the live registry.
func (r *ToolRegistry) ToolDescriptionsForPrompt(names []string) string {
	var b strings.Builder
	for _, name := range names {
		t, ok := r.GetTool(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "• %s: %s\n", t.Name(), t.Description())
		schema := t.Schema()
		if schema == nil || schema.InputSchema == nil || schema.InputSchema.Properties == nil || schema.InputSchema.Properties.Len() == 0 {
			continue
		}
		b.WriteString("  Parameters:\n")
		for pair := schema.InputSchema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			desc := pair.Value.Description
			if desc == "" {
				desc = string(pair.Value.Type)
			}
			fmt.Fprintf(&b, "    %s: %s\n", pair.Key, desc)
		}
	}
	return b.String()
}
