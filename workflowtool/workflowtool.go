// Package workflowtool implements the workflow-as-tool adapter (spec
// §4.1, §4.7; SPEC_FULL §5.7): every saved workflow is registered as a
// callable tool-node named "workflow_<sanitized id>", so any workflow's
// orchestrator can invoke any other saved workflow the same way it invokes
// a builtin or plugin tool. Grounded on builder.Tools' FuncTool/
// catalog.NewToolNode idiom, which already wraps a plain function as both
// a callable and a tool-node for the six builder tools.
package workflowtool

import (
	"context"
	"fmt"
	"strings"

	"github.com/localflow/core/builder"
	"github.com/localflow/core/catalog"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/internal/errs"
	"github.com/localflow/core/progress"
	"github.com/localflow/core/store"
)

// MaxDepth is SPEC_FULL §5.7's recursion guard: a workflow-as-tool called
// from within another workflow-as-tool's own run may nest at most this
// deep before Execute fails fast instead of recursing unboundedly.
const MaxDepth = 8

// Prefix is the tool-name prefix every saved workflow is registered under.
const Prefix = "workflow_"

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// ToolName returns the tool name a saved workflow with the given id is
// registered under.
func ToolName(id string) string {
	return Prefix + sanitize(id)
}

// sanitize maps a saved workflow id (spec §6.3's "wf_<ms>_<rand5>") onto a
// tool-name-safe token: only letters, digits, and underscore survive.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Decoder turns a store.SavedWorkflow's generic nodes/edges back into a
// typed engine.WorkflowDocument; satisfied by chat.DecodeSavedDocument.
type Decoder func(*store.SavedWorkflow) (*engine.WorkflowDocument, error)

// Adapter keeps the node and tool registries synchronized with a
// WorkflowStore: every saved workflow gets a tool-node, kept current as
// workflows are saved, renamed, duplicated, or deleted.
type Adapter struct {
	nodes   *catalog.NodeRegistry
	tools   *catalog.ToolRegistry
	eng     *engine.Engine
	decode  Decoder
	wfStore store.WorkflowStore
}

// New builds an Adapter bound to the live registries, engine, and store it
// keeps synchronized.
func New(nodes *catalog.NodeRegistry, tools *catalog.ToolRegistry, eng *engine.Engine, wfStore store.WorkflowStore, decode Decoder) *Adapter {
	return &Adapter{nodes: nodes, tools: tools, eng: eng, decode: decode, wfStore: wfStore}
}

// RegisterAll wraps every currently saved workflow as a tool (spec §5's
// "callers SHOULD complete all registration before any execution"); run
// once at Core construction, before any transport starts serving.
func (a *Adapter) RegisterAll() error {
	saved, err := a.wfStore.List()
	if err != nil {
		return err
	}
	for _, wf := range saved {
		a.Register(wf)
	}
	return nil
}

// Register installs or replaces the tool-node for one saved workflow,
// called again after every Store.Save/Rename/Duplicate so the registry
// never serves a stale definition.
func (a *Adapter) Register(wf *store.SavedWorkflow) {
	name := ToolName(wf.ID)
	desc := fmt.Sprintf("Runs the saved workflow %q as a tool.", wf.Name)
	t := &catalog.FuncTool{
		ToolName:        name,
		ToolDescription: desc,
		ToolInputSchema: &catalog.ToolSchema{Name: name, Description: desc},
		Fn:              a.execute(wf.ID),
	}
	a.tools.RegisterTool(t)
	a.nodes.RegisterNodeType(catalog.NewToolNode(t))
}

// Unregister drops the tool and tool-node for a deleted saved workflow.
func (a *Adapter) Unregister(id string) {
	name := ToolName(id)
	_ = a.tools.Remove(name)
	_ = a.nodes.RemoveNodeType("tool-" + name)
}

// execute runs the saved workflow named id as a tool call: params["task"]
// (or "input") is injected into its first text-input node the same way
// POST /run and the WS control plane seed a template run, then the result
// is extracted with the same priority rule run_built_workflow uses.
func (a *Adapter) execute(id string) func(ctx context.Context, params map[string]any) (map[string]any, error) {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		depth := depthFrom(ctx)
		if depth >= MaxDepth {
			return nil, &errs.ToolError{Component: "workflowtool", Action: id, Message: fmt.Sprintf("max_tool_depth (%d) exceeded", MaxDepth)}
		}

		saved, ok, err := a.wfStore.Get(id)
		if err != nil {
			return nil, &errs.ToolError{Component: "workflowtool", Action: id, Message: "failed to load saved workflow", Err: err}
		}
		if !ok {
			return nil, &errs.ToolError{Component: "workflowtool", Action: id, Message: "saved workflow no longer exists"}
		}

		doc, err := a.decode(saved)
		if err != nil {
			return nil, &errs.ToolError{Component: "workflowtool", Action: id, Message: "failed to decode saved workflow", Err: err}
		}

		task, hasTask := params["task"]
		if !hasTask {
			task, hasTask = params["input"]
		}
		if hasTask {
			for i := range doc.Nodes {
				if doc.Nodes[i].Data.TypeID == "text-input" {
					doc.Nodes[i].Data.Config["text"] = task
					break
				}
			}
		}

		res, err := a.eng.Execute(withDepth(ctx, depth+1), doc, progress.NopSink{})
		if err != nil {
			return nil, &errs.ToolError{Component: "workflowtool", Action: id, Message: "execution error", Err: err}
		}
		if !res.Success {
			return nil, &errs.ToolError{Component: "workflowtool", Action: id, Message: res.Error}
		}

		return map[string]any{"result": builder.ExtractResult(doc, res)}, nil
	}
}
