package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/internal/errs"
	"github.com/localflow/core/progress"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/localflow/core/engine")

var (
	meter                  = otel.Meter("github.com/localflow/core/engine")
	nodeExecutionsTotal, _ = meter.Int64Counter("localflow_node_executions_total")
	nodeExecutionSeconds, _ = meter.Float64Histogram("localflow_node_execution_seconds")
)

// Result is the engine's execution contract (spec §4.2).
type Result struct {
	Success bool
	Outputs map[string]map[string]any
	Logs    []string
	Error   string
}

// Engine executes workflow documents against a node-type catalog.
type Engine struct {
	Nodes *catalog.NodeRegistry
	LLM   catalog.LLMHandle
}

// New constructs an Engine bound to a node registry and an LLM handle.
func New(nodes *catalog.NodeRegistry, llm catalog.LLMHandle) *Engine {
	return &Engine{Nodes: nodes, LLM: llm}
}

// Execute runs doc to completion, emitting progress events to sink
// (spec §4.2's execute(doc, progress_sink) contract).
func (e *Engine) Execute(ctx context.Context, doc *WorkflowDocument, sink progress.Sink) (*Result, error) {
	if sink == nil {
		sink = progress.NopSink{}
	}

	ctx, span := tracer.Start(ctx, "engine.Execute", attribute.String("workflow.id", doc.ID))
	defer span.End()

	sink.Emit(progress.Event{Type: progress.EventExecutionStart, Time: time.Now(), WorkflowID: doc.ID})

	order, err := topoSort(doc)
	if err != nil {
		res := &Result{Success: false, Error: err.Error()}
		sink.Emit(progress.Event{Type: progress.EventExecutionComplete, Time: time.Now(), WorkflowID: doc.ID, Success: false, Error: err.Error()})
		return res, nil
	}

	res := &Result{Success: true, Outputs: make(map[string]map[string]any)}
	logLine := func(msg string) {
		line := fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), msg)
		res.Logs = append(res.Logs, line)
		sink.Emit(progress.Event{Type: progress.EventLog, Time: time.Now(), WorkflowID: doc.ID, Message: line})
	}

	for _, node := range order {
		nodeStart := time.Now()
		attrs := []attribute.KeyValue{
			attribute.String("node.id", node.ID),
			attribute.String("node.type_id", node.Data.TypeID),
		}

		sink.Emit(progress.Event{Type: progress.EventNodeProgress, Time: time.Now(), WorkflowID: doc.ID, NodeID: node.ID, Status: progress.NodeRunning})
		logLine(fmt.Sprintf("running %s (%s)", node.ID, node.Data.TypeID))

		def, ok := e.Nodes.GetNode(node.Data.TypeID)
		if !ok {
			// Unknown node type: engine logs and skips (non-fatal), per
			// spec §4.1's failure semantics.
			logLine(fmt.Sprintf("unknown node type %q for %s, skipping", node.Data.TypeID, node.ID))
			res.Outputs[node.ID] = map[string]any{}
			nodeExecutionsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Bool("skipped", true))...))
			continue
		}

		inputs := e.collectInputs(doc, &node, def, res.Outputs)

		config := node.Data.Config
		if node.Data.TypeID == "ai-orchestrator" {
			config = e.withToolDiscovery(doc, &node, config, sink)
		}

		rc := &catalog.RuntimeContext{
			WorkflowID: doc.ID,
			LLM:        e.LLM,
			Log:        logLine,
			SendProgress: func(id, status string, data map[string]any) {
				sink.Emit(progress.Event{Type: progress.EventNodeProgress, Time: time.Now(), WorkflowID: doc.ID, NodeID: id, Status: progress.NodeStatus(status), Data: data})
			},
		}

		_, execSpan := tracer.Start(ctx, "engine.node", attrs...)
		outputs, execErr := def.Execute(ctx, inputs, config, rc)
		execSpan.End()

		nodeExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
		nodeExecutionSeconds.Record(ctx, time.Since(nodeStart).Seconds(), metric.WithAttributes(attrs...))

		if execErr != nil {
			nodeErr := &errs.NodeExecutionError{Component: "engine", Action: "Execute", Message: fmt.Sprintf("node %s failed", node.ID), Err: execErr}
			sink.Emit(progress.Event{Type: progress.EventNodeProgress, Time: time.Now(), WorkflowID: doc.ID, NodeID: node.ID, Status: progress.NodeError, Data: map[string]any{"error": execErr.Error()}})
			sink.Emit(progress.Event{Type: progress.EventExecutionComplete, Time: time.Now(), WorkflowID: doc.ID, Success: false, Error: nodeErr.Error()})
			return &Result{Success: false, Outputs: res.Outputs, Logs: res.Logs, Error: nodeErr.Error()}, nil
		}

		if outputs == nil {
			outputs = map[string]any{}
		}
		res.Outputs[node.ID] = outputs
		sink.Emit(progress.Event{Type: progress.EventNodeProgress, Time: time.Now(), WorkflowID: doc.ID, NodeID: node.ID, Status: progress.NodeComplete, Data: outputs})
	}

	sink.Emit(progress.Event{Type: progress.EventExecutionComplete, Time: time.Now(), WorkflowID: doc.ID, Success: true})
	return res, nil
}

// topoSort partitions nodes/edges per spec §4.2 and runs Kahn's algorithm
// with a FIFO queue, ties broken by document order.
func topoSort(doc *WorkflowDocument) ([]Node, error) {
	executable := make(map[string]*Node, len(doc.Nodes))
	order := make([]string, 0, len(doc.Nodes))
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		if !isToolProviderID(n.ID) && !isToolProviderID(n.Data.TypeID) {
			executable[n.ID] = n
			order = append(order, n.ID)
		}
	}

	inDegree := make(map[string]int, len(executable))
	adjacency := make(map[string][]string, len(executable))
	for id := range executable {
		inDegree[id] = 0
	}
	for _, e := range doc.Edges {
		if e.IsToolAttachment() {
			continue
		}
		if _, ok := executable[e.Target]; !ok {
			continue
		}
		if _, ok := executable[e.Source]; !ok {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		inDegree[e.Target]++
	}

	queue := make([]string, 0, len(order))
	for _, id := range order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := make(map[string]bool, len(executable))
	result := make([]Node, 0, len(executable))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		result = append(result, *executable[id])

		for _, target := range adjacency[id] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if len(result) != len(executable) {
		return nil, &errs.DocumentError{Component: "engine", Action: "topoSort", Message: "cycle detected"}
	}
	return result, nil
}

func isToolProviderID(id string) bool {
	return len(id) >= 5 && id[:5] == "tool-"
}

// collectInputs resolves per-port inputs for node N per spec §4.2 steps 2-3:
// first-edge-wins binding, smart port mapping when no target_handle is set,
// and common-alias backfill.
func (e *Engine) collectInputs(doc *WorkflowDocument, n *Node, def *catalog.NodeTypeDefinition, outputsByNode map[string]map[string]any) map[string]any {
	inputs := make(map[string]any)
	set := make(map[string]bool)

	for _, edge := range doc.Edges {
		if edge.Target != n.ID || edge.IsToolAttachment() {
			continue
		}
		srcOutputs, ok := outputsByNode[edge.Source]
		if !ok {
			continue
		}
		sourceKey := edge.SourceHandle
		if sourceKey == "" {
			sourceKey = e.firstOutputKey(doc, edge.Source)
		}
		value, hasValue := srcOutputs[sourceKey]
		if !hasValue {
			continue
		}

		if edge.TargetHandle != "" {
			if !set[edge.TargetHandle] {
				inputs[edge.TargetHandle] = value
				set[edge.TargetHandle] = true
			}
			continue
		}

		port := smartPortMapping(def, sourceKey)
		if port != "" && !set[port] {
			inputs[port] = value
			set[port] = true
		}

		for _, alias := range []string{"input", "prompt", "text"} {
			if !set[alias] {
				inputs[alias] = value
				set[alias] = true
			}
		}
	}

	return inputs
}

// smartPortMapping implements spec §4.2 step 2's port-binding heuristic
// when an edge carries no explicit target_handle.
func smartPortMapping(def *catalog.NodeTypeDefinition, sourceKey string) string {
	hasInput := func(name string) bool {
		for _, p := range def.Inputs {
			if p.ID == name || p.Name == name {
				return true
			}
		}
		return false
	}

	if hasInput("content") && (sourceKey == "response" || sourceKey == "output" || sourceKey == "text") {
		return "content"
	}
	if hasInput("input") {
		return "input"
	}
	if hasInput("prompt") && (sourceKey == "text" || sourceKey == "output") {
		return "prompt"
	}
	if len(def.Inputs) > 0 {
		return def.Inputs[0].ID
	}
	return ""
}

// firstOutputKey resolves the default source port for an edge with no
// explicit source_handle (spec §4.2 step 2) to the source node type's
// first *declared* output, not its runtime output map — map iteration
// order is randomized, so ranging over the runtime outputs would make
// the binding nondeterministic between runs for any node type declaring
// more than one output.
func (e *Engine) firstOutputKey(doc *WorkflowDocument, sourceID string) string {
	srcNode, ok := doc.NodeByID(sourceID)
	if !ok {
		return ""
	}
	def, ok := e.Nodes.GetNode(srcNode.Data.TypeID)
	if !ok || len(def.Outputs) == 0 {
		return ""
	}
	return def.Outputs[0].ID
}

// withToolDiscovery implements spec §4.2 step 4: walk tool-attachment edges
// into N, resolve each source to a tool-node, and inject the reserved
// config keys an ai-orchestrator executor expects.
func (e *Engine) withToolDiscovery(doc *WorkflowDocument, n *Node, config map[string]any, sink progress.Sink) map[string]any {
	out := make(map[string]any, len(config)+3)
	for k, v := range config {
		out[k] = v
	}

	var connectedTools []*catalog.ToolSchema
	toolNodeMap := make(map[string]*catalog.NodeTypeDefinition)
	for _, edge := range doc.Edges {
		if edge.Target != n.ID || !edge.IsToolAttachment() {
			continue
		}
		srcNode, ok := doc.NodeByID(edge.Source)
		if !ok {
			continue
		}
		def, ok := e.Nodes.GetNode(srcNode.Data.TypeID)
		if !ok || def.ToolSchema == nil {
			continue
		}
		connectedTools = append(connectedTools, def.ToolSchema)
		toolNodeMap[def.ToolSchema.Name] = def
	}

	out["_connected_tools"] = connectedTools
	out["_tool_node_map"] = toolNodeMap
	out["_send_progress"] = func(id, status string, data map[string]any) {
		sink.Emit(progress.Event{Type: progress.EventNodeProgress, Time: time.Now(), WorkflowID: doc.ID, NodeID: id, Status: progress.NodeStatus(status), Data: data})
	}
	return out
}
