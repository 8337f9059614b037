package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/localflow/core/builder"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/store"
)

// commandState is the per-session workflow canvas the command executor
// mutates (spec §4.6), independent of the builder package's singleton
// BuilderState used by the meta-workflow.
type commandState struct {
	nodes  []engine.Node
	edges  []engine.Edge
	nextID int
}

func (c *commandState) document() *engine.WorkflowDocument {
	doc := &engine.WorkflowDocument{Nodes: append([]engine.Node{}, c.nodes...), Edges: append([]engine.Edge{}, c.edges...)}
	return doc.Clone()
}

// Command is one parsed command record (spec §4.5's command-extraction
// output): an "action" field plus arbitrary parameters.
type Command struct {
	Action string
	Params map[string]any
}

// CommandResult is what the command executor returns for one Command.
type CommandResult struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
}

// commandExecutor runs Commands against one session's commandState, the
// engine, and the workflow store (spec §4.6's eleven actions).
type commandExecutor struct {
	eng      *engine.Engine
	wfStore  store.WorkflowStore
	templates map[string]*engine.WorkflowDocument
}

func (e *commandExecutor) execute(sess *Session, cmd Command) CommandResult {
	switch cmd.Action {
	case "addNode":
		return e.addNode(sess, cmd.Params)
	case "connect":
		return e.connect(sess, cmd.Params)
	case "clear":
		sess.workflow = commandState{}
		return CommandResult{Success: true, Result: "Canvas cleared"}
	case "loadTemplate":
		return e.loadTemplate(sess, cmd.Params)
	case "run":
		return e.run(sess, cmd.Params)
	case "getWorkflow":
		return e.getWorkflow(sess)
	case "saveWorkflow":
		return e.saveWorkflow(sess, cmd.Params)
	case "loadWorkflow":
		return e.loadWorkflow(sess, cmd.Params)
	case "listWorkflows":
		return e.listWorkflows()
	case "deleteWorkflow":
		return e.deleteWorkflow(cmd.Params)
	case "renameWorkflow":
		return e.renameWorkflow(cmd.Params)
	default:
		return CommandResult{Success: false, Result: fmt.Sprintf("Unknown action: %s", cmd.Action)}
	}
}

func (e *commandExecutor) addNode(sess *Session, params map[string]any) CommandResult {
	typeID, _ := params["type"].(string)
	if typeID == "" {
		return CommandResult{Success: false, Result: "addNode requires type"}
	}
	label, _ := params["label"].(string)
	if label == "" {
		label = typeID
	}
	config, _ := params["config"].(map[string]any)

	ws := &sess.workflow
	id := fmt.Sprintf("node_%d", ws.nextID)
	ws.nextID++
	ws.nodes = append(ws.nodes, engine.Node{
		ID:          id,
		DisplayType: "custom",
		Position:    engine.Position{X: 150 + 200*float64(len(ws.nodes)), Y: 200},
		Data:        engine.NodeData{Label: label, TypeID: typeID, Config: config},
	})
	return CommandResult{Success: true, Result: fmt.Sprintf("Added node %q (%s)", label, id)}
}

func (e *commandExecutor) connect(sess *Session, params map[string]any) CommandResult {
	from, _ := params["from"].(string)
	to, _ := params["to"].(string)
	if from == "" || to == "" {
		return CommandResult{Success: false, Result: "connect requires from and to"}
	}
	ws := &sess.workflow
	edge := engine.Edge{ID: fmt.Sprintf("edge_%d", time.Now().UnixNano()), Source: from, Target: to}
	if sh, ok := params["sourceHandle"].(string); ok {
		edge.SourceHandle = sh
	}
	if th, ok := params["targetHandle"].(string); ok {
		edge.TargetHandle = th
	}
	ws.edges = append(ws.edges, edge)
	return CommandResult{Success: true, Result: fmt.Sprintf("Connected %s → %s", from, to)}
}

func (e *commandExecutor) loadTemplate(sess *Session, params map[string]any) CommandResult {
	id, _ := params["id"].(string)
	tmpl, ok := e.templates[id]
	if !ok {
		return CommandResult{Success: false, Result: fmt.Sprintf("template %q not found", id)}
	}
	cloned := tmpl.Clone()

	ws := &sess.workflow
	ws.nodes = append([]engine.Node{}, cloned.Nodes...)
	ws.edges = append([]engine.Edge{}, cloned.Edges...)

	ids := make([]string, len(ws.nodes))
	for i, n := range ws.nodes {
		ids[i] = n.ID
	}
	ws.nextID = builder.NextNumericSuffix(ids, "node_")

	return CommandResult{Success: true, Result: fmt.Sprintf("Loaded template %q (%d nodes)", id, len(ws.nodes))}
}

func (e *commandExecutor) run(sess *Session, params map[string]any) CommandResult {
	var doc *engine.WorkflowDocument
	if templateID, ok := params["templateId"].(string); ok && templateID != "" {
		tmpl, ok := e.templates[templateID]
		if !ok {
			return CommandResult{Success: false, Result: fmt.Sprintf("template %q not found", templateID)}
		}
		doc = tmpl.Clone()
	} else {
		doc = sess.workflow.document()
	}

	res, err := e.eng.Execute(context.Background(), doc, nil)
	if err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	if !res.Success {
		return CommandResult{Success: false, Result: fmt.Sprintf("Workflow result: %s", res.Error)}
	}
	return CommandResult{Success: true, Result: fmt.Sprintf("Workflow result: %s", builder.ExtractResult(doc, res))}
}

func (e *commandExecutor) getWorkflow(sess *Session) CommandResult {
	doc := sess.workflow.document()
	data, err := json.Marshal(doc)
	if err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	return CommandResult{Success: true, Result: string(data)}
}

func (e *commandExecutor) saveWorkflow(sess *Session, params map[string]any) CommandResult {
	name, _ := params["name"].(string)
	if name == "" {
		return CommandResult{Success: false, Result: "saveWorkflow requires name"}
	}
	doc := sess.workflow.document()
	nodes := make([]any, len(doc.Nodes))
	for i, n := range doc.Nodes {
		nodes[i] = n
	}
	edges := make([]any, len(doc.Edges))
	for i, ed := range doc.Edges {
		edges[i] = ed
	}
	saved, err := e.wfStore.Save(name, nodes, edges, "", "")
	if err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	return CommandResult{Success: true, Result: fmt.Sprintf("Saved %q (%s)", saved.Name, saved.ID)}
}

func (e *commandExecutor) loadWorkflow(sess *Session, params map[string]any) CommandResult {
	id, _ := params["id"].(string)
	saved, ok, err := e.wfStore.Get(id)
	if err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	if !ok {
		return CommandResult{Success: false, Result: fmt.Sprintf("workflow %q not found", id)}
	}

	ws := &sess.workflow
	ws.nodes = nil
	ws.edges = nil
	ids := make([]string, 0, len(saved.Nodes))
	for _, raw := range saved.Nodes {
		data, _ := json.Marshal(raw)
		var n engine.Node
		if json.Unmarshal(data, &n) == nil {
			ws.nodes = append(ws.nodes, n)
			ids = append(ids, n.ID)
		}
	}
	for _, raw := range saved.Edges {
		data, _ := json.Marshal(raw)
		var ed engine.Edge
		if json.Unmarshal(data, &ed) == nil {
			ws.edges = append(ws.edges, ed)
		}
	}
	ws.nextID = builder.NextNumericSuffix(ids, "node_")

	return CommandResult{Success: true, Result: fmt.Sprintf("Loaded %q (%d nodes)", saved.Name, len(ws.nodes))}
}

func (e *commandExecutor) listWorkflows() CommandResult {
	list, err := e.wfStore.List()
	if err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	names := make([]string, len(list))
	for i, wf := range list {
		names[i] = fmt.Sprintf("%s (%s)", wf.Name, wf.ID)
	}
	return CommandResult{Success: true, Result: strings.Join(names, "\n")}
}

func (e *commandExecutor) deleteWorkflow(params map[string]any) CommandResult {
	id, _ := params["id"].(string)
	if _, ok, _ := e.wfStore.Get(id); !ok {
		return CommandResult{Success: false, Result: fmt.Sprintf("workflow %q not found", id)}
	}
	if err := e.wfStore.Delete(id); err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	return CommandResult{Success: true, Result: fmt.Sprintf("Deleted %s", id)}
}

func (e *commandExecutor) renameWorkflow(params map[string]any) CommandResult {
	id, _ := params["id"].(string)
	name, _ := params["name"].(string)
	_, ok, err := e.wfStore.Rename(id, name)
	if err != nil {
		return CommandResult{Success: false, Result: err.Error()}
	}
	if !ok {
		return CommandResult{Success: false, Result: fmt.Sprintf("workflow %q not found", id)}
	}
	return CommandResult{Success: true, Result: fmt.Sprintf("Renamed %s to %q", id, name)}
}
