package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/localflow/core/builder"
	"github.com/localflow/core/catalog"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/llm"
	"github.com/localflow/core/progress"
	"github.com/localflow/core/store"
)

var buildKeywords = []string{"build", "create", "make", "generate", "design", "new workflow", "workflow that", "workflow to", "set up", "setup", "construct"}
var workflowKeywords = []string{"workflow", "workflo", "flow", "automation", "pipeline", "translator", "generator", "maker", "converter"}

// isBuildRequest implements spec §4.5's intent-detection predicate.
func isBuildRequest(message string) bool {
	lower := strings.ToLower(message)
	hasBuildWord := false
	for _, kw := range buildKeywords {
		if strings.Contains(lower, kw) {
			hasBuildWord = true
			break
		}
	}
	if !hasBuildWord {
		return false
	}
	for _, kw := range workflowKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BuildResult is the chat() contract's build_result field (spec §4.5).
type BuildResult struct {
	Success        bool   `json:"success"`
	Result         string `json:"result,omitempty"`
	Error          string `json:"error,omitempty"`
	BuiltWorkflow  *BuiltWorkflow `json:"built_workflow,omitempty"`
}

// BuiltWorkflow is the nodes/edges pair returned alongside a successful build.
type BuiltWorkflow struct {
	Nodes []engine.Node `json:"nodes"`
	Edges []engine.Edge `json:"edges"`
}

// Result is chat()'s full return value (spec §4.5's contract).
type Result struct {
	SessionID      string          `json:"session_id"`
	Response       string          `json:"response"`
	Commands       []Command       `json:"commands"`
	CommandResults []CommandResult `json:"command_results"`
	BuildResult    *BuildResult    `json:"build_result,omitempty"`
}

// Dispatcher implements the master chat dispatcher (spec §4.5).
type Dispatcher struct {
	Sessions  *SessionStore
	Store     store.WorkflowStore
	Engine    *engine.Engine
	LLM       llm.Provider
	Templates map[string]*engine.WorkflowDocument
	Plugins   []string

	builderWorkflowID string
	exec              *commandExecutor
}

// NewDispatcher wires a Dispatcher over the given collaborators.
func NewDispatcher(sessions *SessionStore, wfStore store.WorkflowStore, eng *engine.Engine, provider llm.Provider, templates map[string]*engine.WorkflowDocument, plugins []string) *Dispatcher {
	return &Dispatcher{
		Sessions:  sessions,
		Store:     wfStore,
		Engine:    eng,
		LLM:       provider,
		Templates: templates,
		Plugins:   plugins,
		exec:      &commandExecutor{eng: eng, wfStore: wfStore, templates: templates},
	}
}

// Chat implements the chat() contract (spec §4.5).
func (d *Dispatcher) Chat(ctx context.Context, sessionID, message string) (*Result, error) {
	sess := d.Sessions.GetOrCreate(sessionID)
	d.Sessions.appendMessage(sess, "user", message)

	res := &Result{SessionID: sess.ID}

	if isBuildRequest(message) {
		build := d.runBuild(ctx, message)
		res.BuildResult = build
		if build.Success {
			res.Response = "I've built your workflow! " + build.Result
		} else {
			res.Response = "I couldn't build that workflow: " + build.Error
		}
		d.Sessions.appendMessage(sess, "assistant", res.Response)
		return res, nil
	}

	systemPrompt := d.freeformSystemPrompt()
	response, err := d.LLM.Generate(ctx, message, catalog.GenerateOptions{SystemPrompt: systemPrompt, MaxTokens: 600})
	if err != nil {
		return nil, err
	}

	commands := extractCommands(response)
	res.Commands = commands
	for _, cmd := range commands {
		res.CommandResults = append(res.CommandResults, d.exec.execute(sess, cmd))
	}

	res.Response = response
	d.Sessions.appendMessage(sess, "assistant", response)
	return res, nil
}

func (d *Dispatcher) freeformSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are the localflow assistant. Available templates:\n")
	for name := range d.Templates {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	if len(d.Plugins) > 0 {
		b.WriteString("Available plugins:\n")
		for _, p := range d.Plugins {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

// runBuild locates the cached "workflow builder" saved workflow, substitutes
// the build prompt into its first text-input node, executes it, and
// extracts the result (spec §4.5 step 3).
func (d *Dispatcher) runBuild(ctx context.Context, message string) *BuildResult {
	builderDoc, err := d.resolveBuilderWorkflow()
	if err != nil {
		return &BuildResult{Success: false, Error: err.Error()}
	}

	cloned := builderDoc.Clone()
	prompt := buildPrompt(message)
	substituted := false
	for i := range cloned.Nodes {
		if cloned.Nodes[i].Data.TypeID == "text-input" {
			cloned.Nodes[i].Data.Config["text"] = prompt
			substituted = true
			break
		}
	}
	if !substituted {
		return &BuildResult{Success: false, Error: "builder workflow has no text-input node"}
	}

	res, err := d.Engine.Execute(ctx, cloned, progress.NopSink{})
	if err != nil {
		return &BuildResult{Success: false, Error: err.Error()}
	}
	if !res.Success {
		return &BuildResult{Success: false, Error: res.Error}
	}

	result := builder.ExtractResult(cloned, res)
	return &BuildResult{
		Success:       true,
		Result:        result,
		BuiltWorkflow: &BuiltWorkflow{Nodes: cloned.Nodes, Edges: cloned.Edges},
	}
}

// resolveBuilderWorkflow finds the first saved workflow whose name contains
// "workflow builder" (case-insensitive), caching its id.
func (d *Dispatcher) resolveBuilderWorkflow() (*engine.WorkflowDocument, error) {
	if d.builderWorkflowID != "" {
		if saved, ok, _ := d.Store.Get(d.builderWorkflowID); ok {
			return decodeSavedDocument(saved)
		}
	}

	list, err := d.Store.List()
	if err != nil {
		return nil, err
	}
	for _, wf := range list {
		if strings.Contains(strings.ToLower(wf.Name), "workflow builder") {
			d.builderWorkflowID = wf.ID
			return decodeSavedDocument(wf)
		}
	}
	return nil, fmt.Errorf("no saved workflow named 'workflow builder' found")
}

// DecodeSavedDocument converts a store.SavedWorkflow's generic nodes/edges
// back into typed engine.Node/engine.Edge via a JSON round-trip, shared by
// the chat dispatcher, the HTTP transport's /run route, the CLI's run
// command and cron trigger runner, and the workflow-as-tool adapter.
func DecodeSavedDocument(saved *store.SavedWorkflow) (*engine.WorkflowDocument, error) {
	return decodeSavedDocument(saved)
}

func decodeSavedDocument(saved *store.SavedWorkflow) (*engine.WorkflowDocument, error) {
	doc := &engine.WorkflowDocument{ID: saved.ID, Name: saved.Name}
	for _, raw := range saved.Nodes {
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
	for _, raw := range saved.Edges {
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

// buildPrompt wraps the user's request in the stepwise script the builder
// meta-workflow's orchestrator follows (spec §4.4's last paragraph).
func buildPrompt(userRequest string) string {
	return fmt.Sprintf(
		"Build a workflow for this request: %q\n"+
			"Use the builder tools in this order: clear_canvas; add a text-input node; "+
			"add an ai-chat node wired to the request; add a debug node; connect text-input to "+
			"ai-chat; connect ai-chat to debug; then say DONE.",
		userRequest,
	)
}

var (
	commandBlockRe = regexp.MustCompile("(?s)```command\\s*(.*?)```")
	jsonBlockRe    = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	bareBlockRe    = regexp.MustCompile("(?s)```\\s*(.*?)```")
	inlineRe       = regexp.MustCompile("`(\\{.*?\\})`")
	looseRe        = regexp.MustCompile(`\{"action"\s*:\s*"[^"]*"\s*[^}]*\}`)
)

// extractCommands implements spec §4.5's command-extraction fallback chain:
// try each pattern in order, stop at the first that yields any command.
func extractCommands(response string) []Command {
	extractors := []*regexp.Regexp{commandBlockRe, jsonBlockRe, bareBlockRe, inlineRe}
	for _, re := range extractors {
		matches := re.FindAllStringSubmatch(response, -1)
		var cmds []Command
		for _, m := range matches {
			cmds = append(cmds, parseCommandPayload(m[1])...)
		}
		if len(cmds) > 0 {
			return cmds
		}
	}

	var cmds []Command
	for _, m := range looseRe.FindAllString(response, -1) {
		cmds = append(cmds, parseCommandPayload(m)...)
	}
	return cmds
}

// parseCommandPayload parses payload as a single JSON object, a JSON array,
// or newline-separated JSON objects, keeping only entries with an "action".
func parseCommandPayload(payload string) []Command {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}

	if cmds, ok := tryParseOne(payload); ok {
		return cmds
	}

	var cmds []Command
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if parsed, ok := tryParseOne(line); ok {
			cmds = append(cmds, parsed...)
		}
	}
	return cmds
}

func tryParseOne(payload string) ([]Command, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err == nil {
		if action, ok := obj["action"].(string); ok {
			return []Command{{Action: action, Params: obj}}, true
		}
		return nil, false
	}

	var arr []map[string]any
	if err := json.Unmarshal([]byte(payload), &arr); err == nil {
		var cmds []Command
		for _, obj := range arr {
			if action, ok := obj["action"].(string); ok {
				cmds = append(cmds, Command{Action: action, Params: obj})
			}
		}
		return cmds, len(cmds) > 0
	}

	return nil, false
}
