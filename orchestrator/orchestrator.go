package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/internal/errs"
)

// Config is the AI-Orchestrator node's delegation payload (spec §4.3).
type Config struct {
	MaxSteps         int
	EnabledTools     []string
	SystemPrompt     string
	MaxContextTokens int // SPEC_FULL §5.3; 0 disables trimming
}

// defaultMaxContextTokens is the SPEC_FULL §5.3 default token budget
// applied when a node's config doesn't set max_context_tokens explicitly.
const defaultMaxContextTokens = 8000

// Callbacks are fired best-effort on thought/action/result/complete/error/
// tool-complete; a panicking or erroring callback must never abort the
// loop (spec §4.3).
type Callbacks struct {
	OnThought     func(thought string)
	OnAction      func(action string, input map[string]any)
	OnResult      func(action string, result map[string]any)
	OnToolComplete func(action string, result map[string]any)
	OnComplete    func(mem *Memory)
	OnError       func(err error)
}

func (c Callbacks) fire(f func()) {
	defer func() { recover() }()
	if f != nil {
		f()
	}
}

// Run drives the bounded ReAct loop described in spec §4.3.
//
// Enabled-tools resolution (spec §4.3): if connectedTools is non-empty, it
// is used as-is (the tool-attachment edges already resolved it). Otherwise
// config.EnabledTools is intersected with the live tool registry. If empty
// after this, Run returns {status: error, final_result: "no tools"}.
func Run(ctx context.Context, task string, config Config, connectedTools []string, tools *catalog.ToolRegistry, provider catalog.LLMHandle, cb Callbacks) (*Memory, error) {
	enabled := resolveEnabledTools(config.EnabledTools, connectedTools, tools)
	mem := &Memory{Task: task, Status: StatusInProgress}

	if len(enabled) == 0 {
		mem.Status = StatusError
		mem.FinalResult = "no tools"
		return mem, nil
	}

	systemPrompt := config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = buildSystemPrompt(tools, enabled)
	}

	session, err := provider.CreateOrchestratorSession(ctx, systemPrompt)
	if err != nil {
		mem.Status = StatusError
		return mem, &errs.ResourceError{Component: "orchestrator", Action: "CreateOrchestratorSession", Message: "failed to allocate LLM session", Err: err}
	}
	defer func() {
		_ = provider.DisposeOrchestratorSession(ctx, session)
	}()

	maxSteps := config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1
	}

	nextPrompt := fmt.Sprintf("Task: %s", task)
	var lastThought string

	for i := 0; i < maxSteps; i++ {
		raw, genErr := provider.OrchestratorPrompt(ctx, session, nextPrompt, catalog.GenerateOptions{MaxTokens: 200, Temperature: 0.1})
		if genErr != nil {
			mem.Status = StatusError
			cb.fire(func() { cb.OnError(genErr) })
			return mem, nil
		}

		p := parseResponse(raw)
		step := Step{Thought: p.thought, Timestamp: time.Now()}
		step.TokensUsed = countTokens(raw)

		if p.thought != "" {
			cb.fire(func() { cb.OnThought(p.thought) })
			lastThought = p.thought
		}

		if !p.foundAction && p.foundDone {
			mem.Status = StatusComplete
			mem.FinalResult = p.done
			mem.Steps = append(mem.Steps, step)
			cb.fire(func() { cb.OnComplete(mem) })
			return mem, nil
		}

		if p.foundAction {
			step.Action = p.action
			step.Input = p.input
			cb.fire(func() { cb.OnAction(p.action, p.input) })

			if !containsString(enabled, p.action) {
				nextPrompt = fmt.Sprintf("ERROR: Tool %q not enabled. Available: %s", p.action, strings.Join(enabled, ", "))
				step.Result = map[string]any{"error": nextPrompt}
			} else if tool, ok := tools.GetTool(p.action); ok {
				input := p.input
				if input == nil {
					input = map[string]any{}
				}
				result, execErr := tool.Execute(ctx, input)
				if execErr != nil {
					toolErr := &errs.ToolError{Component: "orchestrator", Action: p.action, Message: "tool execution failed", Err: execErr}
					step.Result = map[string]any{"error": toolErr.Error()}
					nextPrompt = fmt.Sprintf("ERROR: %s", execErr.Error())
				} else {
					step.Result = result
					nextPrompt = fmt.Sprintf("RESULT: %s", marshalResult(result))
					cb.fire(func() { cb.OnResult(p.action, result) })
					cb.fire(func() { cb.OnToolComplete(p.action, result) })
				}
			} else {
				step.Result = map[string]any{"error": "tool not found"}
				nextPrompt = fmt.Sprintf("ERROR: Tool %q not found", p.action)
			}
		} else {
			nextPrompt = "Continue. Use a tool or say DONE."
		}

		mem.Steps = append(mem.Steps, step)
		mem.Steps = trimToTokenBudget(mem, config.MaxContextTokens)
	}

	mem.Status = StatusComplete
	mem.FinalResult = fmt.Sprintf("Reached maximum steps. Last progress: %s", lastThought)
	cb.fire(func() { cb.OnComplete(mem) })
	return mem, nil
}

func resolveEnabledTools(configured, connected []string, tools *catalog.ToolRegistry) []string {
	if len(connected) > 0 {
		return connected
	}
	var live []string
	for _, name := range configured {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := tools.GetTool(name); ok {
			live = append(live, name)
		}
	}
	return live
}

func buildSystemPrompt(tools *catalog.ToolRegistry, enabled []string) string {
	var b strings.Builder
	b.WriteString(tools.ToolDescriptionsForPrompt(enabled))
	b.WriteString("\nUse ONE of:\n")
	b.WriteString("ACTION: <name>\nINPUT: <json>\nOR\nDONE: <final>\n")
	b.WriteString("per turn. Wait for a RESULT: reply before proceeding.\n")
	return b.String()
}

func marshalResult(result map[string]any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
