package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
)

// RegisterBuiltins installs the built-in node-type set spec §4.1 names
// eagerly installed at startup: manual-trigger, cron-trigger, text-input,
// ai-chat, ai-transform,
// debug, http-request, file-read, file-write, json-parse, loop. The
// ai-orchestrator type is registered separately by the orchestrator
// package, since it alone needs to reach the tool registry (spec §4.1's
// "orchestrator-node registrar").
func RegisterBuiltins(nodes *NodeRegistry) {
	nodes.RegisterNodeType(manualTriggerType())
	nodes.RegisterNodeType(cronTriggerType())
	nodes.RegisterNodeType(textInputType())
	nodes.RegisterNodeType(aiChatType())
	nodes.RegisterNodeType(aiTransformType())
	nodes.RegisterNodeType(debugType())
	nodes.RegisterNodeType(httpRequestType())
	nodes.RegisterNodeType(fileReadType())
	nodes.RegisterNodeType(fileWriteType())
	nodes.RegisterNodeType(jsonParseType())
	nodes.RegisterNodeType(loopType())
}

// manualTriggerType is a no-op source node emitting {fired: true} — the
// behavior spec.md already implies for "the workflow has a start."
func manualTriggerType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "manual-trigger",
		Name:     "Manual Trigger",
		Category: CategoryTrigger,
		Outputs:  []Port{{ID: "fired", Name: "fired", Type: "boolean"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			return map[string]any{"fired": true}, nil
		},
	}
}

// cronTriggerType (SPEC_FULL §5.8): the node's own Execute just emits
// {fired_at: <RFC3339>} when invoked. Scheduled runs are owned by the
// serving process (cmd/localflow's serve command), which registers one
// cron job per entry of the process config's triggers list (a saved
// workflow id plus a schedule) and executes that saved workflow on each
// tick; this node's config is not read by that scheduler. The engine stays
// synchronous and single-shot per spec's Non-goals.
func cronTriggerType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "cron-trigger",
		Name:     "Cron Trigger",
		Category: CategoryTrigger,
		Outputs:  []Port{{ID: "fired_at", Name: "fired_at", Type: "string"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			return map[string]any{"fired_at": time.Now().Format(time.RFC3339)}, nil
		},
	}
}

// ValidateCronSchedule parses expr with the standard five-field cron
// parser, surfacing a document-time error before a workflow is scheduled.
func ValidateCronSchedule(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}

func textInputType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "text-input",
		Name:     "Text Input",
		Category: CategoryData,
		Outputs:  []Port{{ID: "text", Name: "text", Type: "string"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			text, _ := config["text"].(string)
			return map[string]any{"text": text}, nil
		},
	}
}

func aiChatType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "ai-chat",
		Name:     "AI Chat",
		Category: CategoryAI,
		Inputs:   []Port{{ID: "prompt", Name: "prompt", Type: "string"}},
		Outputs:  []Port{{ID: "response", Name: "response", Type: "string"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			prompt := stringInput(inputs, "prompt", "input", "text")
			systemPrompt, _ := config["systemPrompt"].(string)
			maxTokens := intConfig(config, "maxTokens", 500)
			if rc.Log != nil {
				rc.Log(fmt.Sprintf("ai-chat: prompting (%d tokens max)", maxTokens))
			}
			resp, err := rc.LLM.Generate(ctx, prompt, GenerateOptions{SystemPrompt: systemPrompt, MaxTokens: maxTokens, Temperature: 0.7})
			if err != nil {
				return nil, err
			}
			return map[string]any{"response": resp}, nil
		},
	}
}

func aiTransformType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "ai-transform",
		Name:     "AI Transform",
		Category: CategoryAI,
		Inputs:   []Port{{ID: "input", Name: "input", Type: "string"}},
		Outputs:  []Port{{ID: "output", Name: "output", Type: "string"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			input := stringInput(inputs, "input", "prompt", "text")
			instruction, _ := config["instruction"].(string)
			full := input
			if instruction != "" {
				full = instruction + "\n\n" + input
			}
			resp, err := rc.LLM.Generate(ctx, full, GenerateOptions{MaxTokens: intConfig(config, "maxTokens", 500)})
			if err != nil {
				return nil, err
			}
			return map[string]any{"output": resp}, nil
		},
	}
}

func debugType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "debug",
		Name:     "Debug",
		Category: CategoryOutput,
		Inputs:   []Port{{ID: "input", Name: "input", Type: "any"}},
		Outputs:  []Port{{ID: "output", Name: "output", Type: "any"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			if rc.Log != nil {
				rc.Log(fmt.Sprintf("debug: %v", inputs))
			}
			return map[string]any{"output": inputs}, nil
		},
	}
}

// httpRequestConfig is the typed shape of an http-request node's config
// map, decoded with mapstructure so that headers/body survive whatever
// generic map[string]any came off the document's JSON (spec §6.5's nodes
// travel as plain maps over the wire).
type httpRequestConfig struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Body    string            `mapstructure:"body"`
}

func decodeHTTPRequestConfig(config map[string]any) httpRequestConfig {
	var cfg httpRequestConfig
	_ = mapstructure.Decode(config, &cfg)
	return cfg
}

func httpRequestType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "http-request",
		Name:     "HTTP Request",
		Category: CategoryData,
		Inputs:   []Port{{ID: "url", Name: "url", Type: "string"}},
		Outputs:  []Port{{ID: "body", Name: "body", Type: "string"}, {ID: "status", Name: "status", Type: "number"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			cfg := decodeHTTPRequestConfig(config)

			url := stringInput(inputs, "url")
			if url == "" {
				url = cfg.URL
			}
			method := cfg.Method
			if method == "" {
				method = http.MethodGet
			}

			var bodyReader io.Reader
			if cfg.Body != "" {
				bodyReader = strings.NewReader(cfg.Body)
			}
			req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
			if err != nil {
				return nil, err
			}
			for k, v := range cfg.Headers {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			return map[string]any{"body": string(body), "status": resp.StatusCode}, nil
		},
	}
}

func fileReadType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "file-read",
		Name:     "File Read",
		Category: CategoryData,
		Inputs:   []Port{{ID: "path", Name: "path", Type: "string"}},
		Outputs:  []Port{{ID: "content", Name: "content", Type: "string"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			path := stringInput(inputs, "path")
			if path == "" {
				path, _ = config["path"].(string)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"content": string(data)}, nil
		},
	}
}

func fileWriteType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "file-write",
		Name:     "File Write",
		Category: CategoryOutput,
		Inputs:   []Port{{ID: "content", Name: "content", Type: "string"}},
		Outputs:  []Port{{ID: "path", Name: "path", Type: "string"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			path, _ := config["path"].(string)
			content := stringInput(inputs, "content")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, err
			}
			return map[string]any{"path": path}, nil
		},
	}
}

func jsonParseType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "json-parse",
		Name:     "JSON Parse",
		Category: CategoryData,
		Inputs:   []Port{{ID: "input", Name: "input", Type: "string"}},
		Outputs:  []Port{{ID: "output", Name: "output", Type: "object"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			raw := stringInput(inputs, "input")
			var parsed any
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				return nil, err
			}
			return map[string]any{"output": parsed}, nil
		},
	}
}

func loopType() *NodeTypeDefinition {
	return &NodeTypeDefinition{
		ID:       "loop",
		Name:     "Loop",
		Category: CategoryData,
		Inputs:   []Port{{ID: "input", Name: "input", Type: "array"}},
		Outputs:  []Port{{ID: "items", Name: "items", Type: "array"}, {ID: "count", Name: "count", Type: "number"}},
		Execute: func(ctx context.Context, inputs map[string]any, config map[string]any, rc *RuntimeContext) (map[string]any, error) {
			items, _ := inputs["input"].([]any)
			return map[string]any{"items": items, "count": len(items)}, nil
		},
	}
}

func stringInput(inputs map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := inputs[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func intConfig(config map[string]any, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n
		}
	}
	return def
}
