package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/localflow/core/catalog"
)

// HTTPProvider is the shape a real vendor adapter takes: a bare-HTTP POST
// to a chat-completions-style endpoint, the way the teacher's llms.*
// implementations each wrap one vendor's REST API behind the same
// LLMProvider contract. Wiring a specific vendor's request/response
// envelope is out of scope (spec §1); this type documents where that
// adapter plugs in and is usable as-is against any endpoint that accepts
// {"model","prompt","system","max_tokens","temperature"} and returns
// {"text"}.
type HTTPProvider struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	client      *http.Client

	mu       sync.Mutex
	sessions map[*httpSession]bool
}

type httpSession struct {
	systemPrompt string
	transcript   []string
}

// NewHTTPProvider constructs an HTTPProvider targeting endpoint.
func NewHTTPProvider(endpoint, apiKey, model string, temperature float64) *HTTPProvider {
	return &HTTPProvider{
		Endpoint:    endpoint,
		APIKey:      apiKey,
		Model:       model,
		Temperature: temperature,
		client:      &http.Client{},
		sessions:    make(map[*httpSession]bool),
	}
}

type httpRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type httpResponse struct {
	Text string `json:"text"`
}

func (p *HTTPProvider) call(ctx context.Context, prompt, system string, opts catalog.GenerateOptions) (string, error) {
	temp := opts.Temperature
	if temp == 0 {
		temp = p.Temperature
	}
	body, err := json.Marshal(httpRequest{Model: p.Model, Prompt: prompt, System: system, MaxTokens: opts.MaxTokens, Temperature: temp})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("llm endpoint %s: status %d: %s", p.Endpoint, resp.StatusCode, string(data))
	}
	var out httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (p *HTTPProvider) Generate(ctx context.Context, prompt string, opts catalog.GenerateOptions) (string, error) {
	return p.call(ctx, prompt, opts.SystemPrompt, opts)
}

func (p *HTTPProvider) CreateOrchestratorSession(ctx context.Context, systemPrompt string) (catalog.SessionHandle, error) {
	s := &httpSession{systemPrompt: systemPrompt}
	p.mu.Lock()
	p.sessions[s] = true
	p.mu.Unlock()
	return s, nil
}

func (p *HTTPProvider) OrchestratorPrompt(ctx context.Context, session catalog.SessionHandle, prompt string, opts catalog.GenerateOptions) (string, error) {
	s, ok := session.(*httpSession)
	if !ok {
		return "", fmt.Errorf("llm: session handle not recognized by HTTPProvider")
	}
	s.transcript = append(s.transcript, prompt)
	full := prompt
	for i := len(s.transcript) - 2; i >= 0; i-- {
		full = s.transcript[i] + "\n" + full
	}
	resp, err := p.call(ctx, full, s.systemPrompt, opts)
	if err != nil {
		return "", err
	}
	s.transcript = append(s.transcript, resp)
	return resp, nil
}

func (p *HTTPProvider) DisposeOrchestratorSession(ctx context.Context, session catalog.SessionHandle) error {
	if s, ok := session.(*httpSession); ok {
		p.mu.Lock()
		delete(p.sessions, s)
		p.mu.Unlock()
	}
	return nil
}
