package llm

import (
	"context"
	"sync"

	"github.com/localflow/core/catalog"
)

// FakeProvider is a deterministic, scripted Provider for tests: each
// Generate/OrchestratorPrompt call consumes the next queued response (or
// repeats the last one once the queue is drained).
type FakeProvider struct {
	mu        sync.Mutex
	responses []string
	calls     []string
	sessions  map[*fakeSession]bool
}

type fakeSession struct {
	systemPrompt string
	disposed     bool
}

// NewFakeProvider constructs an empty FakeProvider; chain WithResponse(s)
// to script it.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{sessions: make(map[*fakeSession]bool)}
}

// WithResponse appends one scripted response and returns the receiver.
func (f *FakeProvider) WithResponse(resp string) *FakeProvider {
	f.responses = append(f.responses, resp)
	return f
}

// WithResponses appends several scripted responses at once.
func (f *FakeProvider) WithResponses(resps ...string) *FakeProvider {
	f.responses = append(f.responses, resps...)
	return f
}

// Calls returns every prompt this fake has been asked to generate, in order.
func (f *FakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeProvider) next() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch len(f.responses) {
	case 0:
		return ""
	case 1:
		return f.responses[0]
	default:
		resp := f.responses[0]
		f.responses = f.responses[1:]
		return resp
	}
}

func (f *FakeProvider) Generate(ctx context.Context, prompt string, opts catalog.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	return f.next(), nil
}

func (f *FakeProvider) CreateOrchestratorSession(ctx context.Context, systemPrompt string) (catalog.SessionHandle, error) {
	s := &fakeSession{systemPrompt: systemPrompt}
	f.mu.Lock()
	f.sessions[s] = true
	f.mu.Unlock()
	return s, nil
}

func (f *FakeProvider) OrchestratorPrompt(ctx context.Context, session catalog.SessionHandle, prompt string, opts catalog.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	return f.next(), nil
}

func (f *FakeProvider) DisposeOrchestratorSession(ctx context.Context, session catalog.SessionHandle) error {
	if s, ok := session.(*fakeSession); ok {
		f.mu.Lock()
		s.disposed = true
		f.mu.Unlock()
	}
	return nil
}

// OpenSessionCount reports sessions created but not yet disposed, for
// asserting the orchestrator's bracket-without-nesting discipline.
func (f *FakeProvider) OpenSessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for s := range f.sessions {
		if !s.disposed {
			n++
		}
	}
	return n
}
