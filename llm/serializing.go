package llm

import (
	"context"

	"github.com/localflow/core/catalog"
	"golang.org/x/sync/semaphore"
)

// SerializingProvider wraps any Provider with a weight-1 semaphore so every
// Generate/OrchestratorPrompt call acquires before calling through and
// releases after. This is the concrete mechanism realizing spec §5's
// "queue at the LLM boundary": the LLM is a single-instance resource and
// concurrent callers (multiple workflow executions, multiple chats) must
// be serialized against it rather than racing the underlying provider.
type SerializingProvider struct {
	inner Provider
	sem   *semaphore.Weighted
}

// NewSerializingProvider wraps inner with a single-slot semaphore.
func NewSerializingProvider(inner Provider) *SerializingProvider {
	return &SerializingProvider{inner: inner, sem: semaphore.NewWeighted(1)}
}

func (s *SerializingProvider) Generate(ctx context.Context, prompt string, opts catalog.GenerateOptions) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)
	return s.inner.Generate(ctx, prompt, opts)
}

func (s *SerializingProvider) CreateOrchestratorSession(ctx context.Context, systemPrompt string) (catalog.SessionHandle, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.inner.CreateOrchestratorSession(ctx, systemPrompt)
}

func (s *SerializingProvider) OrchestratorPrompt(ctx context.Context, session catalog.SessionHandle, prompt string, opts catalog.GenerateOptions) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)
	return s.inner.OrchestratorPrompt(ctx, session, prompt, opts)
}

func (s *SerializingProvider) DisposeOrchestratorSession(ctx context.Context, session catalog.SessionHandle) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return s.inner.DisposeOrchestratorSession(ctx, session)
}
