package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/localflow/core/catalog"
	"github.com/stretchr/testify/assert"
)

type trackingProvider struct {
	inFlight int32
	maxSeen  int32
}

func (t *trackingProvider) Generate(ctx context.Context, prompt string, opts catalog.GenerateOptions) (string, error) {
	n := atomic.AddInt32(&t.inFlight, 1)
	for {
		max := atomic.LoadInt32(&t.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&t.maxSeen, max, n) {
			break
		}
	}
	atomic.AddInt32(&t.inFlight, -1)
	return "ok", nil
}

func (t *trackingProvider) CreateOrchestratorSession(ctx context.Context, systemPrompt string) (catalog.SessionHandle, error) {
	return struct{}{}, nil
}

func (t *trackingProvider) OrchestratorPrompt(ctx context.Context, session catalog.SessionHandle, prompt string, opts catalog.GenerateOptions) (string, error) {
	return t.Generate(ctx, prompt, opts)
}

func (t *trackingProvider) DisposeOrchestratorSession(ctx context.Context, session catalog.SessionHandle) error {
	return nil
}

func TestSerializingProvider_SerializesConcurrentCalls(t *testing.T) {
	inner := &trackingProvider{}
	p := NewSerializingProvider(inner)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Generate(context.Background(), "prompt", catalog.GenerateOptions{})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.maxSeen))
}
