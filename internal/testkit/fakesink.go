package testkit

import (
	"sync"

	"github.com/localflow/core/progress"
)

// FakeSink records every emitted event in order, for asserting progress
// streams in tests without standing up a real channel consumer.
type FakeSink struct {
	mu     sync.Mutex
	events []progress.Event
}

// NewFakeSink constructs an empty recording sink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

func (f *FakeSink) Emit(e progress.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

// Events returns a copy of everything emitted so far.
func (f *FakeSink) Events() []progress.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]progress.Event, len(f.events))
	copy(out, f.events)
	return out
}
