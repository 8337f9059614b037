// Package progress defines the ordered event stream the engine and
// orchestrator emit to observers (spec §6.2). The sink has no
// back-pressure contract; callers never await it.
package progress

import "time"

// EventType enumerates the four payload shapes spec §6.2 names.
type EventType string

const (
	EventExecutionStart    EventType = "execution-start"
	EventLog               EventType = "log"
	EventNodeProgress      EventType = "node-progress"
	EventExecutionComplete EventType = "execution-complete"
)

// NodeStatus enumerates the status values a node-progress event may carry.
type NodeStatus string

const (
	NodeRunning  NodeStatus = "running"
	NodeComplete NodeStatus = "complete"
	NodeError    NodeStatus = "error"
	NodeOutput   NodeStatus = "output"
)

// Event is one entry in the ordered stream.
type Event struct {
	Type       EventType      `json:"type"`
	Time       time.Time      `json:"time"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Message    string         `json:"message,omitempty"`
	NodeID     string         `json:"node_id,omitempty"`
	Status     NodeStatus     `json:"status,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Success    bool           `json:"success,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Sink observes execution events. Implementations must not block the
// engine; a slow sink should buffer or drop, never stall Execute.
type Sink interface {
	Emit(Event)
}

// NopSink discards every event; used when progress_sink is null (spec
// §4.4's run_built_workflow).
type NopSink struct{}

func (NopSink) Emit(Event) {}

// ChannelSink fans events into a buffered channel for a single consumer
// (e.g. one WS connection watching one run).
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink backed by a channel of the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the channel.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// Close closes the underlying channel. Safe to call once, after the
// producer has stopped emitting.
func (s *ChannelSink) Close() { close(s.ch) }

func (s *ChannelSink) Emit(e Event) {
	select {
	case s.ch <- e:
	default:
		// Drop rather than block the engine; the sink has no back-pressure
		// contract (spec §6.2).
	}
}

// MultiSink fans one event stream out to several sinks, used to attach
// both a WS broadcaster and the execution audit log to one run.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(e Event) {
	for _, s := range m.sinks {
		s.Emit(e)
	}
}
