// Package errs defines the typed error taxonomy shared by every subsystem:
// engine, registry, orchestrator, chat and the transports that surface
// their failures. Each kind carries Component/Action/Message/Err, is
// wrapped with %w and distinguished at call sites with errors.As.
package errs

import "fmt"

// DocumentError covers a missing node type, an unresolved edge endpoint,
// or a cycle in a workflow document. The engine logs it and, for cycles,
// aborts the execution.
type DocumentError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *DocumentError) Error() string { return format("DocumentError", e.Component, e.Action, e.Message, e.Err) }
func (e *DocumentError) Unwrap() error { return e.Err }

// NodeExecutionError covers a node executor throwing. The engine records
// it, emits an `error` progress event, and aborts the whole execution.
type NodeExecutionError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *NodeExecutionError) Error() string {
	return format("NodeExecutionError", e.Component, e.Action, e.Message, e.Err)
}
func (e *NodeExecutionError) Unwrap() error { return e.Err }

// ToolError covers a tool throwing or returning {success:false, error}.
// The orchestrator records it in step.result and feeds an ERROR: line back
// to the LLM; the loop continues.
type ToolError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ToolError) Error() string { return format("ToolError", e.Component, e.Action, e.Message, e.Err) }
func (e *ToolError) Unwrap() error { return e.Err }

// ParseError covers malformed LLM output. The orchestrator keeps the raw
// response as a thought and nudges the model to continue.
type ParseError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ParseError) Error() string { return format("ParseError", e.Component, e.Action, e.Message, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// ResourceError covers LLM session allocation failing. The orchestrator
// returns status=error without ever having opened a session.
type ResourceError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ResourceError) Error() string {
	return format("ResourceError", e.Component, e.Action, e.Message, e.Err)
}
func (e *ResourceError) Unwrap() error { return e.Err }

// SessionError covers an unknown or expired chat session. The chat
// dispatcher creates a fresh session transparently rather than propagate
// this further than a log line.
type SessionError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *SessionError) Error() string {
	return format("SessionError", e.Component, e.Action, e.Message, e.Err)
}
func (e *SessionError) Unwrap() error { return e.Err }

// TransportError covers a malformed HTTP/WS payload, surfaced to the
// caller as 4xx/5xx with {error: <string>}.
type TransportError struct {
	Component string
	Action    string
	Message   string
	Err       error
	Status    int
}

func (e *TransportError) Error() string {
	return format("TransportError", e.Component, e.Action, e.Message, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

func format(kind, component, action, message string, err error) string {
	if err != nil {
		return fmt.Sprintf("[%s:%s:%s] %s: %v", kind, component, action, message, err)
	}
	return fmt.Sprintf("[%s:%s:%s] %s", kind, component, action, message)
}
