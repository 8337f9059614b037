// Package core is a local-first AI workflow automation engine: a node
// catalog, a dataflow execution engine, a bounded ReAct orchestrator for
// autonomous tool use, and a conversational canvas builder, all running as
// a single process with no distributed coordination.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/localflow/core/cmd/localflow@latest
//
// Run a saved workflow by its id:
//
//	localflow run wf_1700000000000_ab3de
//
// Serve the HTTP/WS API and chat canvas:
//
//	localflow serve --config localflow.yaml
//
// # Architecture
//
// A workflow document is a directed graph of typed nodes. Edges carry
// resolved output values between nodes (dataflow edges) or attach a
// callable tool to an ai-orchestrator node (tool-attachment edges, never
// executed themselves). The engine topologically sorts the graph, resolves
// each node's inputs from its incoming edges, and dispatches to the node
// type's registered executor.
//
// An ai-orchestrator node runs a bounded Reason-Act-Observe loop against
// whichever tools are attached to it, parsing the LLM's structured
// ACTION/INPUT/DONE directives out of otherwise free-form text.
//
// The chat canvas lets a user build a workflow by conversing with the same
// orchestration loop: "build a workflow that fetches RSS and summarizes it"
// is itself dispatched as a task against a fixed canvas-editing tool set.
//
// # Status
//
// APIs may still change; this is under active development.
package core
