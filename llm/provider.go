// Package llm implements the LLM façade consumed by the engine and
// orchestrator (spec §6.1): Provider's four methods are the only contract
// the rest of this module has with a concrete model backend.
package llm

import "github.com/localflow/core/catalog"

// Provider is the LLM façade (spec §6.1). It is declared as an alias of
// catalog.LLMHandle so node executors (which only see catalog types) and
// the orchestrator (which imports this package directly) share one
// interface definition instead of two structurally-identical ones.
type Provider = catalog.LLMHandle

// GenerateOptions mirrors catalog.GenerateOptions under this package's name
// for callers that don't otherwise need to import catalog.
type GenerateOptions = catalog.GenerateOptions

// SessionHandle is an opaque, provider-specific persistent chat context.
type SessionHandle = catalog.SessionHandle
