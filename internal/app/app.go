// Package app wires the process-wide Core value: the node registry, tool
// registry, builder state, chat session store, and LLM provider
// constructed once in cmd/localflow and passed by reference everywhere
// else (spec §9's design note replacing the teacher's package-level
// singletons).
package app

import (
	"log/slog"

	"github.com/localflow/core/builder"
	"github.com/localflow/core/catalog"
	"github.com/localflow/core/chat"
	"github.com/localflow/core/config"
	"github.com/localflow/core/engine"
	"github.com/localflow/core/internal/audit"
	"github.com/localflow/core/internal/metrics"
	"github.com/localflow/core/llm"
	"github.com/localflow/core/orchestrator"
	"github.com/localflow/core/progress"
	"github.com/localflow/core/store"
	"github.com/localflow/core/workflowtool"
)

// Core holds every long-lived, process-wide collaborator.
type Core struct {
	Config     *config.Config
	Log        *slog.Logger
	Nodes      *catalog.NodeRegistry
	Tools      *catalog.ToolRegistry
	LLM        llm.Provider
	Engine     *engine.Engine
	Store      store.WorkflowStore
	Builder    *builder.State
	Sessions   *chat.SessionStore
	Dispatcher *chat.Dispatcher
	Audit      *audit.Log
	Metrics    *metrics.Metrics
}

// New constructs a Core from process configuration and an already-built
// LLM provider (the provider's concrete construction — which vendor, which
// HTTP client — lives in cmd/localflow since it depends on flags/env, not
// on anything the rest of the module needs to know).
func New(cfg *config.Config, provider llm.Provider, log *slog.Logger) (*Core, error) {
	serialized := llm.NewSerializingProvider(provider)

	nodes := catalog.NewNodeRegistry()
	catalog.RegisterBuiltins(nodes)

	tools := catalog.NewToolRegistry()

	eng := engine.New(nodes, serialized)

	wfStore, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}

	adapter := workflowtool.New(nodes, tools, eng, wfStore, chat.DecodeSavedDocument)
	if err := adapter.RegisterAll(); err != nil {
		return nil, err
	}
	trackedWfStore := &trackedStore{WorkflowStore: wfStore, adapter: adapter}

	builderState := builder.New()
	for _, t := range builder.Tools(builderState, trackedWfStore, eng) {
		tools.RegisterTool(t)
	}

	orchestrator.RegisterNode(nodes, tools, serialized)

	sessions := chat.NewSessionStore()
	dispatcher := chat.NewDispatcher(sessions, trackedWfStore, eng, serialized, map[string]*engine.WorkflowDocument{}, nil)

	core := &Core{
		Config:     cfg,
		Log:        log,
		Nodes:      nodes,
		Tools:      tools,
		LLM:        serialized,
		Engine:     eng,
		Store:      trackedWfStore,
		Builder:    builderState,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Metrics:    metrics.New(),
	}

	if cfg.Audit.Path != "" {
		auditLog, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return nil, err
		}
		core.Audit = auditLog
	}

	return core, nil
}

// Sink builds the progress sink for one run: the audit log (if enabled)
// fanned out alongside any per-run sink the caller supplies (a WS
// broadcaster, typically).
func (c *Core) Sink(perRun progress.Sink) progress.Sink {
	if perRun == nil {
		perRun = progress.NopSink{}
	}
	if c.Audit == nil {
		return perRun
	}
	return progress.NewMultiSink(perRun, c.Audit)
}
