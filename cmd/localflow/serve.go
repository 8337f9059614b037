package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/localflow/core/chat"
	"github.com/localflow/core/config"
	"github.com/localflow/core/internal/app"
	"github.com/localflow/core/internal/logging"
	"github.com/localflow/core/internal/telemetry"
	"github.com/localflow/core/llm"
	"github.com/localflow/core/mcp"
	"github.com/localflow/core/plugin"
	transporthttp "github.com/localflow/core/transport/http"
	"github.com/localflow/core/transport/ws"
)

// ServeCmd starts the HTTP and WebSocket transports over one process-wide
// Core, loading configured plugins and scheduling configured cron
// triggers (spec §5.8's "owned by the serving process, not the engine").
type ServeCmd struct {
	Addr string `help:"Override the server bind address from the config file."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	log := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	shutdownTelemetry, err := telemetry.Init(context.Background(), "localflow")
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	provider, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("building LLM provider: %w", err)
	}

	coreVal, err := app.New(cfg, provider, log)
	if err != nil {
		return fmt.Errorf("building core: %w", err)
	}
	if coreVal.Audit != nil {
		defer coreVal.Audit.Close()
	}

	loader := plugin.NewLoader()
	for _, pd := range cfg.Plugins {
		manifestPath := filepath.Join(pd.Dir, "manifest.json")
		manifest, err := plugin.ParseManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("loading plugin manifest %q: %w", manifestPath, err)
		}
		lt, err := loader.Load(context.Background(), manifest, coreVal.Nodes, coreVal.Tools)
		if err != nil {
			return fmt.Errorf("loading plugin %q: %w", manifest.ID, err)
		}
		defer loader.Unload(lt)
		log.Info("loaded plugin", "id", manifest.ID, "tools", len(manifest.Tools))
	}

	for _, mc := range cfg.MCPServers {
		srv, err := mcp.Connect(context.Background(), mc, coreVal.Nodes, coreVal.Tools)
		if err != nil {
			return fmt.Errorf("connecting to MCP server %q: %w", mc.Name, err)
		}
		defer srv.Close()
		log.Info("connected to MCP server", "name", mc.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := cron.New()
	for _, t := range cfg.Triggers {
		trigger := t
		if _, err := sched.AddFunc(trigger.Schedule, func() { runTrigger(ctx, coreVal, log, trigger.WorkflowID) }); err != nil {
			return fmt.Errorf("scheduling trigger for workflow %q: %w", trigger.WorkflowID, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/", transporthttp.NewRouter(coreVal))
	mux.Handle("/ws", ws.NewHandler(coreVal, nil, log))

	srv := transporthttp.NewServer(cfg.Server.Addr, coreVal)
	srv.Handler = mux

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("localflow server ready", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runTrigger(ctx context.Context, coreVal *app.Core, log *slog.Logger, workflowID string) {
	saved, ok, err := coreVal.Store.Get(workflowID)
	if err != nil || !ok {
		log.Error("trigger: unknown workflow", "workflow_id", workflowID, "error", err)
		return
	}
	doc, err := chat.DecodeSavedDocument(saved)
	if err != nil {
		log.Error("trigger: failed to decode workflow", "workflow_id", workflowID, "error", err)
		return
	}
	res, err := coreVal.Engine.Execute(ctx, doc, coreVal.Sink(nil))
	if err != nil {
		log.Error("trigger: execution error", "workflow_id", workflowID, "error", err)
		return
	}
	if !res.Success {
		log.Error("trigger: execution failed", "workflow_id", workflowID, "error", res.Error)
	}
}

// buildProvider constructs the single LLM provider the process wires up,
// selecting the fake provider only when no endpoint is configured (local
// dry runs and tests), a real HTTP provider otherwise.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	if cfg.LLM.BaseURL == "" {
		return llm.NewFakeProvider(), nil
	}
	return llm.NewHTTPProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature), nil
}
