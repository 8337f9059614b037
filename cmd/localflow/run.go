package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/localflow/core/chat"
	"github.com/localflow/core/config"
	"github.com/localflow/core/internal/app"
	"github.com/localflow/core/internal/logging"
)

// RunCmd executes one saved workflow headlessly and prints its result,
// the non-interactive counterpart to POST /run.
type RunCmd struct {
	WorkflowID string `arg:"" help:"ID of a saved workflow to run."`
	Task       string `help:"Value injected into the first text-input node's config."`
}

func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log, os.Stderr)

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

	saved, ok, err := coreVal.Store.Get(c.WorkflowID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown workflow: %s", c.WorkflowID)
	}
	doc, err := chat.DecodeSavedDocument(saved)
	if err != nil {
		return err
	}

	if c.Task != "" {
		for i := range doc.Nodes {
			if doc.Nodes[i].Data.TypeID == "text-input" {
				doc.Nodes[i].Data.Config["text"] = c.Task
				break
			}
		}
	}

	res, err := coreVal.Engine.Execute(context.Background(), doc, coreVal.Sink(nil))
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(map[string]any{"success": res.Success, "outputs": res.Outputs, "error": res.Error}, "", "  ")
	fmt.Println(string(out))
	if !res.Success {
		os.Exit(1)
	}
	return nil
}
