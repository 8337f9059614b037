package main

import (
	"fmt"

	"github.com/localflow/core/config"
)

// ValidateCmd checks a config file's syntax and invariants without
// starting any transport.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("%s is valid (server %s, %d plugin(s), %d trigger(s))\n",
		cli.Config, cfg.Server.Addr, len(cfg.Plugins), len(cfg.Triggers))
	return nil
}
