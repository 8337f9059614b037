package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd_AcceptsMinimalConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644))

	cmd := &ValidateCmd{}
	cli := &CLI{Config: path}
	assert.NoError(t, cmd.Run(cli))
}

func TestValidateCmd_RejectsMissingFile(t *testing.T) {
	cmd := &ValidateCmd{}
	cli := &CLI{Config: "/nonexistent/config.yaml"}
	assert.Error(t, cmd.Run(cli))
}
