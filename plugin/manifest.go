// Package plugin implements the plugin boundary (spec §6.4): parsing a
// plugin directory's manifest.json and loading its tools into the node/tool
// registry via an out-of-process hashicorp/go-plugin binary.
//
// Go cannot import() arbitrary source at runtime the way the original
// system's manifest.file could be interpreted inline, so file is resolved
// here as the path to a go-plugin-compatible subprocess binary built
// separately; this loader speaks a small net/rpc ToolPlugin service to it
// rather than gRPC+protobuf, since generating protobuf stubs has no home
// in this module (DESIGN.md records this deviation).
package plugin

import (
	"encoding/json"
	"os"

	"github.com/localflow/core/internal/errs"
)

// ToolManifest describes one tool a plugin exposes (spec §6.4).
type ToolManifest struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	File        string         `json:"file"`
	Inputs      []string       `json:"inputs,omitempty"`
	Outputs     []string       `json:"outputs,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// NodeManifest optionally declares a node-type presentation for a tool,
// beyond the automatic tool-node every ToolManifest gets.
type NodeManifest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Manifest is the full manifest.json document.
type Manifest struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	Tools       []ToolManifest `json:"tools"`
	Nodes       []NodeManifest `json:"nodes,omitempty"`
}

// ParseManifest reads and validates a manifest.json file.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.ResourceError{Component: "plugin", Action: "ParseManifest", Message: "failed to read manifest", Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errs.ResourceError{Component: "plugin", Action: "ParseManifest", Message: "failed to decode manifest", Err: err}
	}
	if m.ID == "" {
		return nil, &errs.ResourceError{Component: "plugin", Action: "ParseManifest", Message: "manifest missing id"}
	}
	return &m, nil
}
