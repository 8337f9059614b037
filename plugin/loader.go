package plugin

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/internal/errs"
)

// Loader starts a plugin binary per manifest tool and registers both a
// Tool and a NodeTypeDefinition for it (spec §6.4).
type Loader struct {
	logger hclog.Logger
}

// NewLoader constructs a Loader with the host-process plugin logger
// go-plugin itself requires.
func NewLoader() *Loader {
	return &Loader{logger: hclog.New(&hclog.LoggerOptions{Name: "localflow-plugin", Level: hclog.Warn})}
}

// loadedTool is a running plugin client plus the one tool it backs,
// kept so Unload can kill the subprocess.
type loadedTool struct {
	client *goplugin.Client
}

// Load starts the manifest's tool binaries and registers each as both a
// Tool and a plugin-tools NodeTypeDefinition, sharing one input schema.
func (l *Loader) Load(ctx context.Context, m *Manifest, nodes *catalog.NodeRegistry, tools *catalog.ToolRegistry) ([]*loadedTool, error) {
	var loaded []*loadedTool
	for _, tm := range m.Tools {
		client := goplugin.NewClient(&goplugin.ClientConfig{
			HandshakeConfig: HandshakeConfig,
			Plugins:         map[string]goplugin.Plugin{tm.ID: &ToolPluginSet{}},
			Cmd:             exec.Command(tm.File),
			Logger:          l.logger,
			AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		})

		rpcClient, err := client.Client()
		if err != nil {
			client.Kill()
			return loaded, &errs.ResourceError{Component: "plugin", Action: "Load", Message: fmt.Sprintf("failed to start plugin %q", tm.ID), Err: err}
		}

		raw, err := rpcClient.Dispense(tm.ID)
		if err != nil {
			client.Kill()
			return loaded, &errs.ResourceError{Component: "plugin", Action: "Load", Message: fmt.Sprintf("failed to dispense plugin %q", tm.ID), Err: err}
		}

		impl, ok := raw.(*toolPluginRPCClient)
		if !ok {
			client.Kill()
			return loaded, &errs.ResourceError{Component: "plugin", Action: "Load", Message: fmt.Sprintf("plugin %q does not implement ToolPlugin", tm.ID)}
		}

		tool := &catalog.FuncTool{
			ToolName:        tm.ID,
			ToolDescription: tm.Description,
			ToolInputSchema: &catalog.ToolSchema{Name: tm.ID, Description: tm.Description},
			Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				return impl.Execute(ctx, params, tm.Config)
			},
		}
		tools.RegisterTool(tool)
		nodeDef := catalog.NewToolNode(tool)
		nodeDef.Category = catalog.CategoryPluginTools
		nodes.RegisterNodeType(nodeDef)

		loaded = append(loaded, &loadedTool{client: client})
	}
	return loaded, nil
}

// Unload kills every plugin subprocess Load started.
func (l *Loader) Unload(loaded []*loadedTool) {
	for _, lt := range loaded {
		lt.client.Kill()
	}
}
