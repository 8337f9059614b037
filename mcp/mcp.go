// Package mcp connects to external MCP (Model Context Protocol) tool
// servers over stdio and registers their tools into the catalog, the
// same shape the plugin loader gives go-plugin binaries (spec §3's
// "MCP tool-server" extension of the registry beyond plugins). Grounded
// on the teacher's pkg/tool/mcptoolset, trimmed to the stdio transport —
// this module has no gateway process to terminate an SSE/streamable-HTTP
// connection on its behalf.
package mcp

import (
	"context"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/localflow/core/catalog"
	"github.com/localflow/core/config"
	"github.com/localflow/core/internal/errs"
)

// Server is a running connection to one MCP server, kept so Close can
// shut down the subprocess.
type Server struct {
	name   string
	client *mcpclient.Client
}

// Connect starts cfg.Command, performs the MCP initialize handshake,
// lists its tools, and registers each as both a Tool and a plugin-tools
// NodeTypeDefinition (mirroring plugin.Loader.Load).
func Connect(ctx context.Context, cfg config.MCPServerConfig, nodes *catalog.NodeRegistry, tools *catalog.ToolRegistry) (*Server, error) {
	client, err := mcpclient.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
	if err != nil {
		return nil, &errs.ResourceError{Component: "mcp", Action: "Connect", Message: fmt.Sprintf("failed to start MCP server %q", cfg.Name), Err: err}
	}

	if err := client.Start(ctx); err != nil {
		return nil, &errs.ResourceError{Component: "mcp", Action: "Connect", Message: fmt.Sprintf("failed to start MCP server %q", cfg.Name), Err: err}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "localflow", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return nil, &errs.ResourceError{Component: "mcp", Action: "Connect", Message: fmt.Sprintf("failed to initialize MCP server %q", cfg.Name), Err: err}
	}

	listResp, err := client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		client.Close()
		return nil, &errs.ResourceError{Component: "mcp", Action: "Connect", Message: fmt.Sprintf("failed to list tools from MCP server %q", cfg.Name), Err: err}
	}

	for _, mcpTool := range listResp.Tools {
		toolName := cfg.Name + "." + mcpTool.Name
		t := &catalog.FuncTool{
			ToolName:        toolName,
			ToolDescription: mcpTool.Description,
			ToolInputSchema: &catalog.ToolSchema{Name: toolName, Description: mcpTool.Description},
			Fn: func(ctx context.Context, params map[string]any) (map[string]any, error) {
				return callTool(ctx, client, mcpTool.Name, params)
			},
		}
		tools.RegisterTool(t)
		nodeDef := catalog.NewToolNode(t)
		nodeDef.Category = catalog.CategoryPluginTools
		nodes.RegisterNodeType(nodeDef)
	}

	return &Server{name: cfg.Name, client: client}, nil
}

// callTool invokes one remote tool and flattens its content blocks into
// a params-shaped result map, the same translation the teacher's
// mcpToolWrapper.parseToolResponse does.
func callTool(ctx context.Context, client *mcpclient.Client, name string, params map[string]any) (map[string]any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = params

	resp, err := client.CallTool(ctx, req)
	if err != nil {
		return nil, &errs.ToolError{Component: "mcp", Action: "Execute", Message: fmt.Sprintf("MCP call to %q failed", name), Err: err}
	}

	result := make(map[string]any)
	if resp.IsError {
		for _, content := range resp.Content {
			if text, ok := content.(mcp.TextContent); ok {
				result["error"] = text.Text
				break
			}
		}
		if result["error"] == nil {
			result["error"] = "unknown MCP tool error"
		}
		return result, nil
	}

	var texts []string
	for _, content := range resp.Content {
		if text, ok := content.(mcp.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}
	switch len(texts) {
	case 0:
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result, nil
}

// Close terminates the MCP server subprocess.
func (s *Server) Close() error {
	return s.client.Close()
}
