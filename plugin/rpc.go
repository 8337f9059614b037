package plugin

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// ToolPlugin is what a plugin binary implements on the other side of the
// net/rpc connection: a single Execute callable per spec §6.4's
// "execute(input, config, ctx) callable" contract.
type ToolPlugin interface {
	Execute(input, config map[string]any) (map[string]any, error)
}

// ToolPluginSet is the go-plugin Plugin implementation bridging ToolPlugin
// over net/rpc (no gRPC/protobuf stubs required).
type ToolPluginSet struct {
	Impl ToolPlugin
}

func (p *ToolPluginSet) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &toolPluginRPCServer{impl: p.Impl}, nil
}

func (p *ToolPluginSet) Client(b *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &toolPluginRPCClient{client: c}, nil
}

type executeArgs struct {
	Input  map[string]any
	Config map[string]any
}

type executeReply struct {
	Result map[string]any
}

type toolPluginRPCServer struct {
	impl ToolPlugin
}

func (s *toolPluginRPCServer) Execute(args executeArgs, reply *executeReply) error {
	result, err := s.impl.Execute(args.Input, args.Config)
	if err != nil {
		return err
	}
	reply.Result = result
	return nil
}

type toolPluginRPCClient struct {
	client *rpc.Client
}

func (c *toolPluginRPCClient) Execute(ctx context.Context, input, config map[string]any) (map[string]any, error) {
	var reply executeReply
	if err := c.client.Call("Plugin.Execute", executeArgs{Input: input, Config: config}, &reply); err != nil {
		return nil, err
	}
	return reply.Result, nil
}

// HandshakeConfig is the magic-cookie handshake every localflow plugin
// binary and loader must agree on, grounded on the teacher's
// plugins/grpc.handshakeConfig.
var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "LOCALFLOW_PLUGIN",
	MagicCookieValue: "localflow_plugin_v1",
}
