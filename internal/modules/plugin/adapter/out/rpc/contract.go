package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "evseg"
	serviceName       = "evseg.plugin.v1.TrialPlugin"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodDescribe    = "/" + serviceName + "/Describe"
	methodSimulate    = "/" + serviceName + "/Simulate"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "EVSEG_PLUGIN",
	MagicCookieValue: "evseg",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

type Parameter struct {
	Name        string `json:"name"`
	PrettyName  string `json:"pretty_name"`
	Type        string `json:"type"`
	Default     string `json:"default"`
	Array       bool   `json:"array"`
	Description string `json:"description"`
}

type DescribeResponse struct {
	Name       string      `json:"name"`
	Version    string      `json:"version"`
	Parameters []Parameter `json:"parameters"`
}

type SimulateRequest struct {
	TrialJSON string   `json:"trial_json"`
	Mode      string   `json:"mode"`
	RT        *float64 `json:"rt,omitempty"`
	Key       *string  `json:"key,omitempty"`
}

type SimulateResponse struct {
	Data map[string]string `json:"data"`
}

type TrialPluginServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Describe(ctx context.Context, in *Empty) (*DescribeResponse, error)
	Simulate(ctx context.Context, in *SimulateRequest) (*SimulateResponse, error)
}

type TrialPluginClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Describe(ctx context.Context) (*DescribeResponse, error)
	Simulate(ctx context.Context, in *SimulateRequest) (*SimulateResponse, error)
}

type trialPluginClient struct {
	conn *grpc.ClientConn
}

func NewTrialPluginClient(conn *grpc.ClientConn) TrialPluginClient {
	return &trialPluginClient{conn: conn}
}

func (c *trialPluginClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trialPluginClient) Describe(ctx context.Context) (*DescribeResponse, error) {
	out := &DescribeResponse{}
	if err := c.conn.Invoke(ctx, methodDescribe, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *trialPluginClient) Simulate(ctx context.Context, in *SimulateRequest) (*SimulateResponse, error) {
	out := &SimulateResponse{}
	if err := c.conn.Invoke(ctx, methodSimulate, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler decodes a *T request and runs call, going through the server
// interceptor when one is installed.
func unaryHandler[T any](fullMethod string, call func(context.Context, *T) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(T)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*T)
			if !ok {
				return nil, fmt.Errorf("invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, in, info, handler)
	}
}

func RegisterTrialPluginServer(server grpc.ServiceRegistrar, impl TrialPluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*TrialPluginServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetMetadata",
				Handler: unaryHandler(methodGetMetadata, func(ctx context.Context, in *Empty) (any, error) {
					return impl.GetMetadata(ctx, in)
				}),
			},
			{
				MethodName: "Describe",
				Handler: unaryHandler(methodDescribe, func(ctx context.Context, in *Empty) (any, error) {
					return impl.Describe(ctx, in)
				}),
			},
			{
				MethodName: "Simulate",
				Handler: unaryHandler(methodSimulate, func(ctx context.Context, in *SimulateRequest) (any, error) {
					return impl.Simulate(ctx, in)
				}),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "schemas/trial-plugin-v1.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl TrialPluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterTrialPluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewTrialPluginClient(conn), nil
}

func PluginMap(impl TrialPluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
