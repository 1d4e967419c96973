package out

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	pluginrpc "evseg/internal/modules/plugin/adapter/out/rpc"
	"evseg/internal/modules/plugin/domain"
	pluginout "evseg/internal/modules/plugin/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost launches a plugin process per call and talks to it over the
// go-plugin gRPC transport.
type GRPCHost struct {
	logger hclog.Logger
}

func NewGRPCHost(logger hclog.Logger) pluginout.Host {
	return &GRPCHost{logger: logger.Named("plugin-host")}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	capabilities := make([]domain.Capability, 0, len(meta.Capabilities))
	for _, capability := range meta.Capabilities {
		capabilities = append(capabilities, domain.Capability(capability))
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Capabilities: capabilities}, nil
}

func (h *GRPCHost) Describe(ctx context.Context, manifest domain.Manifest) (domain.Description, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.Description{}, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()

	response, err := client.Describe(callCtx)
	if err != nil {
		return domain.Description{}, fmt.Errorf("describe: %w", err)
	}
	params := make([]domain.Parameter, 0, len(response.Parameters))
	for _, p := range response.Parameters {
		params = append(params, domain.Parameter{
			Name:        p.Name,
			PrettyName:  p.PrettyName,
			Type:        p.Type,
			Default:     p.Default,
			Array:       p.Array,
			Description: p.Description,
		})
	}
	return domain.Description{Name: response.Name, Version: response.Version, Parameters: params}, nil
}

func (h *GRPCHost) Simulate(ctx context.Context, manifest domain.Manifest, input domain.SimulateRequest) (domain.SimulateResult, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.SimulateResult{}, err
	}
	defer closeFn()

	callCtx, cancel := h.callContext(ctx, defaultCallTimeout)
	defer cancel()
	response, err := client.Simulate(callCtx, &pluginrpc.SimulateRequest{
		TrialJSON: input.TrialJSON,
		Mode:      input.Mode,
		RT:        input.RT,
		Key:       input.Key,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.SimulateResult{}, fmt.Errorf("%w: simulate %s", domain.ErrPluginTimeout, manifest.Name)
		}
		return domain.SimulateResult{}, fmt.Errorf("simulate: %w", err)
	}
	return domain.SimulateResult{Data: response.Data}, nil
}

func (h *GRPCHost) connect(manifest domain.Manifest) (pluginrpc.TrialPluginClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          pluginrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           h.logger.Named(manifest.Name),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start plugin client: %w", err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense plugin: %w", err)
	}
	typed, ok := raw.(pluginrpc.TrialPluginClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("plugin rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func (h *GRPCHost) callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
