package main

import (
	"context"
	"fmt"
	"os"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	pluginrpc "evseg/internal/modules/plugin/adapter/out/rpc"
	trialout "evseg/internal/modules/trial/adapter/out"
	"evseg/internal/modules/trial/domain"
	"evseg/internal/modules/trial/service"
)

const version = "1.0.0"

// discardCompletion drops the finished trial; the result travels back in the
// RPC response instead.
type discardCompletion struct{}

func (discardCompletion) FinishTrial(domain.TrialResult) {}

type server struct {
	simulator *service.Simulator
	logger    hclog.Logger
}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{
		Name:         domain.PluginName,
		Version:      version,
		Capabilities: []string{"describe", "simulate"},
	}, nil
}

func (s *server) Describe(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.DescribeResponse, error) {
	params := domain.Parameters()
	out := &pluginrpc.DescribeResponse{Name: domain.PluginName, Version: version, Parameters: make([]pluginrpc.Parameter, 0, len(params))}
	for _, p := range params {
		out.Parameters = append(out.Parameters, pluginrpc.Parameter{
			Name:        p.Name,
			PrettyName:  p.PrettyName,
			Type:        string(p.Type),
			Default:     p.Default,
			Array:       p.Array,
			Description: p.Description,
		})
	}
	return out, nil
}

func (s *server) Simulate(_ context.Context, in *pluginrpc.SimulateRequest) (*pluginrpc.SimulateResponse, error) {
	mode, err := domain.ParseSimulationMode(in.Mode)
	if err != nil {
		return nil, err
	}
	if mode != domain.SimulationDataOnly {
		return nil, fmt.Errorf("simulation mode %q needs a display host", in.Mode)
	}
	cfg, err := domain.DecodeTrialJSON([]byte(in.TrialJSON))
	if err != nil {
		return nil, err
	}
	result, _, err := s.simulator.DataOnly(cfg, domain.SimulationOptions{RT: in.RT, Response: in.Key})
	if err != nil {
		return nil, err
	}
	data, err := result.Data()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("simulated trial", "responses", result.Len())
	return &pluginrpc.SimulateResponse{Data: data}, nil
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "segmentation",
		Level:      hclog.Info,
		Output:     os.Stderr,
		JSONFormat: true,
	})
	random := trialout.NewRandomizer(uint64(time.Now().UnixNano()))
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins: pluginrpc.PluginMap(&server{
			simulator: service.NewSimulator(random, discardCompletion{}, nil, nil, logger),
			logger:    logger,
		}),
		GRPCServer: plugin.DefaultGRPCServer,
		Logger:     logger,
	})
}
