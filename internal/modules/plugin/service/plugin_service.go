package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"

	"evseg/internal/modules/plugin/domain"
	"evseg/internal/modules/plugin/dto"
	pluginout "evseg/internal/modules/plugin/port/out"
	apperrors "evseg/internal/platform/errors"
)

type PluginService struct {
	store  pluginout.ManifestStore
	host   pluginout.Host
	logger hclog.Logger
}

func NewPluginService(store pluginout.ManifestStore, host pluginout.Host, logger hclog.Logger) *PluginService {
	return &PluginService{store: store, host: host, logger: logger.Named("plugin")}
}

func (s *PluginService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, string(c))
		}
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Capabilities: caps})
	}
	return out, nil
}

func (s *PluginService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		result := dto.DoctorResult{Name: m.Name}
		if err := m.Validate(); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		binaryOK := fileExists(m.Binary)
		result.BinaryReachable = binaryOK
		checksumOK := false
		if binaryOK {
			checksumOK = checksumMatches(m.Binary, m.SHA256) == nil
		}
		result.ChecksumValid = checksumOK
		if binaryOK && checksumOK && m.Enabled && s.host != nil {
			if err := s.host.CheckLifecycle(ctx, m); err != nil {
				result.Error = err.Error()
			} else {
				result.LifecycleOK = true
			}
		}
		if !binaryOK {
			result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		}
		if binaryOK && !checksumOK {
			result.Error = "checksum mismatch"
		}
		if result.Error != "" {
			s.logger.Warn("plugin unhealthy", "plugin", m.Name, "error", result.Error)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *PluginService) Describe(ctx context.Context, pluginName string) (dto.DescribeOutput, error) {
	manifest, err := s.getRunnableManifest(ctx, pluginName, domain.CapabilityDescribe)
	if err != nil {
		return dto.DescribeOutput{}, err
	}
	desc, err := s.host.Describe(ctx, manifest)
	if err != nil {
		return dto.DescribeOutput{}, err
	}
	params := make([]dto.ParameterInfo, 0, len(desc.Parameters))
	for _, p := range desc.Parameters {
		params = append(params, dto.ParameterInfo{
			Name:        p.Name,
			PrettyName:  p.PrettyName,
			Type:        p.Type,
			Default:     p.Default,
			Array:       p.Array,
			Description: p.Description,
		})
	}
	return dto.DescribeOutput{
		PluginName: pluginName,
		Name:       desc.Name,
		Version:    desc.Version,
		Parameters: params,
	}, nil
}

func (s *PluginService) Simulate(ctx context.Context, input dto.SimulateInput) (dto.SimulateOutput, error) {
	req := domain.SimulateRequest{
		TrialJSON: input.TrialJSON,
		Mode:      input.Mode,
		RT:        input.RT,
		Key:       input.Key,
	}
	if req.Mode == "" {
		req.Mode = domain.ModeDataOnly
	}
	if err := req.Validate(); err != nil {
		return dto.SimulateOutput{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	manifest, err := s.getRunnableManifest(ctx, input.PluginName, domain.CapabilitySimulate)
	if err != nil {
		return dto.SimulateOutput{}, err
	}
	s.logger.Debug("simulating trial", "plugin", manifest.Name, "mode", req.Mode)
	result, err := s.host.Simulate(ctx, manifest, req)
	if err != nil {
		return dto.SimulateOutput{}, err
	}
	return dto.SimulateOutput{PluginName: input.PluginName, Data: result.Data}, nil
}

func (s *PluginService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seenNames := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seenNames[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate plugin name: %s", manifest.Name)
		}
		seenNames[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

func (s *PluginService) getRunnableManifest(ctx context.Context, pluginName string, requiredCapability domain.Capability) (domain.Manifest, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	manifest := domain.Manifest{}
	found := false
	for _, item := range manifests {
		if item.Name == pluginName {
			manifest = item
			found = true
			break
		}
	}
	if !found {
		return domain.Manifest{}, fmt.Errorf("%w: %q", domain.ErrPluginNotFound, pluginName)
	}
	if !manifest.Enabled {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, pluginName)
	}
	if requiredCapability != "" && !manifest.HasCapability(requiredCapability) {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrCapabilityMissing, requiredCapability)
	}
	if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
		return domain.Manifest{}, err
	}
	if s.host != nil {
		if err := s.host.CheckLifecycle(ctx, manifest); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, pluginName)
			}
			return domain.Manifest{}, err
		}
	}
	return manifest, nil
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugin binary: %w", err)
	}
	hash := sha256.Sum256(payload)
	actual := hex.EncodeToString(hash[:])
	if actual != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
