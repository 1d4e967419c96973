package service

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
	apperrors "evseg/internal/platform/errors"
)

// HostRuntime is the part of a host a TrialService drives.
type HostRuntime interface {
	trialout.Runtime
	trialout.Dispatcher
}

type TrialService struct {
	host   HostRuntime
	logger hclog.Logger
}

func NewTrialService(host HostRuntime, logger hclog.Logger) *TrialService {
	return &TrialService{host: host, logger: logger.Named("trial")}
}

// Run mounts one trial on the host loop and blocks until it has finalized.
// Cancelling ctx aborts the trial; the partial result is still returned with
// an error wrapping apperrors.ErrTrialAborted.
func (s *TrialService) Run(ctx context.Context, cfg domain.TrialConfig) (domain.TrialResult, error) {
	return s.run(ctx, cfg, nil)
}

func (s *TrialService) run(ctx context.Context, cfg domain.TrialConfig, onMount func(*Controller)) (domain.TrialResult, error) {
	if err := cfg.Validate(); err != nil {
		return domain.TrialResult{}, err
	}
	done := make(chan domain.TrialResult, 1)
	failed := make(chan error, 1)
	var ctrl *Controller

	posted := s.host.Post(func() {
		c, err := NewController(cfg, s.host, s.logger, func(result domain.TrialResult) {
			done <- result
		})
		if err != nil {
			failed <- err
			return
		}
		ctrl = c
		if onMount != nil {
			onMount(c)
		}
		if err := c.Mount(); err != nil {
			failed <- err
		}
	})
	if !posted {
		return domain.TrialResult{}, apperrors.ErrHostStopped
	}

	select {
	case result := <-done:
		return result, nil
	case err := <-failed:
		return domain.TrialResult{}, err
	case <-s.host.Done():
		return domain.TrialResult{}, apperrors.ErrHostStopped
	case <-ctx.Done():
	}

	s.logger.Info("aborting trial", "reason", ctx.Err())
	s.host.Post(func() {
		if ctrl != nil {
			ctrl.Abort()
		}
	})
	select {
	case result := <-done:
		return result, fmt.Errorf("%w: %w", apperrors.ErrTrialAborted, ctx.Err())
	case err := <-failed:
		return domain.TrialResult{}, err
	case <-s.host.Done():
		return domain.TrialResult{}, fmt.Errorf("%w: %w", apperrors.ErrTrialAborted, ctx.Err())
	}
}
