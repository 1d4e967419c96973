package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
	apperrors "evseg/internal/platform/errors"
)

var ErrVisualUnavailable = errors.New("visual simulation needs a display host")

// Simulator stands in for a participant. Visual mode needs trials and presser;
// data-only mode needs neither.
type Simulator struct {
	random     trialout.Randomizer
	completion trialout.Completion
	trials     *TrialService
	presser    trialout.KeyPresser
	logger     hclog.Logger
}

func NewSimulator(random trialout.Randomizer, completion trialout.Completion, trials *TrialService, presser trialout.KeyPresser, logger hclog.Logger) *Simulator {
	return &Simulator{
		random:     random,
		completion: completion,
		trials:     trials,
		presser:    presser,
		logger:     logger.Named("simulate"),
	}
}

// CreateData draws a plausible response, applies caller overrides and drops
// anything the trial could not have admitted.
func (s *Simulator) CreateData(cfg domain.TrialConfig, opts domain.SimulationOptions) domain.SimulationData {
	rt := s.random.SampleExGaussian(domain.SimulatedRTMean, domain.SimulatedRTSD, domain.SimulatedRTRate, true)
	data := domain.SimulationData{Stimulus: cfg.StimulusLabel(), RT: &rt}
	if key, ok := s.random.ValidKey(cfg.Choices); ok {
		data.Response = &key
	}
	data = domain.MergeSimulationData(data, opts)
	return domain.EnsureSimulationDataConsistency(cfg, data)
}

// DataOnly finishes the trial immediately with synthesized data.
func (s *Simulator) DataOnly(cfg domain.TrialConfig, opts domain.SimulationOptions) (domain.TrialResult, domain.SimulationData, error) {
	if err := validateSimulation(cfg, opts); err != nil {
		return domain.TrialResult{}, domain.SimulationData{}, err
	}
	data := s.CreateData(cfg, opts)
	result := domain.NewTrialResult(cfg, data.Responses())
	s.completion.FinishTrial(result)
	return result, data, nil
}

// Visual runs the real trial and presses the simulated key after the
// simulated reaction time. Gated trials press only once playback has ended.
func (s *Simulator) Visual(ctx context.Context, cfg domain.TrialConfig, opts domain.SimulationOptions) (domain.TrialResult, domain.SimulationData, error) {
	if s.trials == nil || s.presser == nil {
		return domain.TrialResult{}, domain.SimulationData{}, ErrVisualUnavailable
	}
	if err := validateSimulation(cfg, opts); err != nil {
		return domain.TrialResult{}, domain.SimulationData{}, err
	}
	data := s.CreateData(cfg, opts)
	respond := func() {
		if data.RT == nil || data.Response == nil {
			return
		}
		delay := time.Duration(*data.RT * float64(time.Millisecond))
		s.logger.Debug("pressing simulated key", "key", *data.Response, "delay", delay)
		s.presser.PressKey(*data.Response, delay)
	}
	result, err := s.trials.run(ctx, cfg, func(c *Controller) {
		if cfg.ResponseAllowedWhilePlaying {
			respond()
			return
		}
		c.OnPlaybackEnded(respond)
	})
	return result, data, err
}

func validateSimulation(cfg domain.TrialConfig, opts domain.SimulationOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return nil
}
