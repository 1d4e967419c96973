package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	datadto "evseg/internal/modules/data/dto"
	datain "evseg/internal/modules/data/port/in"
	"evseg/internal/modules/trial/domain"
	"evseg/internal/modules/trial/dto"
	trialin "evseg/internal/modules/trial/port/in"
	trialout "evseg/internal/modules/trial/port/out"
	"evseg/internal/modules/trial/service"
	apperrors "evseg/internal/platform/errors"
	"evseg/internal/platform/id"
)

// Display is what the interactor needs from the host beyond running trials.
type Display interface {
	trialout.Preloader
	trialout.Monitor
}

type Interactor struct {
	trials    *service.TrialService
	simulator *service.Simulator
	timelines trialout.TimelineStore
	display   Display
	renderer  trialout.MarkupRenderer
	data      datain.Usecase
	idGen     id.Generator
	logger    hclog.Logger
}

func NewInteractor(
	trials *service.TrialService,
	simulator *service.Simulator,
	timelines trialout.TimelineStore,
	display Display,
	renderer trialout.MarkupRenderer,
	data datain.Usecase,
	idGen id.Generator,
	logger hclog.Logger,
) trialin.Usecase {
	return &Interactor{
		trials:    trials,
		simulator: simulator,
		timelines: timelines,
		display:   display,
		renderer:  renderer,
		data:      data,
		idGen:     idGen,
		logger:    logger.Named("usecase"),
	}
}

func (i *Interactor) RunTimeline(ctx context.Context, input dto.RunTimelineInput) (dto.RunOutput, error) {
	mode := input.Mode
	if mode == "" {
		mode = dto.ModeRun
	}
	if mode != dto.ModeRun && mode != dto.ModeDataOnly && mode != dto.ModeVisual {
		return dto.RunOutput{}, fmt.Errorf("%w: unknown mode %q", apperrors.ErrInvalidInput, input.Mode)
	}
	opts := domain.SimulationOptions{RT: input.RT, Response: input.Key}
	if err := opts.Validate(); err != nil {
		return dto.RunOutput{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	timeline, err := i.timelines.Load(ctx, input.Path)
	if err != nil {
		return dto.RunOutput{}, err
	}
	indexes, err := selectTrials(timeline, input.Trial)
	if err != nil {
		return dto.RunOutput{}, err
	}
	if mode != dto.ModeDataOnly {
		if err := i.display.Preload(ctx, timeline.Stimuli(), timeline.BaseDir); err != nil {
			return dto.RunOutput{}, fmt.Errorf("preload stimuli: %w", err)
		}
	}

	out := dto.RunOutput{RunID: i.idGen.New(), Mode: mode}
	i.logger.Info("run started", "run", out.RunID, "mode", mode, "trials", len(indexes))
	for _, index := range indexes {
		cfg := timeline.Trials[index]
		var result domain.TrialResult
		switch mode {
		case dto.ModeDataOnly:
			result, _, err = i.simulator.DataOnly(cfg, opts)
		case dto.ModeVisual:
			result, _, err = i.simulator.Visual(ctx, cfg, opts)
		default:
			result, err = i.trials.Run(ctx, cfg)
		}
		aborted := errors.Is(err, apperrors.ErrTrialAborted)
		if err != nil && !aborted {
			return out, fmt.Errorf("trial %d: %w", index, err)
		}
		i.record(ctx, out.RunID, mode, index, cfg, result, aborted)
		trialOut, encErr := toTrialOutput(index, result, aborted)
		if encErr != nil {
			return out, fmt.Errorf("trial %d: %w", index, encErr)
		}
		out.Trials = append(out.Trials, trialOut)
		if aborted {
			return out, err
		}
	}
	i.logger.Info("run finished", "run", out.RunID, "trials", len(out.Trials))
	return out, nil
}

// record stores the result even when ctx was cancelled by an abort.
func (i *Interactor) record(ctx context.Context, runID, mode string, index int, cfg domain.TrialConfig, result domain.TrialResult, aborted bool) {
	if i.data == nil {
		return
	}
	_, err := i.data.Record(context.WithoutCancel(ctx), datadto.RecordInput{
		RunID:         runID,
		Index:         index,
		ParticipantID: result.ParticipantID,
		Stimulus:      cfg.StimulusLabel(),
		RT:            result.RT,
		Key:           result.Key,
		StimInTrial:   result.StimInTrial,
		Mode:          mode,
		Aborted:       aborted,
	})
	if err != nil {
		i.logger.Error("trial data not recorded", "run", runID, "trial", index, "error", err)
	}
}

func (i *Interactor) Render(ctx context.Context, input dto.RenderInput) (dto.RenderOutput, error) {
	cfg, err := i.loadTrial(ctx, input.Path, input.Trial)
	if err != nil {
		return dto.RenderOutput{}, err
	}
	layout, warnings := service.BuildLayout(cfg, nil)
	markup, err := i.renderer.Render(layout)
	if err != nil {
		return dto.RenderOutput{}, err
	}
	return dto.RenderOutput{HTML: markup, Warnings: warnings}, nil
}

func (i *Interactor) TrialJSON(ctx context.Context, input dto.TrialJSONInput) (string, error) {
	cfg, err := i.loadTrial(ctx, input.Path, input.Trial)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode trial: %w", err)
	}
	return string(raw), nil
}

func (i *Interactor) Parameters(context.Context) ([]dto.ParameterOutput, error) {
	params := domain.Parameters()
	out := make([]dto.ParameterOutput, 0, len(params))
	for _, p := range params {
		out = append(out, dto.ParameterOutput{
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

func (i *Interactor) Frame() dto.FrameOutput {
	frame := i.display.Frame()
	out := dto.FrameOutput{
		Cleared:       frame.Cleared,
		HasBaseline:   frame.HasBaseline,
		BaselineWidth: frame.BaselineWidth,
	}
	for _, v := range frame.Videos {
		out.Videos = append(out.Videos, dto.VideoFrameOutput{
			ID:        v.ID,
			Source:    v.Source,
			Visible:   v.Visible,
			Responded: v.Responded,
			Playing:   v.Playing,
			Position:  v.Position,
			Duration:  v.Duration,
		})
	}
	for _, m := range frame.Markers {
		out.Markers = append(out.Markers, dto.MarkerFrameOutput{ID: m.ID, X: m.X, RT: m.RT})
	}
	return out
}

func (i *Interactor) Press(key string) {
	i.display.Press(key)
}

func (i *Interactor) loadTrial(ctx context.Context, path string, index int) (domain.TrialConfig, error) {
	timeline, err := i.timelines.Load(ctx, path)
	if err != nil {
		return domain.TrialConfig{}, err
	}
	if index < 0 || index >= len(timeline.Trials) {
		return domain.TrialConfig{}, fmt.Errorf("%w: trial %d of %d", apperrors.ErrNotFound, index, len(timeline.Trials))
	}
	return timeline.Trials[index], nil
}

func selectTrials(timeline domain.Timeline, trial int) ([]int, error) {
	if trial == dto.AllTrials {
		out := make([]int, len(timeline.Trials))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if trial < 0 || trial >= len(timeline.Trials) {
		return nil, fmt.Errorf("%w: trial %d of %d", apperrors.ErrNotFound, trial, len(timeline.Trials))
	}
	return []int{trial}, nil
}

func toTrialOutput(index int, result domain.TrialResult, aborted bool) (dto.TrialOutput, error) {
	data, err := result.Data()
	if err != nil {
		return dto.TrialOutput{}, err
	}
	return dto.TrialOutput{
		Index:         index,
		ParticipantID: result.ParticipantID,
		RT:            result.RT,
		Key:           result.Key,
		StimInTrial:   result.StimInTrial,
		Data:          data,
		Aborted:       aborted,
	}, nil
}
