package out

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
	apperrors "evseg/internal/platform/errors"
)

type timelineFile struct {
	ParticipantID int         `yaml:"participant_id"`
	Trials        []trialFile `yaml:"trials"`
}

// trialFile mirrors the trial parameters. Pointers distinguish an absent key
// from a zero value so defaults survive.
type trialFile struct {
	Stimulus                    yaml.Node `yaml:"stimulus"`
	Choices                     yaml.Node `yaml:"choices"`
	Prompt                      *bool     `yaml:"prompt"`
	Width                       *int      `yaml:"width"`
	Height                      *int      `yaml:"height"`
	Autoplay                    *bool     `yaml:"autoplay"`
	Controls                    *bool     `yaml:"controls"`
	Mute                        *bool     `yaml:"mute"`
	Start                       *float64  `yaml:"start"`
	Stop                        *float64  `yaml:"stop"`
	Rate                        *float64  `yaml:"rate"`
	TrialEndsAfterVideo         *bool     `yaml:"trial_ends_after_video"`
	TrialDuration               *int      `yaml:"trial_duration"`
	ResponseEndsTrial           *bool     `yaml:"response_ends_trial"`
	ResponseAllowedWhilePlaying *bool     `yaml:"response_allowed_while_playing"`
	ParticipantID               *int      `yaml:"participant_id"`
	TimelineSpanMS              *float64  `yaml:"timeline_span_ms"`
}

type YAMLTimelineStore struct {
	defaultSpanMS float64
}

func NewYAMLTimelineStore(defaultSpanMS float64) trialout.TimelineStore {
	if defaultSpanMS <= 0 {
		defaultSpanMS = domain.DefaultTimelineSpanMS
	}
	return YAMLTimelineStore{defaultSpanMS: defaultSpanMS}
}

func (s YAMLTimelineStore) Load(_ context.Context, path string) (domain.Timeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Timeline{}, fmt.Errorf("read timeline: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var file timelineFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Timeline{}, fmt.Errorf("%s: %w", path, apperrors.ErrEmptyTimeline)
		}
		return domain.Timeline{}, fmt.Errorf("decode timeline %s: %w", path, err)
	}
	if len(file.Trials) == 0 {
		return domain.Timeline{}, fmt.Errorf("%s: %w", path, apperrors.ErrEmptyTimeline)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Timeline{}, fmt.Errorf("resolve timeline path: %w", err)
	}
	timeline := domain.Timeline{
		ParticipantID: file.ParticipantID,
		BaseDir:       filepath.Dir(abs),
		Trials:        make([]domain.TrialConfig, 0, len(file.Trials)),
	}
	for i, trial := range file.Trials {
		cfg, err := s.toConfig(trial, file.ParticipantID)
		if err != nil {
			return domain.Timeline{}, fmt.Errorf("trial %d: %w", i, err)
		}
		timeline.Trials = append(timeline.Trials, cfg)
	}
	return timeline, nil
}

func (s YAMLTimelineStore) toConfig(trial trialFile, participantID int) (domain.TrialConfig, error) {
	cfg := domain.DefaultTrialConfig()
	cfg.ParticipantID = participantID
	cfg.TimelineSpanMS = s.defaultSpanMS

	if trial.Stimulus.Kind != yaml.SequenceNode {
		return domain.TrialConfig{}, domain.ErrStimulusNotArray
	}
	stimuli := []string{}
	if err := trial.Stimulus.Decode(&stimuli); err != nil {
		return domain.TrialConfig{}, fmt.Errorf("decode stimulus: %w", err)
	}
	cfg.Stimulus = stimuli

	switch trial.Choices.Kind {
	case 0:
	case yaml.ScalarNode:
		cfg.Choices = domain.ParseChoices(trial.Choices.Value)
	case yaml.SequenceNode:
		keys := []string{}
		if err := trial.Choices.Decode(&keys); err != nil {
			return domain.TrialConfig{}, fmt.Errorf("decode choices: %w", err)
		}
		cfg.Choices = domain.KeySet(keys...)
	default:
		return domain.TrialConfig{}, fmt.Errorf("choices must be %q, %q or a list of keys", domain.AllKeysToken, domain.NoKeysToken)
	}

	setBool(&cfg.Prompt, trial.Prompt)
	setBool(&cfg.Autoplay, trial.Autoplay)
	setBool(&cfg.Controls, trial.Controls)
	setBool(&cfg.Mute, trial.Mute)
	setBool(&cfg.TrialEndsAfterVideo, trial.TrialEndsAfterVideo)
	setBool(&cfg.ResponseEndsTrial, trial.ResponseEndsTrial)
	setBool(&cfg.ResponseAllowedWhilePlaying, trial.ResponseAllowedWhilePlaying)
	if trial.Width != nil {
		cfg.Width = *trial.Width
	}
	if trial.Height != nil {
		cfg.Height = *trial.Height
	}
	if trial.Rate != nil {
		cfg.Rate = *trial.Rate
	}
	if trial.ParticipantID != nil {
		cfg.ParticipantID = *trial.ParticipantID
	}
	if trial.TimelineSpanMS != nil {
		cfg.TimelineSpanMS = *trial.TimelineSpanMS
	}
	cfg.Start = trial.Start
	cfg.Stop = trial.Stop
	cfg.TrialDuration = trial.TrialDuration
	return cfg, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
