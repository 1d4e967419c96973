package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

const (
	PluginName = "event-segmentation-video-response"

	DefaultTimelineSpanMS = 60000.0
)

var (
	ErrStimulusNotArray = errors.New("stimulus must be an array of video files")
	ErrLogSealed        = errors.New("response log already finalized")
)

// TrialConfig is the immutable input of one trial.
type TrialConfig struct {
	Stimulus                    []string `json:"stimulus"`
	Choices                     Choices  `json:"choices"`
	Prompt                      bool     `json:"prompt"`
	Width                       int      `json:"width"`
	Height                      int      `json:"height"`
	Autoplay                    bool     `json:"autoplay"`
	Controls                    bool     `json:"controls"`
	Mute                        bool     `json:"mute"`
	Start                       *float64 `json:"start"`
	Stop                        *float64 `json:"stop"`
	Rate                        float64  `json:"rate"`
	TrialEndsAfterVideo         bool     `json:"trial_ends_after_video"`
	TrialDuration               *int     `json:"trial_duration"`
	ResponseEndsTrial           bool     `json:"response_ends_trial"`
	ResponseAllowedWhilePlaying bool     `json:"response_allowed_while_playing"`
	ParticipantID               int      `json:"participant_id"`
	TimelineSpanMS              float64  `json:"timeline_span_ms"`
}

// DefaultTrialConfig returns the parameter defaults. Stimulus stays nil: it has
// no default and must be supplied.
func DefaultTrialConfig() TrialConfig {
	return TrialConfig{
		Choices:                     AllKeys(),
		Prompt:                      true,
		Autoplay:                    true,
		Rate:                        1,
		ResponseEndsTrial:           true,
		ResponseAllowedWhilePlaying: true,
		TimelineSpanMS:              DefaultTimelineSpanMS,
	}
}

// Validate performs the single fatal configuration check. Every other field
// is accepted as given.
func (c TrialConfig) Validate() error {
	if c.Stimulus == nil {
		return ErrStimulusNotArray
	}
	return nil
}

// ResponsesGated reports whether key presses wait for playback to stop.
func (c TrialConfig) ResponsesGated() bool {
	return !c.ResponseAllowedWhilePlaying
}

var dirPrefix = regexp.MustCompile(`^.*[\\/]`)

// StimulusLabel is the file name of the first stimulus, recorded with every
// response.
func (c TrialConfig) StimulusLabel() string {
	if len(c.Stimulus) == 0 {
		return ""
	}
	return dirPrefix.ReplaceAllString(c.Stimulus[0], "")
}

// Timeline is an ordered list of trials sharing a participant.
type Timeline struct {
	ParticipantID int
	BaseDir       string
	Trials        []TrialConfig
}

// Stimuli returns every distinct stimulus reference in timeline order.
func (t Timeline) Stimuli() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, trial := range t.Trials {
		for _, ref := range trial.Stimulus {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// DecodeTrialJSON reads a trial from its JSON parameter map, starting from
// the defaults so absent parameters keep them.
func DecodeTrialJSON(raw []byte) (TrialConfig, error) {
	var probe struct {
		Stimulus json.RawMessage `json:"stimulus"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return TrialConfig{}, fmt.Errorf("decode trial: %w", err)
	}
	trimmed := bytes.TrimSpace(probe.Stimulus)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return TrialConfig{}, ErrStimulusNotArray
	}
	cfg := DefaultTrialConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return TrialConfig{}, fmt.Errorf("decode trial: %w", err)
	}
	return cfg, nil
}
