package domain

import (
	"errors"
	"fmt"
	"math"
)

type SimulationMode string

const (
	SimulationDataOnly SimulationMode = "data-only"
	SimulationVisual   SimulationMode = "visual"
)

func ParseSimulationMode(raw string) (SimulationMode, error) {
	switch SimulationMode(raw) {
	case SimulationDataOnly, SimulationVisual:
		return SimulationMode(raw), nil
	case "":
		return SimulationDataOnly, nil
	default:
		return "", fmt.Errorf("unknown simulation mode %q", raw)
	}
}

// Ex-Gaussian reaction time model used for synthetic responses.
const (
	SimulatedRTMean = 500.0
	SimulatedRTSD   = 50.0
	SimulatedRTRate = 1.0 / 150.0
)

// SimulationData is one synthetic response. A nil field means no response.
type SimulationData struct {
	Stimulus string
	RT       *float64
	Response *string
}

// SimulationOptions carries caller overrides merged over generated data.
type SimulationOptions struct {
	RT       *float64
	Response *string
}

var ErrInvalidReactionTime = errors.New("reaction time must be a finite non-negative number")

// Validate rejects reaction time overrides that cannot be recorded.
func (o SimulationOptions) Validate() error {
	if o.RT == nil {
		return nil
	}
	if rt := *o.RT; math.IsNaN(rt) || math.IsInf(rt, 0) || rt < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidReactionTime, rt)
	}
	return nil
}

func MergeSimulationData(generated SimulationData, opts SimulationOptions) SimulationData {
	if opts.RT != nil {
		rt := *opts.RT
		generated.RT = &rt
	}
	if opts.Response != nil {
		key := *opts.Response
		generated.Response = &key
	}
	return generated
}

// EnsureSimulationDataConsistency drops responses the trial could never have
// admitted.
func EnsureSimulationDataConsistency(cfg TrialConfig, data SimulationData) SimulationData {
	if !cfg.Choices.AcceptsAny() {
		data.Response = nil
		data.RT = nil
	}
	if cfg.TrialDuration != nil && data.RT != nil && *data.RT > float64(*cfg.TrialDuration) {
		data.Response = nil
		data.RT = nil
	}
	if data.RT == nil || data.Response == nil {
		data.Response = nil
		data.RT = nil
	}
	return data
}

// Responses returns the log entries a simulated trial would have recorded.
func (d SimulationData) Responses() []Response {
	if d.RT == nil || d.Response == nil {
		return nil
	}
	return []Response{{RT: *d.RT, Key: *d.Response, Stimulus: d.Stimulus}}
}
