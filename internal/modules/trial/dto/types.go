package dto

const (
	ModeRun      = "run"
	ModeDataOnly = "data-only"
	ModeVisual   = "visual"
)

// AllTrials selects every trial of a timeline.
const AllTrials = -1

type RunTimelineInput struct {
	Path  string
	Mode  string
	Trial int
	RT    *float64
	Key   *string
}

type TrialOutput struct {
	Index         int
	ParticipantID int
	RT            []float64
	Key           []string
	StimInTrial   []string
	Data          map[string]string
	Aborted       bool
}

type RunOutput struct {
	RunID  string
	Mode   string
	Trials []TrialOutput
}

type RenderInput struct {
	Path  string
	Trial int
}

type RenderOutput struct {
	HTML     string
	Warnings []string
}

type TrialJSONInput struct {
	Path  string
	Trial int
}

type ParameterOutput struct {
	Name        string
	PrettyName  string
	Type        string
	Default     string
	Array       bool
	Description string
}

type VideoFrameOutput struct {
	ID        string
	Source    string
	Visible   bool
	Responded bool
	Playing   bool
	Position  float64
	Duration  float64
}

type MarkerFrameOutput struct {
	ID string
	X  float64
	RT float64
}

type FrameOutput struct {
	Cleared       bool
	Videos        []VideoFrameOutput
	HasBaseline   bool
	BaselineWidth float64
	Markers       []MarkerFrameOutput
}
