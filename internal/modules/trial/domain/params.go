package domain

type ParameterType string

const (
	ParamVideo ParameterType = "VIDEO"
	ParamKeys  ParameterType = "KEYS"
	ParamBool  ParameterType = "BOOL"
	ParamInt   ParameterType = "INT"
	ParamFloat ParameterType = "FLOAT"
)

// ParameterInfo describes one declarative trial parameter. Default is the
// JSON encoding of the default value; "undefined" marks a required parameter.
type ParameterInfo struct {
	Name        string
	PrettyName  string
	Type        ParameterType
	Default     string
	Array       bool
	Description string
}

func Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "stimulus", PrettyName: "Video", Type: ParamVideo, Default: "undefined", Array: true, Description: "Video file(s) to play, layered in order."},
		{Name: "choices", PrettyName: "Choices", Type: ParamKeys, Default: `"ALL_KEYS"`, Description: "Keys the participant may press."},
		{Name: "prompt", PrettyName: "Prompt", Type: ParamBool, Default: "true", Description: "Draw the annotation baseline below the stimulus."},
		{Name: "width", PrettyName: "Width", Type: ParamInt, Default: `""`, Description: "Video width in pixels."},
		{Name: "height", PrettyName: "Height", Type: ParamInt, Default: `""`, Description: "Video height in pixels."},
		{Name: "autoplay", PrettyName: "Autoplay", Type: ParamBool, Default: "true", Description: "Start playing as soon as the video is ready."},
		{Name: "controls", PrettyName: "Controls", Type: ParamBool, Default: "false", Description: "Show playback controls."},
		{Name: "mute", PrettyName: "Mute", Type: ParamBool, Default: "false", Description: "Play without sound."},
		{Name: "start", PrettyName: "Start", Type: ParamFloat, Default: "null", Description: "Clip start in seconds."},
		{Name: "stop", PrettyName: "Stop", Type: ParamFloat, Default: "null", Description: "Clip stop in seconds."},
		{Name: "rate", PrettyName: "Rate", Type: ParamFloat, Default: "1", Description: "Playback rate."},
		{Name: "trial_ends_after_video", PrettyName: "End trial after video finishes", Type: ParamBool, Default: "false", Description: "End the trial when playback stops."},
		{Name: "trial_duration", PrettyName: "Trial duration", Type: ParamInt, Default: "null", Description: "Maximum trial length in milliseconds."},
		{Name: "response_ends_trial", PrettyName: "Response ends trial", Type: ParamBool, Default: "true", Description: "End the trial on the first accepted key."},
		{Name: "response_allowed_while_playing", PrettyName: "Response allowed while playing", Type: ParamBool, Default: "true", Description: "Accept keys before playback stops."},
		{Name: "participant_id", PrettyName: "Participant ID", Type: ParamInt, Default: "undefined", Description: "Participant identifier recorded with the data."},
		{Name: "timeline_span_ms", PrettyName: "Timeline span", Type: ParamFloat, Default: "60000", Description: "Milliseconds represented by the full annotation baseline."},
	}
}
