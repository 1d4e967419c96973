package domain

import "strconv"

// Phase is the lifecycle position of a trial.
type Phase int

const (
	PhaseLoading Phase = iota
	PhasePlaying
	PhaseAwaitingResponse
	PhaseEnded
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhasePlaying:
		return "playing"
	case PhaseAwaitingResponse:
		return "awaiting-response"
	case PhaseEnded:
		return "ended"
	case PhaseFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// PlaybackState is the mutable record kept for one stimulus element. The
// guard flags flip at most once.
type PlaybackState struct {
	Index     int
	ElementID string
	Visible   bool

	SeekIssued bool
	Seeked     bool
	Stopped    bool
	Ended      bool
	Detached   bool
}

// Done reports whether the element has stopped producing output.
func (s PlaybackState) Done() bool {
	return s.Stopped || s.Ended
}

func VideoElementID(index int) string {
	return "video_" + strconv.Itoa(index)
}

func MarkerElementID(index int) string {
	return "marker_" + strconv.Itoa(index)
}
