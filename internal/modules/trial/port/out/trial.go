package out

import (
	"context"
	"time"

	"evseg/internal/modules/trial/domain"
)

// Handle releases a host registration. Cancel is safe to call more than once.
type Handle interface {
	Cancel()
}

type KeyboardResponse struct {
	Key string
	RT  float64
}

// KeyboardRequest registers a response listener. RT is measured from
// registration with the host's monotonic clock.
type KeyboardRequest struct {
	Callback     func(KeyboardResponse)
	ValidKeys    domain.Choices
	Persist      bool
	AllowHeldKey bool
}

// PlayerEvents are delivered on the host loop in the order the media
// pipeline emits them.
type PlayerEvents struct {
	OnPlaying    func()
	OnSeeked     func()
	OnTimeUpdate func(position float64)
	OnEnded      func()
}

type Player interface {
	Play()
	Pause()
	Seek(seconds float64)
	SetMuted(muted bool)
	SetRate(rate float64)
	SetVisible(visible bool)
	Bind(events PlayerEvents)
	Unbind()
}

type Buffers interface {
	VideoBuffer(ref string) (string, bool)
}

type Keyboard interface {
	Listen(req KeyboardRequest) Handle
	CancelAll()
}

type Scheduler interface {
	SetTimeout(fn func(), d time.Duration) Handle
	ClearAll()
}

type Surface interface {
	Render(root *domain.Element) error
	Player(elementID string) (Player, error)
	Clear()
}

type Completion interface {
	FinishTrial(result domain.TrialResult)
}

// Runtime is what a trial controller needs from its host.
type Runtime interface {
	Buffers
	Keyboard
	Scheduler
	Surface
	Completion
}

// Dispatcher enters the host's single logical thread.
type Dispatcher interface {
	Post(fn func()) bool
	Done() <-chan struct{}
}

type Randomizer interface {
	SampleExGaussian(mean, sd, rate float64, positive bool) float64
	ValidKey(choices domain.Choices) (string, bool)
}

// KeyPresser injects a synthetic key press after delay.
type KeyPresser interface {
	PressKey(key string, delay time.Duration)
}

type Preloader interface {
	Preload(ctx context.Context, refs []string, baseDir string) error
}

// Monitor exposes the current display to an observer such as a terminal view.
type Monitor interface {
	Frame() domain.Frame
	Press(key string)
}

// Host is a complete runtime able to run, simulate and display trials.
type Host interface {
	Runtime
	Dispatcher
	KeyPresser
	Preloader
	Monitor
}

// DurationProber reads a media file's length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type TimelineStore interface {
	Load(ctx context.Context, path string) (domain.Timeline, error)
}

type MarkupRenderer interface {
	Render(root *domain.Element) (string, error)
}
