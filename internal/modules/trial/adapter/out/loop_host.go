package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
	"evseg/internal/platform/clock"
	"evseg/internal/platform/eventloop"
)

type LoopHostOptions struct {
	TickInterval    time.Duration
	DefaultDuration float64
	Prober          trialout.DurationProber
	Clock           clock.Clock
}

// LoopHost is a headless host runtime. Trials, timers, key presses and
// virtual media players all run on one event loop; Frame may be read from any
// goroutine.
type LoopHost struct {
	loop            *eventloop.Loop
	logger          hclog.Logger
	clock           clock.Clock
	tick            time.Duration
	defaultDuration float64
	prober          trialout.DurationProber

	cacheMu   sync.RWMutex
	buffers   map[string]string
	durations map[string]float64

	// loop-owned
	listeners []*keyListener
	timers    map[*eventloop.Timer]struct{}
	players   map[string]*virtualPlayer
	layout    *domain.Element
	finished  int

	frameMu sync.Mutex
	frame   domain.Frame
}

func NewLoopHost(loop *eventloop.Loop, logger hclog.Logger, opts LoopHostOptions) *LoopHost {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 250 * time.Millisecond
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = 30
	}
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	return &LoopHost{
		loop:            loop,
		logger:          logger.Named("host"),
		clock:           opts.Clock,
		tick:            opts.TickInterval,
		defaultDuration: opts.DefaultDuration,
		prober:          opts.Prober,
		buffers:         map[string]string{},
		durations:       map[string]float64{},
		timers:          map[*eventloop.Timer]struct{}{},
		players:         map[string]*virtualPlayer{},
		frame:           domain.Frame{Cleared: true},
	}
}

type onceHandle struct {
	once sync.Once
	fn   func()
}

func (h *onceHandle) Cancel() {
	h.once.Do(h.fn)
}

// Preload resolves local stimulus files against baseDir and probes their
// durations. Missing files are logged and left to fall back to plain sources.
func (h *LoopHost) Preload(ctx context.Context, refs []string, baseDir string) error {
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.Contains(ref, "://") {
			continue
		}
		path := stripQuery(ref)
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			h.logger.Warn("stimulus not preloaded", "stimulus", ref, "error", err)
			continue
		}
		duration := 0.0
		if h.prober != nil {
			d, err := h.prober.Duration(ctx, path)
			if err != nil {
				h.logger.Warn("duration probe failed, using default", "stimulus", ref, "error", err)
			} else {
				duration = d
			}
		}
		h.cacheMu.Lock()
		h.buffers[ref] = path
		if duration > 0 {
			h.durations[path] = duration
		}
		h.cacheMu.Unlock()
		h.logger.Debug("stimulus preloaded", "stimulus", ref, "path", path, "seconds", duration)
	}
	return nil
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

func (h *LoopHost) VideoBuffer(ref string) (string, bool) {
	h.cacheMu.RLock()
	defer h.cacheMu.RUnlock()
	buffer, ok := h.buffers[ref]
	return buffer, ok
}

func (h *LoopHost) durationOf(source string) float64 {
	h.cacheMu.RLock()
	defer h.cacheMu.RUnlock()
	if d, ok := h.durations[source]; ok {
		return d
	}
	return h.defaultDuration
}

// Run drives the loop until ctx is cancelled.
func (h *LoopHost) Run(ctx context.Context) error {
	return h.loop.Run(ctx)
}

func (h *LoopHost) Post(fn func()) bool {
	return h.loop.Post(fn)
}

func (h *LoopHost) Done() <-chan struct{} {
	return h.loop.Done()
}

type keyListener struct {
	req       trialout.KeyboardRequest
	start     time.Time
	cancelled bool
}

func (h *LoopHost) Listen(req trialout.KeyboardRequest) trialout.Handle {
	l := &keyListener{req: req, start: h.clock.Now()}
	h.listeners = append(h.listeners, l)
	return &onceHandle{fn: func() { h.removeListener(l) }}
}

func (h *LoopHost) removeListener(target *keyListener) {
	target.cancelled = true
	kept := h.listeners[:0]
	for _, l := range h.listeners {
		if l != target {
			kept = append(kept, l)
		}
	}
	h.listeners = kept
}

func (h *LoopHost) CancelAll() {
	for _, l := range h.listeners {
		l.cancelled = true
	}
	h.listeners = nil
}

// Press delivers a key from an input device.
func (h *LoopHost) Press(key string) {
	h.loop.Post(func() { h.dispatchKey(key) })
}

// PressKey delivers a synthetic key after delay. It is called on the loop and
// the pending press is a timeout, so ClearAll drops it when the trial ends.
func (h *LoopHost) PressKey(key string, delay time.Duration) {
	h.SetTimeout(func() { h.dispatchKey(key) }, delay)
}

func (h *LoopHost) dispatchKey(key string) {
	key = domain.NormalizeKey(key)
	snapshot := append([]*keyListener(nil), h.listeners...)
	for _, l := range snapshot {
		if l.cancelled || !l.req.ValidKeys.Allows(key) {
			continue
		}
		rt := clock.ElapsedMS(h.clock, l.start)
		if !l.req.Persist {
			h.removeListener(l)
		}
		l.req.Callback(trialout.KeyboardResponse{Key: key, RT: rt})
	}
}

func (h *LoopHost) SetTimeout(fn func(), d time.Duration) trialout.Handle {
	var t *eventloop.Timer
	t = h.loop.AfterFunc(d, func() {
		delete(h.timers, t)
		fn()
	})
	h.timers[t] = struct{}{}
	return &onceHandle{fn: func() {
		t.Stop()
		delete(h.timers, t)
	}}
}

func (h *LoopHost) ClearAll() {
	for t := range h.timers {
		t.Stop()
	}
	clear(h.timers)
}

func (h *LoopHost) Render(root *domain.Element) error {
	if root == nil {
		return fmt.Errorf("render: empty layout")
	}
	h.layout = root.Clone()
	h.publish()
	return nil
}

func (h *LoopHost) Player(id string) (trialout.Player, error) {
	if p, ok := h.players[id]; ok {
		return p, nil
	}
	video := h.layout.Find(id)
	if video == nil || video.Tag != "video" {
		return nil, fmt.Errorf("no video element %q", id)
	}
	source, _ := video.Attr("src")
	if source == "" && len(video.Children) > 0 {
		source, _ = video.Children[0].Attr("src")
	}
	p := &virtualPlayer{
		host:     h,
		id:       id,
		source:   source,
		duration: h.durationOf(source),
		rate:     1,
		visible:  true,
	}
	h.players[id] = p
	return p, nil
}

func (h *LoopHost) Clear() {
	for _, p := range h.players {
		p.stopTicker()
	}
	clear(h.players)
	h.layout = nil
	h.publish()
}

func (h *LoopHost) FinishTrial(result domain.TrialResult) {
	h.finished++
	h.logger.Info("trial finished", "trial", h.finished, "responses", result.Len())
}

// Frame returns the latest published display state.
func (h *LoopHost) Frame() domain.Frame {
	h.frameMu.Lock()
	defer h.frameMu.Unlock()
	frame := h.frame
	frame.Videos = append([]domain.VideoFrame(nil), h.frame.Videos...)
	frame.Markers = append([]domain.MarkerFrame(nil), h.frame.Markers...)
	return frame
}

func (h *LoopHost) publish() {
	frame := domain.FrameFromLayout(h.layout)
	for i := range frame.Videos {
		p, ok := h.players[frame.Videos[i].ID]
		if !ok {
			continue
		}
		frame.Videos[i].Playing = p.playing
		frame.Videos[i].Position = p.position
		frame.Videos[i].Duration = p.duration
		frame.Videos[i].Visible = frame.Videos[i].Visible && p.visible
	}
	h.frameMu.Lock()
	h.frame = frame
	h.frameMu.Unlock()
}

// virtualPlayer advances a clock instead of decoding media. Events are
// delivered on the loop after the call that caused them returns.
type virtualPlayer struct {
	host     *LoopHost
	id       string
	source   string
	duration float64
	position float64
	rate     float64
	muted    bool
	visible  bool
	playing  bool
	events   trialout.PlayerEvents
	bound    bool
	ticker   *eventloop.Timer
}

func (p *virtualPlayer) Play() {
	if p.playing {
		return
	}
	if p.position >= p.duration {
		p.position = 0
	}
	p.playing = true
	p.emit(func(ev trialout.PlayerEvents) {
		if ev.OnPlaying != nil {
			ev.OnPlaying()
		}
	})
	p.schedule()
	p.host.publish()
}

func (p *virtualPlayer) Pause() {
	p.playing = false
	p.stopTicker()
	p.host.publish()
}

func (p *virtualPlayer) Seek(seconds float64) {
	p.position = min(max(seconds, 0), p.duration)
	p.emit(func(ev trialout.PlayerEvents) {
		if ev.OnSeeked != nil {
			ev.OnSeeked()
		}
	})
	p.host.publish()
}

func (p *virtualPlayer) SetMuted(muted bool) {
	p.muted = muted
}

func (p *virtualPlayer) SetRate(rate float64) {
	if rate <= 0 {
		rate = 1
	}
	p.rate = rate
}

func (p *virtualPlayer) SetVisible(visible bool) {
	p.visible = visible
	p.host.publish()
}

func (p *virtualPlayer) Bind(events trialout.PlayerEvents) {
	p.events = events
	p.bound = true
}

func (p *virtualPlayer) Unbind() {
	p.events = trialout.PlayerEvents{}
	p.bound = false
}

func (p *virtualPlayer) emit(fn func(trialout.PlayerEvents)) {
	p.host.loop.Post(func() {
		if p.bound {
			fn(p.events)
		}
	})
}

func (p *virtualPlayer) schedule() {
	p.stopTicker()
	p.ticker = p.host.loop.AfterFunc(p.host.tick, p.advance)
}

func (p *virtualPlayer) stopTicker() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}

func (p *virtualPlayer) advance() {
	p.ticker = nil
	if !p.playing {
		return
	}
	p.position += p.host.tick.Seconds() * p.rate
	ended := p.position >= p.duration
	if ended {
		p.position = p.duration
		p.playing = false
	}
	p.host.publish()
	if p.bound && p.events.OnTimeUpdate != nil {
		p.events.OnTimeUpdate(p.position)
	}
	if ended {
		if p.bound && p.events.OnEnded != nil {
			p.events.OnEnded()
		}
		return
	}
	if p.playing && p.ticker == nil {
		p.schedule()
	}
}
