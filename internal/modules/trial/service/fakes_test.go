package service

import (
	"errors"
	"sync"
	"time"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
)

type fakeHandle struct {
	cancelled bool
	onCancel  func()
}

func (h *fakeHandle) Cancel() {
	if h.cancelled {
		return
	}
	h.cancelled = true
	if h.onCancel != nil {
		h.onCancel()
	}
}

type fakePlayer struct {
	id       string
	events   trialout.PlayerEvents
	bound    bool
	playing  bool
	muted    bool
	visible  bool
	rate     float64
	seeks    []float64
	plays    int
	pauses   int
	unbounds int
}

func (p *fakePlayer) Play() { p.playing = true; p.plays++ }
func (p *fakePlayer) Pause() { p.playing = false; p.pauses++ }
func (p *fakePlayer) Seek(seconds float64) { p.seeks = append(p.seeks, seconds) }
func (p *fakePlayer) SetMuted(muted bool) { p.muted = muted }
func (p *fakePlayer) SetRate(rate float64) { p.rate = rate }
func (p *fakePlayer) SetVisible(visible bool) { p.visible = visible }
func (p *fakePlayer) Bind(events trialout.PlayerEvents) {
	p.events = events
	p.bound = true
}
func (p *fakePlayer) Unbind() {
	p.events = trialout.PlayerEvents{}
	p.bound = false
	p.unbounds++
}

func (p *fakePlayer) emitPlaying() {
	if p.events.OnPlaying != nil {
		p.events.OnPlaying()
	}
}

func (p *fakePlayer) emitSeeked() {
	if p.events.OnSeeked != nil {
		p.events.OnSeeked()
	}
}

func (p *fakePlayer) emitTime(position float64) {
	if p.events.OnTimeUpdate != nil {
		p.events.OnTimeUpdate(position)
	}
}

func (p *fakePlayer) emitEnded() {
	if p.events.OnEnded != nil {
		p.events.OnEnded()
	}
}

type fakeListener struct {
	req    trialout.KeyboardRequest
	handle *fakeHandle
}

type fakeTimer struct {
	fn     func()
	delay  time.Duration
	handle *fakeHandle
}

// fakeRuntime is a synchronous host: tests drive media events, key presses
// and timers by hand.
type fakeRuntime struct {
	buffers   map[string]string
	players   map[string]*fakePlayer
	playerErr error
	renderErr error

	listeners []*fakeListener
	timers    []*fakeTimer

	renders    int
	lastLayout *domain.Element
	cleared    int
	clearAll   int
	cancelAll  int
	finished   []domain.TrialResult
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		buffers: map[string]string{},
		players: map[string]*fakePlayer{},
	}
}

func (r *fakeRuntime) VideoBuffer(ref string) (string, bool) {
	buffer, ok := r.buffers[ref]
	return buffer, ok
}

func (r *fakeRuntime) Listen(req trialout.KeyboardRequest) trialout.Handle {
	l := &fakeListener{req: req}
	l.handle = &fakeHandle{onCancel: func() { r.removeListener(l) }}
	r.listeners = append(r.listeners, l)
	return l.handle
}

func (r *fakeRuntime) removeListener(target *fakeListener) {
	out := r.listeners[:0]
	for _, l := range r.listeners {
		if l != target {
			out = append(out, l)
		}
	}
	r.listeners = out
}

func (r *fakeRuntime) CancelAll() {
	r.cancelAll++
	r.listeners = nil
}

func (r *fakeRuntime) SetTimeout(fn func(), d time.Duration) trialout.Handle {
	t := &fakeTimer{fn: fn, delay: d, handle: &fakeHandle{}}
	r.timers = append(r.timers, t)
	return t.handle
}

func (r *fakeRuntime) ClearAll() {
	r.clearAll++
	for _, t := range r.timers {
		t.handle.cancelled = true
	}
}

func (r *fakeRuntime) Render(root *domain.Element) error {
	if r.renderErr != nil {
		return r.renderErr
	}
	r.renders++
	r.lastLayout = root.Clone()
	return nil
}

func (r *fakeRuntime) Player(id string) (trialout.Player, error) {
	if r.playerErr != nil {
		return nil, r.playerErr
	}
	p, ok := r.players[id]
	if !ok {
		p = &fakePlayer{id: id, visible: true}
		r.players[id] = p
	}
	return p, nil
}

func (r *fakeRuntime) Clear() {
	r.cleared++
	r.lastLayout = nil
}

func (r *fakeRuntime) FinishTrial(result domain.TrialResult) {
	r.finished = append(r.finished, result)
}

// press delivers a key to every live listener that accepts it.
func (r *fakeRuntime) press(key string, rt float64) {
	for _, l := range append([]*fakeListener(nil), r.listeners...) {
		if l.handle.cancelled || !l.req.ValidKeys.Allows(key) {
			continue
		}
		if !l.req.Persist {
			l.handle.Cancel()
		}
		l.req.Callback(trialout.KeyboardResponse{Key: key, RT: rt})
	}
}

// fireTimers runs every pending timer that has not been cancelled.
func (r *fakeRuntime) fireTimers() {
	for _, t := range append([]*fakeTimer(nil), r.timers...) {
		if t.handle.cancelled {
			continue
		}
		t.handle.cancelled = true
		t.fn()
	}
}

func (r *fakeRuntime) player(i int) *fakePlayer {
	return r.players[domain.VideoElementID(i)]
}

// fakeHost runs posted callbacks synchronously on the caller's goroutine.
type fakeHost struct {
	*fakeRuntime
	mu      sync.Mutex
	done    chan struct{}
	mounted chan struct{}
	stopped bool
	presses []press
}

type press struct {
	key   string
	delay time.Duration
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		fakeRuntime: newFakeRuntime(),
		done:        make(chan struct{}),
		mounted:     make(chan struct{}, 16),
	}
}

func (h *fakeHost) Post(fn func()) bool {
	if h.stopped {
		return false
	}
	fn()
	select {
	case h.mounted <- struct{}{}:
	default:
	}
	return true
}

func (h *fakeHost) Done() <-chan struct{} {
	return h.done
}

func (h *fakeHost) PressKey(key string, delay time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presses = append(h.presses, press{key: key, delay: delay})
}

func (h *fakeHost) pressed() []press {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]press(nil), h.presses...)
}

type fakeRandom struct {
	rt   float64
	pick int
}

func (r fakeRandom) SampleExGaussian(_, _, _ float64, _ bool) float64 {
	return r.rt
}

func (r fakeRandom) ValidKey(choices domain.Choices) (string, bool) {
	switch choices.Mode {
	case domain.ChoicesNone:
		return "", false
	case domain.ChoicesSet:
		if len(choices.Keys) == 0 {
			return "", false
		}
		return choices.Keys[r.pick%len(choices.Keys)], true
	default:
		return domain.SimulatedKeys[r.pick%len(domain.SimulatedKeys)], true
	}
}

type captureCompletion struct {
	results []domain.TrialResult
}

func (c *captureCompletion) FinishTrial(result domain.TrialResult) {
	c.results = append(c.results, result)
}

var errNoPlayer = errors.New("no such player")

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func trialConfig(stimuli ...string) domain.TrialConfig {
	cfg := domain.DefaultTrialConfig()
	cfg.Stimulus = stimuli
	cfg.Width = 200
	return cfg
}
