package service

import (
	"errors"
	"fmt"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
)

var ErrAlreadyMounted = errors.New("trial already mounted")

// Controller drives one trial. Every method must be called from the host's
// single logical thread; the controller owns its state and holds no locks.
type Controller struct {
	cfg      domain.TrialConfig
	rt       trialout.Runtime
	logger   hclog.Logger
	onFinish func(domain.TrialResult)

	phase   domain.Phase
	layout  *domain.Element
	label   string
	width   float64
	span    float64
	states  []*domain.PlaybackState
	players []trialout.Player
	log     domain.ResponseLog

	listener trialout.Handle
	deferred trialout.Handle
	timeout  trialout.Handle

	deferredArmed bool
	playbackOver  bool
	afterPlayback []func()
	finalized     bool
	result        domain.TrialResult
}

// NewController validates cfg. onFinish, when set, runs after the host has
// been handed the result.
func NewController(cfg domain.TrialConfig, rt trialout.Runtime, logger hclog.Logger, onFinish func(domain.TrialResult)) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	span := cfg.TimelineSpanMS
	if span <= 0 {
		span = domain.DefaultTimelineSpanMS
	}
	return &Controller{
		cfg:      cfg,
		rt:       rt,
		logger:   logger.Named("controller"),
		onFinish: onFinish,
		phase:    domain.PhaseLoading,
		label:    cfg.StimulusLabel(),
		width:    float64(cfg.Width),
		span:     span,
	}, nil
}

// Mount renders the trial, wires the players and starts response collection.
func (c *Controller) Mount() error {
	if c.phase != domain.PhaseLoading {
		return ErrAlreadyMounted
	}
	layout, warnings := BuildLayout(c.cfg, c.rt)
	for _, warning := range warnings {
		c.logger.Warn(warning)
	}
	c.layout = layout
	if err := c.rt.Render(c.layout); err != nil {
		c.teardown()
		return fmt.Errorf("render trial: %w", err)
	}

	for i := range c.cfg.Stimulus {
		id := domain.VideoElementID(i)
		player, err := c.rt.Player(id)
		if err != nil {
			c.teardown()
			return fmt.Errorf("attach %s: %w", id, err)
		}
		player.SetRate(c.cfg.Rate)
		player.SetMuted(c.cfg.Mute)
		player.Bind(c.eventsFor(i))
		c.players = append(c.players, player)
		c.states = append(c.states, &domain.PlaybackState{
			Index:     i,
			ElementID: id,
			Visible:   c.cfg.Start == nil,
		})
	}

	for _, player := range c.players {
		switch {
		case c.cfg.Start != nil:
			// Some players refuse to seek before playback begins, so start
			// hidden and silent, then seek once playing.
			player.Pause()
			player.SetMuted(true)
			player.SetVisible(false)
			player.Play()
		case c.cfg.Autoplay:
			player.Play()
		}
	}
	c.phase = domain.PhasePlaying

	if c.cfg.Choices.AcceptsAny() && c.cfg.ResponseAllowedWhilePlaying {
		c.listener = c.rt.Listen(trialout.KeyboardRequest{
			Callback:  c.onResponse,
			ValidKeys: c.cfg.Choices,
			Persist:   true,
		})
	}
	if c.cfg.TrialDuration != nil {
		c.timeout = c.rt.SetTimeout(c.finalize, time.Duration(*c.cfg.TrialDuration)*time.Millisecond)
	}
	c.logger.Debug("trial mounted", "stimuli", len(c.players), "gated", c.cfg.ResponsesGated())
	return nil
}

// Abort ends the trial early through the normal finalization path.
func (c *Controller) Abort() {
	c.finalize()
}

// OnPlaybackEnded registers fn to run once playback has stopped producing
// output and any deferred listener is armed.
func (c *Controller) OnPlaybackEnded(fn func()) {
	if c.finalized {
		return
	}
	if c.playbackOver {
		fn()
		return
	}
	c.afterPlayback = append(c.afterPlayback, fn)
}

func (c *Controller) Phase() domain.Phase {
	return c.phase
}

func (c *Controller) Result() (domain.TrialResult, bool) {
	return c.result, c.finalized
}

func (c *Controller) Responses() []domain.Response {
	return c.log.Entries()
}

func (c *Controller) States() []domain.PlaybackState {
	out := make([]domain.PlaybackState, 0, len(c.states))
	for _, state := range c.states {
		out = append(out, *state)
	}
	return out
}

func (c *Controller) eventsFor(i int) trialout.PlayerEvents {
	return trialout.PlayerEvents{
		OnPlaying:    func() { c.onPlaying(i) },
		OnSeeked:     func() { c.onSeeked(i) },
		OnTimeUpdate: func(position float64) { c.onTimeUpdate(i, position) },
		OnEnded:      func() { c.onEnded(i) },
	}
}

func (c *Controller) onPlaying(i int) {
	state := c.states[i]
	if c.finalized || c.cfg.Start == nil || state.SeekIssued {
		return
	}
	state.SeekIssued = true
	c.players[i].Seek(*c.cfg.Start)
}

func (c *Controller) onSeeked(i int) {
	state := c.states[i]
	if c.finalized || c.cfg.Start == nil || !state.SeekIssued || state.Seeked {
		return
	}
	state.Seeked = true
	state.Visible = true
	player := c.players[i]
	player.SetVisible(true)
	player.SetMuted(c.cfg.Mute)
	if video := c.layout.Find(state.ElementID); video != nil {
		video.SetStyle("visibility", "visible")
		c.render()
	}
	if c.cfg.Autoplay {
		player.Play()
	} else {
		player.Pause()
	}
}

func (c *Controller) onTimeUpdate(i int, position float64) {
	if c.finalized || c.cfg.Stop == nil || position < *c.cfg.Stop {
		return
	}
	c.players[i].Pause()
	state := c.states[i]
	if state.Stopped {
		return
	}
	state.Stopped = true
	c.logger.Trace("stop boundary reached", "element", state.ElementID, "position", position)
	c.playbackDone()
}

func (c *Controller) onEnded(i int) {
	state := c.states[i]
	if c.finalized || state.Ended {
		return
	}
	state.Ended = true
	c.playbackDone()
}

func (c *Controller) playbackDone() {
	if c.cfg.TrialEndsAfterVideo {
		c.finalize()
		return
	}
	if c.cfg.ResponsesGated() {
		c.armDeferred()
	}
	if c.phase == domain.PhasePlaying {
		c.phase = domain.PhaseEnded
	}
	if c.playbackOver {
		return
	}
	c.playbackOver = true
	hooks := c.afterPlayback
	c.afterPlayback = nil
	for _, fn := range hooks {
		fn()
	}
}

func (c *Controller) armDeferred() {
	if c.deferredArmed || !c.cfg.Choices.AcceptsAny() {
		return
	}
	c.deferredArmed = true
	c.phase = domain.PhaseAwaitingResponse
	c.deferred = c.rt.Listen(trialout.KeyboardRequest{
		Callback:  c.onResponse,
		ValidKeys: c.cfg.Choices,
		Persist:   false,
	})
}

func (c *Controller) onResponse(resp trialout.KeyboardResponse) {
	if c.finalized {
		return
	}
	if err := c.log.Append(domain.Response{RT: resp.RT, Key: resp.Key, Stimulus: c.label}); err != nil {
		c.logger.Warn("response dropped", "key", resp.Key, "error", err)
		return
	}
	for _, state := range c.states {
		if video := c.layout.Find(state.ElementID); video != nil {
			video.AddClass(domain.RespondedCSS)
		}
	}
	if prompt := c.layout.Find(domain.PromptID); prompt != nil {
		x := domain.MarkerX(c.width, resp.RT, c.span)
		prompt.Append(domain.MarkerElement(c.log.Len()-1, x, resp.RT))
	}
	c.render()
	c.logger.Debug("response recorded", "key", resp.Key, "rt", resp.RT)
	if c.cfg.ResponseEndsTrial {
		c.finalize()
	}
}

func (c *Controller) render() {
	if err := c.rt.Render(c.layout); err != nil {
		c.logger.Warn("render failed", "error", err)
	}
}

// finalize produces the single result of the trial. Later calls are no-ops.
func (c *Controller) finalize() {
	if c.finalized {
		return
	}
	c.finalized = true
	c.release()
	c.log.Seal()
	c.result = domain.NewTrialResult(c.cfg, c.log.Entries())
	c.rt.Clear()
	c.layout = nil
	c.phase = domain.PhaseFinalized
	c.logger.Debug("trial finalized", "responses", c.result.Len())
	c.rt.FinishTrial(c.result)
	if c.onFinish != nil {
		c.onFinish(c.result)
	}
}

// teardown undoes a partial mount without reporting a result.
func (c *Controller) teardown() {
	c.finalized = true
	c.release()
	c.log.Seal()
	c.rt.Clear()
	c.layout = nil
	c.phase = domain.PhaseFinalized
}

func (c *Controller) release() {
	for _, handle := range []trialout.Handle{c.timeout, c.listener, c.deferred} {
		if handle != nil {
			handle.Cancel()
		}
	}
	c.timeout, c.listener, c.deferred = nil, nil, nil
	c.rt.ClearAll()
	c.rt.CancelAll()
	for i, player := range c.players {
		player.Pause()
		player.Unbind()
		c.states[i].Detached = true
	}
}
