package out

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"evseg/internal/modules/trial/domain"
	"evseg/internal/modules/trial/service"
	apperrors "evseg/internal/platform/errors"
	"evseg/internal/platform/eventloop"
	"evseg/internal/platform/logging"
)

type fixedProber struct{ seconds float64 }

func (p fixedProber) Duration(context.Context, string) (float64, error) {
	return p.seconds, nil
}

func startHost(t *testing.T, opts LoopHostOptions) *LoopHost {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	host := NewLoopHost(eventloop.New(), logging.Discard(), opts)
	go func() { _ = host.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-host.Done()
	})
	return host
}

func fastOptions() LoopHostOptions {
	return LoopHostOptions{TickInterval: 5 * time.Millisecond, DefaultDuration: 0.05}
}

func runTrial(t *testing.T, host *LoopHost, cfg domain.TrialConfig) (domain.TrialResult, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return service.NewTrialService(host, logging.Discard()).Run(ctx, cfg)
}

func cfgFor(stimuli ...string) domain.TrialConfig {
	cfg := domain.DefaultTrialConfig()
	cfg.Stimulus = stimuli
	cfg.Width = 400
	return cfg
}

func TestLoopHostTrialEndsAfterVideo(t *testing.T) {
	t.Parallel()

	host := startHost(t, fastOptions())
	cfg := cfgFor("a.mp4")
	cfg.TrialEndsAfterVideo = true
	result, err := runTrial(t, host, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Len() != 0 {
		t.Fatalf("expected no responses, got %+v", result)
	}
	if !host.Frame().Cleared {
		t.Fatal("surface must be cleared after the trial")
	}
}

func TestLoopHostClipStartAndStop(t *testing.T) {
	t.Parallel()

	host := startHost(t, LoopHostOptions{TickInterval: 5 * time.Millisecond, DefaultDuration: 10})
	cfg := cfgFor("a.mp4", "b.mp4")
	start, stop := 1.0, 1.03
	cfg.Start = &start
	cfg.Stop = &stop
	cfg.TrialEndsAfterVideo = true
	if _, err := runTrial(t, host, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestLoopHostTrialDurationTimeout(t *testing.T) {
	t.Parallel()

	host := startHost(t, LoopHostOptions{TickInterval: 5 * time.Millisecond, DefaultDuration: 60})
	cfg := cfgFor("a.mp4")
	limit := 30
	cfg.TrialDuration = &limit
	began := time.Now()
	result, err := runTrial(t, host, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Len() != 0 || time.Since(began) < 30*time.Millisecond {
		t.Fatalf("expected timeout after 30ms, got %+v", result)
	}
}

func TestLoopHostSimulatedKeyPress(t *testing.T) {
	t.Parallel()

	host := startHost(t, LoopHostOptions{TickInterval: 5 * time.Millisecond, DefaultDuration: 60})
	cfg := cfgFor("clips/a.mp4")
	cfg.Choices = domain.KeySet("f")
	rt := 20.0
	key := "F"
	sim := service.NewSimulator(NewRandomizer(1), host, service.NewTrialService(host, logging.Discard()), host, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, _, err := sim.Visual(ctx, cfg, domain.SimulationOptions{RT: &rt, Response: &key})
	if err != nil {
		t.Fatalf("visual: %v", err)
	}
	if result.Len() != 1 || result.Key[0] != "f" || result.StimInTrial[0] != "a.mp4" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.RT[0] < 15 {
		t.Fatalf("reaction time must be measured from listener registration, got %v", result.RT[0])
	}
}

func TestLoopHostGatedSimulationWaitsForEnd(t *testing.T) {
	t.Parallel()

	host := startHost(t, fastOptions())
	cfg := cfgFor("a.mp4")
	cfg.ResponseAllowedWhilePlaying = false
	rt := 5.0
	sim := service.NewSimulator(NewRandomizer(7), host, service.NewTrialService(host, logging.Discard()), host, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	began := time.Now()
	result, _, err := sim.Visual(ctx, cfg, domain.SimulationOptions{RT: &rt})
	if err != nil {
		t.Fatalf("visual: %v", err)
	}
	if result.Len() != 1 {
		t.Fatalf("expected one gated response, got %+v", result)
	}
	if time.Since(began) < 50*time.Millisecond {
		t.Fatal("gated response must wait for playback to end")
	}
}

func TestLoopHostAbortOnCancel(t *testing.T) {
	t.Parallel()

	host := startHost(t, LoopHostOptions{TickInterval: 5 * time.Millisecond, DefaultDuration: 60})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := service.NewTrialService(host, logging.Discard()).Run(ctx, cfgFor("a.mp4"))
	if !errors.Is(err, apperrors.ErrTrialAborted) {
		t.Fatalf("expected ErrTrialAborted, got %v", err)
	}
}

func TestLoopHostMonitorPress(t *testing.T) {
	t.Parallel()

	host := startHost(t, LoopHostOptions{TickInterval: 5 * time.Millisecond, DefaultDuration: 60})
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if frame := host.Frame(); !frame.Cleared && len(frame.Videos) == 1 && frame.Videos[0].Playing {
				host.Press(" ")
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()
	result, err := runTrial(t, host, cfgFor("a.mp4"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Len() != 1 || result.Key[0] != " " {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestLoopHostPreload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	host := NewLoopHost(eventloop.New(), logging.Discard(), LoopHostOptions{Prober: fixedProber{seconds: 12.5}})
	if err := host.Preload(context.Background(), []string{"a.mp4?v=1", "missing.mp4", "https://cdn/x.mp4"}, dir); err != nil {
		t.Fatalf("preload: %v", err)
	}
	buffer, ok := host.VideoBuffer("a.mp4?v=1")
	if !ok || buffer != filepath.Join(dir, "a.mp4") {
		t.Fatalf("unexpected buffer %q %v", buffer, ok)
	}
	if got := host.durationOf(buffer); got != 12.5 {
		t.Fatalf("expected probed duration, got %v", got)
	}
	if _, ok := host.VideoBuffer("missing.mp4"); ok {
		t.Fatal("missing file must not be buffered")
	}
	if got := host.durationOf("missing.mp4"); got != 30 {
		t.Fatalf("expected default duration, got %v", got)
	}
}

func TestLoopHostPendingPressDoesNotLeakIntoNextTrial(t *testing.T) {
	t.Parallel()

	host := startHost(t, fastOptions())
	trials := service.NewTrialService(host, logging.Discard())
	sim := service.NewSimulator(NewRandomizer(3), host, trials, host, logging.Discard())

	first := cfgFor("a.mp4")
	first.TrialEndsAfterVideo = true
	rt := 300.0
	key := "j"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, _, err := sim.Visual(ctx, first, domain.SimulationOptions{RT: &rt, Response: &key})
	if err != nil {
		t.Fatalf("visual: %v", err)
	}
	if result.Len() != 0 {
		t.Fatalf("trial ended with the video before the press, got %+v", result)
	}

	second := cfgFor("b.mp4")
	limit := 500
	second.TrialDuration = &limit
	second.Choices = domain.AllKeys()
	result, err = runTrial(t, host, second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Len() != 0 {
		t.Fatalf("press from the previous trial was recorded: %+v", result)
	}
}
