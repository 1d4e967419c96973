package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"evseg/internal/modules/trial/domain"
	apperrors "evseg/internal/platform/errors"
	"evseg/internal/platform/logging"
)

func TestDataOnlyFinishesOnceWithAllowedKey(t *testing.T) {
	t.Parallel()

	allowed := []string{"f", "j", "k"}
	for pick := 0; pick < 6; pick++ {
		completion := &captureCompletion{}
		sim := NewSimulator(fakeRandom{rt: 480, pick: pick}, completion, nil, nil, logging.Discard())
		cfg := trialConfig("clips/a.mp4")
		cfg.Choices = domain.KeySet(allowed...)

		result, data, err := sim.DataOnly(cfg, domain.SimulationOptions{})
		if err != nil {
			t.Fatalf("data-only: %v", err)
		}
		if len(completion.results) != 1 {
			t.Fatalf("expected exactly one finish, got %d", len(completion.results))
		}
		if result.Len() != 1 || !slices.Contains(allowed, result.Key[0]) {
			t.Fatalf("unexpected key in %+v", result)
		}
		if result.RT[0] != 480 || result.StimInTrial[0] != "a.mp4" || data.Stimulus != "a.mp4" {
			t.Fatalf("unexpected result %+v", result)
		}
	}
}

func TestDataOnlyWithNoKeysHasNoResponse(t *testing.T) {
	t.Parallel()

	completion := &captureCompletion{}
	sim := NewSimulator(fakeRandom{rt: 480}, completion, nil, nil, logging.Discard())
	cfg := trialConfig("a.mp4")
	cfg.Choices = domain.NoKeys()
	result, _, err := sim.DataOnly(cfg, domain.SimulationOptions{})
	if err != nil {
		t.Fatalf("data-only: %v", err)
	}
	if len(completion.results) != 1 || result.Len() != 0 {
		t.Fatalf("expected one empty result, got %+v", completion.results)
	}
}

func TestDataOnlyAppliesOverrides(t *testing.T) {
	t.Parallel()

	completion := &captureCompletion{}
	sim := NewSimulator(fakeRandom{rt: 480}, completion, nil, nil, logging.Discard())
	key := "z"
	result, _, err := sim.DataOnly(trialConfig("a.mp4"), domain.SimulationOptions{RT: floatPtr(1234), Response: &key})
	if err != nil {
		t.Fatalf("data-only: %v", err)
	}
	if result.RT[0] != 1234 || result.Key[0] != "z" {
		t.Fatalf("overrides not applied: %+v", result)
	}
}

func TestDataOnlyRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	completion := &captureCompletion{}
	sim := NewSimulator(fakeRandom{}, completion, nil, nil, logging.Discard())
	if _, _, err := sim.DataOnly(domain.DefaultTrialConfig(), domain.SimulationOptions{}); !errors.Is(err, domain.ErrStimulusNotArray) {
		t.Fatalf("expected ErrStimulusNotArray, got %v", err)
	}
	if len(completion.results) != 0 {
		t.Fatal("invalid config must not finish")
	}
}

func TestDataOnlyRejectsNonFiniteReactionTime(t *testing.T) {
	t.Parallel()

	for _, rt := range []float64{math.NaN(), math.Inf(1), -1} {
		completion := &captureCompletion{}
		sim := NewSimulator(fakeRandom{rt: 480}, completion, nil, nil, logging.Discard())
		_, _, err := sim.DataOnly(trialConfig("a.mp4"), domain.SimulationOptions{RT: floatPtr(rt)})
		if !errors.Is(err, apperrors.ErrInvalidInput) || !errors.Is(err, domain.ErrInvalidReactionTime) {
			t.Fatalf("rt %v: expected invalid input, got %v", rt, err)
		}
		if len(completion.results) != 0 {
			t.Fatalf("rt %v: rejected simulation must not finish", rt)
		}
	}
}

func TestVisualRequiresHost(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(fakeRandom{}, &captureCompletion{}, nil, nil, logging.Discard())
	if _, _, err := sim.Visual(context.Background(), trialConfig("a.mp4"), domain.SimulationOptions{}); !errors.Is(err, ErrVisualUnavailable) {
		t.Fatalf("expected ErrVisualUnavailable, got %v", err)
	}
}

func TestVisualPressesImmediatelyWhenResponsesAllowed(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	trials := NewTrialService(host, logging.Discard())
	sim := NewSimulator(fakeRandom{rt: 700, pick: 1}, host, trials, host, logging.Discard())
	cfg := trialConfig("a.mp4")
	cfg.Choices = domain.KeySet("f", "j")

	outcome := make(chan runOutcome, 1)
	go func() {
		result, _, err := sim.Visual(context.Background(), cfg, domain.SimulationOptions{})
		outcome <- runOutcome{result: result, err: err}
	}()
	waitMounted(t, host)

	presses := host.pressed()
	if len(presses) != 1 || presses[0].key != "j" || presses[0].delay != 700*time.Millisecond {
		t.Fatalf("expected j pressed after 700ms, got %+v", presses)
	}
	host.press(presses[0].key, 700)
	out := waitOutcome(t, outcome)
	if out.err != nil || out.result.Len() != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestVisualGatedPressesAfterPlayback(t *testing.T) {
	t.Parallel()

	host := newFakeHost()
	trials := NewTrialService(host, logging.Discard())
	sim := NewSimulator(fakeRandom{rt: 300}, host, trials, host, logging.Discard())
	cfg := trialConfig("a.mp4")
	cfg.Choices = domain.KeySet("f")
	cfg.ResponseAllowedWhilePlaying = false

	outcome := make(chan runOutcome, 1)
	go func() {
		result, _, err := sim.Visual(context.Background(), cfg, domain.SimulationOptions{})
		outcome <- runOutcome{result: result, err: err}
	}()
	waitMounted(t, host)

	if len(host.pressed()) != 0 {
		t.Fatal("gated trial must not press before playback ends")
	}
	host.player(0).emitEnded()
	presses := host.pressed()
	if len(presses) != 1 || presses[0].key != "f" {
		t.Fatalf("expected f pressed after playback, got %+v", presses)
	}
	host.press("f", 300)
	out := waitOutcome(t, outcome)
	if out.err != nil || out.result.Len() != 1 || out.result.RT[0] != 300 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
