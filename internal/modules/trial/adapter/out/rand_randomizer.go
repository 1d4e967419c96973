package out

import (
	"math"
	"math/rand/v2"
	"sync"

	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
)

// Randomizer draws simulated responses from a seeded PCG source.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomizer(seed uint64) trialout.Randomizer {
	return &Randomizer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SampleExGaussian returns normal(mean, sd) plus an exponential with the
// given rate. With positive set, non-positive draws are redrawn.
func (r *Randomizer) SampleExGaussian(mean, sd, rate float64, positive bool) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		v := mean + sd*r.rng.NormFloat64() + r.exponential(rate)
		if !positive || v > 0 {
			return v
		}
	}
}

func (r *Randomizer) exponential(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	u := r.rng.Float64()
	for u == 0 {
		u = r.rng.Float64()
	}
	return -math.Log(u) / rate
}

// ValidKey draws uniformly from the allowed keys.
func (r *Randomizer) ValidKey(choices domain.Choices) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch choices.Mode {
	case domain.ChoicesNone:
		return "", false
	case domain.ChoicesSet:
		if len(choices.Keys) == 0 {
			return "", false
		}
		return choices.Keys[r.rng.IntN(len(choices.Keys))], true
	default:
		return domain.SimulatedKeys[r.rng.IntN(len(domain.SimulatedKeys))], true
	}
}
