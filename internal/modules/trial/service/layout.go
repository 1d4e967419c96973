package service

import (
	"evseg/internal/modules/trial/domain"
	trialout "evseg/internal/modules/trial/port/out"
)

// BuildLayout resolves preloaded buffers and returns the initial display tree,
// baseline included when the prompt is enabled. buffers may be nil.
func BuildLayout(cfg domain.TrialConfig, buffers trialout.Buffers) (*domain.Element, []string) {
	resolved := make([]string, len(cfg.Stimulus))
	if buffers != nil {
		for i, ref := range cfg.Stimulus {
			if buffer, ok := buffers.VideoBuffer(ref); ok {
				resolved[i] = buffer
			}
		}
	}
	layout, warnings := domain.BuildLayout(cfg, resolved)
	if cfg.Prompt {
		if prompt := layout.Find(domain.PromptID); prompt != nil {
			prompt.Append(domain.LineElement(domain.LineID, domain.Baseline(float64(cfg.Width))))
		}
	}
	return layout, warnings
}
