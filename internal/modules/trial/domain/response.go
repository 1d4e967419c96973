package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Response is one accepted key press.
type Response struct {
	RT       float64
	Key      string
	Stimulus string
}

// ResponseLog grows by Append until Seal; entries are never rewritten.
type ResponseLog struct {
	entries []Response
	sealed  bool
}

func (l *ResponseLog) Append(r Response) error {
	if l.sealed {
		return ErrLogSealed
	}
	l.entries = append(l.entries, r)
	return nil
}

func (l *ResponseLog) Seal() {
	l.sealed = true
}

func (l *ResponseLog) Sealed() bool {
	return l.sealed
}

func (l *ResponseLog) Len() int {
	return len(l.entries)
}

func (l *ResponseLog) Entries() []Response {
	return slices.Clone(l.entries)
}

// TrialResult is the payload handed to the host when a trial ends.
type TrialResult struct {
	ParticipantID int       `json:"participant_id"`
	RT            []float64 `json:"rt"`
	Key           []string  `json:"key"`
	StimInTrial   []string  `json:"stimInTrial"`
}

func NewTrialResult(cfg TrialConfig, entries []Response) TrialResult {
	result := TrialResult{
		ParticipantID: cfg.ParticipantID,
		RT:            make([]float64, 0, len(entries)),
		Key:           make([]string, 0, len(entries)),
		StimInTrial:   make([]string, 0, len(entries)),
	}
	for _, entry := range entries {
		result.RT = append(result.RT, entry.RT)
		result.Key = append(result.Key, entry.Key)
		result.StimInTrial = append(result.StimInTrial, entry.Stimulus)
	}
	return result
}

func (r TrialResult) Len() int {
	return len(r.RT)
}

// Data is the recorded trial data: every field is stored as its JSON text.
func (r TrialResult) Data() (map[string]string, error) {
	fields := []struct {
		name  string
		value any
	}{
		{"participant_id", r.ParticipantID},
		{"rt", nonNil(r.RT)},
		{"key", nonNil(r.Key)},
		{"stimInTrial", nonNil(r.StimInTrial)},
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		raw, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.name, err)
		}
		out[f.name] = string(raw)
	}
	return out, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
