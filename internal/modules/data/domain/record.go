package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRunIDRequired     = errors.New("run id is required")
	ErrRaggedRecord      = errors.New("rt, key and stimInTrial must have equal length")
	ErrUnknownFormat     = errors.New("unknown export format")
	ErrRecordNotFound    = errors.New("no records for run")
	ErrCorruptRecordLine = errors.New("corrupt record line")
)

type Mode string

const (
	ModeRun      Mode = "run"
	ModeDataOnly Mode = "data-only"
	ModeVisual   Mode = "visual"
)

// TrialRecord is one finished trial as stored by the host.
type TrialRecord struct {
	RunID         string    `json:"run_id"`
	Index         int       `json:"trial_index"`
	ParticipantID int       `json:"participant_id"`
	Stimulus      string    `json:"stimulus"`
	RT            []float64 `json:"rt"`
	Key           []string  `json:"key"`
	StimInTrial   []string  `json:"stimInTrial"`
	Mode          Mode      `json:"mode"`
	Aborted       bool      `json:"aborted,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

func (r TrialRecord) Validate() error {
	if strings.TrimSpace(r.RunID) == "" {
		return ErrRunIDRequired
	}
	if len(r.RT) != len(r.Key) || len(r.RT) != len(r.StimInTrial) {
		return fmt.Errorf("trial %d: %w", r.Index, ErrRaggedRecord)
	}
	return nil
}

func (r TrialRecord) Responses() int {
	return len(r.RT)
}

// RunSummary aggregates the trials of one run.
type RunSummary struct {
	RunID         string
	ParticipantID int
	Trials        int
	Responses     int
	MeanRT        float64
	HasRT         bool
	StartedAt     time.Time
	EndedAt       time.Time
}

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}
