package dto

import (
	"io"
	"time"
)

type RecordInput struct {
	RunID         string
	Index         int
	ParticipantID int
	Stimulus      string
	RT            []float64
	Key           []string
	StimInTrial   []string
	Mode          string
	Aborted       bool
}

type RecordOutput struct {
	RunID         string
	Index         int
	ParticipantID int
	Stimulus      string
	RT            []float64
	Key           []string
	StimInTrial   []string
	Mode          string
	Aborted       bool
	RecordedAt    time.Time
}

type RunSummaryOutput struct {
	RunID         string
	ParticipantID int
	Trials        int
	Responses     int
	MeanRT        float64
	HasRT         bool
	StartedAt     time.Time
	EndedAt       time.Time
}

type ExportInput struct {
	Format string
	RunID  string
	Writer io.Writer
}

type ExportOutput struct {
	Format string
	Rows   int
}

type ReindexInput struct{}
