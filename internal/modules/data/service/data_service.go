package service

import (
	"context"
	"fmt"
	"io"
	"slices"

	hclog "github.com/hashicorp/go-hclog"

	"evseg/internal/modules/data/domain"
	dataout "evseg/internal/modules/data/port/out"
	"evseg/internal/platform/clock"
	"evseg/internal/platform/tx"
)

type DataService struct {
	clock     clock.Clock
	store     dataout.RecordStore
	projector dataout.RecordProjector
	tx        tx.Manager
	logger    hclog.Logger
}

func NewDataService(clock clock.Clock, store dataout.RecordStore, projector dataout.RecordProjector, txm tx.Manager, logger hclog.Logger) *DataService {
	return &DataService{clock: clock, store: store, projector: projector, tx: txm, logger: logger.Named("data")}
}

// Record appends to the log first; the projection is best effort and can be
// rebuilt with Reindex.
func (s *DataService) Record(ctx context.Context, record domain.TrialRecord) (domain.TrialRecord, error) {
	if record.RT == nil {
		record.RT = []float64{}
	}
	if record.Key == nil {
		record.Key = []string{}
	}
	if record.StimInTrial == nil {
		record.StimInTrial = []string{}
	}
	if err := record.Validate(); err != nil {
		return domain.TrialRecord{}, err
	}
	record.RecordedAt = s.clock.Now().UTC()
	if err := s.store.Append(ctx, record); err != nil {
		return domain.TrialRecord{}, err
	}
	err := s.tx.Within(ctx, func(ctx context.Context) error {
		return s.projector.UpsertRecord(ctx, record)
	})
	if err != nil {
		s.logger.Warn("projection out of date, run reindex", "run", record.RunID, "trial", record.Index, "error", err)
	}
	return record, nil
}

func (s *DataService) Summaries(ctx context.Context) ([]domain.RunSummary, error) {
	return s.projector.Summaries(ctx)
}

// Records returns stored trials in recorded order, filtered to runID unless
// it is empty.
func (s *DataService) Records(ctx context.Context, runID string) ([]domain.TrialRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return records, nil
	}
	out := slices.DeleteFunc(records, func(r domain.TrialRecord) bool { return r.RunID != runID })
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, runID)
	}
	return out, nil
}

func (s *DataService) Export(ctx context.Context, w io.Writer, format domain.ExportFormat, runID string) (int, error) {
	records, err := s.Records(ctx, runID)
	if err != nil {
		return 0, err
	}
	switch format {
	case domain.FormatCSV:
		return WriteCSV(w, records)
	case domain.FormatJSON:
		return WriteJSON(w, records)
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownFormat, format)
	}
}

func (s *DataService) Reindex(ctx context.Context) error {
	records, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	return s.tx.Within(ctx, func(ctx context.Context) error {
		if err := s.projector.Reset(ctx); err != nil {
			return err
		}
		for _, record := range records {
			if err := s.projector.UpsertRecord(ctx, record); err != nil {
				return err
			}
		}
		s.logger.Info("reindexed trial data", "records", len(records))
		return nil
	})
}
