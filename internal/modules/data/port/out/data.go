package out

import (
	"context"

	"evseg/internal/modules/data/domain"
)

// RecordStore is the append-only source of truth for trial data.
type RecordStore interface {
	Append(ctx context.Context, record domain.TrialRecord) error
	List(ctx context.Context) ([]domain.TrialRecord, error)
}

// RecordProjector maintains a queryable index rebuilt from the store.
type RecordProjector interface {
	Reset(ctx context.Context) error
	UpsertRecord(ctx context.Context, record domain.TrialRecord) error
	Summaries(ctx context.Context) ([]domain.RunSummary, error)
}
