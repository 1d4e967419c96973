package in

import (
	"context"

	"evseg/internal/modules/data/dto"
)

type Usecase interface {
	Record(ctx context.Context, input dto.RecordInput) (dto.RecordOutput, error)
	ListRuns(ctx context.Context) ([]dto.RunSummaryOutput, error)
	ListRecords(ctx context.Context, runID string) ([]dto.RecordOutput, error)
	Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error)
	Reindex(ctx context.Context, input dto.ReindexInput) error
}
