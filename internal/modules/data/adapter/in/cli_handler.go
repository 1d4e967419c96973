package in

import (
	"context"
	"io"

	"evseg/internal/modules/data/dto"
	datain "evseg/internal/modules/data/port/in"
)

type CLIHandler struct {
	usecase datain.Usecase
}

func NewCLIHandler(usecase datain.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) ListRuns(ctx context.Context) ([]dto.RunSummaryOutput, error) {
	return h.usecase.ListRuns(ctx)
}

func (h CLIHandler) ListRecords(ctx context.Context, runID string) ([]dto.RecordOutput, error) {
	return h.usecase.ListRecords(ctx, runID)
}

func (h CLIHandler) Export(ctx context.Context, format, runID string, w io.Writer) (dto.ExportOutput, error) {
	return h.usecase.Export(ctx, dto.ExportInput{Format: format, RunID: runID, Writer: w})
}

func (h CLIHandler) Reindex(ctx context.Context) error {
	return h.usecase.Reindex(ctx, dto.ReindexInput{})
}
