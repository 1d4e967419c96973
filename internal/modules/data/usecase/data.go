package usecase

import (
	"context"

	"evseg/internal/modules/data/domain"
	"evseg/internal/modules/data/dto"
	datain "evseg/internal/modules/data/port/in"
	"evseg/internal/modules/data/service"
)

type Interactor struct {
	svc *service.DataService
}

func NewInteractor(svc *service.DataService) datain.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Record(ctx context.Context, input dto.RecordInput) (dto.RecordOutput, error) {
	mode := domain.Mode(input.Mode)
	if mode == "" {
		mode = domain.ModeRun
	}
	record, err := i.svc.Record(ctx, domain.TrialRecord{
		RunID:         input.RunID,
		Index:         input.Index,
		ParticipantID: input.ParticipantID,
		Stimulus:      input.Stimulus,
		RT:            input.RT,
		Key:           input.Key,
		StimInTrial:   input.StimInTrial,
		Mode:          mode,
		Aborted:       input.Aborted,
	})
	if err != nil {
		return dto.RecordOutput{}, err
	}
	return toRecordOutput(record), nil
}

func (i *Interactor) ListRuns(ctx context.Context) ([]dto.RunSummaryOutput, error) {
	summaries, err := i.svc.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RunSummaryOutput, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.RunSummaryOutput{
			RunID:         s.RunID,
			ParticipantID: s.ParticipantID,
			Trials:        s.Trials,
			Responses:     s.Responses,
			MeanRT:        s.MeanRT,
			HasRT:         s.HasRT,
			StartedAt:     s.StartedAt,
			EndedAt:       s.EndedAt,
		})
	}
	return out, nil
}

func (i *Interactor) ListRecords(ctx context.Context, runID string) ([]dto.RecordOutput, error) {
	records, err := i.svc.Records(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RecordOutput, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordOutput(record))
	}
	return out, nil
}

func (i *Interactor) Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error) {
	format, err := domain.ParseExportFormat(input.Format)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	rows, err := i.svc.Export(ctx, input.Writer, format, input.RunID)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	return dto.ExportOutput{Format: string(format), Rows: rows}, nil
}

func (i *Interactor) Reindex(ctx context.Context, _ dto.ReindexInput) error {
	return i.svc.Reindex(ctx)
}

func toRecordOutput(record domain.TrialRecord) dto.RecordOutput {
	return dto.RecordOutput{
		RunID:         record.RunID,
		Index:         record.Index,
		ParticipantID: record.ParticipantID,
		Stimulus:      record.Stimulus,
		RT:            record.RT,
		Key:           record.Key,
		StimInTrial:   record.StimInTrial,
		Mode:          string(record.Mode),
		Aborted:       record.Aborted,
		RecordedAt:    record.RecordedAt,
	}
}
