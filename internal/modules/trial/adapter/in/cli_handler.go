package in

import (
	"context"

	"evseg/internal/modules/trial/dto"
	trialin "evseg/internal/modules/trial/port/in"
)

type CLIHandler struct {
	usecase trialin.Usecase
}

func NewCLIHandler(usecase trialin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Simulate(ctx context.Context, path, mode string, trial int, rt *float64, key *string) (dto.RunOutput, error) {
	return h.usecase.RunTimeline(ctx, dto.RunTimelineInput{Path: path, Mode: mode, Trial: trial, RT: rt, Key: key})
}

func (h CLIHandler) Render(ctx context.Context, path string, trial int) (dto.RenderOutput, error) {
	return h.usecase.Render(ctx, dto.RenderInput{Path: path, Trial: trial})
}

func (h CLIHandler) TrialJSON(ctx context.Context, path string, trial int) (string, error) {
	return h.usecase.TrialJSON(ctx, dto.TrialJSONInput{Path: path, Trial: trial})
}

func (h CLIHandler) Parameters(ctx context.Context) ([]dto.ParameterOutput, error) {
	return h.usecase.Parameters(ctx)
}
