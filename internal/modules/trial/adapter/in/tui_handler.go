package in

import (
	"context"

	"evseg/internal/modules/trial/dto"
	trialin "evseg/internal/modules/trial/port/in"
)

type TUIHandler struct {
	usecase trialin.Usecase
}

func NewTUIHandler(usecase trialin.Usecase) TUIHandler {
	return TUIHandler{usecase: usecase}
}

func (h TUIHandler) Run(ctx context.Context, path, mode string, trial int, rt *float64, key *string) (dto.RunOutput, error) {
	return h.usecase.RunTimeline(ctx, dto.RunTimelineInput{Path: path, Mode: mode, Trial: trial, RT: rt, Key: key})
}

func (h TUIHandler) Frame() dto.FrameOutput {
	return h.usecase.Frame()
}

func (h TUIHandler) Press(key string) {
	h.usecase.Press(key)
}
