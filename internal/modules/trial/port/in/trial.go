package in

import (
	"context"

	"evseg/internal/modules/trial/dto"
)

type Usecase interface {
	RunTimeline(ctx context.Context, input dto.RunTimelineInput) (dto.RunOutput, error)
	Render(ctx context.Context, input dto.RenderInput) (dto.RenderOutput, error)
	TrialJSON(ctx context.Context, input dto.TrialJSONInput) (string, error)
	Parameters(ctx context.Context) ([]dto.ParameterOutput, error)
	Frame() dto.FrameOutput
	Press(key string)
}
