package in

import (
	"context"

	"evseg/internal/modules/plugin/dto"
)

type Usecase interface {
	List(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
	Describe(ctx context.Context, pluginName string) (dto.DescribeOutput, error)
	Simulate(ctx context.Context, input dto.SimulateInput) (dto.SimulateOutput, error)
}
