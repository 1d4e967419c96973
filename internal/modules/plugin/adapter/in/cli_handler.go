package in

import (
	"context"

	"evseg/internal/modules/plugin/dto"
	pluginin "evseg/internal/modules/plugin/port/in"
)

type CLIHandler struct {
	usecase pluginin.Usecase
}

func NewCLIHandler(usecase pluginin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) Describe(ctx context.Context, pluginName string) (dto.DescribeOutput, error) {
	return h.usecase.Describe(ctx, pluginName)
}

func (h CLIHandler) Simulate(ctx context.Context, pluginName, trialJSON, mode string, rt *float64, key *string) (dto.SimulateOutput, error) {
	return h.usecase.Simulate(ctx, dto.SimulateInput{
		PluginName: pluginName,
		TrialJSON:  trialJSON,
		Mode:       mode,
		RT:         rt,
		Key:        key,
	})
}
