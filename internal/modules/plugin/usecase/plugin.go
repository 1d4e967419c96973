package usecase

import (
	"context"

	"evseg/internal/modules/plugin/dto"
	pluginin "evseg/internal/modules/plugin/port/in"
	"evseg/internal/modules/plugin/service"
)

type Interactor struct {
	svc *service.PluginService
}

func NewInteractor(svc *service.PluginService) pluginin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) Describe(ctx context.Context, pluginName string) (dto.DescribeOutput, error) {
	return i.svc.Describe(ctx, pluginName)
}

func (i *Interactor) Simulate(ctx context.Context, input dto.SimulateInput) (dto.SimulateOutput, error) {
	return i.svc.Simulate(ctx, input)
}
