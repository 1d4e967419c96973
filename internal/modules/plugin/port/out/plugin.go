package out

import (
	"context"

	"evseg/internal/modules/plugin/domain"
)

type ManifestStore interface {
	Load(ctx context.Context) ([]domain.Manifest, error)
}

type Host interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error)
	Describe(ctx context.Context, manifest domain.Manifest) (domain.Description, error)
	Simulate(ctx context.Context, manifest domain.Manifest, input domain.SimulateRequest) (domain.SimulateResult, error)
}
