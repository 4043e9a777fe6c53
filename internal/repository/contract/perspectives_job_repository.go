package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"
)

type PerspectivesJobRepository interface {
	Create(ctx context.Context, job *entity.PerspectivesJob) error
	Update(ctx context.Context, job *entity.PerspectivesJob) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PerspectivesJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PerspectivesJob, error)
}
