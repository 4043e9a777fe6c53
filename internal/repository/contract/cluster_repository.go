package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ClusterRepository interface {
	Create(ctx context.Context, cluster *entity.Cluster) error
	Update(ctx context.Context, cluster *entity.Cluster) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Cluster, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Cluster, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
