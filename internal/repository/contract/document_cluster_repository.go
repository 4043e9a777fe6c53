package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentClusterRepository interface {
	Create(ctx context.Context, docCluster *entity.DocumentCluster) error
	CreateBulk(ctx context.Context, docClusters []*entity.DocumentCluster) error
	// Update saves by the (sdoc_id, aspect_id) composite key; membership
	// changes are updates of the single existing row.
	Update(ctx context.Context, docCluster *entity.DocumentCluster) error
	UpdateBulk(ctx context.Context, docClusters []*entity.DocumentCluster) error
	DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentCluster, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentCluster, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
