package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentAspectRepository interface {
	Create(ctx context.Context, docAspect *entity.DocumentAspect) error
	CreateBulk(ctx context.Context, docAspects []*entity.DocumentAspect) error
	Update(ctx context.Context, docAspect *entity.DocumentAspect) error
	DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentAspect, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentAspect, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
