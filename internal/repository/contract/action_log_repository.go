package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"
)

type ActionLogRepository interface {
	Create(ctx context.Context, log *entity.ActionLog) error
	CreateBulk(ctx context.Context, logs []*entity.ActionLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ActionLog, error)
}
