package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

type AspectRepository interface {
	Create(ctx context.Context, aspect *entity.Aspect) error
	Update(ctx context.Context, aspect *entity.Aspect) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Aspect, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Aspect, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// ClaimJobSlot atomically sets most_recent_job_id to jobId, but only if the
	// aspect currently has no job or its most recent job is in a terminal
	// state. Returns false when another job is still in flight.
	ClaimJobSlot(ctx context.Context, aspectId uuid.UUID, jobId uuid.UUID) (bool, error)
}
