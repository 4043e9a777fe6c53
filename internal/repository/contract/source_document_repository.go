package contract

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SourceDocumentRepository interface {
	Create(ctx context.Context, doc *entity.SourceDocument) error
	CreateBulk(ctx context.Context, docs []*entity.SourceDocument) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SourceDocument, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindEligibleForAspect returns the project's documents of the given
	// modality that do not yet have a DocumentAspect row for the aspect,
	// optionally restricted to documents carrying tagId.
	FindEligibleForAspect(ctx context.Context, projectId, aspectId uuid.UUID, modality entity.Modality, tagId *uuid.UUID) ([]*entity.SourceDocument, error)
	AddTag(ctx context.Context, sdocId, tagId uuid.UUID) error
}
