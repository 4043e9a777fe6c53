package implementation

import (
	"context"
	"errors"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/mapper"
	"perspectives-be/internal/model"
	"perspectives-be/internal/repository/contract"
	"perspectives-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SourceDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SourceDocumentMapper
}

func NewSourceDocumentRepository(db *gorm.DB) contract.SourceDocumentRepository {
	return &SourceDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewSourceDocumentMapper(),
	}
}

func (r *SourceDocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SourceDocumentRepositoryImpl) Create(ctx context.Context, doc *entity.SourceDocument) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *SourceDocumentRepositoryImpl) CreateBulk(ctx context.Context, docs []*entity.SourceDocument) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]*model.SourceDocument, len(docs))
	for i, d := range docs {
		models[i] = r.mapper.ToModel(d)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*docs[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *SourceDocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SourceDocument, error) {
	var m model.SourceDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SourceDocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SourceDocument, error) {
	var models []*model.SourceDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.SourceDocument, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *SourceDocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.SourceDocument{}).Count(&count).Error
	return count, err
}

func (r *SourceDocumentRepositoryImpl) FindEligibleForAspect(ctx context.Context, projectId, aspectId uuid.UUID, modality entity.Modality, tagId *uuid.UUID) ([]*entity.SourceDocument, error) {
	admitted := r.db.Table("document_aspects").
		Select("sdoc_id").
		Where("aspect_id = ?", aspectId)

	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectId).
		Where("modality = ?", string(modality)).
		Where("id NOT IN (?)", admitted)

	if tagId != nil {
		tagged := r.db.Table("source_document_tags").
			Select("sdoc_id").
			Where("tag_id = ?", *tagId)
		query = query.Where("id IN (?)", tagged)
	}

	var models []*model.SourceDocument
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.SourceDocument, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *SourceDocumentRepositoryImpl) AddTag(ctx context.Context, sdocId, tagId uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.SourceDocumentTag{SdocId: sdocId, TagId: tagId}).Error
}
