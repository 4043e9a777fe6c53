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

type DocumentAspectRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentAspectMapper
}

func NewDocumentAspectRepository(db *gorm.DB) contract.DocumentAspectRepository {
	return &DocumentAspectRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentAspectMapper(),
	}
}

func (r *DocumentAspectRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentAspectRepositoryImpl) Create(ctx context.Context, docAspect *entity.DocumentAspect) error {
	m := r.mapper.ToModel(docAspect)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*docAspect = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentAspectRepositoryImpl) CreateBulk(ctx context.Context, docAspects []*entity.DocumentAspect) error {
	if len(docAspects) == 0 {
		return nil
	}
	models := make([]*model.DocumentAspect, len(docAspects))
	for i, d := range docAspects {
		models[i] = r.mapper.ToModel(d)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*docAspects[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentAspectRepositoryImpl) Update(ctx context.Context, docAspect *entity.DocumentAspect) error {
	m := r.mapper.ToModel(docAspect)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*docAspect = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentAspectRepositoryImpl) DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("aspect_id = ?", aspectId).Delete(&model.DocumentAspect{}).Error
}

func (r *DocumentAspectRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentAspect, error) {
	var m model.DocumentAspect
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentAspectRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentAspect, error) {
	var models []*model.DocumentAspect
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.DocumentAspect, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DocumentAspectRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentAspect{}).Count(&count).Error
	return count, err
}
