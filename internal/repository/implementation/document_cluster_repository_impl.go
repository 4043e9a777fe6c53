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

type DocumentClusterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentClusterMapper
}

func NewDocumentClusterRepository(db *gorm.DB) contract.DocumentClusterRepository {
	return &DocumentClusterRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentClusterMapper(),
	}
}

func (r *DocumentClusterRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentClusterRepositoryImpl) Create(ctx context.Context, docCluster *entity.DocumentCluster) error {
	m := r.mapper.ToModel(docCluster)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*docCluster = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentClusterRepositoryImpl) CreateBulk(ctx context.Context, docClusters []*entity.DocumentCluster) error {
	if len(docClusters) == 0 {
		return nil
	}
	models := make([]*model.DocumentCluster, len(docClusters))
	for i, d := range docClusters {
		models[i] = r.mapper.ToModel(d)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*docClusters[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentClusterRepositoryImpl) Update(ctx context.Context, docCluster *entity.DocumentCluster) error {
	m := r.mapper.ToModel(docCluster)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*docCluster = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentClusterRepositoryImpl) UpdateBulk(ctx context.Context, docClusters []*entity.DocumentCluster) error {
	for _, d := range docClusters {
		if err := r.Update(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *DocumentClusterRepositoryImpl) DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("aspect_id = ?", aspectId).Delete(&model.DocumentCluster{}).Error
}

func (r *DocumentClusterRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentCluster, error) {
	var m model.DocumentCluster
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentClusterRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentCluster, error) {
	var models []*model.DocumentCluster
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.DocumentCluster, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *DocumentClusterRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentCluster{}).Count(&count).Error
	return count, err
}
