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

type ClusterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ClusterMapper
}

func NewClusterRepository(db *gorm.DB) contract.ClusterRepository {
	return &ClusterRepositoryImpl{
		db:     db,
		mapper: mapper.NewClusterMapper(),
	}
}

func (r *ClusterRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ClusterRepositoryImpl) Create(ctx context.Context, cluster *entity.Cluster) error {
	m := r.mapper.ToModel(cluster)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*cluster = *r.mapper.ToEntity(m)
	return nil
}

func (r *ClusterRepositoryImpl) Update(ctx context.Context, cluster *entity.Cluster) error {
	m := r.mapper.ToModel(cluster)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*cluster = *r.mapper.ToEntity(m)
	return nil
}

func (r *ClusterRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Cluster{}, id).Error
}

func (r *ClusterRepositoryImpl) DeleteByAspectId(ctx context.Context, aspectId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("aspect_id = ?", aspectId).Delete(&model.Cluster{}).Error
}

func (r *ClusterRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Cluster, error) {
	var m model.Cluster
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ClusterRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Cluster, error) {
	var models []*model.Cluster
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Cluster, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ClusterRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Cluster{}).Count(&count).Error
	return count, err
}
