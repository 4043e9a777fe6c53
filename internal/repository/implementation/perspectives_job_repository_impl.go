package implementation

import (
	"context"
	"errors"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/mapper"
	"perspectives-be/internal/model"
	"perspectives-be/internal/repository/contract"
	"perspectives-be/internal/repository/specification"

	"gorm.io/gorm"
)

type PerspectivesJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PerspectivesJobMapper
}

func NewPerspectivesJobRepository(db *gorm.DB) contract.PerspectivesJobRepository {
	return &PerspectivesJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewPerspectivesJobMapper(),
	}
}

func (r *PerspectivesJobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PerspectivesJobRepositoryImpl) Create(ctx context.Context, job *entity.PerspectivesJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *PerspectivesJobRepositoryImpl) Update(ctx context.Context, job *entity.PerspectivesJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *PerspectivesJobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PerspectivesJob, error) {
	var m model.PerspectivesJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PerspectivesJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PerspectivesJob, error) {
	var models []*model.PerspectivesJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.PerspectivesJob, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
