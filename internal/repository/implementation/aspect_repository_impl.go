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

type AspectRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AspectMapper
}

func NewAspectRepository(db *gorm.DB) contract.AspectRepository {
	return &AspectRepositoryImpl{
		db:     db,
		mapper: mapper.NewAspectMapper(),
	}
}

func (r *AspectRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AspectRepositoryImpl) Create(ctx context.Context, aspect *entity.Aspect) error {
	m := r.mapper.ToModel(aspect)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*aspect = *r.mapper.ToEntity(m)
	return nil
}

func (r *AspectRepositoryImpl) Update(ctx context.Context, aspect *entity.Aspect) error {
	m := r.mapper.ToModel(aspect)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*aspect = *r.mapper.ToEntity(m)
	return nil
}

func (r *AspectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Aspect{}, id).Error
}

func (r *AspectRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Aspect, error) {
	var m model.Aspect
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AspectRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Aspect, error) {
	var models []*model.Aspect
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Aspect, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *AspectRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Aspect{}).Count(&count).Error
	return count, err
}

func (r *AspectRepositoryImpl) ClaimJobSlot(ctx context.Context, aspectId uuid.UUID, jobId uuid.UUID) (bool, error) {
	// Conditional update so that two concurrent starts cannot both win: the
	// slot is free only when no job was ever started or the last one reached
	// a terminal state.
	terminal := r.db.Table("perspectives_jobs").
		Select("id").
		Where("status IN ?", []string{
			string(entity.JobStatusFinished),
			string(entity.JobStatusError),
			string(entity.JobStatusAborted),
		})

	res := r.db.WithContext(ctx).
		Model(&model.Aspect{}).
		Where("id = ?", aspectId).
		Where("most_recent_job_id IS NULL OR most_recent_job_id IN (?)", terminal).
		Update("most_recent_job_id", jobId)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
