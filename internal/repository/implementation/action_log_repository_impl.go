package implementation

import (
	"context"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/mapper"
	"perspectives-be/internal/model"
	"perspectives-be/internal/repository/contract"
	"perspectives-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ActionLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ActionLogMapper
}

func NewActionLogRepository(db *gorm.DB) contract.ActionLogRepository {
	return &ActionLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewActionLogMapper(),
	}
}

func (r *ActionLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ActionLogRepositoryImpl) Create(ctx context.Context, log *entity.ActionLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *ActionLogRepositoryImpl) CreateBulk(ctx context.Context, logs []*entity.ActionLog) error {
	if len(logs) == 0 {
		return nil
	}
	models := make([]*model.ActionLog, len(logs))
	for i, l := range logs {
		models[i] = r.mapper.ToModel(l)
	}
	return r.db.WithContext(ctx).Create(models).Error
}

func (r *ActionLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ActionLog, error) {
	var models []*model.ActionLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ActionLog, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
