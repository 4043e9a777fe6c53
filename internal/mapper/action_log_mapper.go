package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"

	"gorm.io/datatypes"
)

type ActionLogMapper struct{}

func NewActionLogMapper() *ActionLogMapper {
	return &ActionLogMapper{}
}

func (m *ActionLogMapper) ToEntity(a *model.ActionLog) *entity.ActionLog {
	if a == nil {
		return nil
	}
	return &entity.ActionLog{
		Id:        a.Id,
		AspectId:  a.AspectId,
		JobId:     a.JobId,
		Kind:      a.Kind,
		Before:    []byte(a.Before),
		After:     []byte(a.After),
		CreatedAt: a.CreatedAt,
	}
}

func (m *ActionLogMapper) ToModel(a *entity.ActionLog) *model.ActionLog {
	if a == nil {
		return nil
	}
	return &model.ActionLog{
		Id:        a.Id,
		AspectId:  a.AspectId,
		JobId:     a.JobId,
		Kind:      a.Kind,
		Before:    datatypes.JSON(a.Before),
		After:     datatypes.JSON(a.After),
		CreatedAt: a.CreatedAt,
	}
}
