package mapper

import (
	"perspectives-be/internal/entity"
	"perspectives-be/internal/model"

	"gorm.io/datatypes"
)

type PerspectivesJobMapper struct{}

func NewPerspectivesJobMapper() *PerspectivesJobMapper {
	return &PerspectivesJobMapper{}
}

func (m *PerspectivesJobMapper) ToEntity(j *model.PerspectivesJob) *entity.PerspectivesJob {
	if j == nil {
		return nil
	}
	return &entity.PerspectivesJob{
		Id:            j.Id,
		AspectId:      j.AspectId,
		Type:          entity.JobType(j.Type),
		Steps:         []string(j.Steps),
		CurrentStep:   j.CurrentStep,
		Status:        entity.JobStatus(j.Status),
		StatusMessage: j.StatusMessage,
		Payload:       []byte(j.Payload),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func (m *PerspectivesJobMapper) ToModel(j *entity.PerspectivesJob) *model.PerspectivesJob {
	if j == nil {
		return nil
	}
	return &model.PerspectivesJob{
		Id:            j.Id,
		AspectId:      j.AspectId,
		Type:          string(j.Type),
		Steps:         datatypes.NewJSONSlice(j.Steps),
		CurrentStep:   j.CurrentStep,
		Status:        string(j.Status),
		StatusMessage: j.StatusMessage,
		Payload:       datatypes.JSON(j.Payload),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}
