package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PerspectivesJob struct {
	Id            uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	AspectId      uuid.UUID                   `gorm:"type:uuid;index;not null"`
	Type          string                      `gorm:"type:varchar(64);not null"`
	Steps         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CurrentStep   int                         `gorm:"default:0"`
	Status        string                      `gorm:"type:varchar(16);index;default:WAITING"`
	StatusMessage string                      `gorm:"type:text"`
	Payload       datatypes.JSON              `gorm:"type:jsonb"`
	CreatedAt     time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt     *time.Time
}

func (PerspectivesJob) TableName() string {
	return "perspectives_jobs"
}
