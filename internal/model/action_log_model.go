package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActionLog struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AspectId  uuid.UUID      `gorm:"type:uuid;index;not null"`
	JobId     uuid.UUID      `gorm:"type:uuid;index"`
	Kind      string         `gorm:"type:varchar(64);not null"`
	Before    datatypes.JSON `gorm:"type:jsonb"`
	After     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (ActionLog) TableName() string {
	return "perspectives_action_logs"
}
