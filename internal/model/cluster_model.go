package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Cluster struct {
	Id            uuid.UUID                      `gorm:"type:uuid;primaryKey"`
	AspectId      uuid.UUID                      `gorm:"type:uuid;index;not null"`
	Name          string                         `gorm:"type:text"`
	Description   string                         `gorm:"type:text"`
	IsOutlier     bool                           `gorm:"default:false;index"`
	IsUserEdited  bool                           `gorm:"default:false"`
	TopWords      datatypes.JSONSlice[string]    `gorm:"type:jsonb"`
	TopWordScores datatypes.JSONSlice[float64]   `gorm:"type:jsonb"`
	TopDocs       datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb"`
	X             float64
	Y             float64
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     *time.Time
}

func (Cluster) TableName() string {
	return "clusters"
}
