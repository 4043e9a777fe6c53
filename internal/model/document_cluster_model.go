package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentCluster struct {
	SdocId     uuid.UUID `gorm:"type:uuid;primaryKey"`
	AspectId   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	ClusterId  uuid.UUID `gorm:"type:uuid;index;not null"`
	Similarity float64
	IsAccepted bool      `gorm:"default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  *time.Time
}

func (DocumentCluster) TableName() string {
	return "document_clusters"
}
