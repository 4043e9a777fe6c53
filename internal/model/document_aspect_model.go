package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentAspect struct {
	SdocId       uuid.UUID `gorm:"type:uuid;primaryKey"`
	AspectId     uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Content      string    `gorm:"type:text"`
	X            float64
	Y            float64
	EmbeddingRef uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    *time.Time
}

func (DocumentAspect) TableName() string {
	return "document_aspects"
}
