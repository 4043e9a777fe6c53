package model

import (
	"time"

	"github.com/google/uuid"
)

type Aspect struct {
	Id                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProjectId             uuid.UUID  `gorm:"type:uuid;index;not null"`
	Name                  string     `gorm:"type:text"`
	Modality              string     `gorm:"type:varchar(16);default:text"`
	EmbeddingModel        string     `gorm:"type:text"`
	DocEmbeddingPrompt    string     `gorm:"type:text"`
	DocModificationPrompt string     `gorm:"type:text"`
	SelectionTagId        *uuid.UUID `gorm:"type:uuid"`
	UmapNeighbors         int        `gorm:"default:15"`
	UmapDims              int        `gorm:"default:10"`
	UmapMetric            string     `gorm:"type:varchar(32);default:cosine"`
	UmapMinDist           float64    `gorm:"default:0.1"`
	HdbscanMinClusterSize int        `gorm:"default:5"`
	HdbscanMetric         string     `gorm:"type:varchar(32);default:euclidean"`
	NumKeywords           int        `gorm:"default:10"`
	NumTopDocs            int        `gorm:"default:10"`
	MostRecentJobId       *uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time  `gorm:"autoCreateTime"`
	UpdatedAt             *time.Time
}

func (Aspect) TableName() string {
	return "aspects"
}
