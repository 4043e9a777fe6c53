package model

import (
	"time"

	"github.com/google/uuid"
)

type SourceDocument struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectId uuid.UUID `gorm:"type:uuid;index;not null"`
	Filename  string    `gorm:"type:text"`
	Content   string    `gorm:"type:text"`
	Modality  string    `gorm:"type:varchar(16);default:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SourceDocument) TableName() string {
	return "source_documents"
}

type SourceDocumentTag struct {
	SdocId uuid.UUID `gorm:"type:uuid;primaryKey"`
	TagId  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

func (SourceDocumentTag) TableName() string {
	return "source_document_tags"
}
