package entity

import (
	"time"

	"github.com/google/uuid"
)

// SourceDocument is the imported document the rest of the platform works on.
// The import pipeline that produces these is outside this service; we only
// read them.
type SourceDocument struct {
	Id        uuid.UUID
	ProjectId uuid.UUID
	Filename  string
	Content   string
	Modality  Modality
	CreatedAt time.Time
}

// SourceDocumentTag links a document to a tag. Aspects can restrict their
// document selection to a single tag.
type SourceDocumentTag struct {
	SdocId uuid.UUID
	TagId  uuid.UUID
}
