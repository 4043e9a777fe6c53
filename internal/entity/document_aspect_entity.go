package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentAspect records a document's admission into an aspect: the
// (possibly model-modified) content that was embedded, the 2D map
// coordinates, and the handle of the embedding in the vector store.
// Exactly one row exists per (document, aspect) pair.
type DocumentAspect struct {
	SdocId       uuid.UUID
	AspectId     uuid.UUID
	Content      string
	X            float64
	Y            float64
	EmbeddingRef uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
