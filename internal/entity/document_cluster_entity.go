package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentCluster is the authoritative cluster assignment of one document
// within an aspect. Exactly one row exists per (document, aspect); moving a
// document between clusters is an update of this row, never a second insert.
// Accepted assignments are human-confirmed and must not be overwritten by
// automatic re-clustering.
type DocumentCluster struct {
	SdocId     uuid.UUID
	AspectId   uuid.UUID
	ClusterId  uuid.UUID
	Similarity float64 // dot product against the assigned cluster's centroid
	IsAccepted bool
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
