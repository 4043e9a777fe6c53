package entity

import (
	"time"

	"github.com/google/uuid"
)

// Cluster is one discovered or user-created group within an aspect.
// At most one cluster per aspect has IsOutlier set; it collects the documents
// HDBSCAN labels as noise. IsUserEdited suppresses automatic renaming.
type Cluster struct {
	Id            uuid.UUID
	AspectId      uuid.UUID
	Name          string
	Description   string
	IsOutlier     bool
	IsUserEdited  bool
	TopWords      []string
	TopWordScores []float64
	TopDocs       []uuid.UUID
	X             float64
	Y             float64
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
