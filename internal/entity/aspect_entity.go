package entity

import (
	"time"

	"github.com/google/uuid"
)

// Modality describes what kind of source documents an aspect clusters.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Aspect is one clustering map over a project's documents. Its embedding
// model name changes on refine, which forces fresh embeddings and a fresh
// visualization reducer.
type Aspect struct {
	Id                    uuid.UUID
	ProjectId             uuid.UUID
	Name                  string
	Modality              Modality
	EmbeddingModel        string
	DocEmbeddingPrompt    string
	DocModificationPrompt string     // empty = use document content unchanged
	SelectionTagId        *uuid.UUID // optional: only documents carrying this tag are eligible
	Settings              PipelineSettings
	MostRecentJobId       *uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             *time.Time
}

// PipelineSettings are the per-aspect knobs for the clustering pipeline.
type PipelineSettings struct {
	UmapNeighbors         int
	UmapDims              int
	UmapMetric            string
	UmapMinDist           float64
	HdbscanMinClusterSize int
	HdbscanMetric         string
	NumKeywords           int
	NumTopDocs            int
}

func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		UmapNeighbors:         15,
		UmapDims:              10,
		UmapMetric:            "cosine",
		UmapMinDist:           0.1,
		HdbscanMinClusterSize: 5,
		HdbscanMetric:         "euclidean",
		NumKeywords:           10,
		NumTopDocs:            10,
	}
}
