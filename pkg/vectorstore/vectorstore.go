// Package vectorstore abstracts the vector index holding document and
// cluster embeddings. Two backends exist: pgvector (default, rides on the
// relational database) and qdrant (gRPC). Keys are scoped to an aspect; the
// aspect owns its vectors and deletes them on teardown.
package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

type Kind string

const (
	KindDocument Kind = "document"
	KindCluster  Kind = "cluster"
)

// Key addresses one embedding: a document's (aspect_id, sdoc_id) or a
// cluster centroid's (aspect_id, cluster_id).
type Key struct {
	AspectId uuid.UUID
	ObjectId uuid.UUID
	Kind     Kind
}

func DocumentKey(aspectId, sdocId uuid.UUID) Key {
	return Key{AspectId: aspectId, ObjectId: sdocId, Kind: KindDocument}
}

func ClusterKey(aspectId, clusterId uuid.UUID) Key {
	return Key{AspectId: aspectId, ObjectId: clusterId, Kind: KindCluster}
}

// SearchHit is one nearest-neighbor result. Score is the raw dot product
// between the query vector and the stored vector.
type SearchHit struct {
	ObjectId uuid.UUID
	Score    float64
}

type VectorStore interface {
	// AddEmbeddings upserts one vector per key; keys and vectors are parallel.
	AddEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key, vectors [][]float32) error

	// GetEmbeddings returns one vector per key, in key order. A missing key
	// is an error.
	GetEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key) ([][]float32, error)

	// SearchNearVector returns the k stored vectors of the given kind within
	// the aspect nearest to the query, by descending dot product.
	SearchNearVector(ctx context.Context, projectId, aspectId uuid.UUID, kind Kind, vector []float32, k int) ([]SearchHit, error)

	// Delete removes the vectors for the given keys; missing keys are ignored.
	Delete(ctx context.Context, projectId uuid.UUID, keys []Key) error
}
