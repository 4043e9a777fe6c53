package perspectives

import (
	"context"
	"fmt"
	"math"
	"sort"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// Dot is the similarity measure between embeddings and centroids.
func Dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// CentroidEngine computes cluster centroids, refreshes member similarities
// and representative documents, and resolves nearest-cluster assignment
// decisions.
type CentroidEngine struct{}

func NewCentroidEngine() *CentroidEngine {
	return &CentroidEngine{}
}

// Centroid is the L2-normalized mean of the member embeddings. A zero-norm
// mean is returned un-normalized so degenerate clusters never divide by
// zero.
func (e *CentroidEngine) Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	mean := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			mean[i] += float64(v[i])
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vectors))
	}

	var norm float64
	for _, m := range mean {
		norm += m * m
	}
	norm = math.Sqrt(norm)

	centroid := make([]float32, dim)
	if norm == 0 {
		for i, m := range mean {
			centroid[i] = float32(m)
		}
		return centroid
	}
	for i, m := range mean {
		centroid[i] = float32(m / norm)
	}
	return centroid
}

// RefreshCluster recomputes the cluster's centroid, updates every member's
// stored similarity, selects the representative documents and the cluster's
// 2D position, and stages the centroid embedding for the vector store. The
// updated cluster row is saved through the transaction.
//
// Representative documents are the N members with the lowest similarity to
// the centroid, in ascending order.
func (e *CentroidEngine) RefreshCluster(ctx context.Context, tx *Transaction, aspect *entity.Aspect, cluster *entity.Cluster) error {
	members, err := tx.Repos().DocumentClusterRepository().FindAll(ctx,
		specification.ByAspectID{AspectID: aspect.Id},
		specification.ByClusterID{ClusterID: cluster.Id},
	)
	if err != nil {
		return err
	}

	if len(members) == 0 {
		cluster.TopDocs = nil
		tx.DeleteEmbedding(vectorstore.ClusterKey(aspect.Id, cluster.Id))
		return tx.Repos().ClusterRepository().Update(ctx, cluster)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].SdocId.String() < members[j].SdocId.String()
	})

	keys := make([]vectorstore.Key, len(members))
	for i, member := range members {
		keys[i] = vectorstore.DocumentKey(aspect.Id, member.SdocId)
	}
	embeddings, err := tx.GetEmbeddings(ctx, keys)
	if err != nil {
		return fmt.Errorf("failed to load member embeddings for cluster %s: %w", cluster.Id, err)
	}

	centroid := e.Centroid(embeddings)

	type memberSim struct {
		sdocId     uuid.UUID
		similarity float64
	}
	sims := make([]memberSim, len(members))
	for i, member := range members {
		similarity := Dot(embeddings[i], centroid)
		sims[i] = memberSim{sdocId: member.SdocId, similarity: similarity}

		member.Similarity = similarity
		if err := tx.Repos().DocumentClusterRepository().Update(ctx, member); err != nil {
			return err
		}
	}

	sort.SliceStable(sims, func(i, j int) bool {
		return sims[i].similarity < sims[j].similarity
	})
	numTopDocs := aspect.Settings.NumTopDocs
	if numTopDocs > len(sims) {
		numTopDocs = len(sims)
	}
	topDocs := make([]uuid.UUID, numTopDocs)
	for i := 0; i < numTopDocs; i++ {
		topDocs[i] = sims[i].sdocId
	}
	cluster.TopDocs = topDocs

	// Cluster position on the map is the mean of its members' coordinates.
	var sumX, sumY float64
	for _, member := range members {
		docAspect, err := tx.Repos().DocumentAspectRepository().FindOne(ctx,
			specification.ByAspectID{AspectID: aspect.Id},
			specification.BySdocID{SdocID: member.SdocId},
		)
		if err != nil {
			return err
		}
		if docAspect == nil {
			return fmt.Errorf("document %s is clustered but has no aspect record", member.SdocId)
		}
		sumX += docAspect.X
		sumY += docAspect.Y
	}
	cluster.X = sumX / float64(len(members))
	cluster.Y = sumY / float64(len(members))

	if err := tx.AddEmbeddings(
		[]vectorstore.Key{vectorstore.ClusterKey(aspect.Id, cluster.Id)},
		[][]float32{centroid},
	); err != nil {
		return err
	}

	return tx.Repos().ClusterRepository().Update(ctx, cluster)
}

// NearestCluster finds the remaining cluster centroid most similar to the
// embedding, skipping excluded cluster ids. Returns nil when no candidate
// exists.
func (e *CentroidEngine) NearestCluster(ctx context.Context, tx *Transaction, embedding []float32, exclude map[uuid.UUID]bool) (*vectorstore.SearchHit, error) {
	hits, err := tx.SearchNearVector(ctx, vectorstore.KindCluster, embedding, 10+len(exclude))
	if err != nil {
		return nil, err
	}
	for _, hit := range hits {
		if exclude[hit.ObjectId] {
			continue
		}
		h := hit
		return &h, nil
	}
	return nil, nil
}
