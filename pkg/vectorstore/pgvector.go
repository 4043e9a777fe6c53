package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type embeddingRecord struct {
	AspectId  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ObjectId  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Kind      string          `gorm:"type:varchar(16);primaryKey"`
	ProjectId uuid.UUID       `gorm:"type:uuid;index"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text dimension
}

func (embeddingRecord) TableName() string {
	return "perspectives_embeddings"
}

// PgVectorStore keeps embeddings in the relational database via the pgvector
// extension, so both stores share one Postgres instance.
type PgVectorStore struct {
	db *gorm.DB
}

var _ VectorStore = &PgVectorStore{}

func NewPgVectorStore(db *gorm.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// AutoMigrate creates the embeddings table. Requires the vector extension.
func (s *PgVectorStore) AutoMigrate() error {
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	return s.db.AutoMigrate(&embeddingRecord{})
}

func (s *PgVectorStore) AddEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("got %d keys but %d vectors", len(keys), len(vectors))
	}
	if len(keys) == 0 {
		return nil
	}

	records := make([]embeddingRecord, len(keys))
	for i, key := range keys {
		records[i] = embeddingRecord{
			AspectId:  key.AspectId,
			ObjectId:  key.ObjectId,
			Kind:      string(key.Kind),
			ProjectId: projectId,
			Embedding: pgvector.NewVector(vectors[i]),
		}
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "aspect_id"}, {Name: "object_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"project_id", "embedding"}),
		}).
		Create(&records).Error
	if err != nil {
		return fmt.Errorf("failed to upsert embeddings: %w", err)
	}
	return nil
}

func (s *PgVectorStore) GetEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key) ([][]float32, error) {
	out := make([][]float32, len(keys))
	for i, key := range keys {
		var record embeddingRecord
		err := s.db.WithContext(ctx).
			Where("aspect_id = ? AND object_id = ? AND kind = ?", key.AspectId, key.ObjectId, string(key.Kind)).
			First(&record).Error
		if err != nil {
			return nil, fmt.Errorf("failed to read embedding for %s %s: %w", key.Kind, key.ObjectId, err)
		}
		out[i] = record.Embedding.Slice()
	}
	return out, nil
}

func (s *PgVectorStore) SearchNearVector(ctx context.Context, projectId, aspectId uuid.UUID, kind Kind, vector []float32, k int) ([]SearchHit, error) {
	query := pgvector.NewVector(vector)

	var rows []struct {
		ObjectId uuid.UUID
		Score    float64
	}

	// <#> is negative inner product, so -(a <#> b) is the raw dot product
	// and ascending <#> order is descending similarity.
	err := s.db.WithContext(ctx).
		Table("perspectives_embeddings").
		Select("object_id, -(embedding <#> ?) AS score", query).
		Where("aspect_id = ? AND kind = ?", aspectId, string(kind)).
		Order(gorm.Expr("embedding <#> ?", query)).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}

	hits := make([]SearchHit, len(rows))
	for i, row := range rows {
		hits[i] = SearchHit{ObjectId: row.ObjectId, Score: row.Score}
	}
	return hits, nil
}

func (s *PgVectorStore) Delete(ctx context.Context, projectId uuid.UUID, keys []Key) error {
	for _, key := range keys {
		err := s.db.WithContext(ctx).
			Where("aspect_id = ? AND object_id = ? AND kind = ?", key.AspectId, key.ObjectId, string(key.Kind)).
			Delete(&embeddingRecord{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete embedding for %s %s: %w", key.Kind, key.ObjectId, err)
		}
	}
	return nil
}
