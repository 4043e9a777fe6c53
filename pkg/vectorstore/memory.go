package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an exact-search in-memory backend used by tests and the
// seed tool.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[Key][]float32
}

var _ VectorStore = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vectors: make(map[Key][]float32)}
}

func (s *MemoryStore) AddEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("got %d keys but %d vectors", len(keys), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, key := range keys {
		cp := make([]float32, len(vectors[i]))
		copy(cp, vectors[i])
		s.vectors[key] = cp
	}
	return nil
}

func (s *MemoryStore) GetEmbeddings(ctx context.Context, projectId uuid.UUID, keys []Key) ([][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]float32, len(keys))
	for i, key := range keys {
		vector, ok := s.vectors[key]
		if !ok {
			return nil, fmt.Errorf("no embedding stored for %s %s", key.Kind, key.ObjectId)
		}
		cp := make([]float32, len(vector))
		copy(cp, vector)
		out[i] = cp
	}
	return out, nil
}

func (s *MemoryStore) SearchNearVector(ctx context.Context, projectId, aspectId uuid.UUID, kind Kind, vector []float32, k int) ([]SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []SearchHit
	for key, stored := range s.vectors {
		if key.AspectId != aspectId || key.Kind != kind {
			continue
		}
		var dot float64
		for i := range stored {
			if i < len(vector) {
				dot += float64(stored[i]) * float64(vector[i])
			}
		}
		hits = append(hits, SearchHit{ObjectId: key.ObjectId, Score: dot})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ObjectId.String() < hits[j].ObjectId.String()
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *MemoryStore) Delete(ctx context.Context, projectId uuid.UUID, keys []Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.vectors, key)
	}
	return nil
}

// Len reports the number of stored vectors (test helper).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Has reports whether a vector exists for the key (test helper).
func (s *MemoryStore) Has(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vectors[key]
	return ok
}
