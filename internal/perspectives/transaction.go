package perspectives

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/unitofwork"
	"perspectives-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// Transaction spans the relational store and the vector store. Relational
// writes go through a database transaction; vector mutations are buffered in
// memory and applied only after the relational commit succeeds. Rollback
// discards both, so the two stores never diverge on a failed operation.
//
// When writeHistory is set, relational mutations are recorded as action-log
// entries (before/after snapshots) for the undo subsystem. Aspect creation
// runs with history disabled since it is irreversible.
type Transaction struct {
	uow          unitofwork.UnitOfWork
	vectors      vectorstore.VectorStore
	projectId    uuid.UUID
	aspectId     uuid.UUID
	jobId        uuid.UUID
	writeHistory bool

	pendingAdds    map[vectorstore.Key][]float32
	pendingDeletes map[vectorstore.Key]bool
	done           bool
}

func BeginTransaction(
	ctx context.Context,
	factory unitofwork.RepositoryFactory,
	vectors vectorstore.VectorStore,
	projectId, aspectId, jobId uuid.UUID,
	writeHistory bool,
) (*Transaction, error) {
	uow := factory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{
		uow:            uow,
		vectors:        vectors,
		projectId:      projectId,
		aspectId:       aspectId,
		jobId:          jobId,
		writeHistory:   writeHistory,
		pendingAdds:    make(map[vectorstore.Key][]float32),
		pendingDeletes: make(map[vectorstore.Key]bool),
	}, nil
}

// Repos exposes the relational repositories bound to this transaction.
func (t *Transaction) Repos() unitofwork.UnitOfWork {
	return t.uow
}

// AddEmbeddings buffers vector upserts; keys and vectors are parallel.
func (t *Transaction) AddEmbeddings(keys []vectorstore.Key, vectors [][]float32) error {
	if len(keys) != len(vectors) {
		return fmt.Errorf("got %d keys but %d vectors", len(keys), len(vectors))
	}
	for i, key := range keys {
		t.pendingAdds[key] = vectors[i]
		delete(t.pendingDeletes, key)
	}
	return nil
}

// DeleteEmbedding buffers a vector deletion.
func (t *Transaction) DeleteEmbedding(key vectorstore.Key) {
	delete(t.pendingAdds, key)
	t.pendingDeletes[key] = true
}

// GetEmbeddings reads vectors for the keys, seeing buffered adds first.
func (t *Transaction) GetEmbeddings(ctx context.Context, keys []vectorstore.Key) ([][]float32, error) {
	out := make([][]float32, len(keys))
	var missing []vectorstore.Key
	var missingIdx []int

	for i, key := range keys {
		if t.pendingDeletes[key] {
			return nil, fmt.Errorf("embedding for %s %s was deleted in this transaction", key.Kind, key.ObjectId)
		}
		if vector, ok := t.pendingAdds[key]; ok {
			out[i] = vector
			continue
		}
		missing = append(missing, key)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		stored, err := t.vectors.GetEmbeddings(ctx, t.projectId, missing)
		if err != nil {
			return nil, err
		}
		for i, vector := range stored {
			out[missingIdx[i]] = vector
		}
	}

	return out, nil
}

// SearchNearVector queries the vector store and reconciles the result with
// the buffered changeset: hits deleted in this transaction are dropped and
// buffered adds compete by their exact dot product.
func (t *Transaction) SearchNearVector(ctx context.Context, kind vectorstore.Kind, vector []float32, k int) ([]vectorstore.SearchHit, error) {
	hits, err := t.vectors.SearchNearVector(ctx, t.projectId, t.aspectId, kind, vector, k+len(t.pendingDeletes))
	if err != nil {
		return nil, err
	}

	merged := make([]vectorstore.SearchHit, 0, len(hits))
	seen := make(map[uuid.UUID]bool)
	for _, hit := range hits {
		key := vectorstore.Key{AspectId: t.aspectId, ObjectId: hit.ObjectId, Kind: kind}
		if t.pendingDeletes[key] {
			continue
		}
		if _, overridden := t.pendingAdds[key]; overridden {
			continue // re-scored below from the buffered vector
		}
		merged = append(merged, hit)
		seen[hit.ObjectId] = true
	}

	for key, pending := range t.pendingAdds {
		if key.AspectId != t.aspectId || key.Kind != kind || seen[key.ObjectId] {
			continue
		}
		var dot float64
		for i := range pending {
			if i < len(vector) {
				dot += float64(pending[i]) * float64(vector[i])
			}
		}
		merged = append(merged, vectorstore.SearchHit{ObjectId: key.ObjectId, Score: dot})
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ObjectId.String() < merged[j].ObjectId.String()
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

// RecordHistory writes one undo/redo snapshot pair when history is enabled.
func (t *Transaction) RecordHistory(ctx context.Context, kind string, before, after any) error {
	if !t.writeHistory {
		return nil
	}
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return fmt.Errorf("failed to snapshot history: %w", err)
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return fmt.Errorf("failed to snapshot history: %w", err)
	}
	return t.uow.ActionLogRepository().Create(ctx, &entity.ActionLog{
		Id:       uuid.New(),
		AspectId: t.aspectId,
		JobId:    t.jobId,
		Kind:     kind,
		Before:   beforeJSON,
		After:    afterJSON,
	})
}

// Commit flushes the relational transaction first, then the buffered vector
// mutations. A vector-store failure after the relational commit cannot be
// rolled back there; already-applied vector mutations are undone best-effort
// and the error is surfaced.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}

	// Capture current vectors of pending deletes so a failed commit can
	// restore them.
	deleteKeys := make([]vectorstore.Key, 0, len(t.pendingDeletes))
	for key := range t.pendingDeletes {
		deleteKeys = append(deleteKeys, key)
	}
	sort.Slice(deleteKeys, func(i, j int) bool {
		return deleteKeys[i].ObjectId.String() < deleteKeys[j].ObjectId.String()
	})
	undoVectors := make(map[vectorstore.Key][]float32)
	for _, key := range deleteKeys {
		stored, err := t.vectors.GetEmbeddings(ctx, t.projectId, []vectorstore.Key{key})
		if err == nil && len(stored) == 1 {
			undoVectors[key] = stored[0]
		}
	}

	if err := t.uow.Commit(); err != nil {
		t.done = true
		return fmt.Errorf("failed to commit relational transaction: %w", err)
	}
	t.done = true

	addKeys := make([]vectorstore.Key, 0, len(t.pendingAdds))
	for key := range t.pendingAdds {
		addKeys = append(addKeys, key)
	}
	sort.Slice(addKeys, func(i, j int) bool {
		return addKeys[i].ObjectId.String() < addKeys[j].ObjectId.String()
	})
	addVectors := make([][]float32, len(addKeys))
	for i, key := range addKeys {
		addVectors[i] = t.pendingAdds[key]
	}

	if err := t.vectors.AddEmbeddings(ctx, t.projectId, addKeys, addVectors); err != nil {
		t.vectors.Delete(ctx, t.projectId, addKeys)
		return fmt.Errorf("vector store diverged on add after relational commit: %w", err)
	}

	if err := t.vectors.Delete(ctx, t.projectId, deleteKeys); err != nil {
		// Restore what we captured and undo the adds.
		restoreKeys := make([]vectorstore.Key, 0, len(undoVectors))
		restoreVectors := make([][]float32, 0, len(undoVectors))
		for key, vector := range undoVectors {
			restoreKeys = append(restoreKeys, key)
			restoreVectors = append(restoreVectors, vector)
		}
		t.vectors.AddEmbeddings(ctx, t.projectId, restoreKeys, restoreVectors)
		t.vectors.Delete(ctx, t.projectId, addKeys)
		return fmt.Errorf("vector store diverged on delete after relational commit: %w", err)
	}

	return nil
}

// Rollback discards the relational transaction and the buffered vector
// changeset.
func (t *Transaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.pendingAdds = make(map[vectorstore.Key][]float32)
	t.pendingDeletes = make(map[vectorstore.Key]bool)
	return t.uow.Rollback()
}
