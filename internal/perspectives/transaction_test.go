package perspectives

import (
	"testing"
	"time"

	"perspectives-be/internal/entity"
	"perspectives-be/internal/repository/specification"
	"perspectives-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTxFixture(t *testing.T) (*fixture, *Transaction) {
	t.Helper()
	f := newFixture(t)
	tx, err := BeginTransaction(f.ctx, f.factory, f.vectors, f.projectId, f.aspect.Id, uuid.New(), true)
	require.NoError(t, err)
	return f, tx
}

func TestCommitFlushesBothStores(t *testing.T) {
	f, tx := newTxFixture(t)

	sdocId := uuid.New()
	key := vectorstore.DocumentKey(f.aspect.Id, sdocId)
	require.NoError(t, tx.AddEmbeddings([]vectorstore.Key{key}, [][]float32{{1, 2, 3}}))

	docAspect := &entity.DocumentAspect{
		SdocId:       sdocId,
		AspectId:     f.aspect.Id,
		Content:      "hello",
		EmbeddingRef: uuid.New(),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, tx.Repos().DocumentAspectRepository().Create(f.ctx, docAspect))

	require.NoError(t, tx.Commit(f.ctx))

	assert.True(t, f.vectors.Has(key))
	uow := f.factory.NewUnitOfWork(f.ctx)
	stored, err := uow.DocumentAspectRepository().FindOne(f.ctx,
		specification.ByAspectID{AspectID: f.aspect.Id},
		specification.BySdocID{SdocID: sdocId},
	)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestRollbackDiscardsBothStores(t *testing.T) {
	f, tx := newTxFixture(t)

	sdocId := uuid.New()
	key := vectorstore.DocumentKey(f.aspect.Id, sdocId)
	require.NoError(t, tx.AddEmbeddings([]vectorstore.Key{key}, [][]float32{{1, 2, 3}}))
	require.NoError(t, tx.Repos().DocumentAspectRepository().Create(f.ctx, &entity.DocumentAspect{
		SdocId:   sdocId,
		AspectId: f.aspect.Id,
	}))

	require.NoError(t, tx.Rollback())

	assert.False(t, f.vectors.Has(key))
	assert.Equal(t, 0, f.vectors.Len())

	uow := f.factory.NewUnitOfWork(f.ctx)
	stored, err := uow.DocumentAspectRepository().FindOne(f.ctx,
		specification.ByAspectID{AspectID: f.aspect.Id},
		specification.BySdocID{SdocID: sdocId},
	)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestGetEmbeddingsSeesBufferedAdds(t *testing.T) {
	f, tx := newTxFixture(t)

	key := vectorstore.DocumentKey(f.aspect.Id, uuid.New())
	require.NoError(t, tx.AddEmbeddings([]vectorstore.Key{key}, [][]float32{{4, 5, 6}}))

	got, err := tx.GetEmbeddings(f.ctx, []vectorstore.Key{key})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{4, 5, 6}, got[0])
}

func TestGetEmbeddingsErrorsOnBufferedDelete(t *testing.T) {
	f, tx := newTxFixture(t)

	key := vectorstore.DocumentKey(f.aspect.Id, uuid.New())
	require.NoError(t, f.vectors.AddEmbeddings(f.ctx, f.projectId, []vectorstore.Key{key}, [][]float32{{1, 0}}))

	tx.DeleteEmbedding(key)
	_, err := tx.GetEmbeddings(f.ctx, []vectorstore.Key{key})
	assert.Error(t, err)
}

func TestSearchNearVectorRespectsBufferedState(t *testing.T) {
	f, tx := newTxFixture(t)

	storedCluster := uuid.New()
	deletedCluster := uuid.New()
	bufferedCluster := uuid.New()

	require.NoError(t, f.vectors.AddEmbeddings(f.ctx, f.projectId,
		[]vectorstore.Key{
			vectorstore.ClusterKey(f.aspect.Id, storedCluster),
			vectorstore.ClusterKey(f.aspect.Id, deletedCluster),
		},
		[][]float32{{0.5, 0}, {1, 0}},
	))

	tx.DeleteEmbedding(vectorstore.ClusterKey(f.aspect.Id, deletedCluster))
	require.NoError(t, tx.AddEmbeddings(
		[]vectorstore.Key{vectorstore.ClusterKey(f.aspect.Id, bufferedCluster)},
		[][]float32{{0.9, 0}},
	))

	hits, err := tx.SearchNearVector(f.ctx, vectorstore.KindCluster, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// The buffered add outranks the stored vector; the deleted one is gone.
	assert.Equal(t, bufferedCluster, hits[0].ObjectId)
	assert.Equal(t, storedCluster, hits[1].ObjectId)
	for _, hit := range hits {
		assert.NotEqual(t, deletedCluster, hit.ObjectId)
	}
}

func TestCommitAppliesBufferedDeletes(t *testing.T) {
	f, tx := newTxFixture(t)

	key := vectorstore.ClusterKey(f.aspect.Id, uuid.New())
	require.NoError(t, f.vectors.AddEmbeddings(f.ctx, f.projectId, []vectorstore.Key{key}, [][]float32{{1, 1}}))

	tx.DeleteEmbedding(key)
	require.NoError(t, tx.Commit(f.ctx))

	assert.False(t, f.vectors.Has(key))
}

func TestRecordHistoryHonorsFlag(t *testing.T) {
	f := newFixture(t)

	withHistory, err := BeginTransaction(f.ctx, f.factory, f.vectors, f.projectId, f.aspect.Id, uuid.New(), true)
	require.NoError(t, err)
	require.NoError(t, withHistory.RecordHistory(f.ctx, "cluster_update", map[string]string{"a": "1"}, map[string]string{"a": "2"}))
	require.NoError(t, withHistory.Commit(f.ctx))

	uow := f.factory.NewUnitOfWork(f.ctx)
	logs, err := uow.ActionLogRepository().FindAll(f.ctx, specification.ByAspectID{AspectID: f.aspect.Id})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	without, err := BeginTransaction(f.ctx, f.factory, f.vectors, f.projectId, f.aspect.Id, uuid.New(), false)
	require.NoError(t, err)
	require.NoError(t, without.RecordHistory(f.ctx, "cluster_update", nil, nil))
	require.NoError(t, without.Commit(f.ctx))

	logs, err = uow.ActionLogRepository().FindAll(f.ctx, specification.ByAspectID{AspectID: f.aspect.Id})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
