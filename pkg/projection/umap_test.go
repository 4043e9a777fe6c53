package projection

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVectors(rng *rand.Rand, n, dim int, offset float64) [][]float32 {
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for d := range v {
			v[d] = float32(offset + rng.NormFloat64())
		}
		vectors[i] = v
	}
	return vectors
}

func TestFitProducesRequestedDimensionality(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := randomVectors(rng, 40, 16, 0)

	params := DefaultUMAPParams()
	params.Components = 2
	params.Epochs = 30

	reducer := NewReducer(params)
	embedding, err := reducer.Fit(data)

	require.NoError(t, err)
	require.Len(t, embedding, 40)
	for _, point := range embedding {
		assert.Len(t, point, 2)
		for _, coord := range point {
			assert.False(t, math.IsNaN(coord))
			assert.False(t, math.IsInf(coord, 0))
		}
	}
	assert.True(t, reducer.Fitted())
}

func TestFitTinyInputFallsBack(t *testing.T) {
	reducer := NewReducer(DefaultUMAPParams())
	embedding, err := reducer.Fit([][]float32{{1, 2}, {3, 4}})

	require.NoError(t, err)
	assert.Len(t, embedding, 2)
}

func TestTransformRequiresFit(t *testing.T) {
	reducer := NewReducer(DefaultUMAPParams())
	_, err := reducer.Transform([][]float32{{1, 2, 3}})
	assert.Error(t, err)
}

func TestTransformMapsNearTrainingNeighbors(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	left := randomVectors(rng, 20, 8, 0)
	right := randomVectors(rng, 20, 8, 50)
	data := append(left, right...)

	params := DefaultUMAPParams()
	params.Epochs = 50
	reducer := NewReducer(params)
	embedding, err := reducer.Fit(data)
	require.NoError(t, err)

	// A point identical to a training point must land on (or next to) its
	// training coordinates.
	projected, err := reducer.Transform([][]float32{data[0]})
	require.NoError(t, err)
	require.Len(t, projected, 1)

	dx := projected[0][0] - embedding[0][0]
	dy := projected[0][1] - embedding[0][1]
	assert.Less(t, math.Sqrt(dx*dx+dy*dy), 1.0)
}

func TestFitDeterministicForSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := randomVectors(rng, 30, 8, 0)

	params := DefaultUMAPParams()
	params.Epochs = 20

	first, err := NewReducer(params).Fit(data)
	require.NoError(t, err)
	second, err := NewReducer(params).Fit(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReducerSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	data := randomVectors(rng, 25, 8, 0)

	params := DefaultUMAPParams()
	params.Epochs = 20
	reducer := NewReducer(params)
	_, err := reducer.Fit(data)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.umap")
	require.NoError(t, reducer.Save(path))

	loaded, err := LoadReducer(path)
	require.NoError(t, err)
	require.True(t, loaded.Fitted())

	query := randomVectors(rng, 3, 8, 0)
	want, err := reducer.Transform(query)
	require.NoError(t, err)
	got, err := loaded.Transform(query)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReducerStoreLifecycle(t *testing.T) {
	root := t.TempDir()
	store := NewReducerStore(root)

	projectId := uuid.New()
	aspectId := uuid.New()

	_, found, err := store.Load(projectId, aspectId, "nomic-embed-text")
	require.NoError(t, err)
	assert.False(t, found)

	rng := rand.New(rand.NewSource(5))
	params := DefaultUMAPParams()
	params.Epochs = 20
	reducer := NewReducer(params)
	_, err = reducer.Fit(randomVectors(rng, 25, 8, 0))
	require.NoError(t, err)

	require.NoError(t, store.Store(projectId, aspectId, "nomic-embed-text", reducer))

	loaded, found, err := store.Load(projectId, aspectId, "nomic-embed-text")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, loaded.Fitted())

	require.NoError(t, store.DeleteAspect(projectId, aspectId))
	_, err = os.Stat(store.Path(projectId, aspectId, "nomic-embed-text"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.ThumbnailPath(projectId, aspectId))
	assert.True(t, os.IsNotExist(err))
}

func TestThumbnailPathIsDeterministic(t *testing.T) {
	store := NewReducerStore("/var/artifacts")
	projectId := uuid.New()
	aspectId := uuid.New()

	first := store.ThumbnailPath(projectId, aspectId)
	assert.Equal(t, first, store.ThumbnailPath(projectId, aspectId))
	assert.Equal(t, filepath.Dir(store.Path(projectId, aspectId, "m")), filepath.Dir(first))
	assert.Equal(t, "thumbnail.png", filepath.Base(first))
}

func TestReducerStoreSanitizesModelNames(t *testing.T) {
	store := NewReducerStore(t.TempDir())
	path := store.Path(uuid.New(), uuid.New(), "org/model:v1 beta")
	assert.NotContains(t, filepath.Base(path), "/")
	assert.NotContains(t, filepath.Base(path), ":")
	assert.NotContains(t, filepath.Base(path), " ")
}
