package projection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blob generates n points around a center with the given spread.
func blob(rng *rand.Rand, n int, center []float64, spread float64) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		point := make([]float64, len(center))
		for d := range center {
			point[d] = center[d] + rng.NormFloat64()*spread
		}
		points[i] = point
	}
	return points
}

func TestLabelsSeparatesTwoBlobs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := append(
		blob(rng, 30, []float64{0, 0}, 0.3),
		blob(rng, 30, []float64{10, 10}, 0.3)...,
	)

	clusterer := NewClusterer(HDBSCANParams{MinClusterSize: 5})
	labels := clusterer.Labels(data)

	require.Len(t, labels, 60)

	seen := make(map[int]int)
	for _, label := range labels {
		seen[label]++
	}
	delete(seen, -1)
	assert.Equal(t, 2, len(seen), "expected two clusters, got %v", seen)

	// Points in the same blob must share a label.
	assert.Equal(t, labels[0], labels[15])
	assert.Equal(t, labels[30], labels[45])
	assert.NotEqual(t, labels[0], labels[30])
}

func TestLabelsTooFewPointsAllNoise(t *testing.T) {
	data := [][]float64{{0, 0}, {1, 1}, {2, 2}}

	clusterer := NewClusterer(HDBSCANParams{MinClusterSize: 5})
	labels := clusterer.Labels(data)

	require.Len(t, labels, 3)
	for _, label := range labels {
		assert.Equal(t, -1, label)
	}
}

func TestLabelsUniformNoiseStaysUnclustered(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data := make([][]float64, 20)
	for i := range data {
		data[i] = []float64{rng.Float64() * 100, rng.Float64() * 100}
	}

	clusterer := NewClusterer(HDBSCANParams{MinClusterSize: 15})
	labels := clusterer.Labels(data)

	noise := 0
	for _, label := range labels {
		if label == -1 {
			noise++
		}
	}
	assert.Greater(t, noise, 10)
}

func TestLabelsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := append(
		blob(rng, 25, []float64{0, 0}, 0.5),
		blob(rng, 25, []float64{8, -8}, 0.5)...,
	)

	clusterer := NewClusterer(HDBSCANParams{MinClusterSize: 5})
	first := clusterer.Labels(data)
	second := clusterer.Labels(data)

	assert.Equal(t, first, second)
}

func TestLabelsStartAtZeroAndAreContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	data := append(
		blob(rng, 20, []float64{0, 0}, 0.2),
		blob(rng, 20, []float64{20, 0}, 0.2)...,
	)
	data = append(data, blob(rng, 20, []float64{0, 20}, 0.2)...)

	clusterer := NewClusterer(HDBSCANParams{MinClusterSize: 5})
	labels := clusterer.Labels(data)

	maxLabel := -1
	seen := make(map[int]bool)
	for _, label := range labels {
		if label > maxLabel {
			maxLabel = label
		}
		if label >= 0 {
			seen[label] = true
		}
	}
	for label := 0; label <= maxLabel; label++ {
		assert.True(t, seen[label], "label %d missing", label)
	}
}
