package perspectives

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"aligned", []float32{1, 2}, []float32{3, 4}, 11},
		{"length mismatch uses shorter", []float32{1, 1, 1}, []float32{2}, 2},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Dot(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCentroidIsNormalizedMean(t *testing.T) {
	engine := NewCentroidEngine()

	centroid := engine.Centroid([][]float32{
		{2, 0},
		{4, 0},
	})
	require.Len(t, centroid, 2)
	assert.InDelta(t, 1.0, float64(centroid[0]), 1e-6)
	assert.InDelta(t, 0.0, float64(centroid[1]), 1e-6)

	var norm float64
	for _, v := range centroid {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestCentroidZeroMeanStaysUnnormalized(t *testing.T) {
	engine := NewCentroidEngine()

	centroid := engine.Centroid([][]float32{
		{1, -1},
		{-1, 1},
	})
	require.Len(t, centroid, 2)
	assert.Equal(t, float32(0), centroid[0])
	assert.Equal(t, float32(0), centroid[1])
}

func TestCentroidEmptyInput(t *testing.T) {
	assert.Nil(t, NewCentroidEngine().Centroid(nil))
}
