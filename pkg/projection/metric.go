// Package projection provides the dimensionality reduction and density
// clustering stages of the perspectives pipeline: a UMAP implementation whose
// fitted models can be persisted and later used transform-only, and HDBSCAN
// for cluster label extraction.
//
// UMAP reference: McInnes, L., Healy, J., & Melville, J. (2018). UMAP:
// Uniform Manifold Approximation and Projection for Dimension Reduction.
// https://arxiv.org/abs/1802.03426
package projection

import "math"

type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
)

func distance(metric Metric, a, b []float64) float64 {
	switch metric {
	case MetricCosine:
		return cosineDistance(a, b)
	default:
		return euclideanDistance(a, b)
	}
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// cosineDistance is 1 - cosine similarity; 1.0 for a zero-norm operand.
func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func toFloat64(vectors [][]float32) [][]float64 {
	result := make([][]float64, len(vectors))
	for i, v := range vectors {
		result[i] = make([]float64, len(v))
		for j, val := range v {
			result[i][j] = float64(val)
		}
	}
	return result
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
