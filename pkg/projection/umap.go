package projection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// UMAPParams holds the hyperparameters of one reducer instance.
type UMAPParams struct {
	Components         int     // Output dimensionality
	Neighbors          int     // k for the k-NN graph (default: 15)
	MinDist            float64 // Minimum distance in low-dim space (default: 0.1)
	Spread             float64 // Effective scale of embedded points (default: 1.0)
	Metric             Metric  // Distance in the input space
	Epochs             int     // SGD epochs (default: 200)
	LearningRate       float64 // Initial learning rate (default: 1.0)
	NegativeSampleRate float64 // Negative samples per positive (default: 5.0)
	Seed               int64   // Random seed for reproducibility
}

func DefaultUMAPParams() UMAPParams {
	return UMAPParams{
		Components:         2,
		Neighbors:          15,
		MinDist:            0.1,
		Spread:             1.0,
		Metric:             MetricCosine,
		Epochs:             200,
		LearningRate:       1.0,
		NegativeSampleRate: 5.0,
		Seed:               42,
	}
}

// Reducer is a UMAP model. Fit learns an embedding of the training batch;
// Transform places later points into the already-fitted space by a weighted
// average of their nearest training points, so existing coordinates never
// move. Fields are exported for gob persistence.
type Reducer struct {
	Params         UMAPParams
	TrainData      [][]float64
	TrainEmbedding [][]float64
}

func NewReducer(params UMAPParams) *Reducer {
	if params.Components < 1 {
		params.Components = 2
	}
	if params.Neighbors < 2 {
		params.Neighbors = 15
	}
	if params.Epochs <= 0 {
		params.Epochs = 200
	}
	if params.Spread <= 0 {
		params.Spread = 1.0
	}
	if params.LearningRate <= 0 {
		params.LearningRate = 1.0
	}
	if params.NegativeSampleRate <= 0 {
		params.NegativeSampleRate = 5.0
	}
	return &Reducer{Params: params}
}

func (r *Reducer) Fitted() bool {
	return len(r.TrainEmbedding) > 0
}

// Fit learns the embedding for the given batch and returns one coordinate
// row per input, in input order.
func (r *Reducer) Fit(vectors [][]float32) ([][]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot fit reducer on an empty batch")
	}

	data := toFloat64(vectors)
	nSamples := len(data)

	k := r.Params.Neighbors
	if k >= nSamples {
		k = nSamples - 1
	}
	if k < 2 {
		// Too few points for a neighborhood graph; lay the points out
		// deterministically instead.
		embedding := fallbackLayout(nSamples, r.Params.Components)
		r.TrainData = data
		r.TrainEmbedding = embedding
		return copyEmbedding(embedding), nil
	}

	knn := r.nearestNeighbors(data, k)
	sigmas, rhos := smoothKNNDist(knn.dists, float64(k))
	graph := fuzzySimplicialSet(knn, sigmas, rhos, nSamples)
	a, b := findABParams(r.Params.Spread, r.Params.MinDist)

	embedding := initialLayout(graph, nSamples, r.Params.Components, r.Params.Seed)
	rng := rand.New(rand.NewSource(r.Params.Seed + 1))
	embedding = optimizeLayout(embedding, graph, a, b, r.Params.Epochs, r.Params.LearningRate, r.Params.NegativeSampleRate, rng)

	r.TrainData = data
	r.TrainEmbedding = embedding
	return copyEmbedding(embedding), nil
}

// Transform projects new vectors into the fitted space. Each point lands at
// the distance-weighted average of its k nearest training points' embedded
// coordinates.
func (r *Reducer) Transform(vectors [][]float32) ([][]float64, error) {
	if !r.Fitted() {
		return nil, fmt.Errorf("reducer is not fitted")
	}

	data := toFloat64(vectors)
	k := r.Params.Neighbors
	if k > len(r.TrainData) {
		k = len(r.TrainData)
	}

	out := make([][]float64, len(data))
	for i, point := range data {
		type neighbor struct {
			dist float64
			idx  int
		}
		neighbors := make([]neighbor, len(r.TrainData))
		for j, trainPoint := range r.TrainData {
			neighbors[j] = neighbor{dist: distance(r.Params.Metric, point, trainPoint), idx: j}
		}
		sort.Slice(neighbors, func(a, b int) bool {
			if neighbors[a].dist != neighbors[b].dist {
				return neighbors[a].dist < neighbors[b].dist
			}
			return neighbors[a].idx < neighbors[b].idx
		})

		coords := make([]float64, r.Params.Components)
		var weightSum float64
		for _, nb := range neighbors[:k] {
			w := 1.0 / (nb.dist + 1e-9)
			weightSum += w
			for d := 0; d < r.Params.Components; d++ {
				coords[d] += w * r.TrainEmbedding[nb.idx][d]
			}
		}
		if weightSum > 0 {
			for d := range coords {
				coords[d] /= weightSum
			}
		}
		out[i] = coords
	}
	return out, nil
}

type knnGraph struct {
	indices [][]int
	dists   [][]float64
}

// nearestNeighbors computes the exact k-NN graph by brute force. Fine for
// the corpus sizes an aspect holds; swap for NN-Descent if that changes.
func (r *Reducer) nearestNeighbors(data [][]float64, k int) knnGraph {
	n := len(data)
	indices := make([][]int, n)
	dists := make([][]float64, n)

	type distIdx struct {
		dist float64
		idx  int
	}

	for i := 0; i < n; i++ {
		candidates := make([]distIdx, n)
		for j := 0; j < n; j++ {
			candidates[j] = distIdx{dist: distance(r.Params.Metric, data[i], data[j]), idx: j}
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].dist != candidates[b].dist {
				return candidates[a].dist < candidates[b].dist
			}
			return candidates[a].idx < candidates[b].idx
		})

		indices[i] = make([]int, k)
		dists[i] = make([]float64, k)
		pos := 0
		for j := 0; j < len(candidates) && pos < k; j++ {
			if candidates[j].idx == i {
				continue
			}
			indices[i][pos] = candidates[j].idx
			dists[i][pos] = candidates[j].dist
			pos++
		}
	}

	return knnGraph{indices: indices, dists: dists}
}

// smoothKNNDist computes sigma (bandwidth) and rho (local connectivity
// distance) per point. Binary search finds sigma such that the sum of fuzzy
// memberships equals log2(k).
func smoothKNNDist(distances [][]float64, k float64) (sigmas, rhos []float64) {
	const (
		nIter             = 64
		localConnectivity = 1.0
		tolerance         = 1e-5
		minKDistScale     = 1e-3
	)

	n := len(distances)
	sigmas = make([]float64, n)
	rhos = make([]float64, n)
	target := math.Log2(k)

	for i := 0; i < n; i++ {
		dists := distances[i]

		nonZero := make([]float64, 0, len(dists))
		for _, d := range dists {
			if d > 0 {
				nonZero = append(nonZero, d)
			}
		}

		if len(nonZero) >= int(localConnectivity) {
			idx := int(math.Floor(localConnectivity))
			interp := localConnectivity - float64(idx)
			if idx > 0 {
				rhos[i] = nonZero[idx-1]
				if interp > tolerance {
					rhos[i] += interp * (nonZero[idx] - nonZero[idx-1])
				}
			} else {
				rhos[i] = interp * nonZero[0]
			}
		} else if len(nonZero) > 0 {
			rhos[i] = nonZero[len(nonZero)-1]
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for iter := 0; iter < nIter; iter++ {
			psum := 0.0
			for j := 0; j < len(dists); j++ {
				d := dists[j] - rhos[i]
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum += 1.0
				}
			}

			if math.Abs(psum-target) < tolerance {
				break
			}

			if psum > target {
				hi = mid
			} else {
				lo = mid
			}

			if math.IsInf(hi, 1) {
				mid *= 2
			} else {
				mid = (lo + hi) / 2
			}
		}

		sigmas[i] = mid

		if minSigma := minKDistScale * mean(dists); sigmas[i] < minSigma {
			sigmas[i] = minSigma
		}
	}

	return sigmas, rhos
}

type sparseGraph struct {
	rows []int
	cols []int
	vals []float64
	n    int
}

func fuzzySimplicialSet(knn knnGraph, sigmas, rhos []float64, nSamples int) sparseGraph {
	n := len(knn.indices)
	k := len(knn.indices[0])

	rows := make([]int, 0, n*k)
	cols := make([]int, 0, n*k)
	vals := make([]float64, 0, n*k)

	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			dist := knn.dists[i][j]

			var val float64
			if dist-rhos[i] <= 0 || sigmas[i] == 0 {
				val = 1.0
			} else {
				val = math.Exp(-(dist - rhos[i]) / sigmas[i])
			}

			rows = append(rows, i)
			cols = append(cols, knn.indices[i][j])
			vals = append(vals, val)
		}
	}

	return fuzzySetUnion(sparseGraph{rows: rows, cols: cols, vals: vals, n: nSamples})
}

// fuzzySetUnion symmetrizes the graph: P(A ∪ B) = P(A) + P(B) - P(A)P(B).
func fuzzySetUnion(graph sparseGraph) sparseGraph {
	type edge struct{ r, c int }
	edgeMap := make(map[edge]float64)
	for i := range graph.rows {
		edgeMap[edge{graph.rows[i], graph.cols[i]}] = graph.vals[i]
	}

	resultMap := make(map[edge]float64)
	for i := range graph.rows {
		e := edge{graph.rows[i], graph.cols[i]}
		v := graph.vals[i]
		vt := edgeMap[edge{e.c, e.r}]

		union := v + vt - v*vt
		if union > 0 {
			resultMap[e] = union
		}
	}

	// Sort edges so every run walks them in the same order.
	edges := make([]edge, 0, len(resultMap))
	for e := range resultMap {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].r != edges[j].r {
			return edges[i].r < edges[j].r
		}
		return edges[i].c < edges[j].c
	})

	rows := make([]int, len(edges))
	cols := make([]int, len(edges))
	vals := make([]float64, len(edges))
	for i, e := range edges {
		rows[i] = e.r
		cols[i] = e.c
		vals[i] = resultMap[e]
	}

	return sparseGraph{rows: rows, cols: cols, vals: vals, n: graph.n}
}

// findABParams fits f(x) = 1 / (1 + a * x^(2b)) to the target membership
// curve via grid search.
func findABParams(spread, minDist float64) (a, b float64) {
	const nPoints = 300
	xv := make([]float64, nPoints)
	yv := make([]float64, nPoints)

	for i := 0; i < nPoints; i++ {
		xv[i] = float64(i) / float64(nPoints-1) * spread * 3
		if xv[i] < minDist {
			yv[i] = 1.0
		} else {
			yv[i] = math.Exp(-(xv[i] - minDist) / spread)
		}
	}

	bestA, bestB := 1.0, 1.0
	bestError := math.Inf(1)

	for aTest := 0.1; aTest <= 10.0; aTest += 0.1 {
		for bTest := 0.1; bTest <= 2.0; bTest += 0.05 {
			err := 0.0
			for i := 0; i < nPoints; i++ {
				pred := 1.0 / (1.0 + aTest*math.Pow(xv[i], 2*bTest))
				diff := pred - yv[i]
				err += diff * diff
			}
			if err < bestError {
				bestError = err
				bestA, bestB = aTest, bTest
			}
		}
	}

	return bestA, bestB
}

// initialLayout uses spectral initialization for larger batches, random
// otherwise.
func initialLayout(graph sparseGraph, nSamples, nDims int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))

	embedding := spectralLayout(graph, nSamples, nDims)
	if embedding != nil {
		for i := range embedding {
			for j := range embedding[i] {
				embedding[i][j] += (rng.Float64() - 0.5) * 0.0001
			}
		}
		return embedding
	}

	embedding = make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		embedding[i] = make([]float64, nDims)
		for j := 0; j < nDims; j++ {
			embedding[i][j] = (rng.Float64() - 0.5) * 10
		}
	}
	return embedding
}

// spectralLayout seeds the embedding with eigenvectors of the normalized
// graph Laplacian. Skipped below 50 points where random init works fine.
func spectralLayout(graph sparseGraph, nSamples, nDims int) [][]float64 {
	if nSamples < 50 {
		return nil
	}

	adj := mat.NewDense(nSamples, nSamples, nil)
	for i := range graph.rows {
		adj.Set(graph.rows[i], graph.cols[i], graph.vals[i])
	}

	degrees := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		for j := 0; j < nSamples; j++ {
			degrees[i] += adj.At(i, j)
		}
	}

	// L = I - D^(-1/2) * A * D^(-1/2)
	laplacian := mat.NewDense(nSamples, nSamples, nil)
	for i := 0; i < nSamples; i++ {
		laplacian.Set(i, i, 1.0)
		for j := 0; j < nSamples; j++ {
			if degrees[i] > 0 && degrees[j] > 0 {
				normalized := adj.At(i, j) / math.Sqrt(degrees[i]*degrees[j])
				laplacian.Set(i, j, laplacian.At(i, j)-normalized)
			}
		}
	}

	var eigen mat.Eigen
	if ok := eigen.Factorize(laplacian, mat.EigenRight); !ok {
		return nil
	}

	values := eigen.Values(nil)
	vectors := mat.CDense{}
	eigen.VectorsTo(&vectors)

	type eigenPair struct {
		val float64
		idx int
	}
	pairs := make([]eigenPair, len(values))
	for i, v := range values {
		pairs[i] = eigenPair{real(v), i}
	}
	sort.Slice(pairs, func(a, b int) bool {
		return pairs[a].val < pairs[b].val
	})

	// Smallest non-trivial eigenvectors become the coordinates.
	embedding := make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		embedding[i] = make([]float64, nDims)
		for j := 0; j < nDims; j++ {
			if j+1 < len(pairs) {
				embedding[i][j] = real(vectors.At(i, pairs[j+1].idx))
			}
		}
	}

	for d := 0; d < nDims; d++ {
		minVal, maxVal := math.Inf(1), math.Inf(-1)
		for i := 0; i < nSamples; i++ {
			if embedding[i][d] < minVal {
				minVal = embedding[i][d]
			}
			if embedding[i][d] > maxVal {
				maxVal = embedding[i][d]
			}
		}
		if scale := maxVal - minVal; scale > 0 {
			for i := 0; i < nSamples; i++ {
				embedding[i][d] = (embedding[i][d] - minVal) / scale * 10
			}
		}
	}

	return embedding
}

func optimizeLayout(
	embedding [][]float64,
	graph sparseGraph,
	a, b float64,
	nEpochs int,
	initialAlpha float64,
	negativeSampleRate float64,
	rng *rand.Rand,
) [][]float64 {
	nSamples := len(embedding)
	nEdges := len(graph.rows)

	if nEdges == 0 || nSamples < 2 {
		return embedding
	}

	maxWeight := 0.0
	for _, w := range graph.vals {
		if w > maxWeight {
			maxWeight = w
		}
	}
	if maxWeight == 0 {
		maxWeight = 1.0
	}

	// Stronger edges get sampled more often (smaller epoch interval).
	epochsPerSample := make([]float64, nEdges)
	for i, w := range graph.vals {
		if w > 0 {
			epochsPerSample[i] = float64(nEpochs) / (float64(nEpochs) * (w / maxWeight))
			if epochsPerSample[i] < 1 {
				epochsPerSample[i] = 1
			}
		} else {
			epochsPerSample[i] = float64(nEpochs) + 1 // Never sample
		}
	}

	epochOfNextSample := make([]float64, nEdges)
	copy(epochOfNextSample, epochsPerSample)

	nNegPerPos := int(negativeSampleRate)
	if nNegPerPos < 1 {
		nNegPerPos = 1
	}

	for epoch := 0; epoch < nEpochs; epoch++ {
		alpha := initialAlpha * (1.0 - float64(epoch)/float64(nEpochs))
		if alpha < 0.0001 {
			alpha = 0.0001
		}

		for i := 0; i < nEdges; i++ {
			if epochOfNextSample[i] > float64(epoch) {
				continue
			}

			j := graph.rows[i]
			k := graph.cols[i]
			if j >= nSamples || k >= nSamples {
				continue
			}

			current := embedding[j]
			other := embedding[k]

			// Attraction along the sampled edge.
			distSq := squaredEuclidean(current, other)
			if distSq > 0 {
				gradCoeff := -2.0 * a * b * math.Pow(distSq, b-1.0)
				gradCoeff /= a*math.Pow(distSq, b) + 1.0

				for d := range current {
					grad := clip(gradCoeff * (current[d] - other[d]))
					embedding[j][d] += grad * alpha
				}
			}

			// Repulsion from random negative samples.
			for p := 0; p < nNegPerPos; p++ {
				negIdx := rng.Intn(nSamples)
				if negIdx == j {
					continue
				}

				negPoint := embedding[negIdx]
				distSq := squaredEuclidean(current, negPoint)

				var gradCoeff float64
				if distSq > 0.001 {
					gradCoeff = 2.0 * b
					gradCoeff /= (0.001 + distSq) * (a*math.Pow(distSq, b) + 1)
				}

				if gradCoeff > 0 {
					for d := range current {
						grad := clip(gradCoeff * (current[d] - negPoint[d]))
						embedding[j][d] += grad * alpha
					}
				}
			}

			epochOfNextSample[i] += epochsPerSample[i]
		}
	}

	return embedding
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// clip constrains gradient values to prevent explosive updates.
func clip(val float64) float64 {
	if val > 4.0 {
		return 4.0
	}
	if val < -4.0 {
		return -4.0
	}
	return val
}

// fallbackLayout spaces points along the first axis when the batch is too
// small for a neighborhood graph.
func fallbackLayout(nSamples, nDims int) [][]float64 {
	embedding := make([][]float64, nSamples)
	for i := range embedding {
		embedding[i] = make([]float64, nDims)
		embedding[i][0] = float64(i)
	}
	return embedding
}

func copyEmbedding(embedding [][]float64) [][]float64 {
	out := make([][]float64, len(embedding))
	for i, row := range embedding {
		cp := make([]float64, len(row))
		copy(cp, row)
		out[i] = cp
	}
	return out
}
