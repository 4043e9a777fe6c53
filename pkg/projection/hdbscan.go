package projection

import (
	"math"
	"sort"
)

// HDBSCANParams configures the density clusterer. MinSamples defaults to
// MinClusterSize when unset.
type HDBSCANParams struct {
	MinClusterSize int
	MinSamples     int
	Metric         Metric
}

func DefaultHDBSCANParams() HDBSCANParams {
	return HDBSCANParams{
		MinClusterSize: 5,
		MinSamples:     0,
		Metric:         MetricEuclidean,
	}
}

// Clusterer runs hierarchical density-based clustering. Labels returns one
// integer label per input row; -1 marks noise/outliers. Labels are assigned
// deterministically for a fixed input.
type Clusterer struct {
	params HDBSCANParams
}

func NewClusterer(params HDBSCANParams) *Clusterer {
	if params.MinClusterSize < 2 {
		params.MinClusterSize = 5
	}
	if params.MinSamples <= 0 {
		params.MinSamples = params.MinClusterSize
	}
	if params.Metric == "" {
		params.Metric = MetricEuclidean
	}
	return &Clusterer{params: params}
}

func (c *Clusterer) Labels(data [][]float64) []int {
	n := len(data)
	if n == 0 {
		return nil
	}

	if n < c.params.MinClusterSize {
		labels := make([]int, n)
		for i := range labels {
			labels[i] = -1
		}
		return labels
	}

	coreDistances := c.coreDistances(data)
	mstEdges := c.mutualReachabilityMST(data, coreDistances)
	linkage := singleLinkageTree(mstEdges, n)
	condensed := condenseTree(linkage, c.params.MinClusterSize, n)
	stability := computeStability(condensed)
	return extractClusters(condensed, stability, n)
}

type mstEdge struct {
	from, to int
	weight   float64
}

type linkageNode struct {
	left, right int
	distance    float64
	size        int
}

type condensedEdge struct {
	parent    int
	child     int
	lambda    float64
	childSize int
}

type condensedTree struct {
	edges       []condensedEdge
	rootCluster int
}

// coreDistances computes each point's distance to its MinSamples-th
// neighbor.
func (c *Clusterer) coreDistances(data [][]float64) []float64 {
	n := len(data)
	minSamples := c.params.MinSamples
	if minSamples > n {
		minSamples = n
	}

	coreDistances := make([]float64, n)
	for i := 0; i < n; i++ {
		dists := make([]float64, n)
		for j := 0; j < n; j++ {
			dists[j] = distance(c.params.Metric, data[i], data[j])
		}
		sort.Float64s(dists)

		k := minSamples
		if k >= n {
			k = n - 1
		}
		coreDistances[i] = dists[k]
	}

	return coreDistances
}

// mutualReachabilityMST builds a minimum spanning tree over the mutual
// reachability distance via Prim's algorithm.
func (c *Clusterer) mutualReachabilityMST(data [][]float64, coreDistances []float64) []mstEdge {
	n := len(data)
	if n < 2 {
		return nil
	}

	inTree := make([]bool, n)
	minDist := make([]float64, n)
	minEdge := make([]int, n)

	for i := range minDist {
		minDist[i] = math.Inf(1)
		minEdge[i] = -1
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[current] = true

	for added := 1; added < n; added++ {
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			dist := distance(c.params.Metric, data[current], data[j])
			mrd := math.Max(coreDistances[current], math.Max(coreDistances[j], dist))

			if mrd < minDist[j] {
				minDist[j] = mrd
				minEdge[j] = current
			}
		}

		minIdx := -1
		minVal := math.Inf(1)
		for j := 0; j < n; j++ {
			if !inTree[j] && minDist[j] < minVal {
				minVal = minDist[j]
				minIdx = j
			}
		}

		if minIdx < 0 {
			break
		}

		edges = append(edges, mstEdge{
			from:   minEdge[minIdx],
			to:     minIdx,
			weight: minVal,
		})
		inTree[minIdx] = true
		current = minIdx
	}

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].weight < edges[j].weight
	})

	return edges
}

type unionFind struct {
	parent []int
	size   []int
	next   int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, 2*n-1)
	size := make([]int, 2*n-1)
	for i := 0; i < n; i++ {
		parent[i] = i
		size[i] = 1
	}
	return &unionFind{parent: parent, size: size, next: n}
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

func (uf *unionFind) union(x, y int) int {
	newNode := uf.next
	uf.parent[x] = newNode
	uf.parent[y] = newNode
	uf.parent[newNode] = newNode
	uf.size[newNode] = uf.size[x] + uf.size[y]
	uf.next++
	return newNode
}

func singleLinkageTree(edges []mstEdge, nSamples int) []linkageNode {
	if len(edges) == 0 {
		return nil
	}

	uf := newUnionFind(nSamples)
	tree := make([]linkageNode, len(edges))

	for i, edge := range edges {
		left := uf.find(edge.from)
		right := uf.find(edge.to)

		newSize := uf.size[left] + uf.size[right]
		uf.union(left, right)

		tree[i] = linkageNode{
			left:     left,
			right:    right,
			distance: edge.weight,
			size:     newSize,
		}
	}

	return tree
}

func condenseTree(tree []linkageNode, minClusterSize int, nSamples int) condensedTree {
	if len(tree) == 0 {
		return condensedTree{rootCluster: nSamples}
	}

	rootCluster := nSamples + len(tree) - 1
	relabel := make(map[int]int)
	nextLabel := nSamples

	var edges []condensedEdge

	var condense func(node int, parent int, lambdaVal float64)
	condense = func(node int, parent int, lambdaVal float64) {
		if node < nSamples {
			edges = append(edges, condensedEdge{
				parent:    parent,
				child:     node,
				lambda:    lambdaVal,
				childSize: 1,
			})
			return
		}

		treeIdx := node - nSamples
		if treeIdx < 0 || treeIdx >= len(tree) {
			return
		}

		linkNode := tree[treeIdx]
		left := linkNode.left
		right := linkNode.right

		leftSize := 1
		rightSize := 1
		if left >= nSamples {
			if idx := left - nSamples; idx >= 0 && idx < len(tree) {
				leftSize = tree[idx].size
			}
		}
		if right >= nSamples {
			if idx := right - nSamples; idx >= 0 && idx < len(tree) {
				rightSize = tree[idx].size
			}
		}

		newLambda := 0.0
		if linkNode.distance > 0 {
			newLambda = 1.0 / linkNode.distance
		}

		// A true split only happens when both children are large enough to
		// be clusters of their own; otherwise the points fall through to the
		// parent.
		if leftSize >= minClusterSize && rightSize >= minClusterSize {
			leftLabel := nextLabel
			nextLabel++
			rightLabel := nextLabel
			nextLabel++

			relabel[left] = leftLabel
			relabel[right] = rightLabel

			edges = append(edges, condensedEdge{
				parent:    parent,
				child:     leftLabel,
				lambda:    newLambda,
				childSize: leftSize,
			})
			edges = append(edges, condensedEdge{
				parent:    parent,
				child:     rightLabel,
				lambda:    newLambda,
				childSize: rightSize,
			})

			condense(left, leftLabel, newLambda)
			condense(right, rightLabel, newLambda)
		} else {
			condense(left, parent, lambdaVal)
			condense(right, parent, lambdaVal)
		}
	}

	rootLabel := nextLabel
	nextLabel++
	relabel[rootCluster] = rootLabel

	var rootLambda float64
	if tree[len(tree)-1].distance > 0 {
		rootLambda = 1.0 / tree[len(tree)-1].distance
	}
	condense(rootCluster, rootLabel, rootLambda)

	return condensedTree{edges: edges, rootCluster: rootLabel}
}

func computeStability(tree condensedTree) map[int]float64 {
	stability := make(map[int]float64)

	birthLambda := make(map[int]float64)
	for _, e := range tree.edges {
		if e.childSize > 1 {
			if _, ok := birthLambda[e.child]; !ok {
				birthLambda[e.child] = e.lambda
			}
		}
	}

	clusters := make(map[int]bool)
	for _, e := range tree.edges {
		if e.childSize > 1 {
			clusters[e.child] = true
		}
		clusters[e.parent] = true
	}

	for cluster := range clusters {
		var stab float64
		for _, e := range tree.edges {
			if e.parent == cluster && e.childSize == 1 {
				stab += (e.lambda - birthLambda[cluster]) * float64(e.childSize)
			}
		}
		stability[cluster] = stab
	}

	return stability
}

func extractClusters(tree condensedTree, stability map[int]float64, nSamples int) []int {
	labels := make([]int, nSamples)
	for i := range labels {
		labels[i] = -1
	}

	if len(tree.edges) == 0 {
		return labels
	}

	children := make(map[int][]int)
	allClusters := make(map[int]bool)
	for _, e := range tree.edges {
		if e.childSize > 1 {
			children[e.parent] = append(children[e.parent], e.child)
			allClusters[e.child] = true
		}
		allClusters[e.parent] = true
	}

	selected := make(map[int]bool)
	subtreeStability := make(map[int]float64)
	for k, v := range stability {
		subtreeStability[k] = v
	}

	var clusters []int
	for c := range allClusters {
		clusters = append(clusters, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(clusters)))

	// Excess-of-mass selection: keep a cluster when it is at least as stable
	// as the sum of its children, otherwise keep the children.
	for _, cluster := range clusters {
		childStab := 0.0
		for _, child := range children[cluster] {
			childStab += subtreeStability[child]
		}

		if stability[cluster] >= childStab {
			selected[cluster] = true
			var removeDescendants func(int)
			removeDescendants = func(c int) {
				for _, desc := range children[c] {
					delete(selected, desc)
					removeDescendants(desc)
				}
			}
			removeDescendants(cluster)
			subtreeStability[cluster] = stability[cluster]
		} else {
			subtreeStability[cluster] = childStab
		}
	}

	// Assign labels in ascending cluster-node order so a fixed input always
	// produces the same labeling.
	selectedList := make([]int, 0, len(selected))
	for cluster := range selected {
		selectedList = append(selectedList, cluster)
	}
	sort.Ints(selectedList)

	labelID := 0
	for _, cluster := range selectedList {
		points := collectClusterPoints(tree, cluster)
		for _, pt := range points {
			if pt >= 0 && pt < nSamples {
				labels[pt] = labelID
			}
		}
		labelID++
	}

	return labels
}

func collectClusterPoints(tree condensedTree, cluster int) []int {
	children := make(map[int][]condensedEdge)
	for _, e := range tree.edges {
		children[e.parent] = append(children[e.parent], e)
	}

	var points []int
	var collect func(c int)
	collect = func(c int) {
		for _, e := range children[c] {
			if e.childSize == 1 {
				points = append(points, e.child)
			} else {
				collect(e.child)
			}
		}
	}

	collect(cluster)
	return points
}
