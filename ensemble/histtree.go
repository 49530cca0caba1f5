package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/parallel"
)

const (
	minHessianInLeaf = 1e-3
	parallelRows     = 2048
)

// histNode is a node of a boosting tree. Leaves have Left == -1.
type histNode struct {
	Feature   int
	Bin       int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// histTree is a regression tree on gradient statistics stored as a flat
// node slice with the root at index 0.
type histTree struct {
	nodes []histNode
	// gains is the split gain credited to each feature by this tree.
	gains []float64
}

// predict returns the leaf value for row i of raw features X.
func (t *histTree) predict(X mat.Matrix, i int) float64 {
	node := &t.nodes[0]
	for node.Left >= 0 {
		if X.At(i, node.Feature) <= node.Threshold {
			node = &t.nodes[node.Left]
		} else {
			node = &t.nodes[node.Right]
		}
	}
	return node.Value
}

// predictBinned returns the leaf value for row i of binned training features.
func (t *histTree) predictBinned(binned [][]int, i int) float64 {
	node := &t.nodes[0]
	for node.Left >= 0 {
		if binned[node.Feature][i] <= node.Bin {
			node = &t.nodes[node.Left]
		} else {
			node = &t.nodes[node.Right]
		}
	}
	return node.Value
}

func (t *histTree) leaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.Left < 0 {
			count++
		}
	}
	return count
}

// splitInfo is the best split found for one feature.
type splitInfo struct {
	feature int
	bin     int
	gain    float64
}

// histBuilder grows one tree on binned features by accumulating gradient
// and hessian histograms per node.
type histBuilder struct {
	bins     *binMapper
	binned   [][]int
	grad     []float64
	hess     []float64
	maxDepth int
	minLeaf  int
	lambda   float64
	workers  int

	tree *histTree
}

func (b *histBuilder) build(rows []int) *histTree {
	b.tree = &histTree{gains: make([]float64, len(b.binned))}
	b.grow(rows, 0)
	return b.tree
}

func (b *histBuilder) grow(rows []int, depth int) int {
	G, H := 0.0, 0.0
	for _, i := range rows {
		G += b.grad[i]
		H += b.hess[i]
	}
	idx := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, histNode{Left: -1, Right: -1, Value: -G / (H + b.lambda)})

	if (b.maxDepth > 0 && depth >= b.maxDepth) || len(rows) < 2*b.minLeaf {
		return idx
	}
	best := b.bestSplit(rows, G, H)
	if best.feature < 0 {
		return idx
	}

	col := b.binned[best.feature]
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, i := range rows {
		if col[i] <= best.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.tree.gains[best.feature] += best.gain

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	node := &b.tree.nodes[idx]
	node.Feature = best.feature
	node.Bin = best.bin
	node.Threshold = b.bins.threshold(best.feature, best.bin)
	node.Left = l
	node.Right = r
	return idx
}

func (b *histBuilder) bestSplit(rows []int, G, H float64) splitInfo {
	p := len(b.binned)
	results := make([]splitInfo, p)
	workers := 1
	if len(rows) >= parallelRows {
		workers = b.workers
	}
	parallel.ForEach(p, workers, func(j int) {
		results[j] = b.featureSplit(j, rows, G, H)
	})

	best := splitInfo{feature: -1}
	for _, s := range results {
		if s.feature >= 0 && s.gain > best.gain {
			best = s
		}
	}
	return best
}

// featureSplit sweeps the histogram of feature j from the lowest bin up.
func (b *histBuilder) featureSplit(j int, rows []int, G, H float64) splitInfo {
	nBins := b.bins.nBins(j)
	best := splitInfo{feature: -1}
	if nBins < 2 {
		return best
	}
	sumG := make([]float64, nBins)
	sumH := make([]float64, nBins)
	count := make([]int, nBins)
	col := b.binned[j]
	for _, i := range rows {
		bin := col[i]
		sumG[bin] += b.grad[i]
		sumH[bin] += b.hess[i]
		count[bin]++
	}

	parent := G * G / (H + b.lambda)
	GL, HL, nL := 0.0, 0.0, 0
	for bin := 0; bin < nBins-1; bin++ {
		GL += sumG[bin]
		HL += sumH[bin]
		nL += count[bin]
		nR := len(rows) - nL
		if count[bin] == 0 || nL < b.minLeaf || nR < b.minLeaf {
			continue
		}
		GR, HR := G-GL, H-HL
		if HL < minHessianInLeaf || HR < minHessianInLeaf {
			continue
		}
		gain := GL*GL/(HL+b.lambda) + GR*GR/(HR+b.lambda) - parent
		if gain > best.gain {
			best = splitInfo{feature: j, bin: bin, gain: gain}
		}
	}
	return best
}
