package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const pureTolerance = 1e-12

// criterion accumulates target statistics over a node's rows and over the
// left child while a sorted feature column is swept from low to high.
type criterion interface {
	// init computes the totals over rows.
	init(rows []int)
	impurity() float64
	value() []float64
	// begin starts a sweep with every row in the right child.
	begin()
	// move shifts row i from the right child to the left child.
	move(i int)
	children() (left, right float64)
}

// builder grows one tree depth-first over row indices.
type builder struct {
	params      Params
	columns     [][]float64
	crit        criterion
	rng         *rand.Rand
	importances []float64
}

func newBuilder(params Params, X mat.Matrix, crit criterion) *builder {
	n, p := X.Dims()
	columns := make([][]float64, p)
	for j := range columns {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = X.At(i, j)
		}
		columns[j] = col
	}
	return &builder{
		params:      params,
		columns:     columns,
		crit:        crit,
		rng:         rand.New(rand.NewSource(params.RandomState)),
		importances: make([]float64, p),
	}
}

func (b *builder) build(rows []int, depth int) *Node {
	b.crit.init(rows)
	node := &Node{
		Value:    b.crit.value(),
		Impurity: b.crit.impurity(),
		NSamples: len(rows),
		Depth:    depth,
	}
	if b.stop(len(rows), node.Impurity, depth) {
		return node
	}

	feature, threshold, gain := b.bestSplit(rows, node.Impurity)
	if feature < 0 || gain < b.params.MinImpurityDecrease {
		return node
	}

	col := b.columns[feature]
	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, i := range rows {
		if col[i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[feature] += gain * float64(len(rows))
	node.Feature = feature
	node.Threshold = threshold
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

func (b *builder) stop(n int, impurity float64, depth int) bool {
	return (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		n < b.params.MinSamplesSplit ||
		n < 2*b.params.MinSamplesLeaf ||
		impurity <= pureTolerance
}

// candidates returns the features tried at one node.
func (b *builder) candidates() []int {
	p := len(b.columns)
	if b.params.MaxFeatures <= 0 || b.params.MaxFeatures >= p {
		out := make([]int, p)
		for j := range out {
			out[j] = j
		}
		return out
	}
	return b.rng.Perm(p)[:b.params.MaxFeatures]
}

// bestSplit returns the feature and threshold with the largest impurity
// decrease, or feature -1 if no split satisfies the leaf size limit.
func (b *builder) bestSplit(rows []int, parent float64) (int, float64, float64) {
	n := len(rows)
	minLeaf := b.params.MinSamplesLeaf
	sorted := make([]int, n)

	bestFeature, bestThreshold, bestGain := -1, 0.0, math.Inf(-1)
	for _, f := range b.candidates() {
		col := b.columns[f]
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })
		if col[sorted[0]] == col[sorted[n-1]] {
			continue
		}

		b.crit.begin()
		for pos := 0; pos < n-1; pos++ {
			b.crit.move(sorted[pos])
			lo, hi := col[sorted[pos]], col[sorted[pos+1]]
			if lo == hi {
				continue
			}
			nLeft := pos + 1
			if nLeft < minLeaf || n-nLeft < minLeaf {
				continue
			}
			l, r := b.crit.children()
			gain := parent - (float64(nLeft)*l+float64(n-nLeft)*r)/float64(n)
			if gain > bestGain {
				threshold := (lo + hi) / 2
				if threshold == hi {
					threshold = lo
				}
				bestFeature, bestThreshold, bestGain = f, threshold, gain
			}
		}
	}
	if bestGain < 0 {
		bestGain = 0
	}
	return bestFeature, bestThreshold, bestGain
}

// normalized scales importances to sum to one.
func (b *builder) normalized() []float64 {
	sum := 0.0
	for _, v := range b.importances {
		sum += v
	}
	out := make([]float64, len(b.importances))
	if sum > 0 {
		for i, v := range b.importances {
			out[i] = v / sum
		}
	}
	return out
}

// classCriterion measures Gini impurity or entropy over class indices.
type classCriterion struct {
	labels  []int
	entropy bool
	total   []float64
	left    []float64
	nTotal  float64
	nLeft   float64
}

func newClassCriterion(labels []int, nClasses int, entropy bool) *classCriterion {
	return &classCriterion{
		labels:  labels,
		entropy: entropy,
		total:   make([]float64, nClasses),
		left:    make([]float64, nClasses),
	}
}

func (c *classCriterion) init(rows []int) {
	for k := range c.total {
		c.total[k] = 0
	}
	for _, i := range rows {
		c.total[c.labels[i]]++
	}
	c.nTotal = float64(len(rows))
}

func (c *classCriterion) impurity() float64 {
	return c.measure(c.total, c.nTotal)
}

func (c *classCriterion) value() []float64 {
	out := make([]float64, len(c.total))
	for k, count := range c.total {
		out[k] = count / c.nTotal
	}
	return out
}

func (c *classCriterion) begin() {
	for k := range c.left {
		c.left[k] = 0
	}
	c.nLeft = 0
}

func (c *classCriterion) move(i int) {
	c.left[c.labels[i]]++
	c.nLeft++
}

func (c *classCriterion) children() (float64, float64) {
	left := c.measure(c.left, c.nLeft)

	nRight := c.nTotal - c.nLeft
	if nRight == 0 {
		return left, 0
	}
	if c.entropy {
		h := 0.0
		for k, count := range c.total {
			if r := count - c.left[k]; r > 0 {
				p := r / nRight
				h -= p * math.Log2(p)
			}
		}
		return left, h
	}
	sumSq := 0.0
	for k, count := range c.total {
		p := (count - c.left[k]) / nRight
		sumSq += p * p
	}
	return left, 1 - sumSq
}

func (c *classCriterion) measure(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if c.entropy {
		h := 0.0
		for _, count := range counts {
			if count > 0 {
				p := count / n
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	sumSq := 0.0
	for _, count := range counts {
		p := count / n
		sumSq += p * p
	}
	return 1 - sumSq
}

// varianceCriterion measures the mean squared deviation from the node mean.
type varianceCriterion struct {
	y                []float64
	sum, sumSq, n    float64
	lSum, lSumSq, lN float64
}

func newVarianceCriterion(y []float64) *varianceCriterion {
	return &varianceCriterion{y: y}
}

func (v *varianceCriterion) init(rows []int) {
	v.sum, v.sumSq = 0, 0
	for _, i := range rows {
		v.sum += v.y[i]
		v.sumSq += v.y[i] * v.y[i]
	}
	v.n = float64(len(rows))
}

func (v *varianceCriterion) impurity() float64 {
	return variance(v.sum, v.sumSq, v.n)
}

func (v *varianceCriterion) value() []float64 {
	return []float64{v.sum / v.n}
}

func (v *varianceCriterion) begin() {
	v.lSum, v.lSumSq, v.lN = 0, 0, 0
}

func (v *varianceCriterion) move(i int) {
	v.lSum += v.y[i]
	v.lSumSq += v.y[i] * v.y[i]
	v.lN++
}

func (v *varianceCriterion) children() (float64, float64) {
	return variance(v.lSum, v.lSumSq, v.lN),
		variance(v.sum-v.lSum, v.sumSq-v.lSumSq, v.n-v.lN)
}

func variance(sum, sumSq, n float64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / n
	out := sumSq/n - mean*mean
	if out < 0 {
		return 0
	}
	return out
}
