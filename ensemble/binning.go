package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// binMapper discretizes each feature into at most maxBins quantile bins.
// upper[j][b] is the inclusive upper bound of bin b of feature j; the last
// bound is +Inf so every value has a bin.
type binMapper struct {
	upper [][]float64
}

func newBinMapper(X mat.Matrix, maxBins int) *binMapper {
	n, p := X.Dims()
	m := &binMapper{upper: make([][]float64, p)}
	values := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			values[i] = X.At(i, j)
		}
		m.upper[j] = quantileBounds(values, maxBins)
	}
	return m
}

// quantileBounds places bin edges halfway between distinct values. With more
// distinct values than bins, edges follow the quantiles of the distinct values.
func quantileBounds(values []float64, maxBins int) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	unique := sorted[:1]
	for _, v := range sorted[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}

	var bounds []float64
	if len(unique) <= maxBins {
		bounds = make([]float64, 0, len(unique))
		for i := 0; i < len(unique)-1; i++ {
			bounds = append(bounds, (unique[i]+unique[i+1])/2)
		}
	} else {
		bounds = make([]float64, 0, maxBins)
		for i := 1; i < maxBins; i++ {
			q := (len(unique) - 1) * i / maxBins
			edge := (unique[q] + unique[q+1]) / 2
			if len(bounds) == 0 || edge > bounds[len(bounds)-1] {
				bounds = append(bounds, edge)
			}
		}
	}
	return append(bounds, math.Inf(1))
}

// nBins returns the number of bins of feature j.
func (m *binMapper) nBins(j int) int {
	return len(m.upper[j])
}

// bin returns the bin of value v for feature j.
func (m *binMapper) bin(j int, v float64) int {
	b := sort.SearchFloat64s(m.upper[j], v)
	if b == len(m.upper[j]) {
		// NaN sorts nowhere; keep it in the last bin.
		b--
	}
	return b
}

// threshold returns the raw split value equivalent to "bin <= b".
func (m *binMapper) threshold(j, b int) float64 {
	return m.upper[j][b]
}

// transform bins every value of X, feature-major.
func (m *binMapper) transform(X mat.Matrix) [][]int {
	n, p := X.Dims()
	out := make([][]int, p)
	for j := 0; j < p; j++ {
		col := make([]int, n)
		for i := 0; i < n; i++ {
			col[i] = m.bin(j, X.At(i, j))
		}
		out[j] = col
	}
	return out
}
