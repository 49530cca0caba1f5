// Package modelselection splits tables into train, validation and test rows.
package modelselection

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// TrainTestSplit samples round(trainFrac·n) row indices for training using a
// generator seeded with seed. Train indices are returned in sampled order and
// test indices, the remaining rows, in their original order. The same n, fraction
// and seed always produce the same split.
func TrainTestSplit(n int, trainFrac float64, seed int64) (train, test []int, err error) {
	if n <= 0 {
		return nil, nil, ssErrors.NewModelError("TrainTestSplit", "empty data", ssErrors.ErrEmptyData)
	}
	if trainFrac <= 0 || trainFrac >= 1 {
		return nil, nil, ssErrors.NewValidationError("trainFrac", "must be in (0, 1)", trainFrac)
	}

	nTrain := int(math.Round(trainFrac * float64(n)))
	if nTrain == 0 || nTrain == n {
		return nil, nil, ssErrors.NewValueError("TrainTestSplit", "split leaves an empty train or test set")
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	train = append([]int(nil), perm[:nTrain]...)
	test = append([]int(nil), perm[nTrain:]...)
	sort.Ints(test)
	return train, test, nil
}

// ValidationSplit holds out the trailing rows of an n-row training set:
// the first int(n·(1-frac)) rows train and the rest validate. frac == 0
// returns every row for training and no validation rows.
func ValidationSplit(n int, frac float64) (train, val []int) {
	if frac <= 0 || n == 0 {
		return Range(0, n), nil
	}
	splitAt := int(float64(n) * (1 - frac))
	if splitAt < 1 {
		splitAt = 1
	}
	return Range(0, splitAt), Range(splitAt, n)
}

// Range returns the indices [start, end).
func Range(start, end int) []int {
	if end <= start {
		return nil
	}
	out := make([]int, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// TakeRows copies the rows of X at idx, in order.
func TakeRows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	if len(idx) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), c, nil)
	for r, i := range idx {
		for j := 0; j < c; j++ {
			out.Set(r, j, X.At(i, j))
		}
	}
	return out
}

// TakeVec copies the entries of y at idx, in order. y may be any (n×1) matrix.
func TakeVec(y mat.Matrix, idx []int) *mat.VecDense {
	if len(idx) == 0 {
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(idx), nil)
	for r, i := range idx {
		out.SetVec(r, y.At(i, 0))
	}
	return out
}

// Take copies the rows of X and y at idx.
func Take(X, y mat.Matrix, idx []int) (*mat.Dense, *mat.VecDense) {
	return TakeRows(X, idx), TakeVec(y, idx)
}

// Split is a train/test partition of a feature table.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.VecDense
	TrainIdx      []int
	TestIdx       []int
}

// SplitTable applies TrainTestSplit to X and y.
func SplitTable(X, y mat.Matrix, trainFrac float64, seed int64) (*Split, error) {
	n, _ := X.Dims()
	if ny, _ := y.Dims(); ny != n {
		return nil, ssErrors.NewDimensionError("SplitTable", n, ny, 0)
	}
	train, test, err := TrainTestSplit(n, trainFrac, seed)
	if err != nil {
		return nil, err
	}
	s := &Split{TrainIdx: train, TestIdx: test}
	s.XTrain, s.YTrain = Take(X, y, train)
	s.XTest, s.YTest = Take(X, y, test)
	return s, nil
}
