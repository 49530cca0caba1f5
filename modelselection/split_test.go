package modelselection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTrainTestSplit_Partition(t *testing.T) {
	train, test, err := TrainTestSplit(101, 0.8, 0)
	require.NoError(t, err)
	assert.Len(t, train, 81)
	assert.Len(t, test, 20)

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
	assert.True(t, sort.IntsAreSorted(test))
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	a, _, err := TrainTestSplit(50, 0.8, 7)
	require.NoError(t, err)
	b, _, err := TrainTestSplit(50, 0.8, 7)
	require.NoError(t, err)
	c, _, err := TrainTestSplit(50, 0.8, 8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTrainTestSplit_Errors(t *testing.T) {
	_, _, err := TrainTestSplit(0, 0.8, 0)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 1.2, 0)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(1, 0.8, 0)
	assert.Error(t, err)
}

func TestValidationSplit(t *testing.T) {
	train, val := ValidationSplit(100, 0.05)
	assert.Len(t, train, 95)
	assert.Equal(t, []int{95, 96, 97, 98, 99}, val)

	train, val = ValidationSplit(10, 0.1)
	assert.Len(t, train, 9)
	assert.Equal(t, []int{9}, val)

	train, val = ValidationSplit(10, 0)
	assert.Len(t, train, 10)
	assert.Nil(t, val)
}

func TestSplitTable(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{0, 0, 1, 10, 2, 20, 3, 30, 4, 40})
	y := mat.NewVecDense(5, []float64{0, 1, 2, 3, 4})

	s, err := SplitTable(X, y, 0.6, 1)
	require.NoError(t, err)

	rows, _ := s.XTrain.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, s.YTest.Len())
	for r, i := range s.TrainIdx {
		assert.Equal(t, float64(i), s.YTrain.AtVec(r))
		assert.Equal(t, float64(i*10), s.XTrain.At(r, 1))
	}
	for r, i := range s.TestIdx {
		assert.Equal(t, float64(i), s.YTest.AtVec(r))
	}

	_, err = SplitTable(X, mat.NewVecDense(4, nil), 0.6, 1)
	assert.Error(t, err)
}
