package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/metrics"
)

// Loss is a training objective over (n×1) targets and outputs.
type Loss interface {
	// Name is the identifier used in logs and reports.
	Name() string
	// Value returns the mean loss.
	Value(yTrue, yPred *mat.Dense) float64
	// Gradient returns dLoss/dyPred for the mean loss.
	Gradient(yTrue, yPred *mat.Dense) *mat.Dense
}

// BinaryCrossEntropy is the log loss of probabilities in (0, 1).
type BinaryCrossEntropy struct{}

// MeanAbsoluteError is mean |y - ŷ|.
type MeanAbsoluteError struct{}

// MeanSquaredError is mean (y - ŷ)².
type MeanSquaredError struct{}

func (BinaryCrossEntropy) Name() string { return "binary_crossentropy" }
func (MeanAbsoluteError) Name() string  { return "mean_absolute_error" }
func (MeanSquaredError) Name() string   { return "mean_squared_error" }

func (BinaryCrossEntropy) Value(yTrue, yPred *mat.Dense) float64 {
	r, _ := yTrue.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		y, p := yTrue.At(i, 0), metrics.ClipProbability(yPred.At(i, 0))
		sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return sum / float64(r)
}

func (BinaryCrossEntropy) Gradient(yTrue, yPred *mat.Dense) *mat.Dense {
	r, _ := yTrue.Dims()
	g := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		y, p := yTrue.At(i, 0), metrics.ClipProbability(yPred.At(i, 0))
		g.Set(i, 0, (p-y)/(p*(1-p))/float64(r))
	}
	return g
}

func (MeanAbsoluteError) Value(yTrue, yPred *mat.Dense) float64 {
	r, _ := yTrue.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		sum += math.Abs(yTrue.At(i, 0) - yPred.At(i, 0))
	}
	return sum / float64(r)
}

func (MeanAbsoluteError) Gradient(yTrue, yPred *mat.Dense) *mat.Dense {
	r, _ := yTrue.Dims()
	g := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		d := yPred.At(i, 0) - yTrue.At(i, 0)
		switch {
		case d > 0:
			g.Set(i, 0, 1/float64(r))
		case d < 0:
			g.Set(i, 0, -1/float64(r))
		}
	}
	return g
}

func (MeanSquaredError) Value(yTrue, yPred *mat.Dense) float64 {
	r, _ := yTrue.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		d := yTrue.At(i, 0) - yPred.At(i, 0)
		sum += d * d
	}
	return sum / float64(r)
}

func (MeanSquaredError) Gradient(yTrue, yPred *mat.Dense) *mat.Dense {
	r, _ := yTrue.Dims()
	g := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		g.Set(i, 0, 2*(yPred.At(i, 0)-yTrue.At(i, 0))/float64(r))
	}
	return g
}

func isBinary(l Loss) bool {
	_, ok := l.(BinaryCrossEntropy)
	return ok
}
