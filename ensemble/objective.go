package ensemble

import (
	"math"

	"github.com/ezoic/superstore/metrics"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// objective supplies the per-row gradient and hessian of a boosting loss
// with respect to the raw score.
type objective interface {
	name() string
	initScore(y []float64) float64
	gradients(y, raw, grad, hess []float64)
	// output maps a raw score to the prediction space.
	output(raw float64) float64
}

func newObjective(name string) (objective, error) {
	switch name {
	case ObjectiveBinary:
		return binaryLogloss{}, nil
	case ObjectiveRegression:
		return l2Regression{}, nil
	}
	return nil, ssErrors.NewValidationError("objective", "must be binary or regression", name)
}

// binaryLogloss is the log loss of sigmoid(raw) against 0/1 labels.
type binaryLogloss struct{}

func (binaryLogloss) name() string { return ObjectiveBinary }

func (binaryLogloss) initScore(y []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean = metrics.ClipProbability(mean / float64(len(y)))
	return math.Log(mean / (1 - mean))
}

func (o binaryLogloss) gradients(y, raw, grad, hess []float64) {
	for i := range y {
		p := o.output(raw[i])
		grad[i] = p - y[i]
		hess[i] = math.Max(p*(1-p), 1e-16)
	}
}

func (binaryLogloss) output(raw float64) float64 {
	return 1 / (1 + math.Exp(-raw))
}

// l2Regression is half the squared error.
type l2Regression struct{}

func (l2Regression) name() string { return ObjectiveRegression }

func (l2Regression) initScore(y []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	return mean / float64(len(y))
}

func (l2Regression) gradients(y, raw, grad, hess []float64) {
	for i := range y {
		grad[i] = raw[i] - y[i]
		hess[i] = 1
	}
}

func (l2Regression) output(raw float64) float64 {
	return raw
}
