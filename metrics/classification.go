package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// probEpsilon clips probabilities away from 0 and 1 before taking logs.
const probEpsilon = 1e-7

// AUC calculates the Area Under the ROC Curve for binary classification.
//
// The AUC is the probability that a randomly chosen positive is scored above
// a randomly chosen negative, with ties counted as one half. Tied scores form
// a single ROC point, and the curve is integrated with the trapezoid rule.
//
// Parameters:
//   - yTrue: Ground truth binary labels (0 or 1)
//   - yPred: Predicted probabilities or decision scores
//
// Returns:
//   - The AUC score. When yTrue holds a single class the AUC is undefined;
//     0.5 is returned and an UndefinedMetricWarning is emitted.
//   - An error if inputs are invalid
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, err := AUC(yTrue, yPred) // 0.75
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary(yTrue); err != nil {
		return 0, err
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	totalPos, totalNeg := 0.0, 0.0
	for i := 0; i < n; i++ {
		pairs[i] = pair{score: yPred.AtVec(i), label: yTrue.AtVec(i)}
		if pairs[i].label == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}
	if totalPos == 0 || totalNeg == 0 {
		ssErrors.Warn(ssErrors.NewUndefinedMetricWarning("AUC", "only one class present in yTrue", 0.5))
		return 0.5, nil
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	// Walk thresholds from high to low, emitting one ROC point per distinct score.
	auc := 0.0
	tp, fp := 0.0, 0.0
	prevTPR, prevFPR := 0.0, 0.0
	for i := 0; i < n; {
		j := i
		for j < n && pairs[j].score == pairs[i].score {
			if pairs[j].label == 1 {
				tp++
			} else {
				fp++
			}
			j++
		}
		tpr, fpr := tp/totalPos, fp/totalNeg
		auc += (fpr - prevFPR) * (tpr + prevTPR) / 2
		prevTPR, prevFPR = tpr, fpr
		i = j
	}
	return auc, nil
}

// BinaryLogLoss calculates the mean binary cross-entropy of predicted
// probabilities. Probabilities are clipped to [1e-7, 1-1e-7].
//
// Parameters:
//   - yTrue: Ground truth binary labels (0 or 1)
//   - yPred: Predicted probabilities of class 1
//
// Returns:
//   - The average binary log loss
//   - An error if inputs are invalid
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.2, 0.8, 0.9})
//	loss, err := BinaryLogLoss(yTrue, yPred)
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary(yTrue); err != nil {
		return 0, err
	}

	loss := 0.0
	for i := 0; i < n; i++ {
		p := ClipProbability(yPred.AtVec(i))
		if yTrue.AtVec(i) == 1 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// ClipProbability clips p into [1e-7, 1-1e-7].
func ClipProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0.5
	case p < probEpsilon:
		return probEpsilon
	case p > 1-probEpsilon:
		return 1 - probEpsilon
	}
	return p
}

// Accuracy calculates the fraction of predictions equal to the labels.
//
// Parameters:
//   - yTrue: Ground truth labels
//   - yPred: Predicted labels
//
// Returns:
//   - The accuracy (between 0 and 1)
//   - An error if inputs are invalid
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Threshold maps probabilities to 0/1 labels, 1 when p >= cutoff.
func Threshold(proba *mat.VecDense, cutoff float64) *mat.VecDense {
	n := proba.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if proba.AtVec(i) >= cutoff {
			out.SetVec(i, 1)
		}
	}
	return out
}

func checkBinary(y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		val := y.AtVec(i)
		if val != 0 && val != 1 {
			return ssErrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", val, i),
				val,
			)
		}
	}
	return nil
}
