package metrics_test

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/metrics"
)

// ExampleMSE demonstrates Mean Squared Error calculation
func ExampleMSE() {
	yTrue := mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0})
	yPred := mat.NewVecDense(4, []float64{1.1, 1.9, 3.2, 3.8})

	mse, err := metrics.MSE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("MSE: %.3f\n", mse)

	// Output: MSE: 0.025
}

// ExampleRMSE demonstrates Root Mean Squared Error calculation
func ExampleRMSE() {
	yTrue := mat.NewVecDense(3, []float64{10.0, 20.0, 30.0})
	yPred := mat.NewVecDense(3, []float64{12.0, 18.0, 32.0})

	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("RMSE: %.2f\n", rmse)

	// Output: RMSE: 2.00
}

// ExampleMAE demonstrates Mean Absolute Error calculation
func ExampleMAE() {
	yTrue := mat.NewVecDense(4, []float64{41.91, 6.87, -383.03, 14.17})
	yPred := mat.NewVecDense(4, []float64{40.0, 10.0, -300.0, 10.0})

	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("MAE: %.2f\n", mae)

	// Output: MAE: 23.06
}

// ExampleR2Score demonstrates R² calculation
func ExampleR2Score() {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("R²: %.1f\n", r2)

	// Output: R²: 1.0
}

// ExampleAUC demonstrates ROC AUC of predicted probabilities
func ExampleAUC() {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	auc, err := metrics.AUC(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("AUC: %.2f\n", auc)

	// Output: AUC: 0.75
}
