package experiment

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/superstore/config"
	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/dataset"
	"github.com/ezoic/superstore/features"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

var ordersHeader = []string{
	features.ColOrderDate, features.ColShipDate, features.ColShipMode,
	features.ColSegment, features.ColRegion, features.ColState,
	features.ColCategory, features.ColSubCategory, features.ColQuantity,
	features.ColProfit, features.ColDiscount,
	features.ColCustomerName, features.ColCustomerID,
}

// syntheticOrders builds n orders where Corporate buys more than five units
// and profit is linear in quantity and category.
func syntheticOrders(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	shipModes := []string{"First Class", "Second Class", "Standard Class", "Same Day"}
	regions := []string{"Central", "East", "South", "West"}
	states := []string{"Texas", "New York", "Florida", "California"}
	categories := []string{"Furniture", "Office Supplies", "Technology"}
	subCategories := []string{"Chairs", "Paper", "Phones"}

	rows := make([][]string, n)
	for i := range rows {
		quantity := 1 + rng.Intn(10)
		category := rng.Intn(len(categories))
		segment := "Consumer"
		if quantity > 5 {
			segment = "Corporate"
		}
		if i%25 == 0 {
			segment = "Home Office"
		}
		profit := 10*float64(quantity) + 20*float64(category) + 0.5 + rng.NormFloat64()
		month := 1 + rng.Intn(12)
		customer := rng.Intn(40)
		region := rng.Intn(len(regions))
		rows[i] = []string{
			fmt.Sprintf("%d/%d/2016", month, 1+rng.Intn(28)),
			fmt.Sprintf("%d/28/2016", month),
			shipModes[rng.Intn(len(shipModes))],
			segment,
			regions[region],
			states[region],
			categories[category],
			subCategories[category],
			fmt.Sprint(quantity),
			fmt.Sprintf("%.2f", profit),
			fmt.Sprintf("%.1f", 0.1*float64(rng.Intn(5))),
			fmt.Sprintf("Customer %d", customer),
			fmt.Sprintf("CU-%05d", customer),
		}
	}
	frame, err := dataset.NewFrame(ordersHeader, nil, rows)
	require.NoError(t, err)
	return frame
}

func quickExperiment() *config.Experiment {
	exp := config.DefaultExperiment()
	exp.Epochs = 3
	exp.MLP.HiddenLayers = 2
	exp.RandomForest.NTrees = 10
	exp.RandomForest.MaxDepth = 6
	exp.Boosting.NRounds = 10
	exp.Boosting.MinSamplesLeaf = 5
	exp.Seed = 3
	return exp
}

func resultByModel(t *testing.T, r *Report, name string) Result {
	t.Helper()
	for _, res := range r.Results {
		if res.Model == name {
			return res
		}
	}
	t.Fatalf("no result for %s", name)
	return Result{}
}

func TestRunClassification(t *testing.T) {
	frame := syntheticOrders(t, 400)
	report, err := NewRunner(quickExperiment()).Run(context.Background(), frame, features.SegmentBasic)
	require.NoError(t, err)

	assert.Equal(t, features.Classification, report.Task)
	assert.Equal(t, features.SegmentBasic.FeatureNames(), report.FeatureNames)
	assert.Equal(t, 16, report.Dropped)
	assert.Equal(t, 384, report.Samples)
	assert.Equal(t, report.Samples, report.TrainSamples+report.TestSamples)
	require.Len(t, report.Results, 4)

	for _, res := range report.Results {
		for _, name := range MetricNames(features.Classification) {
			v, ok := res.Metrics[name]
			require.True(t, ok, "%s missing %s", res.Name, name)
			assert.False(t, math.IsNaN(v), "%s %s is NaN", res.Name, name)
		}
		assert.GreaterOrEqual(t, res.Metrics[MetricAUC], 0.0)
		assert.LessOrEqual(t, res.Metrics[MetricAUC], 1.0)
		require.NotNil(t, res.History, res.Name)
		assert.True(t, res.History.Has(model.SeriesLoss), res.Name)
		assert.True(t, res.History.Has(model.SeriesAUC), res.Name)
	}

	nnResult := resultByModel(t, report, config.ModelLinear)
	assert.Equal(t, "Logistic Regression", nnResult.Name)
	assert.Len(t, nnResult.History.Get(model.SeriesLoss), 3)

	forest := resultByModel(t, report, config.ModelRandomForest)
	assert.Len(t, forest.History.Get(model.SeriesValAUC), 10)
	assert.Greater(t, forest.Metrics[MetricAUC], 0.8)

	best, ok := report.Best()
	require.True(t, ok)
	for _, res := range report.Results {
		assert.GreaterOrEqual(t, best.Metrics[MetricAUC], res.Metrics[MetricAUC])
	}
}

func TestRunRegression(t *testing.T) {
	frame := syntheticOrders(t, 300)
	report, err := NewRunner(quickExperiment()).Run(context.Background(), frame, features.ProfitRegression)
	require.NoError(t, err)

	assert.Equal(t, features.Regression, report.Task)
	assert.Equal(t, 0, report.Dropped)
	require.Len(t, report.Results, 5)

	ols := resultByModel(t, report, config.ModelOLS)
	assert.Nil(t, ols.History)
	assert.Greater(t, ols.Metrics[MetricR2], 0.95)
	assert.Less(t, ols.Metrics[MetricMAE], 2.0)

	// Dollar MAE is normalized MAE times one label scale shared by every model.
	ratio := ols.Metrics[MetricMAE] / ols.Metrics[MetricLoss]
	for _, res := range report.Results {
		assert.InDelta(t, ratio, res.Metrics[MetricMAE]/res.Metrics[MetricLoss], 1e-6, res.Name)
		assert.GreaterOrEqual(t, res.Metrics[MetricRMSE], res.Metrics[MetricMAE]-1e-9, res.Name)
	}

	best, ok := report.Best()
	require.True(t, ok)
	for _, res := range report.Results {
		assert.LessOrEqual(t, best.Metrics[MetricMAE], res.Metrics[MetricMAE])
	}
	assert.NotContains(t, report.Histories(), "OLS")
}

func TestRunModelSelection(t *testing.T) {
	frame := syntheticOrders(t, 200)

	exp := quickExperiment()
	exp.Models = []string{config.ModelGradientBoosting}
	report, err := NewRunner(exp).Run(context.Background(), frame, features.SegmentExtended)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "Gradient Boosting", report.Results[0].Name)

	exp.Models = []string{config.ModelOLS}
	_, err = NewRunner(exp).Run(context.Background(), frame, features.SegmentBasic)
	require.Error(t, err)
	var valueErr *ssErrors.ValueError
	assert.True(t, ssErrors.As(err, &valueErr))

	exp.Models = []string{"svm"}
	_, err = NewRunner(exp).Run(context.Background(), frame, features.SegmentBasic)
	require.Error(t, err)
	var configErr *ssErrors.ConfigError
	assert.True(t, ssErrors.As(err, &configErr))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(quickExperiment()).Run(ctx, syntheticOrders(t, 100), features.SegmentBasic)
	require.Error(t, err)
	assert.True(t, ssErrors.Is(err, context.Canceled))
}

func TestRunMissingColumn(t *testing.T) {
	frame, err := dataset.NewFrame([]string{features.ColQuantity}, nil, [][]string{{"1"}})
	require.NoError(t, err)
	_, err = NewRunner(nil).Run(context.Background(), frame, features.SegmentBasic)
	assert.Error(t, err)
}

func TestReportBestSkipsNaN(t *testing.T) {
	r := &Report{
		Task: features.Classification,
		Results: []Result{
			{Model: "a", Metrics: map[string]float64{MetricAUC: math.NaN()}},
			{Model: "b", Metrics: map[string]float64{MetricAUC: 0.7}},
			{Model: "c", Metrics: map[string]float64{MetricAUC: 0.6}},
		},
	}
	best, ok := r.Best()
	require.True(t, ok)
	assert.Equal(t, "b", best.Model)

	r.Results = r.Results[:1]
	_, ok = r.Best()
	assert.False(t, ok)
}

func TestReportPrint(t *testing.T) {
	color.NoColor = true
	r := &Report{
		Recipe:       "profit-regression",
		Task:         features.Regression,
		FeatureNames: []string{"Segment", "Quantity"},
		Samples:      10,
		TrainSamples: 8,
		TestSamples:  2,
		Results: []Result{
			{Model: "ols", Name: "OLS", Duration: time.Millisecond,
				Metrics: map[string]float64{MetricLoss: 0.5, MetricMAE: 12.5, MetricRMSE: 20, MetricR2: 0.25}},
			{Model: "mlp", Name: "MLP", Duration: 3 * time.Millisecond,
				Metrics: map[string]float64{MetricLoss: 0.4, MetricMAE: 10, MetricRMSE: math.NaN(), MetricR2: 0.4}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf))
	out := buf.String()
	assert.Contains(t, out, "Recipe profit-regression (regression)")
	assert.Contains(t, out, "Features: Segment, Quantity")
	assert.Contains(t, out, "12.5000")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "Best: MLP")
}
