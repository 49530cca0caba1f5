package experiment

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/features"
)

// Result is the outcome of one trained model.
type Result struct {
	// Model is the configured model name, e.g. "random_forest".
	Model string
	// Name is the display name used in tables and plot legends.
	Name    string
	Metrics map[string]float64
	// History is nil for models trained in closed form.
	History  *model.History
	Duration time.Duration
}

// Report collects the results of one Run.
type Report struct {
	Recipe       string
	Task         features.Task
	FeatureNames []string
	Samples      int
	Dropped      int
	TrainSamples int
	TestSamples  int
	Results      []Result
}

// MetricNames returns the test metrics reported for the task, in column order.
func MetricNames(task features.Task) []string {
	if task == features.Regression {
		return []string{MetricLoss, MetricMAE, MetricRMSE, MetricR2}
	}
	return []string{MetricLoss, MetricAUC, MetricAccuracy}
}

// Best returns the result with the highest test AUC for classification, or
// the lowest test MAE for regression. NaN scores never win. ok is false
// when no result has a usable score.
func (r *Report) Best() (best Result, ok bool) {
	key, higher := MetricAUC, true
	if r.Task == features.Regression {
		key, higher = MetricMAE, false
	}
	for _, res := range r.Results {
		v, found := res.Metrics[key]
		if !found || math.IsNaN(v) {
			continue
		}
		if !ok || (higher && v > best.Metrics[key]) || (!higher && v < best.Metrics[key]) {
			best, ok = res, true
		}
	}
	return best, ok
}

// Histories returns each result's history keyed by display name, skipping
// models without one.
func (r *Report) Histories() map[string]*model.History {
	out := make(map[string]*model.History)
	for _, res := range r.Results {
		if res.History != nil && res.History.Len() > 0 {
			out[res.Name] = res.History
		}
	}
	return out
}

// Print writes a summary table of the report to w.
func (r *Report) Print(w io.Writer) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", cyan(fmt.Sprintf("Recipe %s (%s)", r.Recipe, r.Task)))
	fmt.Fprintf(&b, "Samples: %d kept, %d dropped, %d train, %d test\n",
		r.Samples, r.Dropped, r.TrainSamples, r.TestSamples)
	fmt.Fprintf(&b, "Features: %s\n\n", strings.Join(r.FeatureNames, ", "))

	names := MetricNames(r.Task)
	fmt.Fprintf(&b, "%-22s", "Model")
	for _, name := range names {
		fmt.Fprintf(&b, "%12s", name)
	}
	fmt.Fprintf(&b, "%12s\n", "time")
	b.WriteString(strings.Repeat("-", 22+12*(len(names)+1)) + "\n")

	best, hasBest := r.Best()
	for _, res := range r.Results {
		label := fmt.Sprintf("%-22s", res.Name)
		if hasBest && res.Model == best.Model {
			label = green(label)
		}
		b.WriteString(label)
		for _, name := range names {
			v, found := res.Metrics[name]
			cell := fmt.Sprintf("%12.4f", v)
			if !found || math.IsNaN(v) {
				cell = yellow(fmt.Sprintf("%12s", "n/a"))
			}
			b.WriteString(cell)
		}
		fmt.Fprintf(&b, "%12s\n", res.Duration.Round(time.Millisecond))
	}
	if hasBest {
		fmt.Fprintf(&b, "\nBest: %s\n", green(best.Name))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
