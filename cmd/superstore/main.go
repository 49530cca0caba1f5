// Command superstore trains and compares models on Superstore order records,
// or renders the descriptive summaries of the same data.
//
// Usage:
//
//	superstore -task classify -env .env -out plots
//	superstore -task regress -config experiment.yaml
//	superstore -task summary
//
// The CSV location comes from CSV_URL in the environment or the .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/ezoic/superstore/config"
	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/dataset"
	"github.com/ezoic/superstore/experiment"
	"github.com/ezoic/superstore/features"
	"github.com/ezoic/superstore/pkg/log"
	"github.com/ezoic/superstore/plot"
	"github.com/ezoic/superstore/summary"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

const (
	taskClassify         = "classify"
	taskClassifyExtended = "classify-extended"
	taskRegress          = "regress"
	taskSummary          = "summary"
)

// topStates limits the state chart to the busiest states.
const topStates = 15

var recipes = map[string]features.Recipe{
	taskClassify:         features.SegmentBasic,
	taskClassifyExtended: features.SegmentExtended,
	taskRegress:          features.ProfitRegression,
}

type options struct {
	task       string
	envFile    string
	configFile string
	outDir     string
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.task, "task", taskClassify, "What to run (classify|classify-extended|regress|summary)")
	flag.StringVar(&opts.envFile, "env", ".env", "Path to the .env file")
	flag.StringVar(&opts.configFile, "config", "", "Path to an experiment YAML file (overrides EXPERIMENT_CONFIG)")
	flag.StringVar(&opts.outDir, "out", "", "Directory for plots (overrides OUTPUT_DIR)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if _, ok := recipes[opts.task]; !ok && opts.task != taskSummary {
		return ssErrors.NewValueError("superstore", "unknown task "+opts.task)
	}

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if opts.configFile != "" {
		cfg.ExperimentPath = opts.configFile
	}
	log.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	exp, err := config.LoadExperiment(cfg.ExperimentPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return ssErrors.Wrapf(err, "create output directory %s", cfg.OutputDir)
	}

	frame, err := dataset.Load(ctx, cfg.CSVURL)
	if err != nil {
		return err
	}

	if opts.task == taskSummary {
		return runSummary(frame, cfg.OutputDir)
	}
	log.GetLoggerWithName("main").Info("Running experiment",
		log.RecipeKey, recipes[opts.task].Name,
		log.OutputKey, cfg.OutputDir,
	)

	recipe := recipes[opts.task]
	report, err := experiment.NewRunner(exp).Run(ctx, frame, recipe)
	if err != nil {
		return err
	}
	if err := report.Print(os.Stdout); err != nil {
		return err
	}
	return saveHistories(report, cfg.OutputDir)
}

// saveHistories plots every recorded series shared by the report's models.
func saveHistories(report *experiment.Report, outDir string) error {
	histories := report.Histories()
	names := []string{model.SeriesLoss, model.SeriesValLoss}
	if report.Task == features.Classification {
		names = append(names, model.SeriesAUC, model.SeriesValAUC)
	}
	for _, name := range names {
		series := plot.HistorySeries(histories, name)
		if len(series) == 0 {
			continue
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%s.png", report.Recipe, name))
		title := fmt.Sprintf("%s (%s)", seriesTitle(name), report.Recipe)
		if err := plot.SaveHistory(path, title, series); err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
	}
	return nil
}

func seriesTitle(name string) string {
	title := strings.ReplaceAll(name, "val_", "validation ")
	title = strings.ReplaceAll(title, "auc", "AUC")
	return strings.ToUpper(title[:1]) + title[1:]
}

func runSummary(frame *dataset.Frame, outDir string) error {
	cyan := color.New(color.FgCyan).SprintFunc()

	profit, err := summary.CategoryProfit(frame)
	if err != nil {
		return err
	}
	fmt.Println(cyan("Mean profit by category"))
	labels := make([]string, len(profit.Categories))
	means := make([]float64, len(profit.Categories))
	for i, c := range profit.Categories {
		labels[i] = c.Name
		means[i], _ = c.Mean.Float64()
		fmt.Printf("  %-20s %10s  (n=%d, sd=%.2f)\n", c.Name, c.Mean.StringFixed(2), c.Count, c.StdDev)
		for _, s := range profit.SubCategories[c.Name] {
			fmt.Printf("    %-18s %10s  (n=%d)\n", s.Name, s.Mean.StringFixed(2), s.Count)
		}
	}
	if err := plot.SaveBars(filepath.Join(outDir, "category_profit.png"), "Mean profit by category", labels, means); err != nil {
		return err
	}

	monthly, err := summary.MonthlyQuantity(frame)
	if err != nil {
		return err
	}
	series := make([]plot.Series, len(monthly.Series))
	for i, s := range monthly.Series {
		x := make([]float64, len(s.Months))
		for k, m := range s.Months {
			x[k] = float64(m)
		}
		series[i] = plot.Series{Name: s.Category, X: x, Y: s.Quantity}
	}
	if len(series) > 0 {
		xLabel := fmt.Sprintf("Months since Jan %d", monthly.MinYear)
		if err := plot.SaveLines(filepath.Join(outDir, "monthly_quantity.png"),
			"Quantity of items purchased by month", xLabel, "Quantity ordered", series); err != nil {
			return err
		}
	}

	states, err := summary.StateOrders(frame)
	if err != nil {
		return err
	}
	if len(states) > topStates {
		states = states[:topStates]
	}
	fmt.Println(cyan("Orders by state"))
	stateLabels := make([]string, len(states))
	counts := make([]float64, len(states))
	for i, s := range states {
		stateLabels[i] = s.State
		counts[i] = float64(s.Orders)
		fmt.Printf("  %-20s %6d\n", s.State, s.Orders)
	}
	if len(states) == 0 {
		return nil
	}
	return plot.SaveBars(filepath.Join(outDir, "state_orders.png"), "Orders by state", stateLabels, counts)
}
