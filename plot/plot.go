// Package plot renders training curves and data summaries as PNG files with
// gonum/plot. Each Save function builds one chart and writes it to path; the
// file format follows the extension.
package plot

import (
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

const (
	width  = 8 * vg.Inch
	height = 6 * vg.Inch
)

// Series is one named curve. A nil X plots Y against 1..len(Y).
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// HistorySeries collects the named series of every history, one Series per
// model, sorted by model name. Histories without the series are skipped.
func HistorySeries(histories map[string]*model.History, name string) []Series {
	models := make([]string, 0, len(histories))
	for m := range histories {
		models = append(models, m)
	}
	sort.Strings(models)

	var out []Series
	for _, m := range models {
		if h := histories[m]; h != nil && h.Has(name) {
			out = append(out, Series{Name: m, Y: h.Get(name)})
		}
	}
	return out
}

// SaveHistory draws one line per series against the epoch number.
func SaveHistory(path, title string, series []Series) error {
	return SaveLines(path, title, "Epoch", title, series)
}

// SaveLines draws one line per series with a legend. Non-finite points are
// left out of a line.
func SaveLines(path, title, xLabel, yLabel string, series []Series) error {
	if len(series) == 0 {
		return ssErrors.NewValueError("plot.SaveLines", "no series to draw")
	}
	p := newPlot(title, xLabel, yLabel)
	p.Legend.Top = true

	for i, s := range series {
		pts, err := points(s)
		if err != nil {
			return err
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return ssErrors.Wrapf(err, "plot: line %s", s.Name)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return save(p, path)
}

// SaveBars draws one bar per label.
func SaveBars(path, title string, labels []string, values []float64) error {
	if len(labels) == 0 {
		return ssErrors.NewValueError("plot.SaveBars", "no bars to draw")
	}
	if len(labels) != len(values) {
		return ssErrors.NewDimensionError("plot.SaveBars", len(labels), len(values), 0)
	}
	p := newPlot(title, "", "")

	vs := make(plotter.Values, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		vs[i] = v
	}
	bars, err := plotter.NewBarChart(vs, vg.Points(12))
	if err != nil {
		return ssErrors.Wrap(err, "plot: bar chart")
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1
	return save(p, path)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func points(s Series) (plotter.XYs, error) {
	if s.X != nil && len(s.X) != len(s.Y) {
		return nil, ssErrors.NewDimensionError("plot.points", len(s.Y), len(s.X), 0)
	}
	pts := make(plotter.XYs, 0, len(s.Y))
	for i, y := range s.Y {
		x := float64(i + 1)
		if s.X != nil {
			x = s.X[i]
		}
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts, nil
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(width, height, path); err != nil {
		return ssErrors.Wrapf(err, "plot: save %s", path)
	}
	log.GetLoggerWithName("plot").Debug("Plot saved", log.OutputKey, path)
	return nil
}
