package features

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/dataset"
	"github.com/ezoic/superstore/pkg/log"
	"github.com/ezoic/superstore/preprocessing"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Table is the numeric result of applying a Recipe to a Frame.
type Table struct {
	Recipe       string
	Task         Task
	FeatureNames []string

	// X holds one row per kept record, columns in FeatureNames order.
	X *mat.Dense
	// Y holds the label of every kept record.
	Y *mat.VecDense
	// Index holds the frame index label of every kept record.
	Index []string

	// Encoders maps each categorical feature to its fitted encoder.
	Encoders map[string]*preprocessing.LabelEncoder

	// Dropped counts the records removed for missing values.
	Dropped int
}

// Shape returns (samples, features).
func (t *Table) Shape() (int, int) {
	return t.X.Dims()
}

type column struct {
	values  []float64
	strings []string
	ok      []bool
}

// Build applies recipe to frame.
//
// Every categorical feature is integer-coded with a LabelEncoder; codes are
// contiguous and sorted, assigned afresh on every call. Rows missing any
// feature or the label are dropped. An empty result returns ErrNoRows.
func Build(frame *dataset.Frame, recipe Recipe) (_ *Table, err error) {
	defer ssErrors.Recover(&err, "features.Build")
	logger := log.GetLoggerWithName("features").With(log.RecipeKey, recipe.Name)
	start := time.Now()

	if len(recipe.Features) == 0 {
		return nil, ssErrors.NewValidationError("recipe.Features", "must not be empty", recipe.Name)
	}
	if err := frame.Require("features.Build", recipe.Columns()...); err != nil {
		return nil, err
	}

	n := frame.Len()
	cols := make([]column, len(recipe.Features))
	for k, f := range recipe.Features {
		c, err := derive(frame, f, recipe.SentinelCoded)
		if err != nil {
			return nil, err
		}
		cols[k] = c
	}
	label, err := deriveLabel(frame, recipe)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, n)
	kept := 0
	for i := 0; i < n; i++ {
		keep[i] = label.ok[i]
		for k := range cols {
			keep[i] = keep[i] && cols[k].ok[i]
		}
		if keep[i] {
			kept++
		}
	}

	if kept == 0 {
		logger.Warn("No complete rows", log.SamplesKey, n)
		return nil, ssErrors.Wrapf(ssErrors.ErrNoRows, "features: recipe %s", recipe.Name)
	}

	encoders := make(map[string]*preprocessing.LabelEncoder)
	for k, f := range recipe.Features {
		if f.Kind != Categorical {
			continue
		}
		enc, err := fitEncoder(cols[k], keep, recipe.EncodeAfterDrop)
		if err != nil {
			return nil, ssErrors.Wrapf(err, "features: encode %s", f.Name)
		}
		for i, s := range cols[k].strings {
			if cols[k].ok[i] {
				code, _ := enc.Code(s)
				cols[k].values[i] = float64(code)
			}
		}
		encoders[f.Name] = enc
	}

	X := mat.NewDense(kept, len(cols), nil)
	y := mat.NewVecDense(kept, nil)
	index := make([]string, 0, kept)
	frameIndex := frame.Index()
	r := 0
	for i := 0; i < n; i++ {
		if !keep[i] {
			continue
		}
		for k := range cols {
			X.Set(r, k, cols[k].values[i])
		}
		y.SetVec(r, label.values[i])
		index = append(index, frameIndex[i])
		r++
	}

	table := &Table{
		Recipe:       recipe.Name,
		Task:         recipe.Task,
		FeatureNames: recipe.FeatureNames(),
		X:            X,
		Y:            y,
		Index:        index,
		Encoders:     encoders,
		Dropped:      n - kept,
	}
	logger.Info("Feature table built",
		log.OperationKey, log.OperationBuild,
		log.SamplesKey, kept,
		log.FeaturesKey, len(cols),
		log.DroppedKey, n-kept,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return table, nil
}

func derive(frame *dataset.Frame, f Feature, sentinel bool) (column, error) {
	n := frame.Len()
	c := column{values: make([]float64, n), ok: make([]bool, n)}

	switch f.Kind {
	case Numeric:
		cells, err := frame.Column(f.Column)
		if err != nil {
			return c, err
		}
		for i, cell := range cells {
			c.values[i], c.ok[i] = parseNumeric(cell, sentinel)
		}
	case Categorical:
		c.strings = make([]string, n)
		for i := 0; i < n; i++ {
			c.strings[i], c.ok[i] = frame.Value(i, f.Column)
		}
	case MonthOfOrder:
		for i := 0; i < n; i++ {
			order, _ := frame.Value(i, ColOrderDate)
			ship, _ := frame.Value(i, ColShipDate)
			c.values[i], c.ok[i] = MonthNumber(order, ship)
		}
	case Frequency:
		names, err := frame.Column(ColCustomerName)
		if err != nil {
			return c, err
		}
		ids, err := frame.Column(ColCustomerID)
		if err != nil {
			return c, err
		}
		c.values, c.ok = CustomerFrequency(names, ids)
	default:
		return c, ssErrors.NewValueError("features.Build", "unknown feature kind "+f.Kind.String())
	}
	return c, nil
}

func deriveLabel(frame *dataset.Frame, recipe Recipe) (column, error) {
	n := frame.Len()
	c := column{values: make([]float64, n), ok: make([]bool, n)}
	cells, err := frame.Column(recipe.LabelColumn())
	if err != nil {
		return c, err
	}
	for i, cell := range cells {
		if recipe.Task == Classification {
			c.values[i], c.ok[i] = SegmentLabel(cell)
		} else {
			c.values[i], c.ok[i] = parseNumeric(cell, recipe.SentinelCoded)
		}
	}
	return c, nil
}

func parseNumeric(cell string, sentinel bool) (float64, bool) {
	v, ok := dataset.ParseAmount(cell)
	if !sentinel {
		return v, ok
	}
	if !ok {
		v = Sentinel
	}
	return v, v != Sentinel
}

func fitEncoder(c column, keep []bool, keptOnly bool) (*preprocessing.LabelEncoder, error) {
	values := make([]string, 0, len(c.strings))
	for i, s := range c.strings {
		if !c.ok[i] || (keptOnly && !keep[i]) {
			continue
		}
		values = append(values, s)
	}
	enc := preprocessing.NewLabelEncoder()
	if len(values) == 0 {
		return enc, ssErrors.Wrap(ssErrors.ErrNoRows, "no observed categories")
	}
	return enc, enc.Fit(values)
}
