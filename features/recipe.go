package features

import (
	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Frame column names used by the built-in recipes.
const (
	ColOrderDate    = "Order Date"
	ColShipDate     = "Ship Date"
	ColShipMode     = "Ship Mode"
	ColSegment      = "Segment"
	ColRegion       = "Region"
	ColState        = "State"
	ColCategory     = "Category"
	ColSubCategory  = "Sub-Category"
	ColQuantity     = "Quantity"
	ColProfit       = "Profit"
	ColDiscount     = "Discount"
	ColCustomerName = "Customer Name"
	ColCustomerID   = "Customer ID"
)

// Derived feature names.
const (
	FeatureMonth             = "Month"
	FeatureCustomerFrequency = "Customer Frequency"
)

// Sentinel marks a missing numeric value before incomplete rows are dropped.
// A genuine value equal to Sentinel is treated as missing too.
const Sentinel = -1.0

// Kind is how a feature is derived from the frame.
type Kind int

const (
	// Numeric parses the cells of Column as numbers.
	Numeric Kind = iota
	// Categorical replaces the cells of Column with LabelEncoder codes.
	Categorical
	// MonthOfOrder derives the month from Order Date, else Ship Date.
	MonthOfOrder
	// Frequency counts orders per customer from Customer Name and Customer ID.
	Frequency
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case MonthOfOrder:
		return "month"
	case Frequency:
		return "frequency"
	default:
		return "unknown"
	}
}

// Feature is one column of the feature table.
type Feature struct {
	Name   string
	Kind   Kind
	Column string
}

// Task is the learning problem a recipe defines.
type Task int

const (
	// Classification predicts Consumer (0) versus Corporate (1).
	Classification Task = iota
	// Regression predicts order profit.
	Regression
)

func (t Task) String() string {
	if t == Regression {
		return "regression"
	}
	return "classification"
}

// Recipe declares one variant of the feature pipeline.
type Recipe struct {
	Name     string
	Features []Feature
	Task     Task

	// SentinelCoded replaces missing numeric cells (features and a numeric
	// label) with Sentinel and then drops every row holding Sentinel.
	SentinelCoded bool

	// EncodeAfterDrop fits categorical encoders on the complete rows only.
	// Otherwise encoders see every non-missing value, including rows that
	// are dropped later.
	EncodeAfterDrop bool
}

func numeric(col string) Feature     { return Feature{Name: col, Kind: Numeric, Column: col} }
func categorical(col string) Feature { return Feature{Name: col, Kind: Categorical, Column: col} }

var (
	month     = Feature{Name: FeatureMonth, Kind: MonthOfOrder}
	frequency = Feature{Name: FeatureCustomerFrequency, Kind: Frequency}
)

// SegmentBasic classifies segment from order shape and profit.
var SegmentBasic = Recipe{
	Name: "segment-basic",
	Features: []Feature{
		numeric(ColQuantity),
		categorical(ColRegion),
		month,
		categorical(ColShipMode),
		categorical(ColCategory),
		numeric(ColProfit),
	},
	Task:          Classification,
	SentinelCoded: true,
}

// SegmentExtended adds location, sub-category, discount and customer
// frequency to SegmentBasic.
var SegmentExtended = Recipe{
	Name: "segment-extended",
	Features: []Feature{
		numeric(ColQuantity),
		categorical(ColRegion),
		categorical(ColState),
		month,
		categorical(ColShipMode),
		categorical(ColCategory),
		categorical(ColSubCategory),
		numeric(ColDiscount),
		frequency,
		numeric(ColProfit),
	},
	Task:          Classification,
	SentinelCoded: true,
}

// ProfitRegression predicts profit from segment and order shape.
var ProfitRegression = Recipe{
	Name: "profit-regression",
	Features: []Feature{
		categorical(ColSegment),
		numeric(ColQuantity),
		categorical(ColRegion),
		month,
		categorical(ColShipMode),
		categorical(ColCategory),
	},
	Task:            Regression,
	EncodeAfterDrop: true,
}

// Recipes lists the built-in recipes.
var Recipes = []Recipe{SegmentBasic, SegmentExtended, ProfitRegression}

// RecipeByName looks up a built-in recipe.
func RecipeByName(name string) (Recipe, error) {
	for _, r := range Recipes {
		if r.Name == name {
			return r, nil
		}
	}
	return Recipe{}, ssErrors.NewValueError("features.RecipeByName", "unknown recipe "+name)
}

// FeatureNames returns the ordered feature names.
func (r Recipe) FeatureNames() []string {
	names := make([]string, len(r.Features))
	for i, f := range r.Features {
		names[i] = f.Name
	}
	return names
}

// LabelColumn is the frame column the label is read from.
func (r Recipe) LabelColumn() string {
	if r.Task == Regression {
		return ColProfit
	}
	return ColSegment
}

// Columns returns the frame columns the recipe reads, without duplicates.
func (r Recipe) Columns() []string {
	var cols []string
	seen := map[string]bool{}
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				cols = append(cols, n)
			}
		}
	}
	for _, f := range r.Features {
		switch f.Kind {
		case MonthOfOrder:
			add(ColOrderDate, ColShipDate)
		case Frequency:
			add(ColCustomerName, ColCustomerID)
		default:
			add(f.Column)
		}
	}
	add(r.LabelColumn())
	return cols
}
