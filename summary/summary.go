// Package summary computes the descriptive aggregates behind the dashboard
// charts: profit by category, quantity by month and order counts by state.
//
// Profit sums are accumulated as exact decimals so that means over thousands
// of cent-valued records do not drift.
package summary

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/superstore/dataset"
	"github.com/ezoic/superstore/features"
	"github.com/ezoic/superstore/pkg/log"
)

// ProfitStat is the profit distribution of one group.
type ProfitStat struct {
	Name   string
	Mean   decimal.Decimal
	StdDev float64
	Count  int
}

// CategoryProfits holds per-category statistics and, nested under each
// category name, per-sub-category statistics. Both are sorted by name.
type CategoryProfits struct {
	Categories    []ProfitStat
	SubCategories map[string][]ProfitStat
}

type profits struct {
	sum    decimal.Decimal
	values []float64
}

func (p *profits) add(d decimal.Decimal) {
	p.sum = p.sum.Add(d)
	f, _ := d.Float64()
	p.values = append(p.values, f)
}

func (p *profits) stat(name string) ProfitStat {
	n := len(p.values)
	return ProfitStat{
		Name:   name,
		Mean:   p.sum.Div(decimal.NewFromInt(int64(n))),
		StdDev: stat.PopStdDev(p.values, nil),
		Count:  n,
	}
}

// CategoryProfit groups profit by Category and Sub-Category. Rows with a
// missing category or profit are skipped; a missing sub-category only
// excludes the row from the nested level.
func CategoryProfit(frame *dataset.Frame) (*CategoryProfits, error) {
	if err := frame.Require("summary.CategoryProfit", features.ColCategory, features.ColSubCategory, features.ColProfit); err != nil {
		return nil, err
	}
	byCategory := map[string]*profits{}
	bySub := map[string]map[string]*profits{}
	skipped := 0

	for i := 0; i < frame.Len(); i++ {
		category, _ := frame.Value(i, features.ColCategory)
		cell, _ := frame.Value(i, features.ColProfit)
		profit, ok := dataset.ParseDecimal(cell)
		if dataset.IsMissing(category) || !ok {
			skipped++
			continue
		}
		if byCategory[category] == nil {
			byCategory[category] = &profits{}
			bySub[category] = map[string]*profits{}
		}
		byCategory[category].add(profit)

		sub, _ := frame.Value(i, features.ColSubCategory)
		if dataset.IsMissing(sub) {
			continue
		}
		if bySub[category][sub] == nil {
			bySub[category][sub] = &profits{}
		}
		bySub[category][sub].add(profit)
	}

	out := &CategoryProfits{SubCategories: map[string][]ProfitStat{}}
	for _, category := range sortedKeys(byCategory) {
		out.Categories = append(out.Categories, byCategory[category].stat(category))
		subs := bySub[category]
		for _, sub := range sortedKeys(subs) {
			out.SubCategories[category] = append(out.SubCategories[category], subs[sub].stat(sub))
		}
	}
	log.GetLoggerWithName("summary").Debug("Category profit computed",
		log.SamplesKey, frame.Len()-skipped,
		log.DroppedKey, skipped,
	)
	return out, nil
}

// CategorySeries is the quantity ordered per absolute month for one category.
type CategorySeries struct {
	Category string
	Months   []int
	Quantity []float64
}

// MonthlyQuantities holds one series per category, sorted by category.
// Month m counts from January of MinYear as 1.
type MonthlyQuantities struct {
	MinYear int
	Series  []CategorySeries
}

// MonthLabel formats an absolute month as "Jan 2014".
func (m *MonthlyQuantities) MonthLabel(month int) string {
	year := m.MinYear + (month-1)/12
	return fmt.Sprintf("%s %d", monthNames[(month-1)%12], year)
}

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthlyQuantity sums quantity per category per month of purchase. The
// purchase date is the order date, or the ship date when the order date is
// missing; rows with neither, or with a missing category, are skipped. A
// missing quantity counts as one item.
func MonthlyQuantity(frame *dataset.Frame) (*MonthlyQuantities, error) {
	if err := frame.Require("summary.MonthlyQuantity",
		features.ColOrderDate, features.ColShipDate, features.ColCategory, features.ColQuantity); err != nil {
		return nil, err
	}

	type purchase struct {
		category    string
		year, month int
		quantity    float64
	}
	var rows []purchase
	minYear := 0
	for i := 0; i < frame.Len(); i++ {
		category, _ := frame.Value(i, features.ColCategory)
		if dataset.IsMissing(category) {
			continue
		}
		date, _ := frame.Value(i, features.ColOrderDate)
		if dataset.IsMissing(date) {
			date, _ = frame.Value(i, features.ColShipDate)
		}
		year, month, _, ok := features.DateParts(date)
		if !ok {
			continue
		}
		cell, _ := frame.Value(i, features.ColQuantity)
		quantity, ok := dataset.ParseAmount(cell)
		if !ok {
			quantity = 1
		}
		if len(rows) == 0 || year < minYear {
			minYear = year
		}
		rows = append(rows, purchase{category: category, year: year, month: month, quantity: quantity})
	}

	totals := map[string]map[int]float64{}
	for _, r := range rows {
		if totals[r.category] == nil {
			totals[r.category] = map[int]float64{}
		}
		totals[r.category][(r.year-minYear)*12+r.month] += r.quantity
	}

	out := &MonthlyQuantities{MinYear: minYear}
	for _, category := range sortedKeys(totals) {
		s := CategorySeries{Category: category}
		for month := range totals[category] {
			s.Months = append(s.Months, month)
		}
		sort.Ints(s.Months)
		for _, month := range s.Months {
			s.Quantity = append(s.Quantity, totals[category][month])
		}
		out.Series = append(out.Series, s)
	}
	return out, nil
}

// StateCount is the number of orders shipped to one state.
type StateCount struct {
	State  string
	Orders int
}

// StateOrders counts orders per State, most orders first and ties by name.
// Rows with a missing state are skipped.
func StateOrders(frame *dataset.Frame) ([]StateCount, error) {
	if err := frame.Require("summary.StateOrders", features.ColState); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for i := 0; i < frame.Len(); i++ {
		if s, ok := frame.Value(i, features.ColState); ok && s != "" {
			counts[s]++
		}
	}

	out := make([]StateCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StateCount{State: s, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].State < out[j].State
	})
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
