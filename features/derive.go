// Package features turns a dataset.Frame of order records into a numeric
// feature table.
//
// Variants of the pipeline are expressed as Recipes: a set of frame columns,
// an ordered list of features derived from them and a label. Build applies a
// recipe to a frame, encoding categorical columns, deriving month and customer
// frequency, and dropping every row with a missing value in a selected feature
// or the label.
package features

import (
	"strconv"
	"strings"

	"github.com/ezoic/superstore/dataset"
)

// Segment labels.
const (
	SegmentConsumer  = "Consumer"
	SegmentCorporate = "Corporate"
)

// Month returns the first "/"-delimited token of orderDate, falling back to
// shipDate when the order date is missing. It reports false when both are
// missing.
func Month(orderDate, shipDate string) (string, bool) {
	date := orderDate
	if dataset.IsMissing(date) {
		date = shipDate
	}
	if dataset.IsMissing(date) {
		return "", false
	}
	token := strings.TrimSpace(strings.SplitN(strings.TrimSpace(date), "/", 2)[0])
	if token == "" {
		return "", false
	}
	return token, true
}

// MonthNumber is Month parsed as a number.
func MonthNumber(orderDate, shipDate string) (float64, bool) {
	token, ok := Month(orderDate, shipDate)
	if !ok {
		return 0, false
	}
	return dataset.ParseAmount(token)
}

// DateParts splits an M/D/YYYY date. It reports false for missing or
// malformed dates.
func DateParts(date string) (year, month, day int, ok bool) {
	if dataset.IsMissing(date) {
		return 0, 0, 0, false
	}
	parts := strings.Split(strings.TrimSpace(date), "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var err error
	if month, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, 0, false
	}
	if day, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, 0, false
	}
	// The year may carry a time component, e.g. "2016 00:00:00".
	yearField := strings.Fields(parts[2])
	if len(yearField) == 0 {
		return 0, 0, 0, false
	}
	if year, err = strconv.Atoi(yearField[0]); err != nil {
		return 0, 0, 0, false
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

// SegmentLabel binarizes a customer segment: Consumer is 0, Corporate is 1
// and every other value (Home Office included) is missing.
func SegmentLabel(segment string) (float64, bool) {
	switch strings.TrimSpace(segment) {
	case SegmentConsumer:
		return 0, true
	case SegmentCorporate:
		return 1, true
	default:
		return 0, false
	}
}

// CustomerFrequency counts orders per customer. Missing customer IDs are
// backfilled from a name→ID map built from rows that carry both; when a name
// appears with several IDs the last one wins. Rows whose ID cannot be resolved
// report false in ok.
func CustomerFrequency(names, ids []string) (counts []float64, ok []bool) {
	nameToID := make(map[string]string)
	for i := range ids {
		if dataset.IsMissing(names[i]) || dataset.IsMissing(ids[i]) {
			continue
		}
		nameToID[strings.TrimSpace(names[i])] = strings.TrimSpace(ids[i])
	}

	resolved := make([]string, len(ids))
	ok = make([]bool, len(ids))
	perID := make(map[string]int)
	for i := range ids {
		id := strings.TrimSpace(ids[i])
		if dataset.IsMissing(id) {
			if dataset.IsMissing(names[i]) {
				continue
			}
			var found bool
			if id, found = nameToID[strings.TrimSpace(names[i])]; !found {
				continue
			}
		}
		resolved[i] = id
		ok[i] = true
		perID[id]++
	}

	counts = make([]float64, len(ids))
	for i, id := range resolved {
		if ok[i] {
			counts[i] = float64(perID[id])
		}
	}
	return counts, ok
}
