package preprocessing

import (
	"fmt"
	"sort"

	"github.com/ezoic/superstore/core/model"
	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// LabelEncoder maps the distinct values of one categorical column to the
// integers [0, k). Codes follow the sorted order of the values, so the
// mapping is a bijection that depends only on the set of values observed.
type LabelEncoder struct {
	state *model.StateManager

	classes []string
	index   map[string]int
}

// NewLabelEncoder returns an unfitted LabelEncoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{state: model.NewStateManager("LabelEncoder")}
}

// IsFitted reports whether Fit has completed.
func (e *LabelEncoder) IsFitted() bool {
	return e.state.IsFitted()
}

// Fit learns the sorted set of distinct values.
//
// Parameters:
//   - values: observed category values; duplicates are expected
//
// Errors:
//   - ErrEmptyData: if values is empty
func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return ssErrors.NewModelError("LabelEncoder.Fit", "empty data", ssErrors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, 16)
	for _, v := range values {
		seen[v] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, v := range classes {
		index[v] = i
	}

	e.classes = classes
	e.index = index
	e.state.SetDimensions(1, len(values))
	e.state.SetFitted()
	return nil
}

// Transform returns the code of every value.
//
// Errors:
//   - NotFittedError: if the encoder hasn't been fitted yet
//   - ValueError: if a value was not seen during Fit
func (e *LabelEncoder) Transform(values []string) ([]int, error) {
	if err := e.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	codes := make([]int, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, ssErrors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("unseen label %q", v))
		}
		codes[i] = code
	}
	return codes, nil
}

// Code returns the code of a single value and whether it was seen during Fit.
func (e *LabelEncoder) Code(value string) (int, bool) {
	code, ok := e.index[value]
	return code, ok
}

// FitTransform fits the encoder and encodes values in one step.
func (e *LabelEncoder) FitTransform(values []string) ([]int, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform maps codes back to their values.
//
// Errors:
//   - NotFittedError: if the encoder hasn't been fitted yet
//   - ValueError: if a code is outside [0, k)
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if err := e.state.RequireFitted("InverseTransform"); err != nil {
		return nil, err
	}
	values := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.classes) {
			return nil, ssErrors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("code %d out of range [0, %d)", c, len(e.classes)))
		}
		values[i] = e.classes[c]
	}
	return values, nil
}

// Classes returns a copy of the sorted distinct values.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// NClasses returns the number of distinct values seen during Fit.
func (e *LabelEncoder) NClasses() int {
	return len(e.classes)
}

func (e *LabelEncoder) String() string {
	if !e.IsFitted() {
		return "LabelEncoder()"
	}
	return fmt.Sprintf("LabelEncoder(n_classes=%d)", len(e.classes))
}
