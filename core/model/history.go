package model

import (
	"sort"
	"sync"
)

// Well-known History series names.
const (
	SeriesLoss    = "loss"
	SeriesValLoss = "val_loss"
	SeriesAUC     = "auc"
	SeriesValAUC  = "val_auc"
)

// History holds named metric series recorded once per training step.
// Series are appended independently, so a model without a validation set
// simply has no val_* series.
type History struct {
	mu     sync.RWMutex
	series map[string][]float64
	order  []string
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{series: make(map[string][]float64)}
}

// Append adds one value to the named series.
func (h *History) Append(name string, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.series[name]; !ok {
		h.order = append(h.order, name)
	}
	h.series[name] = append(h.series[name], value)
}

// Record appends every entry of values.
func (h *History) Record(values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Append(name, values[name])
	}
}

// Get returns a copy of the named series, or nil if it was never recorded.
func (h *History) Get(name string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.series[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

// Last returns the most recent value of the named series.
func (h *History) Last(name string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.series[name]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// Has reports whether the named series was recorded.
func (h *History) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.series[name]
	return ok
}

// Names returns series names in first-recorded order.
func (h *History) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the length of the longest series.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, s := range h.series {
		if len(s) > n {
			n = len(s)
		}
	}
	return n
}

// Truncate keeps only the first n values of every series.
func (h *History) Truncate(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, s := range h.series {
		if len(s) > n {
			h.series[name] = s[:n]
		}
	}
}
