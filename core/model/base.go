// Package model provides the shared building blocks of superstore estimators.
//
// Every learner in the module composes a StateManager to track whether it has
// been trained and with which dimensions:
//
//	type MyModel struct {
//		state *model.StateManager
//		// model-specific fields
//	}
//
//	func (m *MyModel) Fit(X, y mat.Matrix) error {
//		// training logic
//		m.state.SetFitted()
//		return nil
//	}
//
// Iterative learners additionally expose a History of per-epoch (or per-tree)
// metric series so they can be compared and plotted side by side.
package model

import (
	"sync"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// StateManager tracks the fitted state of a model. It is safe for concurrent use.
type StateManager struct {
	mu        sync.RWMutex
	name      string
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates an unfitted StateManager for the named model.
func NewStateManager(name string) *StateManager {
	return &StateManager{name: name}
}

// Name returns the model name used in errors.
func (s *StateManager) Name() string {
	return s.name
}

// IsFitted reports whether the model has been fitted with training data.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as trained. Called by Fit implementations only.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
}

// Reset returns the model to its untrained state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// SetDimensions records the shape of the training data.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// GetDimensions returns the number of features and samples seen during Fit.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming method if the model is untrained.
func (s *StateManager) RequireFitted(method string) error {
	if !s.IsFitted() {
		return ssErrors.NewNotFittedError(s.name, method)
	}
	return nil
}

// CheckFeatures returns a NotFittedError if the model is untrained, or a
// DimensionError if got differs from the number of features seen during Fit.
func (s *StateManager) CheckFeatures(method string, got int) error {
	if err := s.RequireFitted(method); err != nil {
		return err
	}
	nFeatures, _ := s.GetDimensions()
	if got != nFeatures {
		return ssErrors.NewDimensionError(s.name+"."+method, nFeatures, got, 1)
	}
	return nil
}
