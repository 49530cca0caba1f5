package nn

import "math"

// Adam is the Adam optimizer with bias-corrected step size.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t int
	m [][]float64
	v [][]float64
}

// NewAdam returns Adam with the usual defaults (β1 0.9, β2 0.999, ε 1e-7).
func NewAdam(learningRate float64) *Adam {
	return &Adam{LearningRate: learningRate, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

// Step updates params in place from grads, keeping one pair of moment
// estimates per slice. The slices must keep the same shapes across calls;
// a change in their number restarts the estimates.
func (a *Adam) Step(params, grads [][]float64) {
	if len(a.m) != len(params) {
		a.t = 0
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for k, p := range params {
			a.m[k] = make([]float64, len(p))
			a.v[k] = make([]float64, len(p))
		}
	}

	a.t++
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, float64(a.t))) / (1 - math.Pow(a.Beta1, float64(a.t)))
	for k, p := range params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g[i]
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g[i]*g[i]
			p[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
}

// Reset clears the moment estimates.
func (a *Adam) Reset() {
	a.t = 0
	a.m = nil
	a.v = nil
}
