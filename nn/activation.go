package nn

import "math"

// Activation is the element-wise non-linearity of a Dense layer.
type Activation int

const (
	// Linear is the identity.
	Linear Activation = iota
	// ReLU is max(0, z).
	ReLU
	// Sigmoid is 1 / (1 + e^-z).
	Sigmoid
)

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	default:
		return "linear"
	}
}

func (a Activation) apply(z float64) float64 {
	switch a {
	case ReLU:
		if z > 0 {
			return z
		}
		return 0
	case Sigmoid:
		if z >= 0 {
			return 1 / (1 + math.Exp(-z))
		}
		e := math.Exp(z)
		return e / (1 + e)
	default:
		return z
	}
}

// derivative returns da/dz given the pre-activation z and output out.
func (a Activation) derivative(z, out float64) float64 {
	switch a {
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	case Sigmoid:
		return out * (1 - out)
	default:
		return 1
	}
}
