package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer computing act(X·W + b).
type Dense struct {
	// W has shape (inputs × units).
	W *mat.Dense
	// B has one bias per unit.
	B          []float64
	Activation Activation

	// cached by forward for backward
	input *mat.Dense
	z     *mat.Dense
	out   *mat.Dense

	gradW *mat.Dense
	gradB []float64
}

// newDense creates a layer with Glorot-uniform weights and zero biases.
func newDense(inputs, units int, act Activation, rng *rand.Rand) *Dense {
	limit := math.Sqrt(6 / float64(inputs+units))
	w := make([]float64, inputs*units)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return &Dense{
		W:          mat.NewDense(inputs, units, w),
		B:          make([]float64, units),
		Activation: act,
		gradW:      mat.NewDense(inputs, units, nil),
		gradB:      make([]float64, units),
	}
}

// Units returns the number of outputs.
func (d *Dense) Units() int {
	_, c := d.W.Dims()
	return c
}

// Inputs returns the number of inputs.
func (d *Dense) Inputs() int {
	r, _ := d.W.Dims()
	return r
}

func (d *Dense) forward(X *mat.Dense) *mat.Dense {
	n, _ := X.Dims()
	units := d.Units()

	z := mat.NewDense(n, units, nil)
	z.Mul(X, d.W)
	out := mat.NewDense(n, units, nil)
	for i := 0; i < n; i++ {
		zr := z.RawRowView(i)
		or := out.RawRowView(i)
		for j := range zr {
			zr[j] += d.B[j]
			or[j] = d.Activation.apply(zr[j])
		}
	}
	d.input, d.z, d.out = X, z, out
	return out
}

// backward takes dLoss/dOut and returns dLoss/dInput, storing parameter gradients.
func (d *Dense) backward(gradOut *mat.Dense) *mat.Dense {
	n, units := gradOut.Dims()
	dz := mat.NewDense(n, units, nil)
	for i := 0; i < n; i++ {
		gr := gradOut.RawRowView(i)
		zr := d.z.RawRowView(i)
		or := d.out.RawRowView(i)
		dr := dz.RawRowView(i)
		for j := range dr {
			dr[j] = gr[j] * d.Activation.derivative(zr[j], or[j])
		}
	}

	d.gradW.Mul(d.input.T(), dz)
	for j := range d.gradB {
		d.gradB[j] = 0
	}
	for i := 0; i < n; i++ {
		for j, v := range dz.RawRowView(i) {
			d.gradB[j] += v
		}
	}

	gradIn := mat.NewDense(n, d.Inputs(), nil)
	gradIn.Mul(dz, d.W.T())
	return gradIn
}

// params returns the trainable slices and their gradients, in matching order.
func (d *Dense) params() (params, grads [][]float64) {
	return [][]float64{d.W.RawMatrix().Data, d.B},
		[][]float64{d.gradW.RawMatrix().Data, d.gradB}
}
