// Package nn trains small feed-forward networks by mini-batch gradient descent.
//
// A Sequential stacks Dense layers and is trained with Adam against one of
// BinaryCrossEntropy, MeanAbsoluteError or MeanSquaredError. Fit follows the
// usual high-level training loop: the trailing ValidationSplit fraction of the
// rows is held out, the rest is shuffled each epoch and consumed in batches,
// and every epoch appends loss (and AUC for binary cross-entropy) for both
// parts to the model's History.
//
//	net := nn.NewMLP(6, 6, 0, nn.BinaryCrossEntropy{},
//		nn.WithEpochs(20),
//		nn.WithValidationSplit(0.1),
//	)
//	if err := net.Fit(XTrain, yTrain); err != nil {
//		return err
//	}
//	valLoss := net.History().Get(model.SeriesValLoss)
package nn

import (
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/superstore/core/model"
	"github.com/ezoic/superstore/metrics"
	"github.com/ezoic/superstore/modelselection"
	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Sequential is a stack of Dense layers with a single output unit.
type Sequential struct {
	state   *model.StateManager
	logger  log.Logger
	layers  []*Dense
	loss    Loss
	opt     *Adam
	rng     *rand.Rand
	history *model.History
	inputs  int

	name            string
	epochs          int
	batchSize       int
	learningRate    float64
	validationSplit float64
	shuffle         bool
	seed            int64
}

// Option configures a Sequential.
type Option func(*Sequential)

// WithName sets the model name used in logs and errors.
func WithName(name string) Option {
	return func(s *Sequential) { s.name = name }
}

// WithEpochs sets the number of passes over the training rows.
func WithEpochs(epochs int) Option {
	return func(s *Sequential) { s.epochs = epochs }
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(size int) Option {
	return func(s *Sequential) { s.batchSize = size }
}

// WithLearningRate sets the Adam learning rate.
func WithLearningRate(lr float64) Option {
	return func(s *Sequential) { s.learningRate = lr }
}

// WithValidationSplit holds out the trailing fraction of the rows passed to Fit.
func WithValidationSplit(frac float64) Option {
	return func(s *Sequential) { s.validationSplit = frac }
}

// WithShuffle controls per-epoch shuffling of the training rows.
func WithShuffle(shuffle bool) Option {
	return func(s *Sequential) { s.shuffle = shuffle }
}

// WithSeed seeds weight initialization and shuffling.
func WithSeed(seed int64) Option {
	return func(s *Sequential) { s.seed = seed }
}

// NewSequential creates an empty network over inputs features. Layers are
// added with Add; the last one must have a single unit.
func NewSequential(inputs int, loss Loss, opts ...Option) *Sequential {
	s := &Sequential{
		loss:         loss,
		inputs:       inputs,
		name:         "Sequential",
		epochs:       20,
		batchSize:    32,
		learningRate: 0.001,
		shuffle:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = model.NewStateManager(s.name)
	s.logger = log.GetLoggerWithName("nn").With(log.ModelNameKey, s.name)
	s.rng = rand.New(rand.NewSource(s.seed))
	s.opt = NewAdam(s.learningRate)
	s.history = model.NewHistory()
	return s
}

// Add appends a Dense layer of units outputs.
func (s *Sequential) Add(units int, act Activation) *Sequential {
	in := s.inputs
	if len(s.layers) > 0 {
		in = s.layers[len(s.layers)-1].Units()
	}
	s.layers = append(s.layers, newDense(in, units, act, s.rng))
	return s
}

// NewLinear is a single Dense unit: linear regression under a regression
// loss, logistic regression (sigmoid output) under BinaryCrossEntropy.
func NewLinear(inputs int, loss Loss, opts ...Option) *Sequential {
	name := "LinearRegression"
	if isBinary(loss) {
		name = "LogisticRegression"
	}
	s := NewSequential(inputs, loss, append([]Option{WithName(name)}, opts...)...)
	return s.Add(1, outputActivation(loss))
}

// NewMLP stacks hidden ReLU layers of width units (inputs when width is 0)
// before a single output unit.
func NewMLP(inputs, hidden, width int, loss Loss, opts ...Option) *Sequential {
	if width <= 0 {
		width = inputs
	}
	s := NewSequential(inputs, loss, append([]Option{WithName("MLP")}, opts...)...)
	for i := 0; i < hidden; i++ {
		s.Add(width, ReLU)
	}
	return s.Add(1, outputActivation(loss))
}

func outputActivation(loss Loss) Activation {
	if isBinary(loss) {
		return Sigmoid
	}
	return Linear
}

// Name returns the model name.
func (s *Sequential) Name() string { return s.name }

// Layers returns the network's layers.
func (s *Sequential) Layers() []*Dense { return s.layers }

// History returns the per-epoch metrics recorded by Fit.
func (s *Sequential) History() *model.History { return s.history }

// IsFitted reports whether Fit has completed.
func (s *Sequential) IsFitted() bool { return s.state.IsFitted() }

// Fit trains the network on X (n×features) and y (n×1).
func (s *Sequential) Fit(X, y mat.Matrix) (err error) {
	defer ssErrors.Recover(&err, s.name+".Fit")

	if err := s.validate(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n == 0 {
		return ssErrors.NewModelError(s.name+".Fit", "empty data", ssErrors.ErrEmptyData)
	}
	if p != s.inputs {
		return ssErrors.NewDimensionError(s.name+".Fit", s.inputs, p, 1)
	}
	if ny, _ := y.Dims(); ny != n {
		return ssErrors.NewDimensionError(s.name+".Fit", n, ny, 0)
	}

	trainIdx, valIdx := modelselection.ValidationSplit(n, s.validationSplit)
	XTrain, yTrain := modelselection.Take(X, y, trainIdx)
	var XVal *mat.Dense
	var yVal *mat.VecDense
	if len(valIdx) > 0 {
		XVal, yVal = modelselection.Take(X, y, valIdx)
	}

	s.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(trainIdx),
		log.FeaturesKey, p,
		log.BatchSizeKey, s.batchSize,
		log.LearningRateKey, s.learningRate,
		log.RandomSeedKey, s.seed,
	)
	start := time.Now()

	s.opt.Reset()
	s.history = model.NewHistory()
	params, grads := s.parameters()

	binary := isBinary(s.loss)
	order := modelselection.Range(0, len(trainIdx))
	epochPred := mat.NewVecDense(len(order), nil)
	epochTrue := mat.NewVecDense(len(order), nil)

	for epoch := 0; epoch < s.epochs; epoch++ {
		if s.shuffle {
			s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		lossSum := 0.0
		for b := 0; b < len(order); b += s.batchSize {
			end := b + s.batchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[b:end]
			Xb := modelselection.TakeRows(XTrain, batch)
			yb := mat.NewDense(len(batch), 1, nil)
			for r, i := range batch {
				yb.Set(r, 0, yTrain.AtVec(i))
			}

			out := s.forward(Xb)
			lossSum += s.loss.Value(yb, out) * float64(len(batch))
			for r := range batch {
				epochPred.SetVec(b+r, out.At(r, 0))
				epochTrue.SetVec(b+r, yb.At(r, 0))
			}

			s.backward(s.loss.Gradient(yb, out))
			s.opt.Step(params, grads)
		}

		trainLoss := lossSum / float64(len(order))
		s.history.Append(model.SeriesLoss, trainLoss)
		if binary {
			s.history.Append(model.SeriesAUC, s.auc(epochTrue, epochPred))
		}
		fields := []any{log.EpochKey, epoch + 1, log.LossKey, trainLoss}

		if XVal != nil {
			eval, err := s.evaluate(XVal, yVal)
			if err != nil {
				return err
			}
			s.history.Append(model.SeriesValLoss, eval[model.SeriesLoss])
			fields = append(fields, log.ValLossKey, eval[model.SeriesLoss])
			if binary {
				s.history.Append(model.SeriesValAUC, eval[model.SeriesAUC])
				fields = append(fields, log.ValAUCKey, eval[model.SeriesAUC])
			}
		}
		s.logger.Debug("Epoch completed", fields...)

		if math.IsNaN(trainLoss) || math.IsInf(trainLoss, 0) {
			ssErrors.Warn(ssErrors.NewConvergenceWarning(s.name, epoch+1, "loss is not finite"))
			break
		}
	}

	s.state.SetDimensions(p, n)
	s.state.SetFitted()

	lastLoss, _ := s.history.Last(model.SeriesLoss)
	s.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.EpochKey, s.history.Len(),
		log.LossKey, lastLoss,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// parameters flattens every layer's trainable slices and their gradients
// so one optimizer step covers the whole network.
func (s *Sequential) parameters() (params, grads [][]float64) {
	for _, layer := range s.layers {
		p, g := layer.params()
		params = append(params, p...)
		grads = append(grads, g...)
	}
	return params, grads
}

func (s *Sequential) validate() error {
	switch {
	case len(s.layers) == 0:
		return ssErrors.NewValidationError("layers", "network has no layers", 0)
	case s.layers[len(s.layers)-1].Units() != 1:
		return ssErrors.NewValidationError("layers", "output layer must have one unit", s.layers[len(s.layers)-1].Units())
	case s.epochs <= 0:
		return ssErrors.NewValidationError("epochs", "must be positive", s.epochs)
	case s.batchSize <= 0:
		return ssErrors.NewValidationError("batch_size", "must be positive", s.batchSize)
	case s.learningRate <= 0:
		return ssErrors.NewValidationError("learning_rate", "must be positive", s.learningRate)
	case s.validationSplit < 0 || s.validationSplit >= 1:
		return ssErrors.NewValidationError("validation_split", "must be in [0, 1)", s.validationSplit)
	}
	return nil
}

func (s *Sequential) forward(X *mat.Dense) *mat.Dense {
	out := X
	for _, layer := range s.layers {
		out = layer.forward(out)
	}
	return out
}

func (s *Sequential) backward(grad *mat.Dense) {
	for i := len(s.layers) - 1; i >= 0; i-- {
		grad = s.layers[i].backward(grad)
	}
}

func (s *Sequential) auc(yTrue, yPred *mat.VecDense) float64 {
	auc, err := metrics.AUC(yTrue, yPred)
	if err != nil {
		return math.NaN()
	}
	return auc
}

func (s *Sequential) evaluate(X *mat.Dense, y *mat.VecDense) (map[string]float64, error) {
	out := s.forward(X)
	n, _ := X.Dims()
	yd := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		yd.Set(i, 0, y.AtVec(i))
	}
	result := map[string]float64{model.SeriesLoss: s.loss.Value(yd, out)}
	if isBinary(s.loss) {
		result[model.SeriesAUC] = s.auc(y, metrics.Column(out, 0))
	}
	return result, nil
}

// Evaluate returns the loss on (X, y), plus "auc" under BinaryCrossEntropy.
func (s *Sequential) Evaluate(X, y mat.Matrix) (_ map[string]float64, err error) {
	defer ssErrors.Recover(&err, s.name+".Evaluate")
	n, p := X.Dims()
	if err := s.state.CheckFeatures("Evaluate", p); err != nil {
		return nil, err
	}
	if ny, _ := y.Dims(); ny != n {
		return nil, ssErrors.NewDimensionError(s.name+".Evaluate", n, ny, 0)
	}
	Xd, yv := modelselection.Take(X, y, modelselection.Range(0, n))
	result, err := s.evaluate(Xd, yv)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Evaluation completed",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, n,
		log.LossKey, result[model.SeriesLoss],
	)
	return result, nil
}

// Predict returns the raw network output (n×1): probabilities of class 1
// under BinaryCrossEntropy, regression values otherwise.
func (s *Sequential) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer ssErrors.Recover(&err, s.name+".Predict")
	n, p := X.Dims()
	if err := s.state.CheckFeatures("Predict", p); err != nil {
		return nil, err
	}
	return s.forward(modelselection.TakeRows(X, modelselection.Range(0, n))), nil
}

// PredictProba returns (n×2) class probabilities. It requires BinaryCrossEntropy.
func (s *Sequential) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !isBinary(s.loss) {
		return nil, ssErrors.NewValueError(s.name+".PredictProba", "requires binary_crossentropy loss, got "+s.loss.Name())
	}
	out, err := s.Predict(X)
	if err != nil {
		return nil, err
	}
	n, _ := out.Dims()
	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := out.At(i, 0)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}
