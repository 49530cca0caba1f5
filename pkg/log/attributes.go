package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator, e.g. "MLP", "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed ("fit", "predict", ...).
	OperationKey = "ml.operation"

	// ComponentKey is the package performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase ("training", "validation", ...).
	PhaseKey = "ml.phase"

	// RecipeKey names the feature recipe of a run.
	RecipeKey = "pipeline.recipe"

	// SourceKey is the CSV location a frame was loaded from.
	SourceKey = "pipeline.source"

	// OutputKey is a file a run wrote, such as a plot.
	OutputKey = "pipeline.output"
)

// Data shape.
const (
	SamplesKey   = "data.samples"
	FeaturesKey  = "data.features"
	ColumnsKey   = "data.columns"
	DroppedKey   = "data.dropped_rows"
	BatchSizeKey = "data.batch_size"
)

// Performance and metrics.
const (
	DurationMsKey   = "perf.duration_ms"
	LossKey         = "metrics.loss"
	ValLossKey      = "metrics.val_loss"
	AUCKey          = "metrics.auc"
	ValAUCKey       = "metrics.val_auc"
	AccuracyKey     = "metrics.accuracy"
	MAEKey          = "metrics.mae"
	R2ScoreKey      = "metrics.r2_score"
	EpochKey        = "training.epoch"
	IterationKey    = "training.iteration"
	PredsKey        = "preds.count"
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
)

// Tree ensembles.
const (
	TreesKey      = "model.trees"
	TreeDepthKey  = "model.tree_depth"
	TreeLeavesKey = "model.tree_leaves"
	RMSEKey       = "metrics.rmse"
)

// Error context.
const (
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// Standard values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"
	OperationLoad      = "load"
	OperationBuild     = "build"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
