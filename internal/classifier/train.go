package classifier

import (
	"log/slog"
	"time"

	"github.com/archaeoscan/archaeoscan/internal/features"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

// TrainConfig holds the fixed ensemble architecture parameters. Defaults
// reproduce the deployed configuration; tests shrink them for speed.
type TrainConfig struct {
	Seed            int64
	SamplesPerClass int
	TestFraction    float64

	ForestTrees    int
	ForestMaxDepth int

	BoostingStages       int
	BoostingLearningRate float64

	KernelEpochs       int
	KernelLearningRate float64
}

// DefaultTrainConfig is the production architecture: 200 bagged trees of
// depth 15, 150 boosting stages at learning rate 0.1, RBF kernel model,
// Gaussian naive Bayes, 80/20 stratified split.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Seed:                 42,
		SamplesPerClass:      200,
		TestFraction:         0.2,
		ForestTrees:          200,
		ForestMaxDepth:       15,
		BoostingStages:       150,
		BoostingLearningRate: 0.1,
		KernelEpochs:         30,
		KernelLearningRate:   0.5,
	}
}

// Train runs the full pipeline over labeled rows: feature synthesis,
// scaler fit, stratified split, component fitting, held-out evaluation.
// The returned bundle pairs the fitted ensemble with its scaler; nothing
// is persisted here, and nothing is persisted at all when Train fails.
func Train(samples []Sample, cfg TrainConfig) (*Bundle, Evaluation, error) {
	labels := types.Materials
	idx := labelIndex(labels)

	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		vec, err := features.Synthesize(types.SensorReading{
			Piezo:    s.Piezo,
			TDS:      s.TDS,
			Distance: s.Distance,
		})
		if err != nil {
			return nil, Evaluation{}, err
		}
		X[i] = vec[:]
		y[i] = idx[s.Label]
	}

	scaler := FitScaler(X)
	scaled := scaler.TransformAll(X)

	trainX, testX, trainY, testY, err := StratifiedSplit(scaled, y, cfg.TestFraction, len(labels), cfg.Seed)
	if err != nil {
		return nil, Evaluation{}, err
	}

	slog.Info("training ensemble",
		"train_size", len(trainX),
		"test_size", len(testX),
		"classes", len(labels))

	ensemble := &Ensemble{
		Forest:   NewRandomForest(cfg.ForestTrees, cfg.ForestMaxDepth, cfg.Seed),
		Boosting: NewGradientBoosting(cfg.BoostingStages, cfg.BoostingLearningRate, cfg.Seed+1),
		Kernel:   NewKernelClassifier(cfg.KernelEpochs, cfg.KernelLearningRate, cfg.Seed+2),
		Bayes:    NewGaussianNB(),
	}
	if err := ensemble.Fit(trainX, trainY, len(labels)); err != nil {
		return nil, Evaluation{}, err
	}

	yPred := make([]int, len(testX))
	for i, row := range testX {
		yPred[i] = ensemble.Predict(row)
	}
	eval := Evaluate(testY, yPred, labels)
	eval.TrainSize = len(trainX)

	slog.Info("ensemble evaluation", "accuracy", eval.Accuracy)

	bundle := &Bundle{
		Version:   BundleVersion,
		Labels:    labels,
		Scaler:    scaler,
		Ensemble:  ensemble,
		TrainedAt: time.Now().UTC(),
		Accuracy:  eval.Accuracy,
	}
	return bundle, eval, nil
}

// TrainSynthetic generates the class-conditional synthetic dataset and
// trains on it; the path used when no labeled field dataset exists.
func TrainSynthetic(cfg TrainConfig) (*Bundle, Evaluation, error) {
	gen := NewGenerator(DefaultPriors, cfg.Seed)
	samples := gen.Generate(cfg.SamplesPerClass)
	return Train(samples, cfg)
}
