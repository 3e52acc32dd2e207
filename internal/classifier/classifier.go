// Package classifier trains and serves the material ensemble: a bagged
// forest, a boosted-tree stage, an RBF-kernel logistic model and a Gaussian
// naive Bayes, combined by equal-weight soft voting over the closed
// 12-label material set.
package classifier

import (
	"time"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/features"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

// ProbabilisticClassifier is the capability every component model provides.
// PredictProba returns one probability per label, index-aligned with the
// label order the model was fit on.
type ProbabilisticClassifier interface {
	Fit(X [][]float64, y []int, numClasses int) error
	PredictProba(x []float64) []float64
}

// Classifier is the serving-side handle: one immutable bundle loaded at
// startup. Concurrent Classify calls need no coordination because nothing
// mutates after load.
type Classifier struct {
	bundle *Bundle
}

// NewClassifier wraps an already-loaded bundle.
func NewClassifier(bundle *Bundle) *Classifier {
	return &Classifier{bundle: bundle}
}

// LoadClassifier reads the model bundle from disk and validates the
// scaler/ensemble pairing.
func LoadClassifier(path string) (*Classifier, error) {
	bundle, err := LoadBundle(path)
	if err != nil {
		return nil, err
	}
	return &Classifier{bundle: bundle}, nil
}

// Classify runs one reading through synthesis, standardization and the
// voting ensemble. Fails with a scaler-mismatch error when no bundle is
// loaded.
func (c *Classifier) Classify(reading types.SensorReading) (types.ClassificationResult, error) {
	if c == nil || c.bundle == nil {
		return types.ClassificationResult{}, apperrors.NewScalerMismatchError("no model bundle loaded", nil)
	}

	vec, err := features.Synthesize(reading)
	if err != nil {
		return types.ClassificationResult{}, err
	}

	scaled := c.bundle.Scaler.Transform(vec[:])
	probs := c.bundle.Ensemble.PredictProba(scaled)

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	byLabel := make(map[types.Material]float64, len(probs))
	for i, p := range probs {
		byLabel[c.bundle.Labels[i]] = p
	}

	return types.ClassificationResult{
		Material:      c.bundle.Labels[best],
		Probabilities: byLabel,
		PredictedAt:   time.Now().UTC(),
	}, nil
}

// Bundle exposes the loaded artifact, mainly for health reporting.
func (c *Classifier) Bundle() *Bundle {
	if c == nil {
		return nil
	}
	return c.bundle
}
