package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/features"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

// BundleVersion guards against loading artifacts written by an
// incompatible build.
const BundleVersion = 1

// Bundle is the single on-disk artifact pairing the fitted ensemble with
// the scaler it was fit with. Keeping both in one atomically-written file
// removes the mismatched-pair failure class.
type Bundle struct {
	Version   int              `json:"version"`
	Labels    []types.Material `json:"labels"`
	Scaler    *Scaler          `json:"scaler"`
	Ensemble  *Ensemble        `json:"ensemble"`
	TrainedAt time.Time        `json:"trained_at"`
	Accuracy  float64          `json:"accuracy"`
}

// SaveBundle writes the bundle to path via a temp file and rename so a
// crashed write never leaves a half-usable artifact.
func SaveBundle(bundle *Bundle, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	if err := encoder.Encode(bundle); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move model bundle into place: %w", err)
	}
	return nil
}

// LoadBundle reads and validates a bundle. The scaler and ensemble are
// checked against each other and against the feature width; an
// inconsistent artifact is a scaler-mismatch error.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewScalerMismatchError("model bundle not readable", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, apperrors.NewScalerMismatchError("model bundle not parseable", err)
	}

	if bundle.Version != BundleVersion {
		return nil, apperrors.NewScalerMismatchError(
			fmt.Sprintf("model bundle version %d, expected %d", bundle.Version, BundleVersion), nil)
	}
	if bundle.Scaler == nil || bundle.Ensemble == nil {
		return nil, apperrors.NewScalerMismatchError("model bundle missing scaler or ensemble", nil)
	}
	if bundle.Scaler.Dims() != features.Count {
		return nil, apperrors.NewScalerMismatchError(
			fmt.Sprintf("scaler width %d does not match feature width %d", bundle.Scaler.Dims(), features.Count), nil)
	}
	if len(bundle.Labels) != bundle.Ensemble.NumClasses {
		return nil, apperrors.NewScalerMismatchError(
			fmt.Sprintf("bundle has %d labels but ensemble expects %d classes", len(bundle.Labels), bundle.Ensemble.NumClasses), nil)
	}
	if bundle.Ensemble.Forest == nil || bundle.Ensemble.Boosting == nil ||
		bundle.Ensemble.Kernel == nil || bundle.Ensemble.Bayes == nil {
		return nil, apperrors.NewScalerMismatchError("model bundle missing component models", nil)
	}
	if got, want := len(bundle.Ensemble.Weights), len(bundle.Ensemble.components()); got != want {
		return nil, apperrors.NewScalerMismatchError(
			fmt.Sprintf("bundle has %d voting weights but %d component models", got, want), nil)
	}

	return &bundle, nil
}
