// Package features derives the fixed-width numeric vector the classifier
// consumes from a raw sensor triplet. Synthesis is deterministic and must
// behave identically at training time and inference time; any divergence
// skews the feature distribution between the two paths.
package features

import (
	"math"

	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

// Feature indices in canonical order.
const (
	IdxPiezo = iota
	IdxTDS
	IdxDistance
	IdxPiezoTDSRatio
	IdxDistancePiezoRatio
	IdxCombinedScore

	Count = 6
)

// Epsilon floors denominators so ratios never divide by zero.
const Epsilon = 0.001

// Minimum positive values applied to malformed inputs. Readings are clamped,
// never rejected, matching the synthetic generator's flooring.
const (
	MinPiezo    = 0.0
	MinTDS      = 0.0
	MinDistance = 0.1
)

// Vector is the fixed-order feature sequence:
// piezo, tds, distance, piezo/tds, distance/piezo, combined score.
type Vector [Count]float64

// Names gives the canonical column names, index-aligned with Vector.
var Names = [Count]string{
	"piezo",
	"tds",
	"distance",
	"piezo_tds_ratio",
	"distance_piezo_ratio",
	"combined_score",
}

// Clamp floors a raw triplet to the minimum positive values. Applied to
// every reading on both the training and serving paths.
func Clamp(piezo, tds, distance float64) (float64, float64, float64) {
	return math.Max(piezo, MinPiezo), math.Max(tds, MinTDS), math.Max(distance, MinDistance)
}

// Synthesize turns one reading into a feature vector. The only failure mode
// is a non-finite result after clamping, reported as a feature error rather
// than propagated as NaN into the ensemble.
func Synthesize(reading types.SensorReading) (Vector, error) {
	piezo, tds, distance := Clamp(reading.Piezo, reading.TDS, reading.Distance)

	v := Vector{
		IdxPiezo:              piezo,
		IdxTDS:                tds,
		IdxDistance:           distance,
		IdxPiezoTDSRatio:      piezo / math.Max(tds, Epsilon),
		IdxDistancePiezoRatio: distance / math.Max(piezo, Epsilon),
		IdxCombinedScore:      0.4*piezo + 0.3*tds + 0.3*(1/math.Max(distance, Epsilon)),
	}

	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Vector{}, apperrors.NewFeatureError("non-finite value in feature " + Names[i])
		}
	}

	return v, nil
}
