package classifier

import "math"

// Scaler holds per-feature mean and standard deviation fit on training
// data. The scaler used at inference must be the one fit alongside the
// currently loaded ensemble; the bundle format keeps them paired.
type Scaler struct {
	Means   []float64 `json:"means"`
	Stddevs []float64 `json:"stddevs"`
}

// FitScaler computes column means and standard deviations over X.
// A zero-variance column gets stddev 1 so Transform is a no-op for it.
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}

	dims := len(X[0])
	means := make([]float64, dims)
	stddevs := make([]float64, dims)

	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(X))
	}

	for _, row := range X {
		for j, v := range row {
			d := v - means[j]
			stddevs[j] += d * d
		}
	}
	for j := range stddevs {
		stddevs[j] = math.Sqrt(stddevs[j] / float64(len(X)))
		if stddevs[j] == 0 {
			stddevs[j] = 1
		}
	}

	return &Scaler{Means: means, Stddevs: stddevs}
}

// Transform standardizes one vector to zero mean, unit variance.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Means[j]) / s.Stddevs[j]
	}
	return out
}

// TransformAll standardizes every row of X.
func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// Dims returns the feature width the scaler was fit on.
func (s *Scaler) Dims() int {
	return len(s.Means)
}
