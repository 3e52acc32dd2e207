package classifier

import "math"

// GaussianNB is a Gaussian naive Bayes classifier: independent per-feature
// normals per class, combined with class log-priors.
type GaussianNB struct {
	Means      [][]float64 `json:"means"`     // [class][feature]
	Variances  [][]float64 `json:"variances"` // [class][feature]
	LogPriors  []float64   `json:"log_priors"`
	NumClasses int         `json:"num_classes"`
}

// varianceFloor keeps degenerate (constant) features from collapsing the
// likelihood, mirroring the usual var_smoothing behavior.
const varianceFloor = 1e-9

// NewGaussianNB returns an unfit model; Fit does the work.
func NewGaussianNB() *GaussianNB {
	return &GaussianNB{}
}

// Fit estimates per-class feature means, variances and priors.
func (nb *GaussianNB) Fit(X [][]float64, y []int, numClasses int) error {
	nb.NumClasses = numClasses
	dims := len(X[0])

	counts := make([]float64, numClasses)
	nb.Means = make([][]float64, numClasses)
	nb.Variances = make([][]float64, numClasses)
	for k := range nb.Means {
		nb.Means[k] = make([]float64, dims)
		nb.Variances[k] = make([]float64, dims)
	}

	for i, row := range X {
		k := y[i]
		counts[k]++
		for j, v := range row {
			nb.Means[k][j] += v
		}
	}
	for k := range nb.Means {
		if counts[k] == 0 {
			continue
		}
		for j := range nb.Means[k] {
			nb.Means[k][j] /= counts[k]
		}
	}

	// Largest overall feature variance scales the smoothing floor.
	maxVar := 0.0
	globalMeans := make([]float64, dims)
	for _, row := range X {
		for j, v := range row {
			globalMeans[j] += v
		}
	}
	for j := range globalMeans {
		globalMeans[j] /= float64(len(X))
	}
	for _, row := range X {
		for j, v := range row {
			d := v - globalMeans[j]
			if dv := d * d / float64(len(X)); dv > maxVar {
				maxVar = dv
			}
		}
	}
	floor := varianceFloor * math.Max(maxVar, 1)

	for i, row := range X {
		k := y[i]
		for j, v := range row {
			d := v - nb.Means[k][j]
			nb.Variances[k][j] += d * d
		}
	}
	for k := range nb.Variances {
		if counts[k] == 0 {
			continue
		}
		for j := range nb.Variances[k] {
			nb.Variances[k][j] = nb.Variances[k][j]/counts[k] + floor
		}
	}

	nb.LogPriors = make([]float64, numClasses)
	for k := range nb.LogPriors {
		p := counts[k] / float64(len(X))
		if p == 0 {
			p = 1e-12
		}
		nb.LogPriors[k] = math.Log(p)
	}

	return nil
}

// PredictProba computes the normalized posterior over classes.
func (nb *GaussianNB) PredictProba(x []float64) []float64 {
	logJoint := make([]float64, nb.NumClasses)
	for k := 0; k < nb.NumClasses; k++ {
		ll := nb.LogPriors[k]
		for j, v := range x {
			variance := nb.Variances[k][j]
			d := v - nb.Means[k][j]
			ll += -0.5*math.Log(2*math.Pi*variance) - d*d/(2*variance)
		}
		logJoint[k] = ll
	}

	probs := make([]float64, nb.NumClasses)
	softmaxInto(logJoint, probs)
	return probs
}
