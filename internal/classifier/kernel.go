package classifier

import (
	"math"
	"math/rand"
)

// KernelClassifier is a one-vs-rest logistic model in radial-basis-function
// feature space. Probabilities come straight out of the per-class sigmoids
// (then renormalized across classes), so no separate calibration pass is
// needed.
type KernelClassifier struct {
	Gamma        float64     `json:"gamma"`
	Support      [][]float64 `json:"support"` // training points, standardized
	Alpha        [][]float64 `json:"alpha"`   // [class][support]
	Bias         []float64   `json:"bias"`
	Epochs       int         `json:"epochs"`
	LearningRate float64     `json:"learning_rate"`
	L2           float64     `json:"l2"`
	Seed         int64       `json:"seed"`
	NumClasses   int         `json:"num_classes"`
}

// NewKernelClassifier configures the model; Fit does the work.
func NewKernelClassifier(epochs int, learningRate float64, seed int64) *KernelClassifier {
	return &KernelClassifier{
		Epochs:       epochs,
		LearningRate: learningRate,
		L2:           1e-4,
		Seed:         seed,
	}
}

func rbf(a, b []float64, gamma float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

// Fit keeps the training set as the support set and learns per-class dual
// weights by stochastic gradient steps on the logistic loss. Gamma follows
// the 1/(d*Var(X)) "scale" heuristic.
func (kc *KernelClassifier) Fit(X [][]float64, y []int, numClasses int) error {
	kc.NumClasses = numClasses
	n := len(X)
	dims := len(X[0])

	variance := 0.0
	means := make([]float64, dims)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	for _, row := range X {
		for j, v := range row {
			d := v - means[j]
			variance += d * d
		}
	}
	variance /= float64(n * dims)
	if variance == 0 {
		variance = 1
	}
	kc.Gamma = 1 / (float64(dims) * variance)

	kc.Support = X
	kc.Alpha = make([][]float64, numClasses)
	for k := range kc.Alpha {
		kc.Alpha[k] = make([]float64, n)
	}
	kc.Bias = make([]float64, numClasses)

	// Precompute the kernel matrix once; training revisits it every epoch.
	K := make([][]float64, n)
	for i := range K {
		K[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			v := rbf(X[i], X[j], kc.Gamma)
			K[i][j] = v
			K[j][i] = v
		}
	}

	rng := rand.New(rand.NewSource(kc.Seed))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < kc.Epochs; epoch++ {
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		for _, i := range order {
			for k := 0; k < numClasses; k++ {
				score := kc.Bias[k]
				alpha := kc.Alpha[k]
				for j, a := range alpha {
					if a != 0 {
						score += a * K[j][i]
					}
				}

				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				p := 1 / (1 + math.Exp(-score))
				step := kc.LearningRate * (target - p)

				alpha[i] = alpha[i]*(1-kc.LearningRate*kc.L2) + step
				kc.Bias[k] += step
			}
		}
	}

	return nil
}

// PredictProba evaluates the per-class sigmoids against the support set and
// renormalizes so the vector sums to one.
func (kc *KernelClassifier) PredictProba(x []float64) []float64 {
	kvals := make([]float64, len(kc.Support))
	for j, s := range kc.Support {
		kvals[j] = rbf(x, s, kc.Gamma)
	}

	probs := make([]float64, kc.NumClasses)
	sum := 0.0
	for k := 0; k < kc.NumClasses; k++ {
		score := kc.Bias[k]
		for j, a := range kc.Alpha[k] {
			if a != 0 {
				score += a * kvals[j]
			}
		}
		probs[k] = 1 / (1 + math.Exp(-score))
		sum += probs[k]
	}

	if sum == 0 {
		for k := range probs {
			probs[k] = 1 / float64(kc.NumClasses)
		}
		return probs
	}
	for k := range probs {
		probs[k] /= sum
	}
	return probs
}
