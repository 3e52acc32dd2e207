package classifier

// Ensemble combines the four component models by soft voting: the class
// probability is the weighted mean of the components' probabilities, with
// equal weights by default.
type Ensemble struct {
	Forest   *RandomForest     `json:"forest"`
	Boosting *GradientBoosting `json:"boosting"`
	Kernel   *KernelClassifier `json:"kernel"`
	Bayes    *GaussianNB       `json:"bayes"`
	Weights  []float64         `json:"weights"`

	NumClasses int `json:"num_classes"`
}

func (e *Ensemble) components() []ProbabilisticClassifier {
	return []ProbabilisticClassifier{e.Forest, e.Boosting, e.Kernel, e.Bayes}
}

// Fit trains every component independently on the same standardized data.
func (e *Ensemble) Fit(X [][]float64, y []int, numClasses int) error {
	e.NumClasses = numClasses
	if len(e.Weights) == 0 {
		e.Weights = []float64{1, 1, 1, 1}
	}
	for _, m := range e.components() {
		if err := m.Fit(X, y, numClasses); err != nil {
			return err
		}
	}
	return nil
}

// PredictProba averages the component probability vectors. Each component
// emits a simplex vector, so the average sums to one as well.
func (e *Ensemble) PredictProba(x []float64) []float64 {
	probs := make([]float64, e.NumClasses)
	totalWeight := 0.0
	for i, m := range e.components() {
		w := e.Weights[i]
		totalWeight += w
		for j, p := range m.PredictProba(x) {
			probs[j] += w * p
		}
	}
	for j := range probs {
		probs[j] /= totalWeight
	}
	return probs
}

// Predict returns the argmax class index.
func (e *Ensemble) Predict(x []float64) int {
	probs := e.PredictProba(x)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}
