package classifier

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// toyBlobs builds two well-separated 2D clusters.
func toyBlobs() (X [][]float64, y []int) {
	for i := 0; i < 30; i++ {
		offset := float64(i%5) * 0.1
		X = append(X, []float64{-2 + offset, -2 - offset})
		y = append(y, 0)
		X = append(X, []float64{2 - offset, 2 + offset})
		y = append(y, 1)
	}
	return X, y
}

func assertSimplex(t *testing.T, probs []float64) {
	t.Helper()
	sum := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestComponentModelsSeparateBlobs(t *testing.T) {
	X, y := toyBlobs()

	models := map[string]ProbabilisticClassifier{
		"forest":   NewRandomForest(10, 5, 1),
		"boosting": NewGradientBoosting(10, 0.1, 1),
		"kernel":   NewKernelClassifier(10, 0.5, 1),
		"bayes":    NewGaussianNB(),
	}

	for name, model := range models {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, model.Fit(X, y, 2))

			p0 := model.PredictProba([]float64{-2, -2})
			assertSimplex(t, p0)
			assert.Greater(t, p0[0], p0[1], "%s should prefer class 0 near its cluster", name)

			p1 := model.PredictProba([]float64{2, 2})
			assertSimplex(t, p1)
			assert.Greater(t, p1[1], p1[0], "%s should prefer class 1 near its cluster", name)
		})
	}
}

func TestDecisionTreePureLeaf(t *testing.T) {
	X := [][]float64{{0}, {0.1}, {0.2}}
	y := []int{1, 1, 1}

	tree := &DecisionTree{MaxDepth: 5, MinLeaf: 1}
	tree.fit(X, y, 2, []int{0, 1, 2}, newTestRNG())

	probs := tree.PredictProba([]float64{0.05})
	assert.Equal(t, []float64{0, 1}, probs)
}

func TestGaussianNBHandlesConstantFeature(t *testing.T) {
	// Second column is constant; the variance floor must keep the
	// likelihood finite.
	X := [][]float64{{-1, 5}, {-1.1, 5}, {1, 5}, {1.1, 5}}
	y := []int{0, 0, 1, 1}

	nb := NewGaussianNB()
	require.NoError(t, nb.Fit(X, y, 2))

	probs := nb.PredictProba([]float64{-1, 5})
	assertSimplex(t, probs)
	assert.False(t, math.IsNaN(probs[0]))
	assert.Greater(t, probs[0], probs[1])
}

func TestRandomForestSeededDeterminism(t *testing.T) {
	X, y := toyBlobs()

	a := NewRandomForest(5, 4, 9)
	require.NoError(t, a.Fit(X, y, 2))
	b := NewRandomForest(5, 4, 9)
	require.NoError(t, b.Fit(X, y, 2))

	probe := []float64{0.3, -0.3}
	assert.Equal(t, a.PredictProba(probe), b.PredictProba(probe))
}

func TestEnsembleSoftVoting(t *testing.T) {
	X, y := toyBlobs()

	ensemble := &Ensemble{
		Forest:   NewRandomForest(10, 5, 1),
		Boosting: NewGradientBoosting(10, 0.1, 2),
		Kernel:   NewKernelClassifier(10, 0.5, 3),
		Bayes:    NewGaussianNB(),
	}
	require.NoError(t, ensemble.Fit(X, y, 2))

	probs := ensemble.PredictProba([]float64{-2, -2})
	assertSimplex(t, probs)
	assert.Equal(t, 0, ensemble.Predict([]float64{-2, -2}))
	assert.Equal(t, 1, ensemble.Predict([]float64{2, 2}))

	// Equal-weight soft voting: the ensemble probability is the mean of
	// the component probabilities.
	expected := 0.0
	for _, m := range ensemble.components() {
		expected += m.PredictProba([]float64{-2, -2})[0]
	}
	expected /= 4
	assert.InDelta(t, expected, probs[0], 1e-9)
}
